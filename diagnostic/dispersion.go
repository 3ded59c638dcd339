package diagnostic

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfold/countfit/report"
)

// DispersionTest is one entry of the dispersion battery.
type DispersionTest struct {
	// Method names the test variant.
	Method string
	// Alternative describes the variance function under the alternative:
	// "mu (1 + a mu)" is the NB2 form, "mu (1 + a)" the NB1 form.
	Alternative string
	// Statistic is asymptotically standard normal under equidispersion.
	Statistic float64
	// PValue is the two-sided normal p-value.
	PValue float64
}

// DispersionResult holds the battery of mean-variance equality tests.
// Positive statistics point at overdispersion, negative at underdispersion.
type DispersionResult struct {
	Tests []DispersionTest
}

// Table renders the battery as a fixed-width table.
func (r *DispersionResult) Table() string {
	table := report.NewTable("method", "alternative", "statistic", "p-value")
	for _, t := range r.Tests {
		table.AddRow(t.Method, t.Alternative, report.Float(t.Statistic), report.Float(t.PValue))
	}

	return table.String()
}

// String renders a section header followed by Table.
func (r *DispersionResult) String() string {
	return report.Section("Dispersion tests") + r.Table()
}

// TestDispersion runs the score-type tests of the Poisson mean-variance
// equality, Var(y) = mu, against negative binomial alternatives.
//
// The battery covers the Dean A/B/C statistics and the Cameron-Trivedi
// auxiliary regressions: (resid^2 - y)/mu regressed on mu (NB2 alternative)
// or on a constant (NB1 alternative), with classical and HC1-robust t
// statistics. All statistics are standard normal under the null; p-values
// are two-sided.
func (d *Diagnostic) TestDispersion() *DispersionResult {
	res := d.res
	y := res.Model().Y()
	mu := res.FittedValues()
	n := len(y)

	// Per-row pieces shared by the battery.
	vre := make([]float64, n)  // (y - mu)^2 - y
	vrf := make([]float64, n)  // (y - mu)^2 - mu
	endv := make([]float64, n) // ((y - mu)^2 - y) / mu
	sumMu2 := 0.0
	for i := range y {
		r := y[i] - mu[i]
		vre[i] = r*r - y[i]
		vrf[i] = r*r - mu[i]
		endv[i] = vre[i] / mu[i]
		sumMu2 += mu[i] * mu[i]
	}

	std1 := math.Sqrt(2 * sumMu2)
	sumVre, sumVrf, sumEndv := 0.0, 0.0, 0.0
	for i := range y {
		sumVre += vre[i]
		sumVrf += vrf[i]
		sumEndv += endv[i]
	}

	deanA := sumVrf / std1
	deanB := sumVre / std1
	deanC := sumEndv / math.Sqrt(2*float64(n))

	tests := []DispersionTest{
		normTest("Dean A", "mu (1 + a mu)", deanA),
		normTest("Dean B", "mu (1 + a mu)", deanB),
		normTest("Dean C", "mu (1 + a)", deanC),
	}

	// Cameron-Trivedi auxiliary regressions, no constant: the slope t
	// statistic is the test.
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}

	tNB2, tNB2r := auxSlopeT(endv, mu)
	tNB1, tNB1r := auxSlopeT(endv, ones)
	tests = append(tests,
		normTest("CT NB2", "mu (1 + a mu)", tNB2),
		normTest("CT NB1", "mu (1 + a)", tNB1),
		normTest("CT NB2 HC1", "mu (1 + a mu)", tNB2r),
		normTest("CT NB1 HC1", "mu (1 + a)", tNB1r),
	)

	return &DispersionResult{Tests: tests}
}

func normTest(method, alternative string, stat float64) DispersionTest {
	return DispersionTest{
		Method:      method,
		Alternative: alternative,
		Statistic:   stat,
		PValue:      2 * distuv.UnitNormal.Survival(math.Abs(stat)),
	}
}

// auxSlopeT fits the single-regressor OLS z = b g + u through the origin and
// returns the slope t statistic under the classical and the HC1-robust
// variance. Degrees of freedom follow the one-regressor convention, n - 1.
func auxSlopeT(z, g []float64) (classic, hc1 float64) {
	n := len(z)

	sgg, sgz := 0.0, 0.0
	for i := range z {
		sgg += g[i] * g[i]
		sgz += g[i] * z[i]
	}
	b := sgz / sgg

	rss, meat := 0.0, 0.0
	for i := range z {
		u := z[i] - b*g[i]
		rss += u * u
		meat += g[i] * g[i] * u * u
	}

	dfResid := float64(n - 1)
	seClassic := math.Sqrt(rss / dfResid / sgg)
	seHC1 := math.Sqrt(meat/(sgg*sgg)) * math.Sqrt(float64(n)/dfResid)

	return b / seClassic, b / seHC1
}
