package diagnostic

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfold/countfit/report"
)

// ZeroTestResult holds the score test for zero modification: are there more
// (or fewer) zeros than the fitted Poisson predicts?
type ZeroTestResult struct {
	// Statistic is asymptotically standard normal under the fitted Poisson.
	// Positive values indicate excess zeros, negative values a deficit.
	Statistic float64
	// PValue is the two-sided normal p-value.
	PValue float64
	// PValueUpper is the one-sided p-value against zero inflation.
	PValueUpper float64
	// ObservedZeros is the number of zero counts in the sample.
	ObservedZeros int
	// ExpectedZeros is the model's expected number of zeros, sum exp(-mu).
	ExpectedZeros float64
}

// String renders the test as an aligned key/value block.
func (r *ZeroTestResult) String() string {
	return report.Section("Zero inflation score test") + report.KeyValues([][2]string{
		{"Observed zeros", report.Int(r.ObservedZeros)},
		{"Expected zeros", report.Float(r.ExpectedZeros)},
		{"Statistic", report.Float(r.Statistic)},
		{"P-value (two-sided)", report.Float(r.PValue)},
		{"P-value (inflation)", report.Float(r.PValueUpper)},
	})
}

// TestZeros runs the score test for a zero-modified alternative (van den
// Broek form). The score compares the observed zero indicator with the
// fitted zero probability p0 = exp(-mu); its variance,
// sum((1 - p0)/p0) - sum(y), carries the correction for the estimated
// intercept, so the design must contain a constant for the distribution to
// hold exactly.
//
// Degenerate variance (all mass far from zero cancelling numerically)
// yields NaN statistics rather than a spurious rejection.
func (d *Diagnostic) TestZeros() *ZeroTestResult {
	res := d.res
	y := res.Model().Y()
	mu := res.FittedValues()

	score, varScore, expected, sumY := 0.0, 0.0, 0.0, 0.0
	observed := 0
	for i := range y {
		p0 := math.Exp(-mu[i])
		expected += p0
		ind := 0.0
		if y[i] == 0 {
			ind = 1
			observed++
		}
		score += (ind - p0) / p0
		varScore += (1 - p0) / p0
		sumY += y[i]
	}
	varScore -= sumY

	out := &ZeroTestResult{
		Statistic:     math.NaN(),
		PValue:        math.NaN(),
		PValueUpper:   math.NaN(),
		ObservedZeros: observed,
		ExpectedZeros: expected,
	}
	if varScore <= 0 {
		return out
	}

	z := score / math.Sqrt(varScore)
	out.Statistic = z
	out.PValue = 2 * distuv.UnitNormal.Survival(math.Abs(z))
	out.PValueUpper = distuv.UnitNormal.Survival(z)

	return out
}
