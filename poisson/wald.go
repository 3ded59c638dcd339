package poisson

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/report"
)

// TestResult holds a hypothesis test outcome. Wald and score tests on a
// fitted model both produce this type.
type TestResult struct {
	// Statistic is the test statistic, chi-square distributed under the null.
	Statistic float64
	// PValue is the chi-square survival probability of Statistic.
	PValue float64
	// DF is the degrees of freedom, the number of restrictions tested.
	DF int
	// Method names the test that was run.
	Method string
	// Null describes the hypothesis being tested.
	Null string
}

// Reject reports whether the null hypothesis is rejected at level alpha.
func (t *TestResult) Reject(alpha float64) bool {
	return t.PValue < alpha
}

// String renders the test as an aligned key/value block.
func (t *TestResult) String() string {
	return report.Section(t.Method) + report.KeyValues([][2]string{
		{"Null", t.Null},
		{"Statistic", report.Float(t.Statistic)},
		{"P-value", report.Float(t.PValue)},
		{"df", report.Int(t.DF)},
	})
}

// WaldTest tests the linear restrictions R beta = q using the fitted
// covariance: W = (R beta - q)' (R Cov R')^-1 (R beta - q), chi-square with
// one degree of freedom per restriction. Robust CovTypes give the robust
// Wald test.
//
// Parameters:
//   - restr: Restriction matrix, one row per restriction, k columns
//   - q: Right-hand side values, one per restriction; nil means zeros
//
// Returns:
//   - *TestResult: Statistic, p-value, and degrees of freedom.
//   - error: ErrInvalidRestriction on shape problems or a singular R Cov R'.
func (r *Results) WaldTest(restr [][]float64, q []float64) (*TestResult, error) {
	k := r.model.nparam
	j := len(restr)
	if j == 0 || j > k {
		return nil, fmt.Errorf("%w: %d restrictions for %d parameters", errs.ErrInvalidRestriction, j, k)
	}
	if q == nil {
		q = make([]float64, j)
	}
	if len(q) != j {
		return nil, fmt.Errorf("%w: %d right-hand values for %d restrictions", errs.ErrInvalidRestriction, len(q), j)
	}

	rm := mat.NewDense(j, k, nil)
	for i, row := range restr {
		if len(row) != k {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", errs.ErrInvalidRestriction, i, len(row), k)
		}
		rm.SetRow(i, row)
	}

	// discrepancy = R beta - q
	disc := mat.NewVecDense(j, nil)
	disc.MulVec(rm, mat.NewVecDense(k, r.params))
	for i := 0; i < j; i++ {
		disc.SetVec(i, disc.AtVec(i)-q[i])
	}

	// middle = R Cov R'
	var rc, middle mat.Dense
	rc.Mul(rm, r.cov)
	middle.Mul(&rc, rm.T())

	sym := mat.NewSymDense(j, nil)
	for a := 0; a < j; a++ {
		for b := a; b < j; b++ {
			sym.SetSym(a, b, (middle.At(a, b)+middle.At(b, a))/2)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("%w: R Cov R' is singular", errs.ErrInvalidRestriction)
	}
	solved := mat.NewVecDense(j, nil)
	if err := chol.SolveVecTo(solved, disc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRestriction, err)
	}

	stat := mat.Dot(disc, solved)

	return &TestResult{
		Statistic: stat,
		PValue:    distuv.ChiSquared{K: float64(j)}.Survival(stat),
		DF:        j,
		Method:    "Wald test",
		Null:      describeRestrictions(r.model.names, restr, q),
	}, nil
}

// WaldTestTerms tests that the named coefficients are jointly zero. It is
// the common special case of WaldTest with selector rows and q = 0.
func (r *Results) WaldTestTerms(names ...string) (*TestResult, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no terms named", errs.ErrInvalidRestriction)
	}

	restr := make([][]float64, len(names))
	for i, name := range names {
		col := -1
		for j, n := range r.model.names {
			if n == name {
				col = j
				break
			}
		}
		if col < 0 {
			return nil, fmt.Errorf("%w: unknown term %q", errs.ErrInvalidRestriction, name)
		}
		row := make([]float64, r.model.nparam)
		row[col] = 1
		restr[i] = row
	}

	res, err := r.WaldTest(restr, nil)
	if err != nil {
		return nil, err
	}
	res.Null = strings.Join(names, " = ") + " = 0"

	return res, nil
}

// describeRestrictions renders R beta = q rows as readable equations.
func describeRestrictions(names []string, restr [][]float64, q []float64) string {
	var sb strings.Builder
	for i, row := range restr {
		if i > 0 {
			sb.WriteString(", ")
		}
		first := true
		for j, c := range row {
			if c == 0 {
				continue
			}
			switch {
			case first && c == 1:
				sb.WriteString(names[j])
			case first:
				fmt.Fprintf(&sb, "%g*%s", c, names[j])
			case c == 1:
				fmt.Fprintf(&sb, " + %s", names[j])
			case c < 0:
				fmt.Fprintf(&sb, " - %g*%s", -c, names[j])
			default:
				fmt.Fprintf(&sb, " + %g*%s", c, names[j])
			}
			first = false
		}
		if first {
			sb.WriteString("0")
		}
		fmt.Fprintf(&sb, " = %g", q[i])
	}

	return sb.String()
}
