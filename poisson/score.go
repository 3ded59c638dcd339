package poisson

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfold/countfit/errs"
)

// ScoreTest runs the Lagrange multiplier test for omitted variables: are the
// extra columns needed on top of the fitted design?
//
// The augmented model [X, extra] is never fitted. Its score vector and
// observed information are evaluated at the null estimates (the fitted
// coefficients with zeros for the extra columns), giving
// LM = s' I^-1 s, chi-square with one degree of freedom per extra column.
// Only the null model has to converge, which is what makes the score form
// attractive when the alternative is fragile.
//
// Parameters:
//   - extra: Candidate columns, n rows, at least one column
//   - names: Column names, used in the null description; nil for z1, z2, ...
//
// Returns:
//   - *TestResult: Statistic, p-value, degrees of freedom.
//   - error: Shape mismatch, non-finite values, or a singular augmented
//     information matrix (extra columns collinear with the design).
func (r *Results) ScoreTest(extra *mat.Dense, names []string) (*TestResult, error) {
	m := r.model
	if extra == nil {
		return nil, fmt.Errorf("%w: nil extra columns", errs.ErrDimensionMismatch)
	}

	n, j := extra.Dims()
	if n != m.nobs {
		return nil, fmt.Errorf("%w: %d extra rows for %d observations", errs.ErrDimensionMismatch, n, m.nobs)
	}
	if j == 0 {
		return nil, fmt.Errorf("%w: no extra columns", errs.ErrDimensionMismatch)
	}
	for i := 0; i < n; i++ {
		for c := 0; c < j; c++ {
			if v := extra.At(i, c); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: extra column %d row %d", errs.ErrInvalidValue, c, i)
			}
		}
	}

	if names == nil {
		names = make([]string, j)
		for c := range names {
			names[c] = fmt.Sprintf("z%d", c+1)
		}
	} else if len(names) != j {
		return nil, fmt.Errorf("%w: %d names for %d extra columns", errs.ErrDimensionMismatch, len(names), j)
	}

	k := m.nparam
	ka := k + j
	aug := mat.NewDense(n, ka, nil)
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			aug.Set(i, c, m.x.At(i, c))
		}
		for c := 0; c < j; c++ {
			aug.Set(i, k+c, extra.At(i, c))
		}
	}

	// Score of the augmented model at the null fit. The fitted block is zero
	// up to the convergence tolerance; keeping it makes the quadratic form
	// exact rather than relying on the first-order condition.
	score := mat.NewVecDense(ka, nil)
	for i := 0; i < n; i++ {
		f := m.y[i] - r.mu[i]
		for c := 0; c < ka; c++ {
			score.SetVec(c, score.AtVec(c)+f*aug.At(i, c))
		}
	}

	info := informationMatrix(aug, r.mu)
	var chol mat.Cholesky
	if ok := chol.Factorize(info); !ok {
		return nil, fmt.Errorf("%w: augmented information is not positive definite", errs.ErrSingularInformation)
	}
	solved := mat.NewVecDense(ka, nil)
	if err := chol.SolveVecTo(solved, score); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSingularInformation, err)
	}

	stat := mat.Dot(score, solved)

	return &TestResult{
		Statistic: stat,
		PValue:    distuv.ChiSquared{K: float64(j)}.Survival(stat),
		DF:        j,
		Method:    "Score (LM) test",
		Null:      strings.Join(names, ", ") + " not needed",
	}, nil
}
