package poisson

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/internal/pool"
)

// linearPredictor fills eta with X beta plus the offset.
func (m *Model) linearPredictor(beta, eta []float64) {
	for i := 0; i < m.nobs; i++ {
		v := 0.0
		for j := 0; j < m.nparam; j++ {
			v += m.x.At(i, j) * beta[j]
		}
		if m.offset != nil {
			v += m.offset[i]
		}
		eta[i] = v
	}
}

// informationMatrix computes X' diag(w) X.
func informationMatrix(x *mat.Dense, w []float64) *mat.SymDense {
	n, k := x.Dims()
	sx := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		sw := math.Sqrt(w[i])
		for j := 0; j < k; j++ {
			sx.Set(i, j, sw*x.At(i, j))
		}
	}

	info := mat.NewSymDense(k, nil)
	info.SymOuterK(1, sx.T())

	return info
}

// startValues returns the optimizer start: zeros, with log(mean(y)) at the
// constant column when one exists. WithStart overrides.
func (m *Model) startValues() []float64 {
	start := make([]float64, m.nparam)
	if m.cfg.start != nil {
		copy(start, m.cfg.start)
		return start
	}

	if j := m.constantColumn(); j >= 0 {
		mean := floats.Sum(m.y) / float64(m.nobs)
		if mean > 0 {
			start[j] = math.Log(mean)
		}
	}

	return start
}

func statusConverged(s optimize.Status) bool {
	switch s {
	case optimize.GradientThreshold, optimize.FunctionConvergence,
		optimize.StepConvergence, optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// Fit maximizes the Poisson log-likelihood and returns the fitted results.
//
// The negative log-likelihood, its gradient, and the observed information are
// supplied to gonum/optimize analytically, so Newton iterations converge in a
// handful of steps on well-conditioned designs.
//
// Returns:
//   - *Results: Parameter estimates, covariance, and fit statistics.
//   - error: ErrNotConverged if the optimizer stops early,
//     ErrSingularInformation if the information matrix has no Cholesky factor.
func (m *Model) Fit() (*Results, error) {
	n, k := m.nobs, m.nparam

	// Constant in beta, included so LogLike reports the exact likelihood.
	lgammaSum := 0.0
	for _, v := range m.y {
		lg, _ := math.Lgamma(v + 1)
		lgammaSum += lg
	}

	problem := optimize.Problem{
		Func: func(beta []float64) float64 {
			eta, done := pool.GetFloat64Slice(n)
			defer done()
			m.linearPredictor(beta, eta)

			ll := -lgammaSum
			for i, v := range m.y {
				ll += v*eta[i] - math.Exp(eta[i])
			}

			return -ll
		},
		Grad: func(grad, beta []float64) {
			eta, done := pool.GetFloat64Slice(n)
			defer done()
			m.linearPredictor(beta, eta)

			for j := 0; j < k; j++ {
				grad[j] = 0
			}
			for i, v := range m.y {
				r := v - math.Exp(eta[i])
				for j := 0; j < k; j++ {
					grad[j] -= r * m.x.At(i, j)
				}
			}
		},
		Hess: func(hess *mat.SymDense, beta []float64) {
			eta, done := pool.GetFloat64Slice(n)
			defer done()
			m.linearPredictor(beta, eta)

			for j := 0; j < k; j++ {
				for l := j; l < k; l++ {
					v := 0.0
					for i := 0; i < n; i++ {
						v += math.Exp(eta[i]) * m.x.At(i, j) * m.x.At(i, l)
					}
					hess.SetSym(j, l, v)
				}
			}
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: m.cfg.tol,
		MajorIterations:   m.cfg.maxIter,
	}

	var method optimize.Method
	switch m.cfg.method {
	case MethodBFGS:
		method = &optimize.BFGS{}
	default:
		method = &optimize.Newton{}
	}

	result, err := optimize.Minimize(problem, m.startValues(), settings, method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrNotConverged, err)
	}
	if !statusConverged(result.Status) {
		return nil, fmt.Errorf("%w: optimizer status %v after %d iterations",
			errs.ErrNotConverged, result.Status, result.Stats.MajorIterations)
	}

	params := make([]float64, k)
	copy(params, result.X)

	eta := make([]float64, n)
	m.linearPredictor(params, eta)
	mu := make([]float64, n)
	for i, e := range eta {
		mu[i] = math.Exp(e)
	}

	cov, infoInv, err := m.covariance(mu)
	if err != nil {
		return nil, err
	}

	res := &Results{
		model:      m,
		params:     params,
		cov:        cov,
		infoInv:    infoInv,
		covType:    m.cfg.covType,
		method:     m.cfg.method,
		llf:        -result.F,
		eta:        eta,
		mu:         mu,
		iterations: result.Stats.MajorIterations,
		converged:  true,
		llnull:     math.NaN(),
	}
	res.computeNullLogLike()

	return res, nil
}

// covariance computes the selected parameter covariance and the inverse
// observed information (always needed for influence and score diagnostics).
func (m *Model) covariance(mu []float64) (cov, infoInv *mat.SymDense, err error) {
	k := m.nparam

	info := informationMatrix(m.x, mu)
	var chol mat.Cholesky
	if ok := chol.Factorize(info); !ok {
		return nil, nil, fmt.Errorf("%w: X'WX is not positive definite", errs.ErrSingularInformation)
	}
	infoInv = mat.NewSymDense(k, nil)
	if err := chol.InverseTo(infoInv); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.ErrSingularInformation, err)
	}

	if m.cfg.covType == CovNonRobust {
		return infoInv, infoInv, nil
	}

	// Sandwich estimator: inv(A) B inv(A) with B = X' diag((y-mu)^2) X.
	r2 := make([]float64, m.nobs)
	for i, v := range m.y {
		r := v - mu[i]
		r2[i] = r * r
	}
	meat := informationMatrix(m.x, r2)

	var tmp, cv mat.Dense
	tmp.Mul(infoInv, meat)
	cv.Mul(&tmp, infoInv)

	scale := 1.0
	if m.cfg.covType == CovHC1 {
		scale = float64(m.nobs) / float64(m.nobs-m.nparam)
	}

	cov = mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			cov.SetSym(i, j, scale*(cv.At(i, j)+cv.At(j, i))/2)
		}
	}

	return cov, infoInv, nil
}

// computeNullLogLike fills llnull, the log-likelihood of the intercept-only
// model, used by the likelihood ratio statistic and McFadden's pseudo R2.
// Without an offset the null MLE is mu = mean(y) in closed form; with an
// offset a one-parameter fit is run. llnull stays NaN when the design has no
// constant or the null fit fails.
func (r *Results) computeNullLogLike() {
	m := r.model
	if !m.HasConstant() || m.nparam < 2 {
		return
	}

	if m.offset == nil {
		mean := floats.Sum(m.y) / float64(m.nobs)
		if mean <= 0 {
			return
		}
		ll := 0.0
		logMean := math.Log(mean)
		for _, v := range m.y {
			lg, _ := math.Lgamma(v + 1)
			ll += v*logMean - mean - lg
		}
		r.llnull = ll

		return
	}

	ones := mat.NewDense(m.nobs, 1, nil)
	for i := 0; i < m.nobs; i++ {
		ones.Set(i, 0, 1)
	}
	null, err := NewModel(m.y, ones, []string{"const"},
		WithOffset(m.offset), WithMaxIter(m.cfg.maxIter), WithTol(m.cfg.tol))
	if err != nil {
		return
	}
	nullRes, err := null.Fit()
	if err != nil {
		return
	}
	r.llnull = nullRes.llf
}
