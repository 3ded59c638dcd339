package poisson

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/report"
)

// Results holds a fitted Poisson regression: parameter estimates, their
// covariance, fitted values, and the log-likelihood. All post-estimation
// entry points (tests, predictions, distributions, diagnostics, influence)
// hang off this type.
//
// Results is immutable and safe for concurrent use. Accessors returning
// slices or matrices expose internal state that callers must not modify.
type Results struct {
	model      *Model
	params     []float64
	cov        *mat.SymDense
	infoInv    *mat.SymDense
	covType    CovType
	method     Method
	llf        float64
	llnull     float64
	eta        []float64
	mu         []float64
	iterations int
	converged  bool
}

// Model returns the model the results were fitted from.
func (r *Results) Model() *Model { return r.model }

// NumObs returns the number of observations n.
func (r *Results) NumObs() int { return r.model.nobs }

// NumParams returns the number of estimated coefficients k.
func (r *Results) NumParams() int { return r.model.nparam }

// DFResid returns the residual degrees of freedom, n - k.
func (r *Results) DFResid() int { return r.model.nobs - r.model.nparam }

// Converged reports whether the optimizer reached its tolerance.
func (r *Results) Converged() bool { return r.converged }

// Iterations returns the number of optimizer iterations used.
func (r *Results) Iterations() int { return r.iterations }

// Method returns the optimizer that produced the estimates.
func (r *Results) Method() Method { return r.method }

// CovType returns the covariance estimator in effect.
func (r *Results) CovType() CovType { return r.covType }

// Params returns the estimated coefficients.
func (r *Results) Params() []float64 { return r.params }

// CovParams returns the parameter covariance matrix under the covariance
// type selected at model construction.
func (r *Results) CovParams() *mat.SymDense { return r.cov }

// InformationInverse returns the inverse observed information, the nonrobust
// parameter covariance. Influence measures and score diagnostics use it even
// when a robust CovType was selected for reporting.
func (r *Results) InformationInverse() *mat.SymDense { return r.infoInv }

// Bse returns the standard errors of the coefficients: the square roots of
// the covariance diagonal.
func (r *Results) Bse() []float64 {
	se := make([]float64, len(r.params))
	for i := range se {
		se[i] = math.Sqrt(r.cov.At(i, i))
	}

	return se
}

// ZValues returns the coefficient z statistics, beta / se.
func (r *Results) ZValues() []float64 {
	z := r.Bse()
	for i, se := range z {
		z[i] = r.params[i] / se
	}

	return z
}

// PValues returns the two-sided normal p-values of the coefficient z
// statistics.
func (r *Results) PValues() []float64 {
	p := r.ZValues()
	for i, z := range p {
		p[i] = 2 * distuv.UnitNormal.Survival(math.Abs(z))
	}

	return p
}

// ConfInt returns per-coefficient confidence intervals at level 1-alpha,
// beta +/- z(1-alpha/2) se. The conventional 95% interval is ConfInt(0.05).
func (r *Results) ConfInt(alpha float64) ([][2]float64, error) {
	if !(alpha > 0 && alpha < 1) {
		return nil, fmt.Errorf("%w: alpha %v", errs.ErrInvalidAlpha, alpha)
	}

	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	se := r.Bse()
	ci := make([][2]float64, len(r.params))
	for i, b := range r.params {
		ci[i] = [2]float64{b - z*se[i], b + z*se[i]}
	}

	return ci, nil
}

// LogLike returns the maximized log-likelihood.
func (r *Results) LogLike() float64 { return r.llf }

// LogLikeNull returns the log-likelihood of the intercept-only model, or NaN
// when the design has no constant column.
func (r *Results) LogLikeNull() float64 { return r.llnull }

// LLR returns the likelihood ratio statistic against the intercept-only
// model, 2 (llf - llnull), or NaN when no null fit is available.
func (r *Results) LLR() float64 {
	return 2 * (r.llf - r.llnull)
}

// LLRPValue returns the chi-square p-value of the likelihood ratio statistic
// with k-1 degrees of freedom.
func (r *Results) LLRPValue() float64 {
	df := float64(r.model.nparam - 1)
	if df <= 0 || math.IsNaN(r.llnull) {
		return math.NaN()
	}

	return distuv.ChiSquared{K: df}.Survival(r.LLR())
}

// PseudoR2 returns McFadden's pseudo R-squared, 1 - llf/llnull, or NaN when
// no null fit is available.
func (r *Results) PseudoR2() float64 {
	return 1 - r.llf/r.llnull
}

// AIC returns the Akaike information criterion, 2k - 2 llf.
func (r *Results) AIC() float64 {
	return 2*float64(r.model.nparam) - 2*r.llf
}

// BIC returns the Bayesian information criterion, k ln(n) - 2 llf.
func (r *Results) BIC() float64 {
	return float64(r.model.nparam)*math.Log(float64(r.model.nobs)) - 2*r.llf
}

// FittedValues returns the fitted means mu = exp(X beta + offset).
func (r *Results) FittedValues() []float64 { return r.mu }

// LinPred returns the fitted linear predictor eta = X beta + offset.
func (r *Results) LinPred() []float64 { return r.eta }

// Resid returns the response residuals y - mu.
func (r *Results) Resid() []float64 {
	resid := make([]float64, r.model.nobs)
	for i, v := range r.model.y {
		resid[i] = v - r.mu[i]
	}

	return resid
}

// ResidPearson returns the Pearson residuals (y - mu) / sqrt(mu).
func (r *Results) ResidPearson() []float64 {
	resid := make([]float64, r.model.nobs)
	for i, v := range r.model.y {
		resid[i] = (v - r.mu[i]) / math.Sqrt(r.mu[i])
	}

	return resid
}

// ResidDeviance returns the deviance residuals,
// sign(y - mu) sqrt(2 (y log(y/mu) - (y - mu))).
func (r *Results) ResidDeviance() []float64 {
	resid := make([]float64, r.model.nobs)
	for i, v := range r.model.y {
		d := 2 * devianceTerm(v, r.mu[i])
		if d < 0 {
			d = 0 // guard tiny negative rounding
		}
		resid[i] = math.Copysign(math.Sqrt(d), v-r.mu[i])
	}

	return resid
}

// Deviance returns the model deviance, the sum of squared deviance residuals.
func (r *Results) Deviance() float64 {
	dev := 0.0
	for i, v := range r.model.y {
		dev += 2 * devianceTerm(v, r.mu[i])
	}

	return dev
}

// PearsonChi2 returns the Pearson chi-square statistic, sum (y-mu)^2 / mu.
// Values well above DFResid signal overdispersion; the diagnostic package
// formalizes that comparison.
func (r *Results) PearsonChi2() float64 {
	chi2 := 0.0
	for i, v := range r.model.y {
		d := v - r.mu[i]
		chi2 += d * d / r.mu[i]
	}

	return chi2
}

// devianceTerm computes y log(y/mu) - (y - mu), with the y = 0 limit.
func devianceTerm(y, mu float64) float64 {
	if y == 0 {
		return mu
	}

	return y*math.Log(y/mu) - (y - mu)
}

// ScoreObs returns the per-observation score contributions s_i = (y_i -
// mu_i) x_i as an n x k matrix. Conditional moment diagnostics and influence
// measures build on these.
func (r *Results) ScoreObs() *mat.Dense {
	n, k := r.model.nobs, r.model.nparam
	s := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		f := r.model.y[i] - r.mu[i]
		for j := 0; j < k; j++ {
			s.Set(i, j, f*r.model.x.At(i, j))
		}
	}

	return s
}

// Summary renders the fit as a fixed-width text report: a header block with
// fit statistics followed by the coefficient table with standard errors,
// z statistics, p-values, and 95% intervals.
func (r *Results) Summary() string {
	info := [][2]string{
		{"Observations", report.Int(r.NumObs())},
		{"Parameters", report.Int(r.NumParams())},
		{"Residual df", report.Int(r.DFResid())},
		{"Method", r.method.String()},
		{"Covariance", r.covType.String()},
		{"Converged", fmt.Sprintf("%v (%d iterations)", r.converged, r.iterations)},
		{"Log-likelihood", report.Float(r.llf)},
		{"Null log-likelihood", report.Float(r.llnull)},
		{"LR statistic", fmt.Sprintf("%s (p=%s)", report.Float(r.LLR()), report.Float(r.LLRPValue()))},
		{"Pseudo R-squared", report.Float(r.PseudoR2())},
		{"AIC", report.Float(r.AIC())},
		{"BIC", report.Float(r.BIC())},
		{"Deviance", report.Float(r.Deviance())},
		{"Pearson chi2", report.Float(r.PearsonChi2())},
	}

	table := report.NewTable("term", "coef", "std err", "z", "P>|z|", "[0.025", "0.975]")
	se := r.Bse()
	zs := r.ZValues()
	ps := r.PValues()
	ci, _ := r.ConfInt(0.05)
	for j, name := range r.model.names {
		table.AddRow(name,
			report.Float(r.params[j]), report.Float(se[j]),
			report.Float(zs[j]), report.Float(ps[j]),
			report.Float(ci[j][0]), report.Float(ci[j][1]))
	}

	return report.Section("Poisson Regression Results") +
		report.KeyValues(info) + "\n" + table.String()
}

// String returns a one-line summary of the fit.
func (r *Results) String() string {
	return fmt.Sprintf("Results{Obs: %d, Params: %d, LogLike: %.4f, Converged: %v}",
		r.NumObs(), r.NumParams(), r.llf, r.converged)
}
