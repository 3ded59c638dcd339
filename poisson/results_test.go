package poisson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/quantfold/countfit/errs"
)

func TestResultsCoefficientStatistics(t *testing.T) {
	_, res := fitSimulated(t, 800, []float64{0.4, 0.8, -0.5}, 11)

	k := res.NumParams()
	params := res.Params()
	bse := res.Bse()
	zv := res.ZValues()
	pv := res.PValues()
	require.Len(t, bse, k)
	require.Len(t, zv, k)
	require.Len(t, pv, k)

	for j := 0; j < k; j++ {
		require.Greater(t, bse[j], 0.0)
		require.InEpsilon(t, params[j]/bse[j], zv[j], 1e-12)
		require.GreaterOrEqual(t, pv[j], 0.0)
		require.LessOrEqual(t, pv[j], 1.0)
	}

	// Standard errors are the square roots of the covariance diagonal.
	cov := res.CovParams()
	for j := 0; j < k; j++ {
		require.InEpsilon(t, math.Sqrt(cov.At(j, j)), bse[j], 1e-12)
	}
}

func TestResultsConfInt(t *testing.T) {
	_, res := fitSimulated(t, 800, []float64{0.4, 0.8, -0.5}, 12)

	ci, err := res.ConfInt(0.05)
	require.NoError(t, err)
	require.Len(t, ci, res.NumParams())

	params := res.Params()
	bse := res.Bse()
	for j, bounds := range ci {
		require.Less(t, bounds[0], params[j])
		require.Greater(t, bounds[1], params[j])
		// Symmetric around the estimate.
		lo := params[j] - bounds[0]
		hi := bounds[1] - params[j]
		require.InEpsilon(t, lo, hi, 1e-9)
		// 95% half-width is 1.96 standard errors.
		require.InEpsilon(t, 1.959963984540054*bse[j], hi, 1e-9)
	}

	// A tighter alpha widens the interval.
	wide, err := res.ConfInt(0.01)
	require.NoError(t, err)
	for j := range wide {
		require.Less(t, wide[j][0], ci[j][0])
		require.Greater(t, wide[j][1], ci[j][1])
	}

	for _, alpha := range []float64{0, 1, -0.2, 1.5, math.NaN()} {
		_, err := res.ConfInt(alpha)
		require.ErrorIs(t, err, errs.ErrInvalidAlpha)
	}
}

func TestResultsFitMeasures(t *testing.T) {
	_, res := fitSimulated(t, 600, []float64{0.3, 0.6, -0.4}, 13)

	n := float64(res.NumObs())
	k := float64(res.NumParams())
	llf := res.LogLike()

	require.InEpsilon(t, 2*k-2*llf, res.AIC(), 1e-12)
	require.InEpsilon(t, k*math.Log(n)-2*llf, res.BIC(), 1e-12)

	// The null model is nested, so the full fit can only do better.
	require.GreaterOrEqual(t, llf, res.LogLikeNull())
	require.GreaterOrEqual(t, res.LLR(), 0.0)
	require.GreaterOrEqual(t, res.PseudoR2(), 0.0)
	require.Less(t, res.PseudoR2(), 1.0)
	require.Greater(t, res.LLRPValue(), 0.0)
	require.LessOrEqual(t, res.LLRPValue(), 1.0)
}

func TestResultsResiduals(t *testing.T) {
	_, res := fitSimulated(t, 400, []float64{0.5, 0.7, -0.3}, 14)

	y := res.Model().Y()
	mu := res.FittedValues()
	eta := res.LinPred()
	raw := res.Resid()
	pearson := res.ResidPearson()
	deviance := res.ResidDeviance()

	n := res.NumObs()
	require.Len(t, mu, n)
	require.Len(t, raw, n)

	var pearsonSum, devSum float64
	for i := 0; i < n; i++ {
		require.InEpsilon(t, math.Exp(eta[i]), mu[i], 1e-12)
		require.InDelta(t, y[i]-mu[i], raw[i], 1e-10)
		require.InDelta(t, (y[i]-mu[i])/math.Sqrt(mu[i]), pearson[i], 1e-10)
		// Deviance residuals carry the sign of the raw residual.
		if raw[i] != 0 {
			require.Equal(t, math.Signbit(raw[i]), math.Signbit(deviance[i]))
		}
		pearsonSum += pearson[i] * pearson[i]
		devSum += deviance[i] * deviance[i]
	}

	require.InEpsilon(t, pearsonSum, res.PearsonChi2(), 1e-10)
	require.InEpsilon(t, devSum, res.Deviance(), 1e-10)
}

func TestResultsDevianceZeroCounts(t *testing.T) {
	// y=0 terms reduce to 2*mu; the deviance must stay finite.
	y := []float64{0, 0, 1, 2, 0, 3}
	x := mat.NewDense(6, 1, []float64{1, 1, 1, 1, 1, 1})
	m, err := NewModel(y, x, []string{"const"})
	require.NoError(t, err)
	res, err := m.Fit()
	require.NoError(t, err)

	dev := res.Deviance()
	require.False(t, math.IsNaN(dev))
	require.False(t, math.IsInf(dev, 0))
	require.Greater(t, dev, 0.0)
}

func TestResultsScoreObs(t *testing.T) {
	_, res := fitSimulated(t, 500, []float64{0.2, 0.5, -0.6}, 15)

	score := res.ScoreObs()
	rows, cols := score.Dims()
	require.Equal(t, res.NumObs(), rows)
	require.Equal(t, res.NumParams(), cols)

	// Per-observation scores sum to zero at the MLE.
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += score.At(i, j)
		}
		require.InDelta(t, 0, sum, 1e-5)
	}
}

func TestResultsSummary(t *testing.T) {
	_, res := fitSimulated(t, 300, []float64{0.4, 0.6, -0.2}, 16)

	text := res.Summary()
	require.Contains(t, text, "Poisson Regression Results")
	for _, name := range res.Model().Names() {
		require.Contains(t, text, name)
	}
	require.Contains(t, text, "coef")
	require.Contains(t, text, "std err")
	require.Contains(t, text, "Log-likelihood")

	line := res.String()
	require.Contains(t, line, "Results{")
	require.Contains(t, line, "Obs: 300")
	require.Contains(t, line, "Converged: true")
}

func TestResultsDegreesOfFreedom(t *testing.T) {
	_, res := fitSimulated(t, 200, []float64{0.3, 0.5, -0.4}, 17)
	require.Equal(t, 200, res.NumObs())
	require.Equal(t, 3, res.NumParams())
	require.Equal(t, 197, res.DFResid())
}
