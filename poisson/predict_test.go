package poisson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/quantfold/countfit/dataset"
	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/simulate"
)

func simulatedDataset(t *testing.T, nobs int, beta []float64, seed uint64) *dataset.Dataset {
	t.Helper()

	ds, err := simulate.Poisson(simulate.Config{NObs: nobs, Beta: beta, Seed: seed})
	require.NoError(t, err)

	return ds
}

func TestPredictDefaultsToFittedMean(t *testing.T) {
	_, res := fitSimulated(t, 400, []float64{0.4, 0.7, -0.3}, 41)

	pred, err := res.Predict()
	require.NoError(t, err)

	require.Equal(t, WhichMean, pred.Which())
	require.False(t, pred.IsAverage())
	require.Equal(t, res.NumObs(), pred.Len())

	mu := res.FittedValues()
	for i, v := range pred.Predicted() {
		require.InEpsilon(t, mu[i], v, 1e-12)
		require.Greater(t, pred.SE()[i], 0.0)
	}
}

func TestPredictLinear(t *testing.T) {
	_, res := fitSimulated(t, 400, []float64{0.4, 0.7, -0.3}, 42)

	pred, err := res.Predict(WithWhich(WhichLinear))
	require.NoError(t, err)
	require.Equal(t, WhichLinear, pred.Which())

	eta := res.LinPred()
	for i, v := range pred.Predicted() {
		require.InDelta(t, eta[i], v, 1e-12)
	}

	// The linear-target standard error is sqrt(x' Cov x); check row 0.
	x := res.Model().Exog()
	cov := res.CovParams()
	k := res.NumParams()
	g := make([]float64, k)
	for j := 0; j < k; j++ {
		g[j] = x.At(0, j)
	}
	var want float64
	for a := 0; a < k; a++ {
		for b := 0; b < k; b++ {
			want += g[a] * cov.At(a, b) * g[b]
		}
	}
	require.InEpsilon(t, math.Sqrt(want), pred.SE()[0], 1e-10)
}

func TestPredictVarianceEqualsMean(t *testing.T) {
	_, res := fitSimulated(t, 300, []float64{0.4, 0.7, -0.3}, 43)

	mean, err := res.Predict(WithWhich(WhichMean))
	require.NoError(t, err)
	variance, err := res.Predict(WithWhich(WhichVariance))
	require.NoError(t, err)

	require.Equal(t, WhichVariance, variance.Which())
	for i := range mean.Predicted() {
		require.Equal(t, mean.Predicted()[i], variance.Predicted()[i])
		require.Equal(t, mean.SE()[i], variance.SE()[i])
	}
}

func TestPredictAverage(t *testing.T) {
	_, res := fitSimulated(t, 500, []float64{0.4, 0.7, -0.3}, 44)

	pred, err := res.Predict(Average())
	require.NoError(t, err)

	require.True(t, pred.IsAverage())
	require.Equal(t, 1, pred.Len())

	var sum float64
	for _, mu := range res.FittedValues() {
		sum += mu
	}
	want := sum / float64(res.NumObs())
	require.InEpsilon(t, want, pred.Predicted()[0], 1e-12)
	require.Greater(t, pred.SE()[0], 0.0)

	ci, err := pred.ConfInt(0.05)
	require.NoError(t, err)
	require.Less(t, ci[0][0], pred.Predicted()[0])
	require.Greater(t, ci[0][1], pred.Predicted()[0])

	text, err := pred.Table(0.05)
	require.NoError(t, err)
	require.Contains(t, text, "average")
	require.Contains(t, text, "[2.5%")
	require.Contains(t, text, "97.5%]")
}

func TestPredictNewExog(t *testing.T) {
	_, res := fitSimulated(t, 400, []float64{0.4, 0.7, -0.3}, 45)
	p := res.Params()

	rows := mat.NewDense(2, 3, []float64{
		1, 0.5, 0.5,
		1, 0, 0,
	})
	pred, err := res.Predict(WithNewExog(rows))
	require.NoError(t, err)
	require.Equal(t, 2, pred.Len())

	want0 := math.Exp(p[0] + 0.5*p[1] + 0.5*p[2])
	want1 := math.Exp(p[0])
	require.InEpsilon(t, want0, pred.Predicted()[0], 1e-12)
	require.InEpsilon(t, want1, pred.Predicted()[1], 1e-12)

	// An explicit offset shifts the linear predictor.
	shifted, err := res.Predict(WithNewExog(rows), WithNewOffset([]float64{math.Log(2), math.Log(2)}))
	require.NoError(t, err)
	require.InEpsilon(t, 2*want0, shifted.Predicted()[0], 1e-12)
	require.InEpsilon(t, 2*want1, shifted.Predicted()[1], 1e-12)
}

func TestPredictModelOffsetHandling(t *testing.T) {
	// Fit with an exposure so the model carries an offset.
	nobs := 300
	exposure := make([]float64, nobs)
	for i := range exposure {
		exposure[i] = float64(1 + i%4)
	}

	ds := simulatedDataset(t, nobs, []float64{0.4, 0.6, -0.3}, 46)
	y, x, err := ds.Design("y", []string{"const", "x1", "x2"})
	require.NoError(t, err)
	m, err := NewModel(y, x, []string{"const", "x1", "x2"}, WithExposure(exposure))
	require.NoError(t, err)
	res, err := m.Fit()
	require.NoError(t, err)

	// Estimation-sample predictions include the model offset.
	pred, err := res.Predict()
	require.NoError(t, err)
	mu := res.FittedValues()
	for i, v := range pred.Predicted() {
		require.InEpsilon(t, mu[i], v, 1e-12)
	}

	// Fresh rows do not inherit the model offset.
	row := mat.NewDense(1, 3, []float64{1, 0.5, 0.5})
	fresh, err := res.Predict(WithNewExog(row))
	require.NoError(t, err)
	p := res.Params()
	require.InEpsilon(t, math.Exp(p[0]+0.5*p[1]+0.5*p[2]), fresh.Predicted()[0], 1e-12)
}

func TestPredictValidation(t *testing.T) {
	_, res := fitSimulated(t, 200, []float64{0.4, 0.5, -0.3}, 47)

	t.Run("bad target", func(t *testing.T) {
		_, err := res.Predict(WithWhich(Which(99)))
		require.ErrorIs(t, err, errs.ErrInvalidValue)
	})

	t.Run("column mismatch", func(t *testing.T) {
		_, err := res.Predict(WithNewExog(mat.NewDense(2, 2, nil)))
		require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	})

	t.Run("offset length", func(t *testing.T) {
		rows := mat.NewDense(2, 3, []float64{1, 0, 0, 1, 1, 1})
		_, err := res.Predict(WithNewExog(rows), WithNewOffset([]float64{0}))
		require.ErrorIs(t, err, errs.ErrInvalidOffset)
	})

	t.Run("non-finite design", func(t *testing.T) {
		rows := mat.NewDense(1, 3, []float64{1, math.Inf(1), 0})
		_, err := res.Predict(WithNewExog(rows))
		require.ErrorIs(t, err, errs.ErrInvalidValue)
	})

	t.Run("bad alpha", func(t *testing.T) {
		pred, err := res.Predict()
		require.NoError(t, err)
		_, err = pred.ConfInt(0)
		require.ErrorIs(t, err, errs.ErrInvalidAlpha)
		_, err = pred.Table(2)
		require.ErrorIs(t, err, errs.ErrInvalidAlpha)
	})
}

func TestPredictProb(t *testing.T) {
	_, res := fitSimulated(t, 300, []float64{0.3, 0.5, -0.4}, 48)

	counts := []int{0, 1, 2, 3, 4}
	pred, err := res.PredictProb(counts)
	require.NoError(t, err)

	require.Equal(t, counts, pred.Counts())
	require.False(t, pred.IsAverage())
	require.Nil(t, pred.Averaged())
	require.Nil(t, pred.SE())

	probs := pred.Probs()
	rows, cols := probs.Dims()
	require.Equal(t, res.NumObs(), rows)
	require.Equal(t, len(counts), cols)

	// Row 0 matches the Poisson pmf at the fitted mean.
	mu := res.FittedValues()[0]
	for j, c := range counts {
		want := math.Exp(-mu) * math.Pow(mu, float64(c)) / gammaFactorial(c)
		require.InEpsilon(t, want, probs.At(0, j), 1e-9)
	}

	// Probabilities over a generous count range sum to one.
	wide := make([]int, 40)
	for i := range wide {
		wide[i] = i
	}
	full, err := res.PredictProb(wide)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		var sum float64
		for j := range wide {
			sum += full.Probs().At(i, j)
		}
		require.InDelta(t, 1.0, sum, 1e-8)
	}
}

// gammaFactorial computes c! through the gamma function, mirroring the pmf
// normalization without integer overflow concerns.
func gammaFactorial(c int) float64 {
	v, _ := math.Lgamma(float64(c) + 1)
	return math.Exp(v)
}

func TestPredictProbAverage(t *testing.T) {
	_, res := fitSimulated(t, 300, []float64{0.3, 0.5, -0.4}, 49)

	counts := []int{0, 1, 2, 3}
	pred, err := res.PredictProb(counts, Average())
	require.NoError(t, err)

	require.True(t, pred.IsAverage())
	avg := pred.Averaged()
	se := pred.SE()
	require.Len(t, avg, len(counts))
	require.Len(t, se, len(counts))

	probs := pred.Probs()
	n, _ := probs.Dims()
	for j := range counts {
		var sum float64
		for i := 0; i < n; i++ {
			sum += probs.At(i, j)
		}
		require.InEpsilon(t, sum/float64(n), avg[j], 1e-12)
		require.Greater(t, se[j], 0.0)
	}

	ci, err := pred.ConfInt(0.05)
	require.NoError(t, err)
	for j := range counts {
		require.Less(t, ci[j][0], avg[j])
		require.Greater(t, ci[j][1], avg[j])
	}

	text, err := pred.Table(0.05)
	require.NoError(t, err)
	require.Contains(t, text, "probability")
}

func TestPredictProbValidation(t *testing.T) {
	_, res := fitSimulated(t, 200, []float64{0.4, 0.5, -0.3}, 50)

	_, err := res.PredictProb(nil)
	require.ErrorIs(t, err, errs.ErrInvalidCount)

	_, err = res.PredictProb([]int{0, -1})
	require.ErrorIs(t, err, errs.ErrInvalidCount)

	plain, err := res.PredictProb([]int{0, 1})
	require.NoError(t, err)
	_, err = plain.ConfInt(0.05)
	require.ErrorIs(t, err, errs.ErrInvalidValue)
}
