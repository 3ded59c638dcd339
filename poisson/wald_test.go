package poisson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantfold/countfit/errs"
)

func TestWaldSingleTermMatchesZ(t *testing.T) {
	_, res := fitSimulated(t, 1500, []float64{0.4, 0.8, -0.5}, 21)

	wt, err := res.WaldTestTerms("x1")
	require.NoError(t, err)

	// A one-term Wald test is the squared z statistic, and its chi-square
	// p-value equals the two-sided normal p-value of the coefficient.
	z := res.ZValues()[1]
	require.InEpsilon(t, z*z, wt.Statistic, 1e-10)
	require.InDelta(t, res.PValues()[1], wt.PValue, 1e-9)
	require.Equal(t, 1, wt.DF)
}

func TestWaldJointTest(t *testing.T) {
	_, res := fitSimulated(t, 2000, []float64{0.4, 0.9, -0.6}, 22)

	wt, err := res.WaldTestTerms("x1", "x2")
	require.NoError(t, err)

	require.Equal(t, 2, wt.DF)
	require.Greater(t, wt.Statistic, 50.0)
	require.Less(t, wt.PValue, 1e-6)
	require.True(t, wt.Reject(0.05))
	require.Equal(t, "x1 = x2 = 0", wt.Null)

	// The generic restriction form with selector rows gives the same test.
	generic, err := res.WaldTest([][]float64{
		{0, 1, 0},
		{0, 0, 1},
	}, nil)
	require.NoError(t, err)
	require.InEpsilon(t, generic.Statistic, wt.Statistic, 1e-12)
}

func TestWaldGeneralRestriction(t *testing.T) {
	// b1 + b2 = 0.3 holds in the generating process (0.9 - 0.6).
	_, res := fitSimulated(t, 2000, []float64{0.4, 0.9, -0.6}, 23)

	wt, err := res.WaldTest([][]float64{{0, 1, 1}}, []float64{0.3})
	require.NoError(t, err)

	// Check the quadratic form by hand for a single restriction:
	// W = (b1 + b2 - 0.3)^2 / (c11 + 2 c12 + c22).
	p := res.Params()
	cov := res.CovParams()
	disc := p[1] + p[2] - 0.3
	want := disc * disc / (cov.At(1, 1) + 2*cov.At(1, 2) + cov.At(2, 2))
	require.InEpsilon(t, want, wt.Statistic, 1e-10)

	// A true restriction should not be rejected wildly.
	require.Less(t, wt.Statistic, 24.0)
	require.Contains(t, wt.Null, "x1 + x2 = 0.3")
}

func TestWaldRobustCovariance(t *testing.T) {
	beta := []float64{0.4, 0.7, -0.5}
	_, plain := fitSimulated(t, 1200, beta, 24)
	_, robust := fitSimulated(t, 1200, beta, 24, WithCovType(CovHC1))

	wp, err := plain.WaldTestTerms("x1")
	require.NoError(t, err)
	wr, err := robust.WaldTestTerms("x1")
	require.NoError(t, err)

	// Same point estimates, different covariance, different statistic.
	require.InEpsilon(t, plain.Params()[1], robust.Params()[1], 1e-10)
	require.NotEqual(t, wp.Statistic, wr.Statistic)
	require.Greater(t, wr.Statistic, 0.0)
	require.False(t, math.IsNaN(wr.PValue))
}

func TestWaldValidation(t *testing.T) {
	_, res := fitSimulated(t, 300, []float64{0.4, 0.6, -0.3}, 25)

	t.Run("no restrictions", func(t *testing.T) {
		_, err := res.WaldTest(nil, nil)
		require.ErrorIs(t, err, errs.ErrInvalidRestriction)
	})

	t.Run("too many restrictions", func(t *testing.T) {
		rows := [][]float64{
			{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1},
		}
		_, err := res.WaldTest(rows, nil)
		require.ErrorIs(t, err, errs.ErrInvalidRestriction)
	})

	t.Run("ragged row", func(t *testing.T) {
		_, err := res.WaldTest([][]float64{{1, 0}}, nil)
		require.ErrorIs(t, err, errs.ErrInvalidRestriction)
	})

	t.Run("wrong q length", func(t *testing.T) {
		_, err := res.WaldTest([][]float64{{0, 1, 0}}, []float64{0, 0})
		require.ErrorIs(t, err, errs.ErrInvalidRestriction)
	})

	t.Run("degenerate restriction", func(t *testing.T) {
		// An all-zero row makes R Cov R' exactly singular.
		_, err := res.WaldTest([][]float64{{0, 0, 0}}, nil)
		require.ErrorIs(t, err, errs.ErrInvalidRestriction)
	})

	t.Run("unknown term", func(t *testing.T) {
		_, err := res.WaldTestTerms("nope")
		require.ErrorIs(t, err, errs.ErrInvalidRestriction)
	})

	t.Run("no terms", func(t *testing.T) {
		_, err := res.WaldTestTerms()
		require.ErrorIs(t, err, errs.ErrInvalidRestriction)
	})
}

func TestTestResultString(t *testing.T) {
	_, res := fitSimulated(t, 400, []float64{0.4, 0.6, -0.3}, 26)

	wt, err := res.WaldTestTerms("x1")
	require.NoError(t, err)

	text := wt.String()
	require.Contains(t, text, "Wald test")
	require.Contains(t, text, "Null")
	require.Contains(t, text, "Statistic")
	require.Contains(t, text, "P-value")
}
