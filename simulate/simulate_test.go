package simulate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantfold/countfit/errs"
)

func TestPoisson(t *testing.T) {
	cfg := Config{NObs: 2000, Beta: []float64{0.5, 1.0, -0.5}, Seed: 42}

	d, err := Poisson(cfg)
	require.NoError(t, err)
	require.Equal(t, 2000, d.NumRows())
	require.Equal(t, []string{"y", "const", "x1", "x2"}, d.Names())

	y, ok := d.Column("y")
	require.True(t, ok)
	for i, v := range y {
		require.GreaterOrEqual(t, v, 0.0, "row %d", i)
		require.Equal(t, math.Trunc(v), v, "row %d: counts are integral", i)
	}

	consts, ok := d.Column("const")
	require.True(t, ok)
	for _, v := range consts {
		require.Equal(t, 1.0, v)
	}

	// Uniform covariates stay in [0, 1).
	x1, _ := d.Column("x1")
	for _, v := range x1 {
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestPoissonReproducible(t *testing.T) {
	cfg := Config{NObs: 500, Beta: []float64{1.0, 0.3}, Seed: 7}

	d1, err := Poisson(cfg)
	require.NoError(t, err)
	d2, err := Poisson(cfg)
	require.NoError(t, err)

	require.Equal(t, d1.Fingerprint(), d2.Fingerprint())

	cfg.Seed = 8
	d3, err := Poisson(cfg)
	require.NoError(t, err)
	require.NotEqual(t, d1.Fingerprint(), d3.Fingerprint())
}

func TestPoissonSampleMean(t *testing.T) {
	// Intercept-only model: counts should average near exp(beta0).
	cfg := Config{NObs: 20000, Beta: []float64{1.0}, Seed: 3}

	d, err := Poisson(cfg)
	require.NoError(t, err)

	y, _ := d.Column("y")
	var sum float64
	for _, v := range y {
		sum += v
	}
	mean := sum / float64(len(y))
	require.InDelta(t, math.E, mean, 0.1)
}

func TestPoissonNormalDesign(t *testing.T) {
	cfg := Config{NObs: 5000, Beta: []float64{0.0, 0.5}, Design: StdNormal, Seed: 11}

	d, err := Poisson(cfg)
	require.NoError(t, err)

	// Normal covariates leave the unit interval.
	x1, _ := d.Column("x1")
	outside := 0
	for _, v := range x1 {
		if v < 0 || v >= 1 {
			outside++
		}
	}
	require.Greater(t, outside, 1000)
}

func TestPoissonValidation(t *testing.T) {
	t.Run("empty beta", func(t *testing.T) {
		_, err := Poisson(Config{NObs: 10})
		require.ErrorIs(t, err, errs.ErrEmptyDataset)
	})

	t.Run("too few observations", func(t *testing.T) {
		_, err := Poisson(Config{NObs: 2, Beta: []float64{1, 2, 3}})
		require.ErrorIs(t, err, errs.ErrTooFewObservations)
	})

	t.Run("overflowing mean", func(t *testing.T) {
		_, err := Poisson(Config{NObs: 10, Beta: []float64{800}})
		require.ErrorIs(t, err, errs.ErrInvalidValue)
	})
}

func TestOverdispersed(t *testing.T) {
	cfg := Config{NObs: 20000, Beta: []float64{1.5}, Seed: 21}

	d, err := Overdispersed(cfg, 1.0)
	require.NoError(t, err)

	y, _ := d.Column("y")
	var sum, sumsq float64
	for _, v := range y {
		sum += v
	}
	mean := sum / float64(len(y))
	for _, v := range y {
		sumsq += (v - mean) * (v - mean)
	}
	variance := sumsq / float64(len(y)-1)

	// NB2 with alpha=1: Var = mu (1 + mu), clearly above the Poisson mu.
	require.Greater(t, variance, mean*1.5)

	t.Run("rejects nonpositive alpha", func(t *testing.T) {
		_, err := Overdispersed(cfg, 0)
		require.ErrorIs(t, err, errs.ErrInvalidValue)
	})
}

func TestZeroInflated(t *testing.T) {
	cfg := Config{NObs: 10000, Beta: []float64{1.5}, Seed: 33}

	plain, err := Poisson(cfg)
	require.NoError(t, err)
	inflated, err := ZeroInflated(cfg, 0.3)
	require.NoError(t, err)

	count := func(col []float64) int {
		zeros := 0
		for _, v := range col {
			if v == 0 {
				zeros++
			}
		}
		return zeros
	}

	yPlain, _ := plain.Column("y")
	yInflated, _ := inflated.Column("y")
	require.Greater(t, count(yInflated), count(yPlain)+1000)

	t.Run("rejects bad probability", func(t *testing.T) {
		_, err := ZeroInflated(cfg, 1.0)
		require.ErrorIs(t, err, errs.ErrInvalidValue)
	})
}

func TestParseDesign(t *testing.T) {
	d, err := ParseDesign("uniform")
	require.NoError(t, err)
	require.Equal(t, Uniform01, d)

	d, err = ParseDesign("normal")
	require.NoError(t, err)
	require.Equal(t, StdNormal, d)

	d, err = ParseDesign("")
	require.NoError(t, err)
	require.Equal(t, Uniform01, d)

	_, err = ParseDesign("cauchy")
	require.Error(t, err)
	require.Equal(t, "uniform", Uniform01.String())
	require.Equal(t, "unknown", Design(9).String())
}
