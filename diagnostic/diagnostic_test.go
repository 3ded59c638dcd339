package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/quantfold/countfit/dataset"
	"github.com/quantfold/countfit/poisson"
	"github.com/quantfold/countfit/simulate"
)

// testBeta keeps the simulated means low so small counts and zeros are
// well represented.
var testBeta = []float64{0.4, 0.6, -0.4}

func fitDataset(t *testing.T, ds *dataset.Dataset) *poisson.Results {
	t.Helper()

	names := []string{"const", "x1", "x2"}
	y, x, err := ds.Design("y", names)
	require.NoError(t, err)

	m, err := poisson.NewModel(y, x, names)
	require.NoError(t, err)
	res, err := m.Fit()
	require.NoError(t, err)

	return res
}

// diagPoisson fits a correctly specified model to simulated Poisson data.
func diagPoisson(t *testing.T, nobs int, seed uint64) *Diagnostic {
	t.Helper()

	ds, err := simulate.Poisson(simulate.Config{NObs: nobs, Beta: testBeta, Seed: seed})
	require.NoError(t, err)

	return New(fitDataset(t, ds))
}

// diagOverdispersed fits a Poisson model to gamma-mixed counts, so the
// dispersion diagnostics have something to find.
func diagOverdispersed(t *testing.T, nobs int, alpha float64, seed uint64) *Diagnostic {
	t.Helper()

	ds, err := simulate.Overdispersed(simulate.Config{NObs: nobs, Beta: testBeta, Seed: seed}, alpha)
	require.NoError(t, err)

	return New(fitDataset(t, ds))
}

// diagZeroInflated fits a Poisson model to zero-inflated counts.
func diagZeroInflated(t *testing.T, nobs int, pZero float64, seed uint64) *Diagnostic {
	t.Helper()

	ds, err := simulate.ZeroInflated(simulate.Config{NObs: nobs, Beta: testBeta, Seed: seed}, pZero)
	require.NoError(t, err)

	return New(fitDataset(t, ds))
}

// diagConstantCounts fits an intercept-only model to fixed counts, for
// closed-form checks.
func diagConstantCounts(t *testing.T, y []float64) *Diagnostic {
	t.Helper()

	ones := make([]float64, len(y))
	for i := range ones {
		ones[i] = 1
	}
	m, err := poisson.NewModel(y, mat.NewDense(len(y), 1, ones), []string{"const"})
	require.NoError(t, err)
	res, err := m.Fit()
	require.NoError(t, err)

	return New(res)
}

// alternatingCounts returns n counts cycling 1, 2, 1, 2, ... whose variance
// sits far below the Poisson mean-variance line.
func alternatingCounts(n int) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = float64(1 + i%2)
	}

	return y
}

func TestNewHoldsResults(t *testing.T) {
	d := diagPoisson(t, 100, 1)
	require.NotNil(t, d.Results())
	require.Equal(t, 100, d.Results().NumObs())
}

func TestCountRange(t *testing.T) {
	require.Equal(t, []int{0}, countRange(0))
	require.Equal(t, []int{0, 1, 2, 3}, countRange(3))
}
