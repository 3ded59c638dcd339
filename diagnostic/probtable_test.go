package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantfold/countfit/errs"
)

func TestProbTable(t *testing.T) {
	d := diagPoisson(t, 1000, 131)
	res := d.Results()

	r, err := d.ProbTable(4)
	require.NoError(t, err)

	require.Equal(t, []int{0, 1, 2, 3, 4}, r.Counts)
	require.Len(t, r.Observed, 5)
	require.Len(t, r.Predicted, 5)

	// Observed shares are plain frequencies.
	y := res.Model().Y()
	var zeros, tail float64
	for _, v := range y {
		switch {
		case v == 0:
			zeros++
		case v > 4:
			tail++
		}
	}
	n := float64(len(y))
	require.InDelta(t, zeros/n, r.Observed[0], 1e-12)
	require.InDelta(t, tail/n, r.TailObserved, 1e-12)

	// Both columns are distributions over the cells plus the tail.
	var obsSum, predSum float64
	for i := range r.Counts {
		require.GreaterOrEqual(t, r.Observed[i], 0.0)
		require.Greater(t, r.Predicted[i], 0.0)
		obsSum += r.Observed[i]
		predSum += r.Predicted[i]
	}
	require.InDelta(t, 1.0, obsSum+r.TailObserved, 1e-12)
	require.InDelta(t, 1.0, predSum+r.TailPredicted, 1e-9)

	// A well specified fit keeps observed and predicted shares close.
	for i := range r.Counts {
		require.InDelta(t, r.Predicted[i], r.Observed[i], 0.1)
	}
}

func TestProbTableZeroOnly(t *testing.T) {
	d := diagPoisson(t, 200, 132)

	r, err := d.ProbTable(0)
	require.NoError(t, err)
	require.Equal(t, []int{0}, r.Counts)
	require.InDelta(t, 1.0, r.Observed[0]+r.TailObserved, 1e-12)
}

func TestProbTableValidation(t *testing.T) {
	d := diagPoisson(t, 200, 133)

	_, err := d.ProbTable(-1)
	require.ErrorIs(t, err, errs.ErrInvalidCount)
}

func TestProbTableRendering(t *testing.T) {
	d := diagPoisson(t, 400, 134)

	r, err := d.ProbTable(3)
	require.NoError(t, err)

	table := r.Table()
	require.Contains(t, table, "observed")
	require.Contains(t, table, "predicted")
	require.Contains(t, table, ">3")

	text := r.String()
	require.Contains(t, text, "Observed vs predicted count probabilities")
}
