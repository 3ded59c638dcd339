package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantfold/countfit/errs"
)

func testDataset(t *testing.T) *Dataset {
	t.Helper()

	d, err := New(
		[]string{"y", "x1", "x2"},
		[][]float64{
			{2, 0, 1, 3, 5},
			{0.5, 1.0, 1.5, 2.0, 2.5},
			{1, 0, 1, 0, 1},
		},
	)
	require.NoError(t, err)

	return d
}

func TestNew(t *testing.T) {
	t.Run("valid dataset", func(t *testing.T) {
		d := testDataset(t)
		require.Equal(t, 5, d.NumRows())
		require.Equal(t, 3, d.NumCols())
		require.Equal(t, []string{"y", "x1", "x2"}, d.Names())
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := New(nil, nil)
		require.ErrorIs(t, err, errs.ErrEmptyDataset)
	})

	t.Run("rejects zero rows", func(t *testing.T) {
		_, err := New([]string{"y"}, [][]float64{{}})
		require.ErrorIs(t, err, errs.ErrEmptyDataset)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := New([]string{"y", "y"}, [][]float64{{1}, {2}})
		require.ErrorIs(t, err, errs.ErrDuplicateColumn)
	})

	t.Run("rejects ragged columns", func(t *testing.T) {
		_, err := New([]string{"a", "b"}, [][]float64{{1, 2}, {1}})
		require.ErrorIs(t, err, errs.ErrColumnLength)
	})

	t.Run("rejects name count mismatch", func(t *testing.T) {
		_, err := New([]string{"a"}, [][]float64{{1}, {2}})
		require.ErrorIs(t, err, errs.ErrColumnLength)
	})
}

func TestFromRows(t *testing.T) {
	d, err := FromRows([]string{"a", "b"}, [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	})
	require.NoError(t, err)

	a, ok := d.Column("a")
	require.True(t, ok)
	require.Equal(t, []float64{1, 2, 3}, a)

	b, ok := d.Column("b")
	require.True(t, ok)
	require.Equal(t, []float64{10, 20, 30}, b)

	t.Run("rejects ragged rows", func(t *testing.T) {
		_, err := FromRows([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
		require.ErrorIs(t, err, errs.ErrColumnLength)
	})
}

func TestColumn(t *testing.T) {
	d := testDataset(t)

	col, ok := d.Column("x1")
	require.True(t, ok)
	require.Equal(t, []float64{0.5, 1.0, 1.5, 2.0, 2.5}, col)

	_, ok = d.Column("missing")
	require.False(t, ok)

	require.True(t, d.Has("x2"))
	require.False(t, d.Has("x3"))
}

func TestWithConstant(t *testing.T) {
	d := testDataset(t)

	dc, err := d.WithConstant("const")
	require.NoError(t, err)
	require.Equal(t, []string{"const", "y", "x1", "x2"}, dc.Names())

	ones, ok := dc.Column("const")
	require.True(t, ok)
	for _, v := range ones {
		require.Equal(t, 1.0, v)
	}

	// Original dataset is untouched.
	require.Equal(t, 3, d.NumCols())

	_, err = dc.WithConstant("const")
	require.ErrorIs(t, err, errs.ErrDuplicateColumn)
}

func TestSelect(t *testing.T) {
	d := testDataset(t)

	sub, err := d.Select("x2", "y")
	require.NoError(t, err)
	require.Equal(t, []string{"x2", "y"}, sub.Names())
	require.Equal(t, 5, sub.NumRows())

	_, err = d.Select("nope")
	require.ErrorIs(t, err, errs.ErrColumnNotFound)
}

func TestDesign(t *testing.T) {
	d := testDataset(t)
	dc, err := d.WithConstant("const")
	require.NoError(t, err)

	t.Run("assembles response and design matrix", func(t *testing.T) {
		y, x, err := dc.Design("y", []string{"const", "x1", "x2"})
		require.NoError(t, err)
		require.Len(t, y, 5)

		r, c := x.Dims()
		require.Equal(t, 5, r)
		require.Equal(t, 3, c)
		require.Equal(t, 1.0, x.At(0, 0))
		require.Equal(t, 0.5, x.At(0, 1))
		require.Equal(t, 1.0, x.At(4, 2))

		// Returned response is a copy.
		y[0] = 99
		orig, _ := dc.Column("y")
		require.Equal(t, 2.0, orig[0])
	})

	t.Run("unknown response", func(t *testing.T) {
		_, _, err := dc.Design("z", []string{"const"})
		require.ErrorIs(t, err, errs.ErrColumnNotFound)
	})

	t.Run("unknown predictor", func(t *testing.T) {
		_, _, err := dc.Design("y", []string{"const", "x9"})
		require.ErrorIs(t, err, errs.ErrColumnNotFound)
	})

	t.Run("no predictors", func(t *testing.T) {
		_, _, err := dc.Design("y", nil)
		require.ErrorIs(t, err, errs.ErrEmptyDataset)
	})

	t.Run("rejects NaN in design", func(t *testing.T) {
		bad, err := New([]string{"y", "x"}, [][]float64{{1, 2}, {math.NaN(), 1}})
		require.NoError(t, err)

		_, _, err = bad.Design("y", []string{"x"})
		require.ErrorIs(t, err, errs.ErrInvalidValue)
	})
}

func TestFingerprint(t *testing.T) {
	d1 := testDataset(t)
	d2 := testDataset(t)

	t.Run("deterministic", func(t *testing.T) {
		require.Equal(t, d1.Fingerprint(), d2.Fingerprint())
	})

	t.Run("sensitive to values", func(t *testing.T) {
		d3, err := New(
			[]string{"y", "x1", "x2"},
			[][]float64{
				{2, 0, 1, 3, 6}, // last value changed
				{0.5, 1.0, 1.5, 2.0, 2.5},
				{1, 0, 1, 0, 1},
			},
		)
		require.NoError(t, err)
		require.NotEqual(t, d1.Fingerprint(), d3.Fingerprint())
	})

	t.Run("sensitive to names", func(t *testing.T) {
		d4, err := New(
			[]string{"y", "x1", "z2"},
			[][]float64{
				{2, 0, 1, 3, 5},
				{0.5, 1.0, 1.5, 2.0, 2.5},
				{1, 0, 1, 0, 1},
			},
		)
		require.NoError(t, err)
		require.NotEqual(t, d1.Fingerprint(), d4.Fingerprint())
	})
}

func TestString(t *testing.T) {
	d := testDataset(t)
	s := d.String()
	require.Contains(t, s, "Rows: 5")
	require.Contains(t, s, "Cols: 3")
}
