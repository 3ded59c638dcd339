// Package dataset provides the column-oriented observation container used by
// the modeling packages, with CSV and compact binary file formats.
//
// A Dataset is a set of equally sized named float64 columns. It is built
// once, either programmatically, by simulation, or from a file, and treated
// as immutable afterwards: every accessor returns internal state that callers
// must not modify.
//
// # Basic Usage
//
// Assemble a design and fit a model:
//
//	ds, err := dataset.ReadCSV("counts.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ds, _ = ds.WithConstant("const")
//
//	y, x, err := ds.Design("y", []string{"const", "x1", "x2"})
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfold/countfit/errs"
)

// Dataset holds named float64 columns of equal length.
//
// The zero value is not usable; construct instances with New, FromRows, or
// one of the Read functions.
type Dataset struct {
	names []string
	cols  [][]float64
	index map[string]int
}

// New creates a Dataset from named columns. The Dataset takes ownership of
// the provided slices; callers must not modify them after construction.
//
// Returns an error if no columns are given, a name repeats, or column
// lengths differ. Zero-row datasets are rejected.
func New(names []string, cols [][]float64) (*Dataset, error) {
	if len(names) == 0 || len(cols) == 0 {
		return nil, fmt.Errorf("%w: no columns", errs.ErrEmptyDataset)
	}
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%w: %d names for %d columns", errs.ErrColumnLength, len(names), len(cols))
	}

	nrows := len(cols[0])
	if nrows == 0 {
		return nil, fmt.Errorf("%w: no rows", errs.ErrEmptyDataset)
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: empty name at column %d", errs.ErrInvalidFormat, i)
		}
		if _, ok := index[name]; ok {
			return nil, fmt.Errorf("%w: %q", errs.ErrDuplicateColumn, name)
		}
		if len(cols[i]) != nrows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d",
				errs.ErrColumnLength, name, len(cols[i]), nrows)
		}
		index[name] = i
	}

	return &Dataset{names: names, cols: cols, index: index}, nil
}

// FromRows creates a Dataset from row-oriented records, transposing them into
// columns. Every row must have one value per name.
func FromRows(names []string, rows [][]float64) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", errs.ErrEmptyDataset)
	}

	cols := make([][]float64, len(names))
	for j := range cols {
		cols[j] = make([]float64, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d",
				errs.ErrColumnLength, i, len(row), len(names))
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}

	return New(names, cols)
}

// NumRows returns the number of observations.
func (d *Dataset) NumRows() int {
	return len(d.cols[0])
}

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int {
	return len(d.cols)
}

// Names returns the column names in order. The returned slice is internal
// state and must not be modified.
func (d *Dataset) Names() []string {
	return d.names
}

// Column returns the named column and whether it exists. The returned slice
// is internal state and must not be modified.
func (d *Dataset) Column(name string) ([]float64, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}

	return d.cols[i], true
}

// Has reports whether the named column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// WithConstant returns a new Dataset with an all-ones column of the given
// name prepended. The remaining columns are shared with the receiver.
func (d *Dataset) WithConstant(name string) (*Dataset, error) {
	if _, ok := d.index[name]; ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrDuplicateColumn, name)
	}

	ones := make([]float64, d.NumRows())
	for i := range ones {
		ones[i] = 1.0
	}

	names := make([]string, 0, len(d.names)+1)
	names = append(names, name)
	names = append(names, d.names...)

	cols := make([][]float64, 0, len(d.cols)+1)
	cols = append(cols, ones)
	cols = append(cols, d.cols...)

	return New(names, cols)
}

// Select returns a new Dataset restricted to the named columns, in the given
// order. Columns are shared with the receiver.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	cols := make([][]float64, len(names))
	for i, name := range names {
		col, ok := d.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", errs.ErrColumnNotFound, name)
		}
		cols[i] = col
	}

	kept := make([]string, len(names))
	copy(kept, names)

	return New(kept, cols)
}

// Design assembles a response vector and design matrix for model fitting.
//
// The response column and each predictor column must exist and contain only
// finite values. The returned vector and matrix are fresh copies, detached
// from the Dataset.
//
// Parameters:
//   - response: Name of the response (count) column
//   - predictors: Names of the regressor columns, in design order
//
// Returns:
//   - []float64: Response vector (length NumRows)
//   - *mat.Dense: Design matrix (NumRows x len(predictors))
//   - error: Unknown column or non-finite value
func (d *Dataset) Design(response string, predictors []string) ([]float64, *mat.Dense, error) {
	ycol, ok := d.Column(response)
	if !ok {
		return nil, nil, fmt.Errorf("%w: response %q", errs.ErrColumnNotFound, response)
	}
	if len(predictors) == 0 {
		return nil, nil, fmt.Errorf("%w: no predictors", errs.ErrEmptyDataset)
	}

	n := d.NumRows()
	y := make([]float64, n)
	for i, v := range ycol {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: response %q row %d", errs.ErrInvalidValue, response, i)
		}
		y[i] = v
	}

	x := mat.NewDense(n, len(predictors), nil)
	for j, name := range predictors {
		col, ok := d.Column(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: predictor %q", errs.ErrColumnNotFound, name)
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, fmt.Errorf("%w: predictor %q row %d", errs.ErrInvalidValue, name, i)
			}
			x.Set(i, j, v)
		}
	}

	return y, x, nil
}

// String returns a short human-readable summary of the dataset shape.
func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset{Rows: %d, Cols: %d, Hash: %016x}", d.NumRows(), d.NumCols(), d.Fingerprint())
}
