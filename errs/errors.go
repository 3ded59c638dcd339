// Package errs defines sentinel errors shared across countfit packages.
//
// All errors are created with errors.New and are intended to be wrapped with
// fmt.Errorf("%w: detail", ...) at the call site, so callers can match them
// with errors.Is while still receiving contextual detail.
package errs

import "errors"

// Dataset construction and IO errors.
var (
	// ErrEmptyDataset indicates a dataset with no columns or no rows.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrDuplicateColumn indicates two columns share the same name.
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrColumnLength indicates columns of unequal length.
	ErrColumnLength = errors.New("column length mismatch")
	// ErrColumnNotFound indicates a reference to a column that does not exist.
	ErrColumnNotFound = errors.New("column not found")
	// ErrInvalidValue indicates a NaN or Inf value where a finite one is required.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidFormat indicates a malformed dataset file.
	ErrInvalidFormat = errors.New("invalid dataset format")
	// ErrUnsupportedVersion indicates a binary dataset written by a newer format revision.
	ErrUnsupportedVersion = errors.New("unsupported format version")
)

// Model specification and fitting errors.
var (
	// ErrInvalidResponse indicates a response vector with negative or non-integral counts.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrDimensionMismatch indicates incompatible vector or matrix dimensions.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrSingularInformation indicates a Fisher information matrix that is not
	// positive definite, usually caused by collinear or constant regressors.
	ErrSingularInformation = errors.New("singular information matrix")
	// ErrNotConverged indicates the optimizer stopped before reaching the
	// convergence tolerance.
	ErrNotConverged = errors.New("estimation did not converge")
	// ErrInvalidOffset indicates an offset or exposure of the wrong length or sign.
	ErrInvalidOffset = errors.New("invalid offset")
	// ErrUnknownMethod indicates an unrecognized optimization method name.
	ErrUnknownMethod = errors.New("unknown optimization method")
	// ErrUnknownCovType indicates an unrecognized covariance estimator name.
	ErrUnknownCovType = errors.New("unknown covariance type")
)

// Post-estimation errors.
var (
	// ErrInvalidRestriction indicates a malformed restriction matrix for a Wald test.
	ErrInvalidRestriction = errors.New("invalid restriction")
	// ErrInvalidAlpha indicates a significance level outside (0, 1).
	ErrInvalidAlpha = errors.New("invalid significance level")
	// ErrInvalidCount indicates a negative count where a nonnegative one is required.
	ErrInvalidCount = errors.New("invalid count")
	// ErrSingularMomentCov indicates a conditional moment covariance that cannot
	// be inverted, usually caused by empty count cells.
	ErrSingularMomentCov = errors.New("singular moment covariance")
	// ErrTooFewObservations indicates fewer observations than parameters.
	ErrTooFewObservations = errors.New("too few observations")
	// ErrBootstrapFailed indicates that every bootstrap replication failed to refit.
	ErrBootstrapFailed = errors.New("all bootstrap replications failed")
)

// Run log errors.
var (
	// ErrRunNotFound indicates a lookup for a run ID that is not recorded.
	ErrRunNotFound = errors.New("run not found")
)
