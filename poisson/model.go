package poisson

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/internal/options"
)

// Method selects the likelihood optimizer.
type Method uint8

const (
	MethodNewton Method = 0x1 // MethodNewton uses Newton iterations with the analytic Hessian.
	MethodBFGS   Method = 0x2 // MethodBFGS uses quasi-Newton BFGS updates.
)

func (m Method) String() string {
	switch m {
	case MethodNewton:
		return "newton"
	case MethodBFGS:
		return "bfgs"
	default:
		return "unknown"
	}
}

// ParseMethod converts a name like "newton" or "bfgs" to its Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "", "newton":
		return MethodNewton, nil
	case "bfgs":
		return MethodBFGS, nil
	default:
		return 0, fmt.Errorf("%w: %q", errs.ErrUnknownMethod, name)
	}
}

// CovType selects the parameter covariance estimator.
type CovType uint8

const (
	// CovNonRobust uses the inverse observed information.
	CovNonRobust CovType = 0x1
	// CovHC0 uses the heteroskedasticity-robust sandwich estimator.
	CovHC0 CovType = 0x2
	// CovHC1 is CovHC0 with the n/(n-k) small-sample scaling.
	CovHC1 CovType = 0x3
)

func (c CovType) String() string {
	switch c {
	case CovNonRobust:
		return "nonrobust"
	case CovHC0:
		return "HC0"
	case CovHC1:
		return "HC1"
	default:
		return "unknown"
	}
}

// ParseCovType converts a name like "nonrobust" or "HC1" to its CovType.
func ParseCovType(name string) (CovType, error) {
	switch strings.ToLower(name) {
	case "", "nonrobust":
		return CovNonRobust, nil
	case "hc0":
		return CovHC0, nil
	case "hc1":
		return CovHC1, nil
	default:
		return 0, fmt.Errorf("%w: %q", errs.ErrUnknownCovType, name)
	}
}

type fitConfig struct {
	maxIter int
	tol     float64
	method  Method
	covType CovType
	offset  []float64
	start   []float64
}

func defaultFitConfig() fitConfig {
	return fitConfig{
		maxIter: 100,
		tol:     1e-8,
		method:  MethodNewton,
		covType: CovNonRobust,
	}
}

// Option configures a Model at construction time.
type Option = options.Option[*fitConfig]

// WithOffset adds a fixed term to the linear predictor: log mu = X beta + offset.
// The slice must have one entry per observation.
func WithOffset(offset []float64) Option {
	return options.NoError(func(cfg *fitConfig) {
		cfg.offset = offset
	})
}

// WithExposure sets the offset to the log of an exposure (observation time,
// population at risk). Exposure values must be strictly positive.
func WithExposure(exposure []float64) Option {
	return options.New(func(cfg *fitConfig) error {
		offset := make([]float64, len(exposure))
		for i, e := range exposure {
			if e <= 0 || math.IsNaN(e) || math.IsInf(e, 0) {
				return fmt.Errorf("%w: exposure %v at row %d", errs.ErrInvalidOffset, e, i)
			}
			offset[i] = math.Log(e)
		}
		cfg.offset = offset

		return nil
	})
}

// WithMaxIter bounds the number of optimizer iterations. Default 100.
func WithMaxIter(n int) Option {
	return options.New(func(cfg *fitConfig) error {
		if n <= 0 {
			return fmt.Errorf("%w: max iterations %d", errs.ErrInvalidValue, n)
		}
		cfg.maxIter = n

		return nil
	})
}

// WithTol sets the gradient norm threshold for convergence. Default 1e-8.
func WithTol(tol float64) Option {
	return options.New(func(cfg *fitConfig) error {
		if tol <= 0 || math.IsNaN(tol) {
			return fmt.Errorf("%w: tolerance %v", errs.ErrInvalidValue, tol)
		}
		cfg.tol = tol

		return nil
	})
}

// WithMethod selects the optimizer. Default MethodNewton.
func WithMethod(m Method) Option {
	return options.New(func(cfg *fitConfig) error {
		if m != MethodNewton && m != MethodBFGS {
			return fmt.Errorf("%w: method %d", errs.ErrUnknownMethod, m)
		}
		cfg.method = m

		return nil
	})
}

// WithCovType selects the parameter covariance estimator. Default CovNonRobust.
func WithCovType(c CovType) Option {
	return options.New(func(cfg *fitConfig) error {
		if c != CovNonRobust && c != CovHC0 && c != CovHC1 {
			return fmt.Errorf("%w: covariance type %d", errs.ErrUnknownCovType, c)
		}
		cfg.covType = c

		return nil
	})
}

// WithStart sets the optimizer's starting coefficients. Default is a zero
// vector with log(mean(y)) at the constant column.
func WithStart(start []float64) Option {
	return options.NoError(func(cfg *fitConfig) {
		cfg.start = start
	})
}

// Model is a Poisson regression specification: a count response, a design
// matrix, and fit settings. Build it with NewModel and call Fit.
//
// A Model is immutable and safe for concurrent use; Fit can be called
// repeatedly (the parametric bootstrap relies on this).
type Model struct {
	y      []float64
	x      *mat.Dense
	names  []string
	offset []float64
	nobs   int
	nparam int
	cfg    fitConfig
}

// NewModel validates and assembles a Poisson regression model.
//
// The response y must hold nonnegative integral counts. The design matrix x
// must have one row per response entry and full column rank (rank problems
// surface at Fit time as ErrSingularInformation). Column names are used in
// summaries and term-based tests; pass nil to use x1, x2, ...
//
// Parameters:
//   - y: Response counts, length n
//   - x: Design matrix, n x k
//   - names: Column names, length k, or nil
//   - opts: Fit settings (offset, optimizer, covariance type)
//
// Returns:
//   - *Model: The assembled model.
//   - error: Validation error describing the first offending input.
func NewModel(y []float64, x *mat.Dense, names []string, opts ...Option) (*Model, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil design matrix", errs.ErrDimensionMismatch)
	}

	n, k := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("%w: %d responses for %d design rows", errs.ErrDimensionMismatch, len(y), n)
	}
	if k == 0 {
		return nil, fmt.Errorf("%w: design matrix has no columns", errs.ErrDimensionMismatch)
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d observations for %d parameters", errs.ErrTooFewObservations, n, k)
	}

	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || math.Trunc(v) != v {
			return nil, fmt.Errorf("%w: y[%d] = %v is not a nonnegative count", errs.ErrInvalidResponse, i, v)
		}
	}

	cfg := defaultFitConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.offset != nil && len(cfg.offset) != n {
		return nil, fmt.Errorf("%w: offset length %d for %d observations", errs.ErrInvalidOffset, len(cfg.offset), n)
	}
	if cfg.start != nil && len(cfg.start) != k {
		return nil, fmt.Errorf("%w: start length %d for %d parameters", errs.ErrDimensionMismatch, len(cfg.start), k)
	}

	if names == nil {
		names = make([]string, k)
		for j := range names {
			names[j] = fmt.Sprintf("x%d", j+1)
		}
	} else if len(names) != k {
		return nil, fmt.Errorf("%w: %d names for %d columns", errs.ErrDimensionMismatch, len(names), k)
	}

	return &Model{
		y:      y,
		x:      x,
		names:  names,
		offset: cfg.offset,
		nobs:   n,
		nparam: k,
		cfg:    cfg,
	}, nil
}

// WithResponse returns a copy of the model with a new response vector and the
// same design, offset, and fit settings. The parametric bootstrap uses this
// to refit simulated responses without revalidating the design.
func (m *Model) WithResponse(y []float64) (*Model, error) {
	if len(y) != m.nobs {
		return nil, fmt.Errorf("%w: %d responses for %d design rows", errs.ErrDimensionMismatch, len(y), m.nobs)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || math.Trunc(v) != v {
			return nil, fmt.Errorf("%w: y[%d] = %v is not a nonnegative count", errs.ErrInvalidResponse, i, v)
		}
	}

	clone := *m
	clone.y = y

	return &clone, nil
}

// NumObs returns the number of observations n.
func (m *Model) NumObs() int { return m.nobs }

// NumParams returns the number of coefficients k.
func (m *Model) NumParams() int { return m.nparam }

// Y returns the response vector. The returned slice is internal state and
// must not be modified.
func (m *Model) Y() []float64 { return m.y }

// Exog returns the design matrix. The returned matrix is internal state and
// must not be modified.
func (m *Model) Exog() *mat.Dense { return m.x }

// Names returns the design column names.
func (m *Model) Names() []string { return m.names }

// Offset returns the linear predictor offset, or nil when none was set.
func (m *Model) Offset() []float64 { return m.offset }

// constantColumn returns the index of an all-ones design column, or -1.
func (m *Model) constantColumn() int {
	for j := 0; j < m.nparam; j++ {
		isConst := true
		for i := 0; i < m.nobs; i++ {
			if m.x.At(i, j) != 1.0 {
				isConst = false
				break
			}
		}
		if isConst {
			return j
		}
	}

	return -1
}

// HasConstant reports whether the design contains an all-ones column.
func (m *Model) HasConstant() bool {
	return m.constantColumn() >= 0
}
