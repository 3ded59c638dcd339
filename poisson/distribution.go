package poisson

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/internal/options"
)

// Distribution is the fitted count distribution, one frozen Poisson per
// prediction row. It answers distribution-level questions about the fit:
// probabilities of specific counts, tail probabilities, quantiles, and
// simulated responses (the engine of the parametric bootstrap).
//
// A Distribution is immutable and safe for concurrent use, except for Rand,
// which is as safe as the rand.Source passed to it.
type Distribution struct {
	mus []float64
}

// Distribution freezes the fitted distribution at the estimation sample, or
// at fresh rows supplied with WithNewExog / WithNewOffset. Other prediction
// options are ignored.
func (r *Results) Distribution(opts ...PredictOption) (*Distribution, error) {
	cfg := &predictConfig{which: WhichMean}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	_, _, mu, err := r.predictDesign(cfg)
	if err != nil {
		return nil, err
	}

	return &Distribution{mus: mu}, nil
}

// Len returns the number of rows the distribution covers.
func (d *Distribution) Len() int { return len(d.mus) }

// At returns the frozen distribution for row i, exposing the full gonum
// distuv.Poisson surface for row-level queries.
func (d *Distribution) At(i int) distuv.Poisson {
	return distuv.Poisson{Lambda: d.mus[i]}
}

// Mean returns the per-row means. For the Poisson these coincide with the
// fitted values.
func (d *Distribution) Mean() []float64 {
	out := make([]float64, len(d.mus))
	copy(out, d.mus)

	return out
}

// Variance returns the per-row variances, equal to the means.
func (d *Distribution) Variance() []float64 {
	return d.Mean()
}

// PMF returns P(Y = c) per row. Negative counts have probability zero.
func (d *Distribution) PMF(c int) []float64 {
	out := make([]float64, len(d.mus))
	for i, mu := range d.mus {
		out[i] = distuv.Poisson{Lambda: mu}.Prob(float64(c))
	}

	return out
}

// CDF returns P(Y <= c) per row.
func (d *Distribution) CDF(c int) []float64 {
	out := make([]float64, len(d.mus))
	for i, mu := range d.mus {
		out[i] = distuv.Poisson{Lambda: mu}.CDF(float64(c))
	}

	return out
}

// Survival returns P(Y > c) per row.
func (d *Distribution) Survival(c int) []float64 {
	out := make([]float64, len(d.mus))
	for i, mu := range d.mus {
		out[i] = distuv.Poisson{Lambda: mu}.Survival(float64(c))
	}

	return out
}

// Quantile returns the smallest count with CDF(count) >= p, per row. The
// search walks counts upward from zero, so cost grows with the returned
// count.
func (d *Distribution) Quantile(p float64) ([]float64, error) {
	if !(p > 0 && p < 1) {
		return nil, fmt.Errorf("%w: probability %v", errs.ErrInvalidValue, p)
	}

	out := make([]float64, len(d.mus))
	for i, mu := range d.mus {
		dist := distuv.Poisson{Lambda: mu}
		c := 0.0
		for dist.CDF(c) < p {
			c++
		}
		out[i] = c
	}

	return out, nil
}

// Rand draws one count per row from the fitted distribution using the given
// source. A nil source falls back to the global source, which is not
// reproducible; simulation-grade callers should pass a seeded rand.Source.
func (d *Distribution) Rand(src rand.Source) []float64 {
	out := make([]float64, len(d.mus))
	for i, mu := range d.mus {
		out[i] = distuv.Poisson{Lambda: mu, Src: src}.Rand()
	}

	return out
}

// ProbMatrix returns P(Y = c) for every row and each count in counts, the
// matrix form consumed by goodness-of-fit diagnostics.
func (d *Distribution) ProbMatrix(counts []int) (*mat.Dense, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no counts requested", errs.ErrInvalidCount)
	}
	for _, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("%w: count %d", errs.ErrInvalidCount, c)
		}
	}

	probs := mat.NewDense(len(d.mus), len(counts), nil)
	for i, mu := range d.mus {
		pmf := distuv.Poisson{Lambda: mu}
		for j, c := range counts {
			probs.Set(i, j, pmf.Prob(float64(c)))
		}
	}

	return probs, nil
}
