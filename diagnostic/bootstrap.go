package diagnostic

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/internal/hash"
	"github.com/quantfold/countfit/poisson"
	"github.com/quantfold/countfit/report"
)

// BootstrapOptions configures BootstrapPValue.
type BootstrapOptions struct {
	// Replications is the number of resimulated fits. Required, at least 1;
	// a few hundred is the practical minimum for stable p-values.
	Replications int
	// Workers bounds the number of concurrent refits. Defaults to
	// GOMAXPROCS. Results do not depend on the worker count: each
	// replication draws from its own seeded source.
	Workers int
	// Seed seeds the replication sources. The same seed reproduces the run.
	Seed uint64
}

// BootstrapResult holds a parametric bootstrap p-value and the shape of the
// simulated null distribution.
type BootstrapResult struct {
	// Observed is the statistic on the original fit.
	Observed float64
	// PValue is the two-sided bootstrap p-value, (1 + #{|t_b| >= |t|}) /
	// (1 + B) over the successful replications.
	PValue float64
	// Replications is the number of successful replications.
	Replications int
	// Failed counts replications whose refit did not converge.
	Failed int

	// Null distribution summary over the successful replications.
	NullMean float64
	NullSD   float64
	NullMin  float64
	NullMax  float64
	NullQ95  float64
	NullQ99  float64
}

// String renders the result as an aligned key/value block.
func (r *BootstrapResult) String() string {
	return report.Section("Parametric bootstrap") + report.KeyValues([][2]string{
		{"Observed", report.Float(r.Observed)},
		{"P-value", report.Float(r.PValue)},
		{"Replications", report.Int(r.Replications)},
		{"Failed refits", report.Int(r.Failed)},
		{"Null mean", report.Float(r.NullMean)},
		{"Null sd", report.Float(r.NullSD)},
		{"Null min", report.Float(r.NullMin)},
		{"Null max", report.Float(r.NullMax)},
		{"Null q95", report.Float(r.NullQ95)},
		{"Null q99", report.Float(r.NullQ99)},
	})
}

// BootstrapPValue estimates the null distribution of an arbitrary statistic
// by parametric bootstrap: resimulate y ~ Poisson(mu_hat) under the fitted
// model, refit, and recompute the statistic, B times across a worker pool.
//
// The statistic callback must be safe for concurrent use; the *Results it
// receives belongs to the replication. Refit failures (rare, but possible on
// extreme draws) are counted and skipped; only when every replication fails
// does the call return ErrBootstrapFailed.
//
// Replication r draws from a source keyed by (Seed, r), so runs are
// reproducible for a fixed Seed regardless of Workers.
func (d *Diagnostic) BootstrapPValue(statFn func(*poisson.Results) float64, opts BootstrapOptions) (*BootstrapResult, error) {
	if opts.Replications < 1 {
		return nil, fmt.Errorf("%w: %d replications", errs.ErrInvalidValue, opts.Replications)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > opts.Replications {
		workers = opts.Replications
	}

	res := d.res
	observed := statFn(res)

	dist, err := res.Distribution()
	if err != nil {
		return nil, err
	}

	draws := make([]float64, opts.Replications)
	for i := range draws {
		draws[i] = math.NaN()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				src := rand.NewSource(hash.Mix(opts.Seed, uint64(idx)))
				y := dist.Rand(src)

				replica, err := res.Model().WithResponse(y)
				if err != nil {
					continue
				}
				refit, err := replica.Fit()
				if err != nil {
					continue
				}
				draws[idx] = statFn(refit)
			}
		}()
	}
	for idx := 0; idx < opts.Replications; idx++ {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	null := make([]float64, 0, opts.Replications)
	for _, v := range draws {
		if !math.IsNaN(v) {
			null = append(null, v)
		}
	}
	failed := opts.Replications - len(null)
	if len(null) == 0 {
		return nil, fmt.Errorf("%w: %d replications attempted", errs.ErrBootstrapFailed, opts.Replications)
	}

	exceed := 0
	for _, v := range null {
		if math.Abs(v) >= math.Abs(observed) {
			exceed++
		}
	}

	sort.Float64s(null)
	mean, sd := stat.MeanStdDev(null, nil)
	if len(null) == 1 {
		sd = 0
	}

	return &BootstrapResult{
		Observed:     observed,
		PValue:       float64(1+exceed) / float64(1+len(null)),
		Replications: len(null),
		Failed:       failed,
		NullMean:     mean,
		NullSD:       sd,
		NullMin:      null[0],
		NullMax:      null[len(null)-1],
		NullQ95:      stat.Quantile(0.95, stat.Empirical, null, nil),
		NullQ99:      stat.Quantile(0.99, stat.Empirical, null, nil),
	}, nil
}
