// Package countfit estimates Poisson regression models and walks the full
// post-estimation surface: coefficient tests, delta-method predictions,
// fitted-distribution queries, specification diagnostics, and influence
// measures.
//
// The package is organized around one flow: simulate or load a count
// dataset, fit the model by maximum likelihood, then interrogate the fit.
//
// # Core Features
//
//   - Newton and BFGS maximum-likelihood fitting with analytic gradient and
//     Hessian (gonum/optimize)
//   - Nonrobust and heteroskedasticity-robust (HC0/HC1) covariance
//   - Wald tests on arbitrary linear restrictions and score (LM) tests on
//     omitted variables
//   - Per-row and sample-average predictions of the mean, linear predictor,
//     variance, and count probabilities, each with delta-method intervals
//   - Specification diagnostics: dispersion score tests, excess-zeros test,
//     moment-adjusted chi-square on cell probabilities, and a parametric
//     bootstrap for statistics without a usable asymptotic distribution
//   - Per-observation influence: leverage, Cook's distance, DFFITS, DFBETAS
//   - Dataset files in CSV or a compact binary format, with optional
//     Zstd/S2/LZ4 compression and a SQLite-backed run log
//
// # Basic Usage
//
// Simulating, fitting, and summarizing:
//
//	import "github.com/quantfold/countfit"
//	import "github.com/quantfold/countfit/simulate"
//
//	ds, _ := simulate.Poisson(simulate.Config{
//	    NObs: 500,
//	    Beta: []float64{0.4, 0.7, -0.5},
//	    Seed: 42,
//	})
//	res, _ := countfit.FitDataset(ds, "y", []string{"const", "x1", "x2"})
//	fmt.Println(res.Summary())
//
// Testing and predicting:
//
//	wald, _ := res.WaldTestTerms("x1", "x2")
//	fmt.Println(wald)
//
//	avg, _ := res.Predict(poisson.Average())
//	table, _ := avg.Table(0.05)
//	fmt.Println(table)
//
// Diagnosing and ranking influence:
//
//	disp := countfit.Diagnose(res).TestDispersion()
//	fmt.Println(disp)
//
//	infl, _ := countfit.Influence(res)
//	fmt.Println(infl.SummaryTable(10))
//
// Each concern lives in its own subpackage (poisson, diagnostic, influence,
// dataset, simulate, runlog); this package re-exports the common entry
// points so a typical analysis needs a single import.
package countfit

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfold/countfit/compress"
	"github.com/quantfold/countfit/dataset"
	"github.com/quantfold/countfit/diagnostic"
	"github.com/quantfold/countfit/influence"
	"github.com/quantfold/countfit/poisson"
	"github.com/quantfold/countfit/runlog"
)

// Fit estimates a Poisson regression of y on the design matrix x by maximum
// likelihood and returns the fitted results.
//
// This is the one-call form of poisson.NewModel followed by Fit. The design
// matrix must include the constant column when one is wanted; names label
// the columns in summaries and tests.
//
// Parameters:
//   - y: Response counts (length n)
//   - x: Design matrix (n x k), constant column included
//   - names: Column names (length k)
//   - opts: Model options (method, covariance, offset, exposure, ...)
//
// Returns:
//   - *poisson.Results: The fitted model.
//   - error: Invalid data, a singular design, or failed convergence.
//
// Example:
//
//	res, err := countfit.Fit(y, x, []string{"const", "x1"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Summary())
func Fit(y []float64, x *mat.Dense, names []string, opts ...poisson.Option) (*poisson.Results, error) {
	m, err := poisson.NewModel(y, x, names, opts...)
	if err != nil {
		return nil, err
	}

	return m.Fit()
}

// FitDataset estimates a Poisson regression from named dataset columns.
//
// The response column holds the counts; predictors are taken in the given
// order as the design matrix. Use Dataset.WithConstant first when the data
// has no constant column.
//
// Parameters:
//   - ds: Source dataset
//   - response: Name of the count column
//   - predictors: Regressor column names, in design order
//   - opts: Model options (method, covariance, offset, exposure, ...)
//
// Returns:
//   - *poisson.Results: The fitted model.
//   - error: Unknown columns, invalid data, or failed convergence.
//
// Example:
//
//	ds, _ := countfit.ReadDataset("counts.csv")
//	res, err := countfit.FitDataset(ds, "y", []string{"const", "x1", "x2"})
func FitDataset(ds *dataset.Dataset, response string, predictors []string, opts ...poisson.Option) (*poisson.Results, error) {
	y, x, err := ds.Design(response, predictors)
	if err != nil {
		return nil, err
	}

	return Fit(y, x, predictors, opts...)
}

// Diagnose wraps fitted results for the specification battery: dispersion
// score tests, the excess-zeros test, the moment-adjusted chi-square test on
// cell probabilities, observed-vs-predicted frequency tables, and parametric
// bootstrap p-values.
//
// Example:
//
//	diag := countfit.Diagnose(res)
//	fmt.Println(diag.TestDispersion())
//	fmt.Println(diag.TestZeros())
func Diagnose(res *poisson.Results) *diagnostic.Diagnostic {
	return diagnostic.New(res)
}

// Influence computes per-observation influence measures on the fitted model:
// leverage, Pearson and studentized residuals, Cook's distance, DFFITS, and
// one-step coefficient changes.
//
// Returns an error when the fit has no residual degrees of freedom.
//
// Example:
//
//	infl, err := countfit.Influence(res)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(infl.SummaryTable(10))
func Influence(res *poisson.Results) (*influence.Measures, error) {
	return influence.Compute(res)
}

// ReadDataset loads a dataset file, dispatching on the extension: ".csv"
// (before any compression extension such as .zst) reads text, anything else
// reads the binary dataset format.
//
// Example:
//
//	ds, err := countfit.ReadDataset("counts.csv.zst")
func ReadDataset(path string) (*dataset.Dataset, error) {
	if isCSVPath(path) {
		return dataset.ReadCSV(path)
	}

	return dataset.ReadBinary(path)
}

// WriteDataset writes ds to path with the same extension dispatch as
// ReadDataset. The returned stats describe the binary payload; CSV output
// reports zero stats.
//
// Example:
//
//	stats, err := countfit.WriteDataset(ds, "counts.bin", dataset.WithCompression(compress.Zstd))
func WriteDataset(ds *dataset.Dataset, path string, opts ...dataset.WriteOption) (compress.Stats, error) {
	if isCSVPath(path) {
		return compress.Stats{}, ds.WriteCSV(path, opts...)
	}

	return ds.WriteBinary(path, opts...)
}

// isCSVPath reports whether the path names a CSV file, ignoring a trailing
// compression extension.
func isCSVPath(path string) bool {
	p := strings.ToLower(path)
	for _, ext := range []string{".zst", ".zstd", ".s2", ".lz4"} {
		p = strings.TrimSuffix(p, ext)
	}

	return strings.HasSuffix(p, ".csv")
}

// OpenRunLog opens (or creates) the SQLite run log at path. Record fitted
// runs with runlog.NewEntry and Store.Record; see the runlog package for
// listing and export.
//
// Example:
//
//	store, err := countfit.OpenRunLog("countfit-runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	entry := runlog.NewEntry(res, ds, "baseline fit")
//	err = store.Record(ctx, entry)
func OpenRunLog(path string) (*runlog.Store, error) {
	return runlog.Open(path)
}
