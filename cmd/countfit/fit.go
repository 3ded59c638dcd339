package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantfold/countfit/dataset"
	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/poisson"
	"github.com/quantfold/countfit/runlog"
)

var fitCmd = &cobra.Command{
	Use:   "fit [dataset]",
	Short: "Fit a Poisson regression and print the estimation summary",
	Long: `Fit reads a dataset file (CSV or binary, chosen by extension), assembles
the design from the --response and --predictors columns, and estimates a
Poisson regression by maximum likelihood.

The summary is the usual MLE table: coefficients, standard errors, z
statistics, p-values, 95% bounds, plus log-likelihood, the LR test
against the constant-only model, and pseudo R-squared.

With --record the run is appended to a local SQLite history database so
later fits of the same data can be compared; see "countfit history".`,
	Args: cobra.ExactArgs(1),
	RunE: runFit,
}

func runFit(cmd *cobra.Command, args []string) error {
	res, ds, err := fitFromFile(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Println(res.Summary())

	record, _ := cmd.Flags().GetBool("record")
	if !record {
		return nil
	}

	note, _ := cmd.Flags().GetString("note")
	dbPath := stringFlagOrConfig(cmd, "db")

	store, err := runlog.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	entry := runlog.NewEntry(res, ds, note)
	if err := store.Record(context.Background(), entry); err != nil {
		return err
	}
	fmt.Printf("Recorded run %s in %s\n", entry.ID, dbPath)
	return nil
}

// --- shared model plumbing ---

// addModelFlags registers the design and estimation flags shared by every
// subcommand that fits a model from a dataset file.
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("response", "y", "response (count) column")
	cmd.Flags().String("predictors", "", "regressor columns, comma separated (default: every other column)")
	cmd.Flags().String("offset", "", "column added to the linear predictor with coefficient one")
	cmd.Flags().String("exposure", "", "column whose log is added to the linear predictor")
	cmd.Flags().Bool("add-constant", false, "prepend an all-ones column named const")
	cmd.Flags().String("method", "newton", "optimizer: newton or bfgs")
	cmd.Flags().String("cov", "nonrobust", "covariance estimator: nonrobust, hc0, or hc1")
	cmd.Flags().Int("max-iter", 0, "maximum optimizer iterations (0 = default)")
	cmd.Flags().Float64("tol", 0, "convergence tolerance (0 = default)")
}

// fitFromFile reads the dataset at path and fits the model described by the
// command's design flags.
func fitFromFile(cmd *cobra.Command, path string) (*poisson.Results, *dataset.Dataset, error) {
	ds, err := readDataset(path)
	if err != nil {
		return nil, nil, err
	}

	if addConst, _ := cmd.Flags().GetBool("add-constant"); addConst {
		ds, err = ds.WithConstant("const")
		if err != nil {
			return nil, nil, err
		}
	}

	res, err := fitModel(cmd, ds)
	if err != nil {
		return nil, nil, err
	}
	return res, ds, nil
}

func fitModel(cmd *cobra.Command, ds *dataset.Dataset) (*poisson.Results, error) {
	response, _ := cmd.Flags().GetString("response")
	offsetCol, _ := cmd.Flags().GetString("offset")
	exposureCol, _ := cmd.Flags().GetString("exposure")

	predictors, err := predictorNames(cmd, ds, response, offsetCol, exposureCol)
	if err != nil {
		return nil, err
	}

	y, x, err := ds.Design(response, predictors)
	if err != nil {
		return nil, err
	}

	method, err := poisson.ParseMethod(stringFlagOrConfig(cmd, "method"))
	if err != nil {
		return nil, err
	}
	covType, err := poisson.ParseCovType(stringFlagOrConfig(cmd, "cov"))
	if err != nil {
		return nil, err
	}

	opts := []poisson.Option{poisson.WithMethod(method), poisson.WithCovType(covType)}

	if offsetCol != "" {
		col, ok := ds.Column(offsetCol)
		if !ok {
			return nil, fmt.Errorf("%w: offset %q", errs.ErrColumnNotFound, offsetCol)
		}
		opts = append(opts, poisson.WithOffset(col))
	}
	if exposureCol != "" {
		col, ok := ds.Column(exposureCol)
		if !ok {
			return nil, fmt.Errorf("%w: exposure %q", errs.ErrColumnNotFound, exposureCol)
		}
		opts = append(opts, poisson.WithExposure(col))
	}
	if maxIter, _ := cmd.Flags().GetInt("max-iter"); maxIter > 0 {
		opts = append(opts, poisson.WithMaxIter(maxIter))
	}
	if tol, _ := cmd.Flags().GetFloat64("tol"); tol > 0 {
		opts = append(opts, poisson.WithTol(tol))
	}

	m, err := poisson.NewModel(y, x, predictors, opts...)
	if err != nil {
		return nil, err
	}
	return m.Fit()
}

// predictorNames resolves --predictors, defaulting to every column other
// than the response, offset, and exposure, in dataset order.
func predictorNames(cmd *cobra.Command, ds *dataset.Dataset, response, offsetCol, exposureCol string) ([]string, error) {
	if spec, _ := cmd.Flags().GetString("predictors"); spec != "" {
		names := splitList(spec)
		if len(names) == 0 {
			return nil, fmt.Errorf("no predictor columns in %q", spec)
		}
		return names, nil
	}

	var names []string
	for _, name := range ds.Names() {
		if name == response || name == offsetCol || name == exposureCol {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no predictor columns besides %q", errs.ErrEmptyDataset, response)
	}
	return names, nil
}

func splitList(spec string) []string {
	parts := strings.Split(spec, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stringFlagOrConfig prefers an explicitly set flag, then the viper config
// (file or COUNTFIT_* environment), then the flag's declared default.
func stringFlagOrConfig(cmd *cobra.Command, name string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	if viper.IsSet(name) {
		return viper.GetString(name)
	}
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	addModelFlags(fitCmd)
	fitCmd.Flags().Bool("record", false, "append this run to the history database")
	fitCmd.Flags().String("note", "", "free-form note stored with --record")
	fitCmd.Flags().String("db", "", "history database path (default from config: countfit-runs.db)")

	rootCmd.AddCommand(fitCmd)
}
