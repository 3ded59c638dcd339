package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantfold/countfit/diagnostic"
	"github.com/quantfold/countfit/poisson"
	"github.com/quantfold/countfit/report"
)

var predictCmd = &cobra.Command{
	Use:   "predict [dataset]",
	Short: "Predict means, linear predictors, or count probabilities with delta-method intervals",
	Long: `Predict fits the model and reports predictions over the estimation
sample. By default it prints the sample-average predicted mean with its
delta-method standard error and confidence interval; --which switches
the target to the linear predictor or the conditional variance, and
--rows N additionally prints the first N per-row predictions.

With --prob the output is instead the averaged predicted probability of
each count 0..--max-count, compared against the observed frequencies.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	res, _, err := fitFromFile(cmd, args[0])
	if err != nil {
		return err
	}

	alpha, _ := cmd.Flags().GetFloat64("alpha")

	if prob, _ := cmd.Flags().GetBool("prob"); prob {
		return printProbPrediction(cmd, res, alpha)
	}

	whichName, _ := cmd.Flags().GetString("which")
	which, err := poisson.ParseWhich(whichName)
	if err != nil {
		return err
	}

	avg, err := res.Predict(poisson.WithWhich(which), poisson.Average())
	if err != nil {
		return err
	}
	table, err := avg.Table(alpha)
	if err != nil {
		return err
	}
	fmt.Println(table)

	rows, _ := cmd.Flags().GetInt("rows")
	if rows <= 0 {
		return nil
	}

	perRow, err := res.Predict(poisson.WithWhich(which))
	if err != nil {
		return err
	}
	return printPerRow(perRow, alpha, rows)
}

// printPerRow renders the first `limit` per-row predictions.
func printPerRow(pred *poisson.PredictionResult, alpha float64, limit int) error {
	ci, err := pred.ConfInt(alpha)
	if err != nil {
		return err
	}
	if limit > pred.Len() {
		limit = pred.Len()
	}

	lo := fmt.Sprintf("[%.1f%%", 100*alpha/2)
	hi := fmt.Sprintf("%.1f%%]", 100*(1-alpha/2))
	t := report.NewTable("row", pred.Which().String(), "std err", lo, hi)
	for i := 0; i < limit; i++ {
		t.AddRow(report.Int(i),
			report.Float(pred.Predicted()[i]),
			report.Float(pred.SE()[i]),
			report.Float(ci[i][0]),
			report.Float(ci[i][1]))
	}
	fmt.Println(t.String())
	if limit < pred.Len() {
		fmt.Printf("... %d more rows\n", pred.Len()-limit)
	}
	return nil
}

func printProbPrediction(cmd *cobra.Command, res *poisson.Results, alpha float64) error {
	maxCount, _ := cmd.Flags().GetInt("max-count")
	counts := make([]int, maxCount+1)
	for c := range counts {
		counts[c] = c
	}

	pred, err := res.PredictProb(counts, poisson.Average())
	if err != nil {
		return err
	}
	table, err := pred.Table(alpha)
	if err != nil {
		return err
	}
	fmt.Println(table)

	// The observed frequencies give the predicted column something to be
	// judged against.
	freq, err := diagnostic.New(res).ProbTable(maxCount)
	if err != nil {
		return err
	}
	fmt.Println(freq.Table())
	return nil
}

func init() {
	addModelFlags(predictCmd)
	predictCmd.Flags().String("which", "mean", "prediction target: mean, linear, or variance")
	predictCmd.Flags().Float64("alpha", 0.05, "interval tail mass (0.05 gives 95% bounds)")
	predictCmd.Flags().Int("rows", 0, "also print the first N per-row predictions")
	predictCmd.Flags().Bool("prob", false, "predict count probabilities instead of the mean")
	predictCmd.Flags().Int("max-count", 5, "largest count in the --prob table")

	rootCmd.AddCommand(predictCmd)
}
