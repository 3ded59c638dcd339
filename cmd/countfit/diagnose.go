package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantfold/countfit/diagnostic"
	"github.com/quantfold/countfit/poisson"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [dataset]",
	Short: "Run the specification diagnostics battery on a fitted model",
	Long: `Diagnose fits the model and runs the specification battery:

  dispersion  Dean's score tests and the Cameron-Trivedi auxiliary
              regressions against NB2/NB1 alternatives
  zeros       the excess-zeros score test (observed vs expected zeros)
  chisquare   the moment-adjusted chi-square test on cell probabilities
  probtable   observed vs predicted count frequencies

With --bootstrap R the Pearson chi-square statistic also gets a
parametric-bootstrap p-value from R refits under the fitted model.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagnose,
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	res, _, err := fitFromFile(cmd, args[0])
	if err != nil {
		return err
	}
	maxCount, _ := cmd.Flags().GetInt("max-count")

	diag := diagnostic.New(res)

	fmt.Println(diag.TestDispersion())
	fmt.Println(diag.TestZeros())

	chi2, err := diag.TestChiSquareProb(maxCount)
	if err != nil {
		return err
	}
	fmt.Println(chi2)

	freq, err := diag.ProbTable(maxCount)
	if err != nil {
		return err
	}
	fmt.Println(freq)

	reps, _ := cmd.Flags().GetInt("bootstrap")
	if reps <= 0 {
		return nil
	}

	workers, _ := cmd.Flags().GetInt("workers")
	seed, _ := cmd.Flags().GetUint64("seed")

	fmt.Printf("Bootstrapping the Pearson chi-square statistic (%d replications)...\n\n", reps)
	boot, err := diag.BootstrapPValue(
		func(r *poisson.Results) float64 { return r.PearsonChi2() },
		diagnostic.BootstrapOptions{Replications: reps, Workers: workers, Seed: seed})
	if err != nil {
		return err
	}
	fmt.Println(boot)
	return nil
}

func init() {
	addModelFlags(diagnoseCmd)
	diagnoseCmd.Flags().Int("max-count", 5, "largest count cell in the chi-square and frequency tables")
	diagnoseCmd.Flags().Int("bootstrap", 0, "parametric bootstrap replications (0 = skip)")
	diagnoseCmd.Flags().Int("workers", 0, "bootstrap worker goroutines (0 = GOMAXPROCS)")
	diagnoseCmd.Flags().Uint64("seed", 1, "bootstrap random seed")

	rootCmd.AddCommand(diagnoseCmd)
}
