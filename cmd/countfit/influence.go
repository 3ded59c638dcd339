package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantfold/countfit/influence"
)

var influenceCmd = &cobra.Command{
	Use:   "influence [dataset]",
	Short: "Rank observations by leverage and Cook's distance",
	Long: `Influence fits the model and computes per-observation influence
measures on the GLM hat matrix: leverage, Pearson and studentized
residuals, Cook's distance, DFFITS, and one-step coefficient changes.

The summary lists the observations with the largest Cook's distance.
Rows above the flag threshold (default 4/n) are called out, and
--dfbetas prints their per-coefficient one-step changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfluence,
}

func runInfluence(cmd *cobra.Command, args []string) error {
	res, _, err := fitFromFile(cmd, args[0])
	if err != nil {
		return err
	}

	m, err := influence.Compute(res)
	if err != nil {
		return err
	}

	top, _ := cmd.Flags().GetInt("top")
	fmt.Println(m.SummaryTable(top))

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	flagged := m.Flagged(threshold)
	if threshold <= 0 {
		threshold = 4 / float64(m.NumObs())
	}

	if len(flagged) == 0 {
		fmt.Printf("No observations above the Cook's distance threshold %.4f.\n", threshold)
		return nil
	}
	fmt.Printf("Rows above Cook's distance %.4f: %v\n", threshold, flagged)

	if showDFBetas, _ := cmd.Flags().GetBool("dfbetas"); showDFBetas {
		fmt.Println(m.DFBetasTable(flagged))
	}
	return nil
}

func init() {
	addModelFlags(influenceCmd)
	influenceCmd.Flags().Int("top", 10, "number of rows in the influence summary")
	influenceCmd.Flags().Float64("threshold", 0, "Cook's distance flag threshold (0 = 4/n)")
	influenceCmd.Flags().Bool("dfbetas", false, "print per-coefficient one-step changes for flagged rows")

	rootCmd.AddCommand(influenceCmd)
}
