package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfold/countfit/report"
	"github.com/quantfold/countfit/runlog"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded fit runs (list, show, export)",
	Long: `History reads the SQLite run log written by "countfit fit --record".
Use subcommands to list recorded runs, show one run's coefficients and
fit statistics, or export the whole log as YAML.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	t := report.NewTable("id", "created", "obs", "params", "loglike", "note")
	for _, e := range entries {
		t.AddRow(e.ID,
			e.CreatedAt.Format("2006-01-02 15:04"),
			report.Int(e.NObs),
			report.Int(e.NParams),
			report.Float(e.LogLike),
			e.Note)
	}
	fmt.Println(t.String())
	fmt.Printf("%d runs\n", len(entries))
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one recorded run's coefficients and fit statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	pairs := [][2]string{
		{"ID", e.ID},
		{"Created", e.CreatedAt.Format(time.RFC3339)},
		{"Dataset hash", e.DatasetHash},
		{"Observations", report.Int(e.NObs)},
		{"Parameters", report.Int(e.NParams)},
		{"Log-likelihood", report.Float(e.LogLike)},
		{"AIC", report.Float(e.AIC)},
		{"BIC", report.Float(e.BIC)},
		{"Converged", fmt.Sprintf("%t", e.Converged)},
	}
	if e.Note != "" {
		pairs = append(pairs, [2]string{"Note", e.Note})
	}
	fmt.Print(report.KeyValues(pairs))

	names := make([]string, 0, len(e.Params))
	for name := range e.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	t := report.NewTable("term", "coef")
	for _, name := range names {
		t.AddRow(name, report.Float(e.Params[name]))
	}
	fmt.Println()
	fmt.Println(t.String())
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run log as YAML",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return store.ExportYAML(context.Background(), os.Stdout)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := store.ExportYAML(context.Background(), f); err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", out)
	return nil
}

// --- shared helpers ---

func openHistory(cmd *cobra.Command) (*runlog.Store, error) {
	return runlog.Open(stringFlagOrConfig(cmd, "db"))
}

func init() {
	historyCmd.PersistentFlags().String("db", "", "history database path (default from config: countfit-runs.db)")

	historyListCmd.Flags().Int("limit", 0, "maximum runs to list (0 = all)")
	historyExportCmd.Flags().String("out", "", "write YAML to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
