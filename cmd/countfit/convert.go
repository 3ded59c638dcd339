package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [in] [out]",
	Short: "Convert a dataset between CSV and the binary format",
	Long: `Convert reads a dataset file and rewrites it in the format implied by
the output extension (.csv for text, anything else for binary),
optionally recompressing the payload. Useful for shrinking large
simulated datasets or inspecting binary files as text.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	compressName, _ := cmd.Flags().GetString("compress")
	writeOpts, err := writeOptions(cmd.Flags().Changed("compress"), compressName)
	if err != nil {
		return err
	}

	ds, err := readDataset(args[0])
	if err != nil {
		return err
	}
	if err := writeDataset(ds, args[1], writeOpts...); err != nil {
		return err
	}
	fmt.Printf("Converted %s -> %s (%d rows, %d columns)\n",
		args[0], args[1], ds.NumRows(), ds.NumCols())
	return nil
}

func init() {
	convertCmd.Flags().String("compress", "", "output compression: none, zstd, s2, or lz4 (default: infer from extension)")

	rootCmd.AddCommand(convertCmd)
}
