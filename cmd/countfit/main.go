// Package main is the entry point for the countfit CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the countfit CLI.
var rootCmd = &cobra.Command{
	Use:   "countfit",
	Short: "Poisson count-model estimation and post-estimation toolkit",
	Long: `countfit fits Poisson regressions by maximum likelihood and walks the
post-estimation surface: coefficient tests, delta-method predictions,
fitted-distribution queries, specification diagnostics, and influence
measures.

Each stage is a subcommand: simulate, fit, predict, diagnose, influence,
and history. The walkthrough subcommand chains them into one annotated
analysis of a single dataset.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./countfit.yaml or ~/.config/countfit/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("countfit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "countfit"))
		}
	}

	viper.SetDefault("method", "newton")
	viper.SetDefault("cov", "nonrobust")
	viper.SetDefault("db", "countfit-runs.db")

	viper.SetEnvPrefix("COUNTFIT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
