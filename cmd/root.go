package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "repute",
	Short: "Reputation update engine for public officials",
	Long: `repute keeps running reputation scores for public officials.

It turns debate evaluations into weighted score contributions, takes
policy announcements in on partial credit, and settles the withheld
remainder once each promise comes due for verification.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (overrides REPUTE_CONFIG)")
}
