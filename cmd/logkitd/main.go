// Package main implements logkitd, a demo server for the logkit request logger.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the YAML config file; empty uses ~/.config/logkit/config.yaml.
	configPath string

	// Set by -ldflags at build time.
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "logkitd",
	Short: "Demo server for structured request logging",
	Long: `logkitd serves a small HTTP API behind the logkit request logging
middleware. Every request produces one JSON record with redacted headers and
bodies, correlated with its trace when telemetry is enabled.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/logkit/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "logkitd %s (commit %s, built %s)\n", version, gitCommit, buildDate)
	},
}
