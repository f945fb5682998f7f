// Package main is the entry point for the livewatch CLI.
//
// LiveWatch can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	livewatch serve -c config.yaml     # Start watching channels
//	livewatch validate -c config.yaml  # Validate configuration
//	livewatch status                   # Show channels of a running instance
//	livewatch version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "livewatch",
	Short: "A predictive live-stream poller",
	Long: `LiveWatch watches live-stream channels and learns when they broadcast.

Channels whose usual start hour is near are polled every minute, channels
that never broadcast on the current weekday are polled rarely, and the rest
sit in between. Status is served as a web dashboard, a REST API and a
Server-Sent Events stream.

Quick start:
  1. Create a config file (livewatch.yaml)
  2. Run: livewatch serve -c livewatch.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  base_interval: 5m
  state: {driver: sqlite, dsn: ./livewatch.db}
  channels:
    - id: alice
      url: https://example.tv/api/alice
      detector: json:is_live`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this livewatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "livewatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
