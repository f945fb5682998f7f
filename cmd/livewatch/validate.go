package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/livewatch/config"
	"github.com/jpalmerr/livewatch/internal/predict"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a LiveWatch configuration file without starting the server.

This command parses the YAML, expands environment variables, validates all
fields and builds every channel, including detectors and grid URLs. It also
prints the probe load the channels would generate while all of them sit on
the medium tier, which is where new channels start.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  livewatch validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	channels, err := config.BuildChannels(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	direct := len(cfg.Channels)
	fromGrids := len(channels) - direct

	// every channel starts in the medium tier
	var perHour float64
	for _, ch := range channels {
		base := ch.Interval()
		if base == 0 {
			base = cfg.BaseInterval.Duration()
		}
		perHour += float64(time.Hour) / float64(predict.Cadence(predict.Medium, base))
	}

	state := "memory only"
	if cfg.State.Driver != "" {
		state = cfg.State.Driver
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Base interval: %s\n", cfg.BaseInterval.Duration())
	fmt.Fprintf(out, "  State store:   %s\n", state)
	fmt.Fprintf(out, "  Channels:      %s direct + %s from grids = %s total\n",
		humanize.Comma(int64(direct)), humanize.Comma(int64(fromGrids)), humanize.Comma(int64(len(channels))))
	fmt.Fprintf(out, "  Initial load:  ~%s probes/hour\n", humanize.Comma(int64(perHour+0.5)))

	return nil
}
