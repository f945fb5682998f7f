package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// channelView is the subset of the API's channel JSON shown by status.
type channelView struct {
	ID         string    `json:"id"`
	Platform   string    `json:"platform"`
	Tier       string    `json:"tier"`
	State      string    `json:"state"`
	Live       bool      `json:"live"`
	Likelihood float64   `json:"likelihood"`
	NextDueAt  time.Time `json:"next_due_at"`
	LastLiveAt time.Time `json:"last_live_at"`
	Failures   int       `json:"failures"`
}

// statusCmd prints the channels of a running instance.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show channel status from a running server",
	Long: `Query a running LiveWatch server and print one line per channel.

Example:
  livewatch status
  livewatch status --addr http://watch.internal:8080 --live`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().String("addr", "http://localhost:8080", "base URL of the LiveWatch server")
	statusCmd.Flags().Bool("live", false, "only show channels that are live")
	statusCmd.Flags().Duration("timeout", 5*time.Second, "request timeout")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	liveOnly, _ := cmd.Flags().GetBool("live")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	channels, err := fetchChannels(cmd.Context(), strings.TrimRight(addr, "/"), timeout)
	if err != nil {
		return err
	}

	if liveOnly {
		filtered := channels[:0]
		for _, ch := range channels {
			if ch.Live {
				filtered = append(filtered, ch)
			}
		}
		channels = filtered
	}

	return printChannels(cmd.OutOrStdout(), channels, time.Now())
}

func fetchChannels(ctx context.Context, addr string, timeout time.Duration) ([]channelView, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/api/channels", nil)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response from %s: %s", addr, resp.Status)
	}

	var channels []channelView
	if err := json.NewDecoder(resp.Body).Decode(&channels); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return channels, nil
}

func printChannels(w io.Writer, channels []channelView, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tPLATFORM\tTIER\tLIVE\tLIKELIHOOD\tNEXT PROBE\tLAST LIVE\tFAILURES")

	live := 0
	for _, ch := range channels {
		liveMark := "no"
		if ch.Live {
			liveMark = "yes"
			live++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\t%s\t%s\t%d\n",
			ch.ID,
			ch.Platform,
			tierLabel(ch),
			liveMark,
			humanize.FtoaWithDigits(ch.Likelihood*100, 1),
			relative(ch.NextDueAt, now),
			relative(ch.LastLiveAt, now),
			ch.Failures,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s channels, %s live\n",
		humanize.Comma(int64(len(channels))), humanize.Comma(int64(live)))
	return err
}

func tierLabel(ch channelView) string {
	if ch.State == "halted" {
		return ch.Tier + " (halted)"
	}
	return ch.Tier
}

func relative(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
