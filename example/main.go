package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/livewatch"
	"github.com/jpalmerr/livewatch/example/mockplatform"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// mock platform: each channel is live for 3 minutes out of every 15
	platform := mockplatform.New(15*time.Minute, 3*time.Minute, logger,
		"music-en", "music-de", "games-en", "games-de", "talkshow")
	go func() {
		if err := http.ListenAndServe(":9999", platform.Handler()); err != nil {
			logger.Error("mock platform stopped", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	// grid API: 2 categories × 2 languages = 4 channels from one declaration
	channels, err := livewatch.NewChannelGrid("mock",
		livewatch.WithURLTemplate("http://localhost:9999/api/channels/{{.category}}-{{.lang}}"),
		livewatch.WithDimensions(map[string][]string{
			"category": {"music", "games"},
			"lang":     {"en", "de"},
		}),
		livewatch.WithGridDetector(livewatch.JSONFieldDetector("is_live")),
		livewatch.WithGridPlatform("mock"),
	)
	if err != nil {
		logger.Error("failed to create channel grid", "error", err)
		os.Exit(1)
	}

	// a channel page scraped for its badge, with its own base interval
	talkshow, _ := livewatch.NewChannel("talkshow", "http://localhost:9999/c/talkshow",
		livewatch.WithDetector(livewatch.SelectorDetector("span.live-badge")),
		livewatch.WithInterval(time.Minute),
		livewatch.WithPlatform("mock"),
	)
	channels = append(channels, talkshow)

	lw, err := livewatch.New(
		livewatch.WithChannels(channels...),
		livewatch.WithBaseInterval(30*time.Second),
		livewatch.WithReevaluationPeriod(15*time.Second),
		livewatch.WithPort(8080),
		livewatch.WithLogger(logger),
		livewatch.WithStatusCallback(func(r livewatch.StatusResult) {
			if r.WentLive {
				logger.Info("went live", "channel", r.ChannelID, "tier", r.Tier)
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create livewatch", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   LiveWatch Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Channels:                                           ║")
	fmt.Println("  ║   • 4 mock JSON API (2 categories × 2 langs via Grid) ║")
	fmt.Println("  ║   • 1 scraped page (talkshow, 1m interval)            ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := lw.Start(ctx); err != nil {
		logger.Error("livewatch error", "error", err)
		os.Exit(1)
	}
}
