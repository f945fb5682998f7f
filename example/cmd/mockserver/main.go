// Standalone mock streaming platform for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/livewatch serve -c example/config.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/livewatch/example/mockplatform"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	period := flag.Duration("period", 15*time.Minute, "broadcast cycle length")
	window := flag.Duration("window", 3*time.Minute, "live window per cycle")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	platform := mockplatform.New(*period, *window, logger,
		"music-en", "music-de", "games-en", "games-de", "talkshow")

	fmt.Printf("Mock streaming platform starting on %s\n", *addr)
	fmt.Println(platform)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := http.ListenAndServe(*addr, platform.Handler()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
