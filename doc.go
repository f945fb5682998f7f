// Package livewatch watches live-stream channels and decides when to check
// each one, spending probes where a broadcast is likely.
//
// Every channel keeps a weekly broadcast history: up to five start hours per
// weekday, learned from probes that see the channel go live. From that
// history livewatch estimates how likely the channel is to be live right now
// and places it in one of three polling tiers:
//
//   - fast: a known broadcast hour is current or less than an hour away,
//     polled every minute
//   - medium: a broadcast is expected later today, or there is not enough
//     history yet, polled at half the base interval
//   - slow: the channel reliably does not broadcast on this weekday, polled
//     at twice the base interval
//
// Promotion is immediate; demotion from fast waits two re-evaluation cycles
// so a late start is not missed.
//
// # Quick Start
//
//	ch, _ := livewatch.NewChannel("alice", "https://example.tv/api/alice",
//	    livewatch.WithDetector(livewatch.JSONFieldDetector("stream.live")),
//	)
//	lw, _ := livewatch.New(livewatch.WithChannel(ch))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	lw.Start(ctx) // blocks until context is cancelled
//
// # Live Detectors
//
// A [LiveDetector] turns a channel's HTTP response into [Live], [Offline] or
// [LiveUnknown]:
//
//   - [HTTPStatusDetector]: 2xx is live, 404/410 offline
//   - [JSONFieldDetector]: reads a JSON field using dot notation
//   - [RegexDetector]: compares a regex capture group with a live marker
//   - [ContainsDetector]: live when the body contains a text
//   - [SelectorDetector]: live when a CSS selector matches the HTML page
//   - [FirstMatch]: tries detectors in order
//
// [LiveUnknown] fails the probe; the channel is retried at its current tier
// and handlers registered with [WithProbeErrorHandler] are told.
//
// # Architecture
//
//   - internal/history: weekly broadcast history and consistency
//   - internal/predict: likelihood estimation, tiers and cadences
//   - internal/poller: tier queues, worker pools and re-evaluation
//   - internal/probe: pooled HTTP client for the built-in probe
//   - internal/persist: SQLite/Postgres state store
//   - internal/store, internal/server: status store, REST API and SSE
//   - dashboard: embedded web UI
package livewatch
