package poller

import (
	"context"
	"time"
)

// ProbeResult is what a [Prober] observed about a channel.
type ProbeResult struct {
	// IsLive reports whether the channel is broadcasting.
	IsLive bool

	// ObservedAt is when the observation was made. The scheduler's clock is
	// used when zero.
	ObservedAt time.Time

	// Metadata carries optional probe-specific details (title, viewer count,
	// HTTP status) through to status consumers.
	Metadata map[string]string
}

// Prober checks whether a channel is live.
//
// Probe is called from worker goroutines and must be safe for concurrent use.
// Timeout policy is the prober's responsibility; the scheduler only cancels
// ctx on shutdown.
type Prober interface {
	Probe(ctx context.Context, channelID string) (ProbeResult, error)
}

// ProberFunc adapts an ordinary function to the [Prober] interface.
type ProberFunc func(ctx context.Context, channelID string) (ProbeResult, error)

// Probe calls f(ctx, channelID).
func (f ProberFunc) Probe(ctx context.Context, channelID string) (ProbeResult, error) {
	return f(ctx, channelID)
}
