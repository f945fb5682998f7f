package livewatch

import (
	"time"

	lwerrors "github.com/jpalmerr/livewatch/internal/errors"
	"github.com/jpalmerr/livewatch/internal/predict"
)

// LiveState is what a [LiveDetector] concluded from a channel's response.
type LiveState string

const (
	// Live indicates the channel is broadcasting.
	Live LiveState = "live"

	// Offline indicates the channel is not broadcasting.
	Offline LiveState = "offline"

	// LiveUnknown indicates the response could not be interpreted. The probe
	// is treated as failed and the channel is retried at its current tier.
	LiveUnknown LiveState = "unknown"
)

// String returns the string representation of the state.
func (s LiveState) String() string {
	return string(s)
}

// LiveDetector decides from a channel's HTTP response whether it is live.
//
// Detectors are pure functions of their inputs and are called within a panic
// recovery boundary: a panicking detector fails the probe with an error that
// carries a correlation ID, and the stack trace is logged.
//
// Built-in detectors: [HTTPStatusDetector], [JSONFieldDetector],
// [RegexDetector], [ContainsDetector], [SelectorDetector], composed with
// [FirstMatch].
type LiveDetector func(body []byte, statusCode int) LiveState

// Tier is a channel's polling tier.
type Tier = predict.Tier

// Polling tiers.
const (
	TierFast   = predict.Fast
	TierMedium = predict.Medium
	TierSlow   = predict.Slow
)

// Error types returned by [LiveWatch] and passed to probe error handlers.
type (
	ProbeError             = lwerrors.ProbeError
	InvalidChannelError    = lwerrors.InvalidChannelError
	HistoryCorruptionError = lwerrors.HistoryCorruptionError
)

// Sentinel errors for use with errors.Is.
var (
	ErrProbeFailed      = lwerrors.ErrProbeFailed
	ErrChannelNotFound  = lwerrors.ErrChannelNotFound
	ErrHistoryCorrupted = lwerrors.ErrHistoryCorrupted
)

// ChannelStatus is a point-in-time view of one monitored channel.
type ChannelStatus struct {
	ChannelID string
	URL       string
	Platform  string
	Labels    map[string]string

	// Tier is the polling tier the channel is queued in.
	Tier Tier

	// State is the dispatch state: "queued", "in_flight", "cooling" or "halted".
	State string

	// IsLive is the outcome of the last successful probe.
	IsLive bool

	NextDueAt    time.Time
	LastProbedAt time.Time
	BaseInterval time.Duration

	// Consistency is the fraction of the channel's history capacity in use on
	// the weekdays it has broadcast.
	Consistency float64

	// Likelihood is the estimated chance the channel is live now, in [0, 1].
	Likelihood float64

	// ActivityScore is a moving average of live observations.
	ActivityScore float64

	// LiveRatio is the share of probes that found the channel live.
	LiveRatio float64

	// Failures counts consecutive probe errors.
	Failures  int
	LastError error

	// Schedule holds the recorded broadcast hours per weekday.
	Schedule map[time.Weekday][]int
}

// StatusResult is passed to status callbacks after every completed probe.
type StatusResult struct {
	ChannelStatus

	// WentLive is true when this probe saw the channel go from offline to live.
	WentLive bool

	// Latency is the time taken by the probe.
	Latency time.Duration

	// CheckedAt is when the probe completed.
	CheckedAt time.Time

	// Metadata is passed through from the probe, e.g. the HTTP status code.
	Metadata map[string]string
}
