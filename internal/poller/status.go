package poller

import (
	"fmt"
	"time"

	"github.com/jpalmerr/livewatch/internal/history"
	"github.com/jpalmerr/livewatch/internal/predict"
)

// State is where a channel is in the dispatch cycle.
type State int

const (
	// StateQueued means the channel is waiting in its tier queue.
	StateQueued State = iota
	// StateInFlight means a worker has taken the channel off its queue.
	StateInFlight
	// StateCooling means the probe has been issued and not yet returned.
	StateCooling
	// StateHalted means the channel's history is corrupt. It is no longer
	// probed until it is unregistered.
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateInFlight:
		return "in_flight"
	case StateCooling:
		return "cooling"
	case StateHalted:
		return "halted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time copy of one channel's scheduling state.
type Status struct {
	ChannelID string
	Platform  string

	Tier  predict.Tier
	State State

	// IsLive is the last probe outcome. False until the first successful probe.
	IsLive bool

	NextDueAt    time.Time
	LastProbedAt time.Time
	BaseInterval time.Duration

	Consistency float64
	Likelihood  float64

	// Failures counts consecutive probe errors. Reset by a successful probe.
	Failures  int
	LastError error

	Activity history.Activity
	Schedule history.Schedule
}

// Result is emitted on [Scheduler.Results] after every completed probe.
type Result struct {
	Status

	// WentLive is true when this probe observed an offline to live transition.
	WentLive bool

	// Latency is how long the probe call took.
	Latency time.Duration

	// Metadata is passed through from [ProbeResult].
	Metadata map[string]string
}
