package store

import "time"

// ChannelStatus is the stored view of one monitored channel.
//
// It is the JSON shape served by the REST API and pushed over SSE, and is
// decoupled from the scheduler's internal types so both can evolve
// independently.
type ChannelStatus struct {
	// ID is the channel's stable identifier.
	ID string `json:"id"`

	// URL is the page or API endpoint probed for the channel.
	URL string `json:"url"`

	// Platform groups channels for concurrency limiting.
	Platform string `json:"platform,omitempty"`

	// Labels contains key-value metadata for grouping and filtering.
	Labels map[string]string `json:"labels"`

	// Tier is the polling tier: "fast", "medium" or "slow".
	Tier string `json:"tier"`

	// State is the dispatch state, or "unregistered" on removal events.
	State string `json:"state"`

	Live        bool    `json:"live"`
	Consistency float64 `json:"consistency"`
	Likelihood  float64 `json:"likelihood"`
	Activity    float64 `json:"activity"`
	LiveRatio   float64 `json:"live_ratio"`

	NextDueAt    time.Time `json:"next_due_at"`
	LastProbedAt time.Time `json:"last_probed_at"`
	LastLiveAt   time.Time `json:"last_live_at"`

	// ResponseTimeMs is the last probe's latency in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// Failures counts consecutive probe errors.
	Failures int `json:"failures"`

	// Schedule maps lower-case weekday names to recorded broadcast hours.
	Schedule map[string][]int `json:"schedule"`

	// Metadata is passed through from the last probe.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Error contains the last probe error, if the last probe failed.
	Error *string `json:"error"`
}

// StateUnregistered is published to subscribers when a channel is removed.
const StateUnregistered = "unregistered"

// Store defines the interface for storing and subscribing to channel status.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a status and notifies all subscribers.
	// Statuses are keyed by ID, so later updates replace earlier ones.
	Update(status ChannelStatus)

	// Get returns the stored status for id.
	Get(id string) (ChannelStatus, bool)

	// GetAll returns all stored statuses ordered by ID.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []ChannelStatus

	// Remove deletes the status for id and notifies subscribers with a
	// status whose State is [StateUnregistered]. Unknown IDs are ignored.
	Remove(id string)

	// Subscribe returns a channel that receives status updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan ChannelStatus

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan ChannelStatus)
}
