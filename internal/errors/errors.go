// Package errors defines the error taxonomy shared by the livewatch packages.
//
// Three conditions are distinguished:
//
//   - [ProbeError]: a transient failure reported by (or raised inside) the
//     external probe. Recovered locally by the scheduler.
//   - [InvalidChannelError]: an operation referenced a channel that is not
//     registered. Surfaced to the caller.
//   - [HistoryCorruptionError]: an internal invariant of a channel's broadcast
//     history was violated. Fatal for that channel record.
//
// Every typed error unwraps to a sentinel so callers can use either form:
//
//	if errors.Is(err, errors.ErrChannelNotFound) { ... }
//
//	var perr *errors.ProbeError
//	if errors.As(err, &perr) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions so callers only need this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors.
var (
	// ErrProbeFailed indicates the live-status probe did not produce a result.
	ErrProbeFailed = New("probe failed")
	// ErrChannelNotFound indicates the channel is not registered.
	ErrChannelNotFound = New("channel not registered")
	// ErrHistoryCorrupted indicates a broadcast history invariant was violated.
	ErrHistoryCorrupted = New("broadcast history corrupted")
)

// ProbeError wraps a failure from the external probe for a single channel.
type ProbeError struct {
	ChannelID string
	// CorrelationID is set when the failure was a recovered panic, so the
	// logged stack trace can be matched to the status shown to users.
	CorrelationID string
	Err           error
}

// NewProbeError creates a [ProbeError] for channelID wrapping err.
func NewProbeError(channelID string, err error) *ProbeError {
	return &ProbeError{ChannelID: channelID, Err: err}
}

func (e *ProbeError) Error() string {
	msg := fmt.Sprintf("probe %s", e.ChannelID)
	if e.CorrelationID != "" {
		msg += fmt.Sprintf(" (correlation_id: %s)", e.CorrelationID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns both the cause and [ErrProbeFailed].
func (e *ProbeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProbeFailed}
	}
	return []error{ErrProbeFailed, e.Err}
}

// InvalidChannelError reports an operation on an unregistered channel.
type InvalidChannelError struct {
	ChannelID string
	Op        string
}

// NewInvalidChannelError creates an [InvalidChannelError].
func NewInvalidChannelError(op, channelID string) *InvalidChannelError {
	return &InvalidChannelError{ChannelID: channelID, Op: op}
}

func (e *InvalidChannelError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("channel %q not registered", e.ChannelID)
	}
	return fmt.Sprintf("%s: channel %q not registered", e.Op, e.ChannelID)
}

// Unwrap returns [ErrChannelNotFound].
func (e *InvalidChannelError) Unwrap() error {
	return ErrChannelNotFound
}

// HistoryCorruptionError reports a weekday slot set outside its capacity.
// It indicates a bug and must never be recovered by truncating data.
type HistoryCorruptionError struct {
	ChannelID string
	Weekday   int
	Size      int
	Limit     int
}

func (e *HistoryCorruptionError) Error() string {
	who := e.ChannelID
	if who == "" {
		who = "<unbound>"
	}
	return fmt.Sprintf("history %s: weekday %d holds %d hours (limit %d)", who, e.Weekday, e.Size, e.Limit)
}

// Unwrap returns [ErrHistoryCorrupted].
func (e *HistoryCorruptionError) Unwrap() error {
	return ErrHistoryCorrupted
}

// IsRetryable reports whether err is a transient failure that the scheduler
// recovers from by polling again at the channel's normal cadence.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrProbeFailed)
}

// IsFatal reports whether err must halt processing of the channel it names.
func IsFatal(err error) bool {
	return err != nil && Is(err, ErrHistoryCorrupted)
}
