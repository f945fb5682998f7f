package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestProbeError_UnwrapsToSentinelAndCause(t *testing.T) {
	cause := New("connection reset")
	err := fmt.Errorf("worker: %w", NewProbeError("alice", cause))

	if !Is(err, ErrProbeFailed) {
		t.Error("errors.Is(err, ErrProbeFailed) = false, want true")
	}
	if !Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	var perr *ProbeError
	if !As(err, &perr) {
		t.Fatal("errors.As(err, *ProbeError) = false, want true")
	}
	if perr.ChannelID != "alice" {
		t.Errorf("ChannelID = %q, want %q", perr.ChannelID, "alice")
	}
}

func TestProbeError_MessageIncludesCorrelationID(t *testing.T) {
	err := &ProbeError{ChannelID: "bob", CorrelationID: "abc-123", Err: New("panic")}
	msg := err.Error()
	if !strings.Contains(msg, "correlation_id: abc-123") {
		t.Errorf("Error() = %q, want correlation id", msg)
	}
}

func TestInvalidChannelError(t *testing.T) {
	err := NewInvalidChannelError("unregister", "ghost")

	if !Is(err, ErrChannelNotFound) {
		t.Error("errors.Is(err, ErrChannelNotFound) = false, want true")
	}
	if got := err.Error(); got != `unregister: channel "ghost" not registered` {
		t.Errorf("Error() = %q", got)
	}
}

func TestHistoryCorruptionError(t *testing.T) {
	err := &HistoryCorruptionError{ChannelID: "c", Weekday: 1, Size: 6, Limit: 5}
	if !IsFatal(err) {
		t.Error("IsFatal() = false, want true")
	}
	if IsRetryable(err) {
		t.Error("IsRetryable() = true, want false")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"probe error", NewProbeError("x", nil), true},
		{"wrapped probe error", fmt.Errorf("x: %w", NewProbeError("x", nil)), true},
		{"invalid channel", NewInvalidChannelError("status", "x"), false},
		{"plain", New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
