package livewatch

import (
	"strings"
	"testing"
	"time"
)

func TestNewChannel_Valid(t *testing.T) {
	ch, err := NewChannel("alice", "https://example.tv/alice")
	if err != nil {
		t.Fatalf("NewChannel() error = %v", err)
	}

	if ch.ID() != "alice" {
		t.Errorf("ID() = %q, want alice", ch.ID())
	}
	if ch.URL() != "https://example.tv/alice" {
		t.Errorf("URL() = %q", ch.URL())
	}
	if ch.Timeout() != defaultChannelTimeout {
		t.Errorf("Timeout() = %v, want %v", ch.Timeout(), defaultChannelTimeout)
	}
	if ch.Platform() != "example.tv" {
		t.Errorf("Platform() = %q, want host example.tv", ch.Platform())
	}
	if ch.Interval() != 0 {
		t.Errorf("Interval() = %v, want 0", ch.Interval())
	}
	if ch.Detector() != nil {
		t.Error("Detector() should be nil by default")
	}
}

func TestNewChannel_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		url     string
		wantErr string
	}{
		{"empty id", "", "https://example.tv", "id cannot be empty"},
		{"blank id", "   ", "https://example.tv", "id cannot be empty"},
		{"slash in id", "a/b", "https://example.tv", "cannot contain '/'"},
		{"no scheme", "alice", "example.tv/alice", "absolute"},
		{"no host", "alice", "https://", "absolute"},
		{"bad url", "alice", "http://[::1", "invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChannel(tt.id, tt.url)
			if err == nil {
				t.Fatal("NewChannel() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewChannel_Options(t *testing.T) {
	ch, err := NewChannel("alice", "https://example.tv/alice",
		WithLabels("lang", "en", "category", "music"),
		WithHeaders("Authorization", "Bearer x"),
		WithTimeout(3*time.Second),
		WithDetector(ContainsDetector("live")),
		WithMethod("HEAD"),
		WithInterval(10*time.Minute),
		WithPlatform("example"),
	)
	if err != nil {
		t.Fatalf("NewChannel() error = %v", err)
	}

	if ch.Labels()["lang"] != "en" || ch.Labels()["category"] != "music" {
		t.Errorf("Labels() = %v", ch.Labels())
	}
	if ch.Headers()["Authorization"] != "Bearer x" {
		t.Errorf("Headers() = %v", ch.Headers())
	}
	if ch.Timeout() != 3*time.Second {
		t.Errorf("Timeout() = %v", ch.Timeout())
	}
	if ch.Detector() == nil {
		t.Error("Detector() = nil")
	}
	if ch.Method() != "HEAD" {
		t.Errorf("Method() = %q", ch.Method())
	}
	if ch.Interval() != 10*time.Minute {
		t.Errorf("Interval() = %v", ch.Interval())
	}
	if ch.Platform() != "example" {
		t.Errorf("Platform() = %q", ch.Platform())
	}
}

func TestChannelOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		opt  ChannelOption
	}{
		{"odd labels", WithLabels("a")},
		{"odd headers", WithHeaders("a", "b", "c")},
		{"zero timeout", WithTimeout(0)},
		{"bad method", WithMethod("DELETE")},
		{"interval too short", WithInterval(500 * time.Millisecond)},
		{"interval too long", WithInterval(25 * time.Hour)},
		{"empty platform", WithPlatform("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewChannel("alice", "https://example.tv", tt.opt); err == nil {
				t.Error("NewChannel() expected error")
			}
		})
	}
}

func TestWithInterval_Bounds(t *testing.T) {
	for _, d := range []time.Duration{time.Second, 24 * time.Hour} {
		if _, err := NewChannel("alice", "https://example.tv", WithInterval(d)); err != nil {
			t.Errorf("WithInterval(%v) error = %v", d, err)
		}
	}
}

func TestChannel_Immutable(t *testing.T) {
	ch, _ := NewChannel("alice", "https://example.tv", WithLabels("lang", "en"))

	labels := ch.Labels()
	labels["lang"] = "fr"
	headers := ch.Headers()
	headers["X"] = "y"

	if ch.Labels()["lang"] != "en" {
		t.Error("modifying Labels() result changed the channel")
	}
	if _, ok := ch.Headers()["X"]; ok {
		t.Error("modifying Headers() result changed the channel")
	}
}
