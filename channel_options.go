package livewatch

import (
	"errors"
	"net/http"
	"time"
)

const (
	minChannelInterval = time.Second
	maxChannelInterval = 24 * time.Hour
)

// channelConfig holds mutable state during channel construction.
type channelConfig struct {
	labels   map[string]string
	headers  map[string]string
	timeout  time.Duration
	detector LiveDetector
	method   string
	interval time.Duration
	platform string
}

// ChannelOption configures a [Channel] during construction.
// Options return an error if validation fails.
type ChannelOption func(*channelConfig) error

// WithLabels adds metadata labels to the channel.
//
// Accepts variadic key-value pairs. Returns an error if an odd number of
// arguments is provided.
//
// Example:
//
//	livewatch.WithLabels("lang", "en", "category", "music")
func WithLabels(keyValues ...string) ChannelOption {
	return func(cfg *channelConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithHeaders adds HTTP headers sent with every probe of the channel, for
// example an API token or a cookie.
//
// Accepts variadic key-value pairs. Returns an error if an odd number of
// arguments is provided.
func WithHeaders(keyValues ...string) ChannelOption {
	return func(cfg *channelConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the probe request timeout. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) ChannelOption {
	return func(cfg *channelConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithDetector sets the [LiveDetector] for the channel. A nil detector
// selects [DefaultDetector].
func WithDetector(d LiveDetector) ChannelOption {
	return func(cfg *channelConfig) error {
		cfg.detector = d
		return nil
	}
}

// WithMethod sets the HTTP method for probes: GET (default), HEAD or POST.
func WithMethod(method string) ChannelOption {
	return func(cfg *channelConfig) error {
		switch method {
		case http.MethodGet, http.MethodHead, http.MethodPost:
			cfg.method = method
			return nil
		default:
			return errors.New("method must be GET, HEAD, or POST")
		}
	}
}

// WithInterval sets the channel's base interval, overriding the global one.
//
// The interval must be between 1 second and 24 hours.
func WithInterval(d time.Duration) ChannelOption {
	return func(cfg *channelConfig) error {
		if d < minChannelInterval {
			return errors.New("interval must be at least 1 second")
		}
		if d > maxChannelInterval {
			return errors.New("interval must not exceed 24 hours")
		}
		cfg.interval = d
		return nil
	}
}

// WithPlatform names the platform the channel is hosted on. Channels sharing
// a platform share its probe concurrency limit.
func WithPlatform(platform string) ChannelOption {
	return func(cfg *channelConfig) error {
		if platform == "" {
			return errors.New("platform cannot be empty")
		}
		cfg.platform = platform
		return nil
	}
}
