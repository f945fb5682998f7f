package livewatch

import (
	"errors"
	"fmt"
	"time"
)

// gridConfig holds configuration during channel grid construction.
type gridConfig struct {
	urlTemplate string
	dimensions  map[string][]string

	// shared is applied to every generated channel after its dimension
	// labels, so static labels override dimension values of the same key.
	shared []ChannelOption
}

// GridOption configures [NewChannelGrid].
type GridOption func(*gridConfig) error

// WithURLTemplate sets the URL template, using dimension keys as variables.
//
// Example:
//
//	WithURLTemplate("https://example.tv/api/{{.room}}?lang={{.lang}}")
func WithURLTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("URL template required")
		}
		cfg.urlTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the values to expand. Each key becomes a template
// variable and a label.
//
// Returns an error if the map is empty, a dimension has no values or a value
// is empty.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for _, k := range sortedKeys(dims) {
			if len(dims[k]) == 0 {
				return fmt.Errorf("dimension %q has no values", k)
			}
			for i, v := range dims[k] {
				if v == "" {
					return fmt.Errorf("dimension %q: empty value at index %d", k, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// shareOption validates opt once against a scratch channel and queues it for
// every generated channel.
func shareOption(opt ChannelOption) GridOption {
	return func(cfg *gridConfig) error {
		scratch := &channelConfig{labels: map[string]string{}, headers: map[string]string{}}
		if err := opt(scratch); err != nil {
			return err
		}
		cfg.shared = append(cfg.shared, opt)
		return nil
	}
}

// WithGridLabels adds static labels to every generated channel.
func WithGridLabels(keyValues ...string) GridOption {
	return shareOption(WithLabels(keyValues...))
}

// WithGridHeaders adds HTTP headers to every generated channel.
func WithGridHeaders(keyValues ...string) GridOption {
	return shareOption(WithHeaders(keyValues...))
}

// WithGridTimeout sets the probe timeout for every generated channel.
// Zero keeps the channel default.
func WithGridTimeout(d time.Duration) GridOption {
	if d < 0 {
		return func(*gridConfig) error { return errors.New("timeout cannot be negative") }
	}
	if d == 0 {
		return noGridOption
	}
	return shareOption(WithTimeout(d))
}

// WithGridDetector sets the [LiveDetector] for every generated channel.
func WithGridDetector(d LiveDetector) GridOption {
	return shareOption(WithDetector(d))
}

// WithGridMethod sets the HTTP method for every generated channel.
func WithGridMethod(method string) GridOption {
	return shareOption(WithMethod(method))
}

// WithGridInterval sets the base interval for every generated channel.
// Zero keeps the global base interval.
func WithGridInterval(d time.Duration) GridOption {
	if d == 0 {
		return noGridOption
	}
	return shareOption(WithInterval(d))
}

// WithGridPlatform sets the platform for every generated channel. An empty
// platform keeps the per-channel default, the URL host.
func WithGridPlatform(platform string) GridOption {
	if platform == "" {
		return noGridOption
	}
	return shareOption(WithPlatform(platform))
}

func noGridOption(*gridConfig) error { return nil }
