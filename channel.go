package livewatch

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const defaultChannelTimeout = 10 * time.Second

// Channel is a stream page or API endpoint to watch for broadcasts.
//
// Channel is immutable after creation via [NewChannel]. Getters return
// copies of mutable data (maps).
//
// Channels are configured with [ChannelOption] functions such as
// [WithLabels], [WithHeaders], [WithTimeout], [WithDetector], [WithMethod],
// [WithInterval] and [WithPlatform].
type Channel struct {
	id       string
	url      string
	labels   map[string]string
	headers  map[string]string
	timeout  time.Duration
	detector LiveDetector
	method   string
	interval time.Duration
	platform string
}

// ID returns the channel's stable identifier.
func (c Channel) ID() string {
	return c.id
}

// URL returns the URL probed for the channel.
func (c Channel) URL() string {
	return c.url
}

// Labels returns a copy of the channel's labels.
func (c Channel) Labels() map[string]string {
	return copyMap(c.labels)
}

// Headers returns a copy of the custom HTTP headers sent with each probe.
func (c Channel) Headers() map[string]string {
	return copyMap(c.headers)
}

// Timeout returns the probe request timeout. Defaults to 10 seconds.
func (c Channel) Timeout() time.Duration {
	return c.timeout
}

// Detector returns the channel's [LiveDetector], or nil when
// [DefaultDetector] applies.
func (c Channel) Detector() LiveDetector {
	return c.detector
}

// Method returns the HTTP method used for probes. Empty means GET.
func (c Channel) Method() string {
	return c.method
}

// Interval returns the channel's base interval, or 0 when the global base
// interval set with [WithBaseInterval] applies. Tier cadences derive from it:
// fast polls every minute, medium at half and slow at twice the base.
func (c Channel) Interval() time.Duration {
	return c.interval
}

// Platform returns the platform the channel belongs to. Probes against one
// platform share a concurrency limit. Defaults to the URL's host.
func (c Channel) Platform() string {
	return c.platform
}

// NewChannel creates a [Channel] with the given ID, URL and options.
//
// The id must be non-empty and must not contain '/' since it appears in API
// paths. rawURL must be an absolute URL.
//
// Example:
//
//	ch, err := livewatch.NewChannel("alice", "https://example.tv/alice",
//	    livewatch.WithDetector(livewatch.SelectorDetector(".live-badge")),
//	    livewatch.WithInterval(10 * time.Minute),
//	)
func NewChannel(id, rawURL string, opts ...ChannelOption) (Channel, error) {
	if strings.TrimSpace(id) == "" {
		return Channel{}, errors.New("channel id cannot be empty")
	}
	if strings.Contains(id, "/") {
		return Channel{}, errors.New("channel id cannot contain '/'")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Channel{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return Channel{}, errors.New("URL must be absolute (http:// or https://)")
	}

	cfg := &channelConfig{
		labels:  make(map[string]string),
		headers: make(map[string]string),
		timeout: defaultChannelTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Channel{}, err
		}
	}

	platform := cfg.platform
	if platform == "" {
		platform = parsedURL.Hostname()
	}

	return Channel{
		id:       id,
		url:      rawURL,
		labels:   cfg.labels,
		headers:  cfg.headers,
		timeout:  cfg.timeout,
		detector: cfg.detector,
		method:   cfg.method,
		interval: cfg.interval,
		platform: platform,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
