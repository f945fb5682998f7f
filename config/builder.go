package config

import (
	"sort"

	"github.com/jpalmerr/livewatch"
)

// BuildChannels converts parsed configuration into SDK Channel objects.
//
// It processes both direct channels and grids, returning a combined slice.
// Grid dimensions are expanded via [livewatch.NewChannelGrid].
func BuildChannels(cfg *Config) ([]livewatch.Channel, error) {
	var channels []livewatch.Channel

	for _, cc := range cfg.Channels {
		ch, err := buildChannel(cc)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	for _, gc := range cfg.Grids {
		gridChannels, err := buildGridChannels(gc)
		if err != nil {
			return nil, err
		}
		channels = append(channels, gridChannels...)
	}

	return channels, nil
}

// Options converts the global settings into [livewatch.Option] values.
// Channels are not included; combine with [BuildChannels].
func Options(cfg *Config) []livewatch.Option {
	opts := []livewatch.Option{
		livewatch.WithPort(cfg.Port),
		livewatch.WithBaseInterval(cfg.BaseInterval.Duration()),
	}

	if cfg.Title != "" {
		opts = append(opts, livewatch.WithTitle(cfg.Title))
	}
	if cfg.ReevaluateEvery > 0 {
		opts = append(opts, livewatch.WithReevaluationPeriod(cfg.ReevaluateEvery.Duration()))
	}
	if cfg.ConfidenceFloor != nil {
		opts = append(opts, livewatch.WithConfidenceFloor(*cfg.ConfidenceFloor))
	}
	if cfg.PlatformConcurrency > 0 {
		opts = append(opts, livewatch.WithPlatformConcurrency(cfg.PlatformConcurrency))
	}
	if cfg.StartupSpread > 0 {
		opts = append(opts, livewatch.WithStartupSpread(cfg.StartupSpread.Duration()))
	}
	if p := cfg.Pools; p != (PoolConfig{}) {
		opts = append(opts, livewatch.WithPoolSizes(orDefault(p.Fast, 1), orDefault(p.Medium, 2), orDefault(p.Slow, 1)))
	}
	if cfg.State.Driver != "" {
		opts = append(opts, livewatch.WithStateStore(cfg.State.Driver, cfg.State.DSN))
		if cfg.State.FlushInterval > 0 {
			opts = append(opts, livewatch.WithStateFlushInterval(cfg.State.FlushInterval.Duration()))
		}
	}
	return opts
}

func orDefault(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

// buildChannel converts a single ChannelConfig to an SDK Channel.
func buildChannel(cc ChannelConfig) (livewatch.Channel, error) {
	var opts []livewatch.ChannelOption

	if cc.Method != "" {
		opts = append(opts, livewatch.WithMethod(cc.Method))
	}
	if cc.Timeout != 0 {
		opts = append(opts, livewatch.WithTimeout(cc.Timeout.Duration()))
	}
	if len(cc.Headers) > 0 {
		opts = append(opts, livewatch.WithHeaders(mapToKeyValuePairs(cc.Headers)...))
	}
	if len(cc.Labels) > 0 {
		opts = append(opts, livewatch.WithLabels(mapToKeyValuePairs(cc.Labels)...))
	}
	if cc.Platform != "" {
		opts = append(opts, livewatch.WithPlatform(cc.Platform))
	}
	if cc.BaseInterval != 0 {
		opts = append(opts, livewatch.WithInterval(cc.BaseInterval.Duration()))
	}

	detector, err := buildDetector(cc.Detector)
	if err != nil {
		return livewatch.Channel{}, err
	}
	if detector != nil {
		opts = append(opts, livewatch.WithDetector(detector))
	}

	return livewatch.NewChannel(cc.ID, cc.URL, opts...)
}

// buildGridChannels expands a GridConfig into channels.
func buildGridChannels(gc GridConfig) ([]livewatch.Channel, error) {
	opts := []livewatch.GridOption{
		livewatch.WithURLTemplate(gc.URLTemplate),
		livewatch.WithDimensions(gc.Dimensions),
		livewatch.WithGridTimeout(gc.Timeout.Duration()),
		livewatch.WithGridInterval(gc.BaseInterval.Duration()),
		livewatch.WithGridPlatform(gc.Platform),
	}

	if gc.Method != "" {
		opts = append(opts, livewatch.WithGridMethod(gc.Method))
	}
	if len(gc.Headers) > 0 {
		opts = append(opts, livewatch.WithGridHeaders(mapToKeyValuePairs(gc.Headers)...))
	}
	if len(gc.Labels) > 0 {
		opts = append(opts, livewatch.WithGridLabels(mapToKeyValuePairs(gc.Labels)...))
	}

	detector, err := buildDetector(gc.Detector)
	if err != nil {
		return nil, err
	}
	if detector != nil {
		opts = append(opts, livewatch.WithGridDetector(detector))
	}

	return livewatch.NewChannelGrid(gc.Name, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildDetector converts DetectorConfig to a LiveDetector.
// Returns nil for default/empty detectors (SDK uses DefaultDetector).
func buildDetector(dc DetectorConfig) (livewatch.LiveDetector, error) {
	switch dc.Type {
	case "http":
		return livewatch.HTTPStatusDetector, nil
	case "json":
		return livewatch.JSONFieldDetector(dc.Path), nil
	case "contains":
		return livewatch.ContainsDetector(dc.Text), nil
	case "selector":
		return livewatch.SelectorDetector(dc.Selector), nil
	case "regex":
		match := dc.Match
		if match == "" {
			match = string(livewatch.Live)
		}
		return livewatch.RegexDetector(dc.Pattern, match)
	default:
		return nil, nil
	}
}
