// Package config provides YAML configuration parsing for LiveWatch.
//
// This package enables running LiveWatch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	port: 8080
//	base_interval: 5m
//	state:
//	  driver: sqlite
//	  dsn: ./livewatch.db
//
//	channels:
//	  - id: alice
//	    url: https://example.tv/alice
//	    detector: selector:.live-badge
//
//	grids:
//	  - name: studio
//	    url_template: "https://example.tv/api/rooms/{{.room}}"
//	    dimensions:
//	      room: [a, b]
//	    detector: json:data.is_live
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 8080
	defaultBaseInterval = 5 * time.Minute

	// minInterval prevents accidentally hammering a platform.
	minInterval = 1 * time.Second
	maxInterval = 24 * time.Hour
)

// Config is the root configuration structure for LiveWatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "LiveWatch" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// BaseInterval is the base polling interval for channels without their
	// own. Medium tier channels are polled at half of it, slow tier channels
	// at twice it. Defaults to 5m.
	BaseInterval Duration `yaml:"base_interval"`

	// ReevaluateEvery is the tier re-evaluation period. Defaults to 1m.
	ReevaluateEvery Duration `yaml:"reevaluate_every"`

	// ConfidenceFloor is the history consistency needed to demote a channel
	// to the slow tier on a weekday it never broadcasts. Defaults to 0.2.
	ConfidenceFloor *float64 `yaml:"confidence_floor"`

	// PlatformConcurrency caps concurrent probes per platform. Defaults to 3.
	PlatformConcurrency int `yaml:"platform_concurrency"`

	// StartupSpread spreads first probes over this window.
	StartupSpread Duration `yaml:"startup_spread"`

	// Pools sets worker counts per tier.
	Pools PoolConfig `yaml:"pools"`

	// State configures the persistent history store. Empty keeps history in
	// memory only.
	State StateConfig `yaml:"state"`

	// Channels defines individual channels.
	Channels []ChannelConfig `yaml:"channels"`

	// Grids defines channel grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// PoolConfig sets the number of workers per tier. Zero keeps the default.
type PoolConfig struct {
	Fast   int `yaml:"fast"`
	Medium int `yaml:"medium"`
	Slow   int `yaml:"slow"`
}

// StateConfig configures the SQL state store.
type StateConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	// DSN is a file path for sqlite or a connection string for postgres.
	// Supports environment variable substitution.
	DSN string `yaml:"dsn"`

	// FlushInterval is how often state is written. Defaults to 5s.
	FlushInterval Duration `yaml:"flush_interval"`
}

// ChannelConfig defines a single channel.
type ChannelConfig struct {
	// ID is the channel's stable identifier. It must not contain '/'.
	ID string `yaml:"id"`

	// URL is the page or API endpoint probed for the channel.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Platform groups channels for concurrency limiting. Defaults to the
	// URL host.
	Platform string `yaml:"platform"`

	// Method is the HTTP method (GET, HEAD, POST). Defaults to GET.
	Method string `yaml:"method"`

	// Timeout is the probe timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each probe.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Labels are metadata key-value pairs for grouping/filtering.
	Labels map[string]string `yaml:"labels"`

	// Detector determines how to read the response as live or offline.
	// Can be shorthand ("json:is_live", "selector:.live-badge") or structured.
	Detector DetectorConfig `yaml:"detector"`

	// BaseInterval overrides the global base interval for this channel.
	BaseInterval Duration `yaml:"base_interval"`
}

// GridConfig defines a channel grid that expands via cartesian product.
//
// For example, with dimensions {room: [a, b], lang: [en, fr]}, the grid
// expands to 4 channels: name:en:a, name:en:b, name:fr:a, name:fr:b.
type GridConfig struct {
	// Name is the base ID for generated channels.
	Name string `yaml:"name"`

	// URLTemplate is a Go template for generating channel URLs.
	// Dimension keys are available as template variables: {{.room}}
	// Supports environment variable substitution in the template.
	URLTemplate string `yaml:"url_template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	Platform     string            `yaml:"platform"`
	Method       string            `yaml:"method"`
	Timeout      Duration          `yaml:"timeout"`
	Headers      map[string]string `yaml:"headers"`
	Labels       map[string]string `yaml:"labels"`
	Detector     DetectorConfig    `yaml:"detector"`
	BaseInterval Duration          `yaml:"base_interval"`
}

// DetectorConfig specifies how to decide from a response whether a channel
// is live.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	detector: json:data.is_live
//	detector: contains:LIVE NOW
//	detector: selector:span.live-badge
//	detector: regex:"status":"(\w+)"
//	detector: default
//
// Structured object:
//
//	detector:
//	  type: regex
//	  pattern: '"status":\s*"(\w+)"'
//	  match: online
type DetectorConfig struct {
	// Type is the detector type: "default", "http", "json", "contains",
	// "selector" or "regex".
	Type string

	// Path is the JSON field path (for type: json).
	Path string

	// Text is the substring to search for (for type: contains).
	Text string

	// Selector is the CSS selector (for type: selector).
	Selector string

	// Pattern is the regular expression (for type: regex).
	Pattern string

	// Match is the capture value meaning live (for type: regex). Defaults
	// to "live".
	Match string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for DetectorConfig.
func (e *DetectorConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return e.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type     string `yaml:"type"`
			Path     string `yaml:"path"`
			Text     string `yaml:"text"`
			Selector string `yaml:"selector"`
			Pattern  string `yaml:"pattern"`
			Match    string `yaml:"match"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*e = DetectorConfig(raw)
		return nil
	}

	return fmt.Errorf("detector must be a string or object, got %v", node.Kind)
}

// parseShorthand parses detector shorthand syntax.
//
// Supported formats:
//   - "default" → JSON live/is_live fields, then HTTP status
//   - "http" → HTTP status code only
//   - "json:path" → read a JSON field
//   - "contains:text" → live if the body contains text
//   - "selector:css" → live if the CSS selector matches
//   - "regex:pattern" → live if the first capture group is "live"
func (e *DetectorConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		e.Type = s[:idx]
		value := s[idx+1:]

		switch e.Type {
		case "json":
			e.Path = value
		case "contains":
			e.Text = value
		case "selector":
			e.Selector = value
		case "regex":
			e.Pattern = value
		default:
			return fmt.Errorf("unknown detector type %q", e.Type)
		}
		return nil
	}

	switch s {
	case "default", "http":
		e.Type = s
	default:
		return fmt.Errorf("unknown detector %q (expected 'default', 'http', 'json:path', 'contains:text', 'selector:css' or 'regex:pattern')", s)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		if hasDefault {
			return submatches[3]
		}
		firstErr = fmt.Errorf("environment variable %q is not set", varName)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in URLs, templates, headers and the state DSN are
// expanded. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Defaults are applied for Port (8080) and BaseInterval (5m).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.BaseInterval == 0 {
		cfg.BaseInterval = Duration(defaultBaseInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if err := checkInterval("base_interval", c.BaseInterval); err != nil {
		return err
	}
	if c.ReevaluateEvery < 0 {
		return fmt.Errorf("reevaluate_every cannot be negative, got %s", c.ReevaluateEvery.Duration())
	}
	if c.StartupSpread < 0 {
		return fmt.Errorf("startup_spread cannot be negative, got %s", c.StartupSpread.Duration())
	}
	if f := c.ConfidenceFloor; f != nil && (*f < 0 || *f > 1) {
		return fmt.Errorf("confidence_floor must be within [0, 1], got %v", *f)
	}
	if c.PlatformConcurrency < 0 {
		return fmt.Errorf("platform_concurrency cannot be negative, got %d", c.PlatformConcurrency)
	}
	if c.Pools.Fast < 0 || c.Pools.Medium < 0 || c.Pools.Slow < 0 {
		return errors.New("pools: worker counts cannot be negative")
	}

	if err := c.State.expandAndValidate(); err != nil {
		return err
	}

	seen := make(map[string]string)
	claim := func(id, where string) error {
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%s: id %q already used by %s", where, id, prev)
		}
		seen[id] = where
		return nil
	}

	for i := range c.Channels {
		ch := &c.Channels[i]
		where := fmt.Sprintf("channels[%d]", i)

		if ch.ID == "" {
			return fmt.Errorf("%s: id is required", where)
		}
		where = fmt.Sprintf("channels[%d] (%s)", i, ch.ID)
		if strings.Contains(ch.ID, "/") {
			return fmt.Errorf("%s: id cannot contain '/'", where)
		}
		if err := claim(ch.ID, where); err != nil {
			return err
		}

		if ch.URL == "" {
			return fmt.Errorf("%s: url is required", where)
		}
		expanded, err := expandEnvVars(ch.URL)
		if err != nil {
			return fmt.Errorf("%s: url: %w", where, err)
		}
		ch.URL = expanded

		parsedURL, err := url.Parse(ch.URL)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", where, err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", where, parsedURL.Scheme)
		}

		if err := expandHeaders(ch.Headers, where); err != nil {
			return err
		}
		if err := checkProbe(where, ch.Method, ch.Timeout, ch.BaseInterval); err != nil {
			return err
		}
		if err := validateDetector(&ch.Detector, where); err != nil {
			return err
		}
	}

	for i := range c.Grids {
		g := &c.Grids[i]
		where := fmt.Sprintf("grids[%d]", i)

		if g.Name == "" {
			return fmt.Errorf("%s: name is required", where)
		}
		where = fmt.Sprintf("grids[%d] (%s)", i, g.Name)
		if strings.Contains(g.Name, "/") {
			return fmt.Errorf("%s: name cannot contain '/'", where)
		}

		if g.URLTemplate == "" {
			return fmt.Errorf("%s: url_template is required", where)
		}
		expanded, err := expandEnvVars(g.URLTemplate)
		if err != nil {
			return fmt.Errorf("%s: url_template: %w", where, err)
		}
		g.URLTemplate = expanded

		// fail fast before the SDK tries to use an invalid template
		if _, err := template.New("").Parse(g.URLTemplate); err != nil {
			return fmt.Errorf("%s: invalid url_template: %w", where, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("%s: at least one dimension is required", where)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("%s: dimension %q has no values", where, dimName)
			}
			dup := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := dup[v]; exists {
					return fmt.Errorf("%s: dimension %q has duplicate value %q", where, dimName, v)
				}
				dup[v] = struct{}{}
			}
		}

		if err := expandHeaders(g.Headers, where); err != nil {
			return err
		}
		if err := checkProbe(where, g.Method, g.Timeout, g.BaseInterval); err != nil {
			return err
		}
		if err := validateDetector(&g.Detector, where); err != nil {
			return err
		}
	}

	if len(c.Channels) == 0 && len(c.Grids) == 0 {
		return errors.New("at least one channel or grid must be defined")
	}

	return nil
}

func (s *StateConfig) expandAndValidate() error {
	if s.Driver == "" && s.DSN == "" {
		return nil
	}
	switch s.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("state: driver must be sqlite or postgres, got %q", s.Driver)
	}
	if s.DSN == "" {
		return errors.New("state: dsn is required")
	}
	expanded, err := expandEnvVars(s.DSN)
	if err != nil {
		return fmt.Errorf("state: dsn: %w", err)
	}
	s.DSN = expanded
	if s.FlushInterval < 0 {
		return fmt.Errorf("state: flush_interval cannot be negative, got %s", s.FlushInterval.Duration())
	}
	return nil
}

func expandHeaders(headers map[string]string, where string) error {
	for k, v := range headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("%s: headers[%s]: %w", where, k, err)
		}
		headers[k] = expanded
	}
	return nil
}

// checkProbe validates the per-channel probe settings shared by channels
// and grids.
func checkProbe(where, method string, timeout, interval Duration) error {
	if method != "" && method != "GET" && method != "HEAD" && method != "POST" {
		return fmt.Errorf("%s: method must be GET, HEAD, or POST", where)
	}
	if timeout != 0 && timeout.Duration() < time.Second {
		return fmt.Errorf("%s: timeout must be at least 1s if specified, got %s", where, timeout.Duration())
	}
	if interval != 0 {
		if err := checkInterval(where+": base_interval", interval); err != nil {
			return err
		}
	}
	return nil
}

func checkInterval(name string, d Duration) error {
	if d.Duration() < minInterval {
		return fmt.Errorf("%s must be at least %s, got %s", name, minInterval, d.Duration())
	}
	if d.Duration() > maxInterval {
		return fmt.Errorf("%s must not exceed %s, got %s", name, maxInterval, d.Duration())
	}
	return nil
}

// validateDetector validates a detector configuration.
func validateDetector(e *DetectorConfig, where string) error {
	switch e.Type {
	case "", "default", "http":
	case "json":
		if e.Path == "" {
			return fmt.Errorf("%s: detector type 'json' requires a path", where)
		}
	case "contains":
		if e.Text == "" {
			return fmt.Errorf("%s: detector type 'contains' requires text", where)
		}
	case "selector":
		if e.Selector == "" {
			return fmt.Errorf("%s: detector type 'selector' requires a selector", where)
		}
	case "regex":
		if e.Pattern == "" {
			return fmt.Errorf("%s: detector type 'regex' requires a pattern", where)
		}
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return fmt.Errorf("%s: invalid detector pattern: %w", where, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("%s: detector pattern needs a capture group", where)
		}
	default:
		return fmt.Errorf("%s: unknown detector type %q", where, e.Type)
	}
	return nil
}
