package livewatch

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"text/template"
)

// NewChannelGrid creates channels from a URL template and dimensions using
// cartesian product expansion, e.g. one channel per room of a studio.
//
// The URL template uses text/template syntax. Dimension values are
// URL-encoded before interpolation and missing template keys are an error.
//
// Channel IDs join the base ID and the dimension values (ordered by sorted
// key) with ':', so "studio" with room=a becomes "studio:a". Dimension values
// are added as labels; static labels from [WithGridLabels] win on collision.
//
// Example:
//
//	channels, err := livewatch.NewChannelGrid("studio",
//	    livewatch.WithURLTemplate("https://example.tv/api/rooms/{{.room}}"),
//	    livewatch.WithDimensions(map[string][]string{"room": {"a", "b"}}),
//	)
func NewChannelGrid(baseID string, opts ...GridOption) ([]Channel, error) {
	if strings.TrimSpace(baseID) == "" {
		return nil, errors.New("base id cannot be empty")
	}

	cfg := &gridConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.urlTemplate == "" {
		return nil, errors.New("URL template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	// missingkey=error makes a typo in the template fail fast
	tmpl, err := template.New("url").Option("missingkey=error").Parse(cfg.urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid URL template: %w", err)
	}

	combinations := cartesianProduct(cfg.dimensions)
	if len(combinations) == 0 {
		return nil, nil
	}

	channels := make([]Channel, 0, len(combinations))
	for _, combo := range combinations {
		var rendered strings.Builder
		if err := tmpl.Execute(&rendered, urlEncodeMap(combo)); err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}

		id := formatChannelID(baseID, combo)
		chOpts := append([]ChannelOption{WithLabels(flattenMap(combo)...)}, cfg.shared...)

		ch, err := NewChannel(id, rendered.String(), chOpts...)
		if err != nil {
			return nil, fmt.Errorf("grid channel %q: %w", id, err)
		}
		channels = append(channels, ch)
	}

	return channels, nil
}

// cartesianProduct generates all combinations of dimension values.
// Keys are iterated in sorted order and values keep their slice order.
func cartesianProduct(dims map[string][]string) []map[string]string {
	if len(dims) == 0 {
		return nil
	}

	keys := sortedKeys(dims)
	total := 1
	for _, k := range keys {
		if len(dims[k]) == 0 {
			return nil
		}
		total *= len(dims[k])
	}

	result := make([]map[string]string, 0, total)
	indices := make([]int, len(keys))
	for {
		combo := make(map[string]string, len(keys))
		for i, k := range keys {
			combo[k] = dims[k][indices[i]]
		}
		result = append(result, combo)

		// odometer increment, rightmost key fastest
		for i := len(keys) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(dims[keys[i]]) {
				break
			}
			indices[i] = 0
			if i == 0 {
				return result
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// urlEncodeMap returns a new map with all values URL-encoded.
func urlEncodeMap(m map[string]string) map[string]string {
	result := make(map[string]string, len(m))
	for k, v := range m {
		result[k] = url.QueryEscape(v)
	}
	return result
}

// formatChannelID creates an ID in the form "base:v1:v2".
// Slashes in values are replaced so the ID stays a single path segment.
func formatChannelID(baseID string, combo map[string]string) string {
	keys := sortedKeys(combo)
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, baseID)
	for _, k := range keys {
		parts = append(parts, strings.ReplaceAll(combo[k], "/", "_"))
	}
	return strings.Join(parts, ":")
}

// flattenMap converts a map to sorted key-value pairs for variadic options.
func flattenMap(m map[string]string) []string {
	result := make([]string, 0, len(m)*2)
	for _, k := range sortedKeys(m) {
		result = append(result, k, m[k])
	}
	return result
}
