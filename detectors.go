package livewatch

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTTPStatusDetector treats any 2xx response as [Live] and 404 or 410 as
// [Offline]. Other codes are [LiveUnknown].
//
// This suits platforms whose live endpoint only exists while a broadcast is
// running.
var HTTPStatusDetector LiveDetector = func(body []byte, statusCode int) LiveState {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return Live
	case statusCode == 404 || statusCode == 410:
		return Offline
	default:
		return LiveUnknown
	}
}

// JSONFieldDetector returns a [LiveDetector] that reads a JSON field using
// dot notation, e.g. "data.stream.is_live".
//
// Value mapping:
//   - [Live]: true, 1, "live", "online", "true", "streaming", "on_air", "broadcasting"
//   - [Offline]: false, 0, null, "offline", "false", "ended", "idle", "off_air"
//   - [LiveUnknown]: anything else, a missing field or a non-JSON body
func JSONFieldDetector(path string) LiveDetector {
	parts := strings.Split(path, ".")

	return func(body []byte, statusCode int) LiveState {
		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return LiveUnknown
		}

		value, ok := extractJSONPath(data, parts)
		if !ok {
			return LiveUnknown
		}
		return mapStringToLive(strings.ToLower(value))
	}
}

// extractJSONPath walks a JSON structure using dot notation parts.
func extractJSONPath(data interface{}, parts []string) (string, bool) {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current, ok = obj[part]
		if !ok {
			return "", false
		}
	}

	switch v := current.(type) {
	case nil:
		return "null", true
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		switch v {
		case 0:
			return "false", true
		case 1:
			return "true", true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func mapStringToLive(s string) LiveState {
	switch s {
	case "true", "live", "online", "streaming", "on_air", "broadcasting":
		return Live
	case "false", "null", "offline", "ended", "idle", "off_air":
		return Offline
	default:
		return LiveUnknown
	}
}

// RegexDetector returns a [LiveDetector] that matches the body against
// pattern, which must contain at least one capture group. The first group is
// compared case-insensitively with liveMatch: equal is [Live], different is
// [Offline], and no match at all is [LiveUnknown].
//
// Example:
//
//	detector, err := livewatch.RegexDetector(`"status":\s*"(\w+)"`, "live")
func RegexDetector(pattern, liveMatch string) (LiveDetector, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	return func(body []byte, statusCode int) LiveState {
		matches := re.FindSubmatch(body)
		if len(matches) < 2 {
			return LiveUnknown
		}
		if strings.EqualFold(string(matches[1]), liveMatch) {
			return Live
		}
		return Offline
	}, nil
}

// MustRegexDetector is like [RegexDetector] but panics if the pattern is
// invalid.
func MustRegexDetector(pattern, liveMatch string) LiveDetector {
	detector, err := RegexDetector(pattern, liveMatch)
	if err != nil {
		panic("livewatch: invalid regex pattern: " + err.Error())
	}
	return detector
}

// ContainsDetector returns a [LiveDetector] that reports [Live] when the
// body contains text (case-insensitive) and [Offline] otherwise.
func ContainsDetector(text string) LiveDetector {
	lower := bytes.ToLower([]byte(text))
	return func(body []byte, statusCode int) LiveState {
		if bytes.Contains(bytes.ToLower(body), lower) {
			return Live
		}
		return Offline
	}
}

// SelectorDetector returns a [LiveDetector] for HTML channel pages. The page
// is [Live] when at least one element matches the CSS selector, e.g. a
// ".live-badge" element, and [Offline] when none does. Non-2xx responses are
// [LiveUnknown], since error pages rarely carry the badge either way.
func SelectorDetector(selector string) LiveDetector {
	return func(body []byte, statusCode int) LiveState {
		if statusCode < 200 || statusCode >= 300 {
			return LiveUnknown
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return LiveUnknown
		}
		if doc.Find(selector).Length() > 0 {
			return Live
		}
		return Offline
	}
}

// FirstMatch returns a [LiveDetector] that tries detectors in order and
// returns the first result that is not [LiveUnknown].
//
// Example:
//
//	detector := livewatch.FirstMatch(
//	    livewatch.JSONFieldDetector("stream.live"),
//	    livewatch.HTTPStatusDetector,
//	)
func FirstMatch(detectors ...LiveDetector) LiveDetector {
	return func(body []byte, statusCode int) LiveState {
		for _, detector := range detectors {
			if state := detector(body, statusCode); state != LiveUnknown {
				return state
			}
		}
		return LiveUnknown
	}
}

// DefaultDetector is used for channels without a detector. It reads a JSON
// "live" field, then "is_live", then falls back to [HTTPStatusDetector].
var DefaultDetector = FirstMatch(
	JSONFieldDetector("live"),
	JSONFieldDetector("is_live"),
	HTTPStatusDetector,
)
