package livewatch

import (
	"testing"
)

func TestHTTPStatusDetector(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       LiveState
	}{
		{"200 OK", 200, Live},
		{"204 No Content", 204, Live},
		{"299 edge case", 299, Live},
		{"404 Not Found", 404, Offline},
		{"410 Gone", 410, Offline},
		{"401 Unauthorized", 401, LiveUnknown},
		{"429 Too Many Requests", 429, LiveUnknown},
		{"500 Internal Server Error", 500, LiveUnknown},
		{"301 Redirect", 301, LiveUnknown},
		{"0 no response", 0, LiveUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusDetector(nil, tt.statusCode); got != tt.want {
				t.Errorf("HTTPStatusDetector(%d) = %v, want %v", tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestJSONFieldDetector(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want LiveState
	}{
		{"bool true", "live", `{"live": true}`, Live},
		{"bool false", "live", `{"live": false}`, Offline},
		{"number one", "live", `{"live": 1}`, Live},
		{"number zero", "live", `{"live": 0}`, Offline},
		{"null", "live", `{"live": null}`, Offline},
		{"string live", "status", `{"status": "live"}`, Live},
		{"string online upper", "status", `{"status": "ONLINE"}`, Live},
		{"string on_air", "status", `{"status": "on_air"}`, Live},
		{"string offline", "status", `{"status": "offline"}`, Offline},
		{"string ended", "status", `{"status": "ended"}`, Offline},
		{"nested", "data.stream.is_live", `{"data": {"stream": {"is_live": true}}}`, Live},
		{"nested offline", "data.stream.is_live", `{"data": {"stream": {"is_live": false}}}`, Offline},
		{"unrecognised string", "status", `{"status": "rerun"}`, LiveUnknown},
		{"other number", "live", `{"live": 7}`, LiveUnknown},
		{"missing field", "live", `{"other": true}`, LiveUnknown},
		{"path through scalar", "data.live", `{"data": "x"}`, LiveUnknown},
		{"object value", "data", `{"data": {"live": true}}`, LiveUnknown},
		{"invalid json", "live", `<html>`, LiveUnknown},
		{"empty body", "live", ``, LiveUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JSONFieldDetector(tt.path)([]byte(tt.body), 200)
			if got != tt.want {
				t.Errorf("JSONFieldDetector(%q)(%s) = %v, want %v", tt.path, tt.body, got, tt.want)
			}
		})
	}
}

func TestRegexDetector(t *testing.T) {
	detector, err := RegexDetector(`"state":\s*"(\w+)"`, "live")
	if err != nil {
		t.Fatalf("RegexDetector() error = %v", err)
	}

	tests := []struct {
		name string
		body string
		want LiveState
	}{
		{"match live", `{"state": "live"}`, Live},
		{"case insensitive", `{"state": "LIVE"}`, Live},
		{"match other", `{"state": "vod"}`, Offline},
		{"no match", `{"other": "live"}`, LiveUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detector([]byte(tt.body), 200); got != tt.want {
				t.Errorf("detector(%s) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestRegexDetector_InvalidPattern(t *testing.T) {
	if _, err := RegexDetector(`(unclosed`, "live"); err == nil {
		t.Error("RegexDetector() expected error for invalid pattern")
	}
}

func TestMustRegexDetector_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegexDetector() did not panic on invalid pattern")
		}
	}()
	MustRegexDetector(`(unclosed`, "live")
}

func TestContainsDetector(t *testing.T) {
	detector := ContainsDetector("Live Now")

	tests := []struct {
		body string
		want LiveState
	}{
		{"<span>LIVE NOW</span>", Live},
		{"streaming live now!", Live},
		{"offline", Offline},
		{"", Offline},
	}

	for _, tt := range tests {
		if got := detector([]byte(tt.body), 200); got != tt.want {
			t.Errorf("ContainsDetector(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestSelectorDetector(t *testing.T) {
	detector := SelectorDetector("span.live-badge")

	tests := []struct {
		name       string
		body       string
		statusCode int
		want       LiveState
	}{
		{
			name:       "badge present",
			body:       `<html><body><div class="player"><span class="live-badge">LIVE</span></div></body></html>`,
			statusCode: 200,
			want:       Live,
		},
		{
			name:       "badge absent",
			body:       `<html><body><div class="player"><span class="offline">Offline</span></div></body></html>`,
			statusCode: 200,
			want:       Offline,
		},
		{
			name:       "different element with class",
			body:       `<html><body><div class="live-badge"></div></body></html>`,
			statusCode: 200,
			want:       Offline,
		},
		{
			name:       "error page",
			body:       `<html><body><span class="live-badge">LIVE</span></body></html>`,
			statusCode: 503,
			want:       LiveUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detector([]byte(tt.body), tt.statusCode); got != tt.want {
				t.Errorf("SelectorDetector() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstMatch(t *testing.T) {
	unknown := func(body []byte, statusCode int) LiveState { return LiveUnknown }
	offline := func(body []byte, statusCode int) LiveState { return Offline }
	live := func(body []byte, statusCode int) LiveState { return Live }

	tests := []struct {
		name      string
		detectors []LiveDetector
		want      LiveState
	}{
		{"first definitive wins", []LiveDetector{unknown, offline, live}, Offline},
		{"skips unknown", []LiveDetector{unknown, live}, Live},
		{"all unknown", []LiveDetector{unknown, unknown}, LiveUnknown},
		{"empty", nil, LiveUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstMatch(tt.detectors...)(nil, 200); got != tt.want {
				t.Errorf("FirstMatch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultDetector(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		want       LiveState
	}{
		{"live field", `{"live": true}`, 200, Live},
		{"is_live field", `{"is_live": false}`, 200, Offline},
		{"live field wins over status code", `{"live": false}`, 200, Offline},
		{"no field 2xx", `{"title": "x"}`, 200, Live},
		{"html 404", `<html>not found</html>`, 404, Offline},
		{"server error", ``, 500, LiveUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultDetector([]byte(tt.body), tt.statusCode); got != tt.want {
				t.Errorf("DefaultDetector() = %v, want %v", got, tt.want)
			}
		})
	}
}
