package livewatch

import (
	"strings"
	"testing"
	"time"
)

func TestCartesianProduct(t *testing.T) {
	tests := []struct {
		name string
		dims map[string][]string
		want []map[string]string
	}{
		{
			name: "two dimensions in sorted key order",
			dims: map[string][]string{"room": {"a", "b"}, "lang": {"en", "fr"}},
			want: []map[string]string{
				{"lang": "en", "room": "a"},
				{"lang": "en", "room": "b"},
				{"lang": "fr", "room": "a"},
				{"lang": "fr", "room": "b"},
			},
		},
		{
			name: "single dimension keeps value order",
			dims: map[string][]string{"room": {"c", "a", "b"}},
			want: []map[string]string{{"room": "c"}, {"room": "a"}, {"room": "b"}},
		},
		{
			name: "empty dimension",
			dims: map[string][]string{"room": {"a"}, "lang": {}},
			want: nil,
		},
		{
			name: "no dimensions",
			dims: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cartesianProduct(tt.dims)
			if len(got) != len(tt.want) {
				t.Fatalf("cartesianProduct() returned %d combinations, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				for k, v := range want {
					if got[i][k] != v {
						t.Errorf("combination[%d][%s] = %q, want %q", i, k, got[i][k], v)
					}
				}
			}
		})
	}
}

func TestCartesianProduct_ThreeDimensions(t *testing.T) {
	dims := map[string][]string{
		"a": {"1", "2"},
		"b": {"x", "y"},
		"c": {"p", "q", "r"},
	}

	if got := len(cartesianProduct(dims)); got != 12 {
		t.Errorf("cartesianProduct() returned %d combinations, want 12", got)
	}
}

func TestFormatChannelID(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		combo map[string]string
		want  string
	}{
		{"single", "studio", map[string]string{"room": "a"}, "studio:a"},
		{"sorted by key", "studio", map[string]string{"room": "a", "lang": "en"}, "studio:en:a"},
		{"slash replaced", "studio", map[string]string{"path": "eu/west"}, "studio:eu_west"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatChannelID(tt.base, tt.combo); got != tt.want {
				t.Errorf("formatChannelID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewChannelGrid(t *testing.T) {
	channels, err := NewChannelGrid("studio",
		WithURLTemplate("https://example.tv/api/{{.room}}?lang={{.lang}}"),
		WithDimensions(map[string][]string{
			"room": {"a", "b"},
			"lang": {"en"},
		}),
		WithGridLabels("team", "music"),
		WithGridHeaders("Authorization", "Bearer x"),
		WithGridTimeout(3*time.Second),
		WithGridDetector(ContainsDetector("live")),
		WithGridMethod("HEAD"),
		WithGridInterval(10*time.Minute),
		WithGridPlatform("example"),
	)
	if err != nil {
		t.Fatalf("NewChannelGrid() error = %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("NewChannelGrid() returned %d channels, want 2", len(channels))
	}

	first := channels[0]
	if first.ID() != "studio:en:a" {
		t.Errorf("ID() = %q, want studio:en:a", first.ID())
	}
	if first.URL() != "https://example.tv/api/a?lang=en" {
		t.Errorf("URL() = %q", first.URL())
	}

	labels := first.Labels()
	if labels["room"] != "a" || labels["lang"] != "en" || labels["team"] != "music" {
		t.Errorf("Labels() = %v", labels)
	}
	if first.Headers()["Authorization"] != "Bearer x" {
		t.Errorf("Headers() = %v", first.Headers())
	}
	if first.Timeout() != 3*time.Second {
		t.Errorf("Timeout() = %v", first.Timeout())
	}
	if first.Detector() == nil {
		t.Error("Detector() = nil")
	}
	if first.Method() != "HEAD" {
		t.Errorf("Method() = %q", first.Method())
	}
	if first.Interval() != 10*time.Minute {
		t.Errorf("Interval() = %v", first.Interval())
	}
	if first.Platform() != "example" {
		t.Errorf("Platform() = %q", first.Platform())
	}

	if channels[1].ID() != "studio:en:b" {
		t.Errorf("channels[1].ID() = %q, want studio:en:b", channels[1].ID())
	}
}

func TestNewChannelGrid_Defaults(t *testing.T) {
	channels, err := NewChannelGrid("studio",
		WithURLTemplate("https://example.tv/{{.room}}"),
		WithDimensions(map[string][]string{"room": {"a"}}),
	)
	if err != nil {
		t.Fatalf("NewChannelGrid() error = %v", err)
	}

	ch := channels[0]
	if ch.Timeout() != defaultChannelTimeout {
		t.Errorf("Timeout() = %v, want default", ch.Timeout())
	}
	if ch.Interval() != 0 {
		t.Errorf("Interval() = %v, want 0", ch.Interval())
	}
	if ch.Platform() != "example.tv" {
		t.Errorf("Platform() = %q, want URL host", ch.Platform())
	}
}

func TestNewChannelGrid_URLEncodesValues(t *testing.T) {
	channels, err := NewChannelGrid("search",
		WithURLTemplate("https://example.tv/search?q={{.q}}"),
		WithDimensions(map[string][]string{"q": {"late night"}}),
	)
	if err != nil {
		t.Fatalf("NewChannelGrid() error = %v", err)
	}

	if channels[0].URL() != "https://example.tv/search?q=late+night" {
		t.Errorf("URL() = %q", channels[0].URL())
	}
	if channels[0].Labels()["q"] != "late night" {
		t.Errorf("label q = %q, want raw value", channels[0].Labels()["q"])
	}
}

func TestNewChannelGrid_StaticLabelsWin(t *testing.T) {
	channels, err := NewChannelGrid("studio",
		WithURLTemplate("https://example.tv/{{.room}}"),
		WithDimensions(map[string][]string{"room": {"a"}}),
		WithGridLabels("room", "override"),
	)
	if err != nil {
		t.Fatalf("NewChannelGrid() error = %v", err)
	}

	if got := channels[0].Labels()["room"]; got != "override" {
		t.Errorf("label room = %q, want override", got)
	}
}

func TestNewChannelGrid_Errors(t *testing.T) {
	dims := map[string][]string{"room": {"a"}}

	tests := []struct {
		name    string
		baseID  string
		opts    []GridOption
		wantErr string
	}{
		{
			name:    "empty base id",
			baseID:  "",
			opts:    []GridOption{WithURLTemplate("https://example.tv/{{.room}}"), WithDimensions(dims)},
			wantErr: "base id",
		},
		{
			name:    "missing template",
			baseID:  "studio",
			opts:    []GridOption{WithDimensions(dims)},
			wantErr: "URL template required",
		},
		{
			name:    "missing dimensions",
			baseID:  "studio",
			opts:    []GridOption{WithURLTemplate("https://example.tv/")},
			wantErr: "dimension",
		},
		{
			name:    "empty dimension values",
			baseID:  "studio",
			opts:    []GridOption{WithURLTemplate("https://example.tv/"), WithDimensions(map[string][]string{"room": {}})},
			wantErr: "no values",
		},
		{
			name:    "empty dimension value",
			baseID:  "studio",
			opts:    []GridOption{WithURLTemplate("https://example.tv/"), WithDimensions(map[string][]string{"room": {""}})},
			wantErr: "empty value",
		},
		{
			name:    "bad template syntax",
			baseID:  "studio",
			opts:    []GridOption{WithURLTemplate("https://example.tv/{{.room"), WithDimensions(dims)},
			wantErr: "invalid URL template",
		},
		{
			name:    "unknown template key",
			baseID:  "studio",
			opts:    []GridOption{WithURLTemplate("https://example.tv/{{.lang}}"), WithDimensions(dims)},
			wantErr: "template execution failed",
		},
		{
			name:    "relative url",
			baseID:  "studio",
			opts:    []GridOption{WithURLTemplate("/rooms/{{.room}}"), WithDimensions(dims)},
			wantErr: "absolute",
		},
		{
			name:    "odd labels",
			baseID:  "studio",
			opts:    []GridOption{WithGridLabels("a")},
			wantErr: "even number",
		},
		{
			name:    "negative timeout",
			baseID:  "studio",
			opts:    []GridOption{WithGridTimeout(-time.Second)},
			wantErr: "negative",
		},
		{
			name:    "bad method",
			baseID:  "studio",
			opts:    []GridOption{WithGridMethod("PUT")},
			wantErr: "method",
		},
		{
			name:    "interval too short",
			baseID:  "studio",
			opts:    []GridOption{WithGridInterval(time.Millisecond)},
			wantErr: "at least 1 second",
		},
		{
			name:    "interval too long",
			baseID:  "studio",
			opts:    []GridOption{WithGridInterval(48 * time.Hour)},
			wantErr: "24 hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChannelGrid(tt.baseID, tt.opts...)
			if err == nil {
				t.Fatal("NewChannelGrid() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
