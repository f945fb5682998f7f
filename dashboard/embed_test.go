package dashboard

import (
	"io/fs"
	"strings"
	"testing"
)

func TestAssets_IndexHTML(t *testing.T) {
	content, err := fs.ReadFile(Assets, "assets/index.html")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	for _, want := range []string{"{{.Title}}", "/api/sse", "/api/channels/"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("index.html missing %q", want)
		}
	}
}
