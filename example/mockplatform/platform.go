// Package mockplatform is a fake streaming platform for trying LiveWatch
// locally. Each channel broadcasts for a fixed window once per cycle, offset
// by a phase derived from its ID, so channels go live at different times.
package mockplatform

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Platform serves channel pages and a JSON API for a set of channels.
//
//	GET /api/channels/{id}  {"id": "...", "is_live": true, "viewers": 42}
//	GET /c/{id}             HTML page with a span.live-badge while live
//
// Unknown channels answer 404.
type Platform struct {
	period time.Duration
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	channels map[string]bool // id → last reported live state
}

// New creates a Platform whose channels are live for window out of every
// period.
func New(period, window time.Duration, logger *slog.Logger, ids ...string) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Platform{
		period:   period,
		window:   window,
		now:      time.Now,
		logger:   logger,
		channels: make(map[string]bool, len(ids)),
	}
	for _, id := range ids {
		p.channels[id] = false
	}
	return p
}

// IsLive reports whether channel id is broadcasting at t.
func (p *Platform) IsLive(id string, t time.Time) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	phase := time.Duration(h.Sum32()) % p.period
	pos := (time.Duration(t.UnixNano()) + phase) % p.period
	return pos < p.window
}

// Handler returns the platform's HTTP handler.
func (p *Platform) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/channels/{id}", p.handleAPI)
	mux.HandleFunc("GET /c/{id}", p.handlePage)
	return mux
}

// observe returns the live state of id and logs transitions.
func (p *Platform) observe(id string) (live, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, ok := p.channels[id]
	if !ok {
		return false, false
	}
	live = p.IsLive(id, p.now())
	if live != prev {
		p.channels[id] = live
		p.logger.Info("broadcast state change", "channel", id, "live", live)
	}
	return live, true
}

func (p *Platform) handleAPI(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	live, ok := p.observe(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	viewers := 0
	if live {
		viewers = 10 + len(id)*7
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"id":      id,
		"is_live": live,
		"viewers": viewers,
	}); err != nil {
		p.logger.Error("failed to write response", "error", err)
	}
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><title>{{.ID}}</title></head>
<body>
<h1>{{.ID}}</h1>
{{if .Live}}<span class="live-badge">LIVE</span>{{else}}<span class="offline">Offline</span>{{end}}
</body></html>
`))

func (p *Platform) handlePage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	live, ok := p.observe(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, struct {
		ID   string
		Live bool
	}{id, live}); err != nil {
		p.logger.Error("failed to render page", "error", err)
	}
}

// String describes the platform's broadcast cycle.
func (p *Platform) String() string {
	return fmt.Sprintf("%d channels, live %s of every %s", len(p.channels), p.window, p.period)
}
