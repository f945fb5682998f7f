// Package dashboard embeds the LiveWatch web UI.
//
// The page is a single HTML file with inline CSS and JavaScript. It loads the
// channel list from the server-sent event stream at /api/sse and can stop
// monitoring a channel through DELETE /api/channels/{id}.
package dashboard

import "embed"

// Assets holds assets/index.html. The server replaces its {{.Title}}
// placeholder before serving it at "/".
//
//go:embed assets/*
var Assets embed.FS
