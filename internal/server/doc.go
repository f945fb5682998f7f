// Package server provides the HTTP server for the channel dashboard and API.
//
// This package handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML dashboard at "/"
//   - REST API: channel list, lookup and removal under "/api/channels"
//   - Server-Sent Events: Real-time updates at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the livewatch library should not need to interact with this
// package directly. The server is started by [livewatch.LiveWatch.Start].
package server
