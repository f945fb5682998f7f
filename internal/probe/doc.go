// Package probe provides the pooled HTTP client behind the default live
// status probe.
//
// Streaming platforms are polled from many workers at once, often against the
// same host, so the client keeps a bounded connection pool, caps response
// bodies at 1MB and applies timeouts per request rather than globally.
//
// Users of the livewatch library should not need to interact with this
// package directly. Channels are probed through the main livewatch package.
package probe
