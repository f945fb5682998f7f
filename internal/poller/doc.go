// Package poller schedules live-status probes for many channels.
//
// Channels are split across three tier queues (fast, medium and slow), each
// drained by its own fixed-size worker pool. After every probe the channel's
// broadcast history is updated, its likelihood of being live is recomputed
// and it is requeued on whichever tier that likelihood selects. A periodic
// re-evaluation pass moves queued channels between tiers as the clock
// advances, with hysteresis on demotion out of the fast tier.
//
// The main components are:
//
//   - [Scheduler]: owns the channel registry, queues and worker pools
//   - [Prober]: the injected operation that checks whether a channel is live
//   - [Status]: point-in-time view of one channel
//   - [Result]: emitted after every completed probe
//
// A channel never has more than one probe in flight. It is removed from every
// queue the moment a worker takes it and only pushed back once the probe has
// returned.
//
// Users of the livewatch library should not need to interact with this
// package directly. Configuration is done through the main livewatch package.
package poller
