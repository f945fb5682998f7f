// Package history records when each monitored channel has been seen going live.
//
// The model is deliberately small: for every weekday a channel keeps at most
// [SlotsPerDay] distinct hours-of-day at which a broadcast start was observed.
// Each hour carries the time it was last seen, and when a weekday is full the
// stalest hour is evicted. The bound is what lets the model forget old
// schedules and follow a channel whose streaming times drift.
//
// The main components are:
//
//   - [Schedule]: fixed-capacity weekday/hour slots for one channel (a value type;
//     copies are snapshots)
//   - [Store]: the per-channel collection of schedules with per-entry locking
//   - [Consistency]: reliability of a schedule in [0, 1]
//   - [Activity]: exponential moving average of how often probes find the channel live
package history
