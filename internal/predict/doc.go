// Package predict turns a channel's broadcast history into a polling tier.
//
// The pipeline is:
//
//   - [Estimator]: scores how likely a channel is live at a given instant
//   - [Classify]: maps a score onto [Fast], [Medium] or [Slow]
//   - [Classifier]: applies demotion hysteresis on top of [Classify]
//   - [Cadence]: converts a tier and base interval into a polling period
//
// Everything here is pure and safe for concurrent use.
package predict
