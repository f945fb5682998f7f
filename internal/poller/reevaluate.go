package poller

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jpalmerr/livewatch/internal/predict"
)

// cycleSummary counts what one re-evaluation pass saw and did.
type cycleSummary struct {
	queued   map[predict.Tier]int
	inFlight int
	halted   int
	promoted int
	demoted  int
}

// reevaluateLoop runs the re-evaluation pass every ReevaluateEvery until ctx
// is done.
func (s *Scheduler) reevaluateLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ReevaluateEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sum := s.reevaluate()
			s.logger.Info("reevaluation cycle",
				"fast", humanize.Comma(int64(sum.queued[predict.Fast])),
				"medium", humanize.Comma(int64(sum.queued[predict.Medium])),
				"slow", humanize.Comma(int64(sum.queued[predict.Slow])),
				"in_flight", humanize.Comma(int64(sum.inFlight)),
				"halted", humanize.Comma(int64(sum.halted)),
				"promoted", humanize.Comma(int64(sum.promoted)),
				"demoted", humanize.Comma(int64(sum.demoted)),
			)
		}
	}
}

// reevaluate rescores every queued channel against the current clock and
// moves it to a new tier queue if its tier changed.
//
// Channels that are in flight are skipped; they are rescored when their probe
// completes. When a channel moves, its next due time becomes one cadence of
// the new tier after its last probe, or stays put if it was never probed.
func (s *Scheduler) reevaluate() cycleSummary {
	sum := cycleSummary{queued: make(map[predict.Tier]int, len(predict.Tiers))}
	now := s.cfg.Now()

	s.regMu.RLock()
	list := make([]*channelState, 0, len(s.channels))
	for _, cs := range s.channels {
		list = append(list, cs)
	}
	s.regMu.RUnlock()

	for _, cs := range list {
		cs.mu.Lock()
		s.reevaluateLocked(cs, now, &sum)
		cs.mu.Unlock()
	}
	return sum
}

// reevaluateLocked applies one re-evaluation cycle to cs. Must hold cs.mu.
func (s *Scheduler) reevaluateLocked(cs *channelState, now time.Time, sum *cycleSummary) {
	switch {
	case cs.removed:
		return
	case cs.state == StateHalted:
		sum.halted++
		return
	case cs.state != StateQueued:
		sum.inFlight++
		return
	}

	schedule, _ := s.history.Snapshot(cs.id)
	cs.likelihood = s.cfg.Estimator.Estimate(schedule, now)

	from := cs.tier
	to, below := s.cfg.Classifier.Evaluate(from, cs.below, cs.likelihood)
	if to == from {
		cs.below = below
		sum.queued[from]++
		return
	}

	// a worker popped it between our snapshot and the lock
	if !s.queues[from].remove(cs.id) {
		sum.inFlight++
		return
	}

	cs.tier, cs.below = to, below
	if !cs.lastProbed.IsZero() {
		cs.nextDue = cs.lastProbed.Add(s.cadence(to, cs.base))
	}
	s.queues[to].push(cs.id, cs.nextDue, cs.activity.Score)
	sum.queued[to]++

	if to == predict.Fast {
		sum.promoted++
	} else if from == predict.Fast || to == predict.Slow {
		sum.demoted++
	} else {
		sum.promoted++
	}

	s.logger.Debug("tier changed",
		"channel", cs.id,
		"from", from,
		"to", to,
		"likelihood", cs.likelihood,
		"next_due", cs.nextDue,
	)
}
