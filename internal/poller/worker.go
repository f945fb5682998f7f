package poller

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	lwerrors "github.com/jpalmerr/livewatch/internal/errors"
	"github.com/jpalmerr/livewatch/internal/history"
	"github.com/jpalmerr/livewatch/internal/predict"
)

// worker drains one tier's queue until ctx is done.
func (s *Scheduler) worker(ctx context.Context, tier predict.Tier) {
	defer s.wg.Done()

	q := s.queues[tier]
	for {
		id, err := q.pop(ctx, s.cfg.Now)
		if err != nil || ctx.Err() != nil {
			return
		}

		cs := s.lookup(id)
		if cs == nil {
			continue
		}
		if !s.claim(cs) {
			continue
		}
		s.dispatch(ctx, cs)
	}
}

// claim moves a popped channel to InFlight. It returns false if the channel
// was unregistered, or if an earlier registration of the same ID still has a
// probe outstanding, in which case the channel is pushed back one cadence out.
func (s *Scheduler) claim(cs *channelState) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.removed || cs.state != StateQueued {
		return false
	}

	s.flightMu.Lock()
	_, busy := s.flying[cs.id]
	if !busy {
		s.flying[cs.id] = struct{}{}
	}
	s.flightMu.Unlock()

	if busy {
		cs.nextDue = s.cfg.Now().Add(s.cadence(cs.tier, cs.base))
		s.queues[cs.tier].push(cs.id, cs.nextDue, cs.activity.Score)
		return false
	}

	cs.state = StateInFlight
	return true
}

// land clears the in-flight mark set by claim.
func (s *Scheduler) land(channelID string) {
	s.flightMu.Lock()
	delete(s.flying, channelID)
	s.flightMu.Unlock()
}

// dispatch runs one probe for a claimed channel and applies the outcome.
func (s *Scheduler) dispatch(ctx context.Context, cs *channelState) {
	cs.mu.Lock()
	platform := cs.platform
	cs.mu.Unlock()

	release, err := s.acquirePlatform(ctx, platform)
	if err != nil {
		s.abandon(cs)
		return
	}

	cs.mu.Lock()
	cs.state = StateCooling
	cs.mu.Unlock()

	start := time.Now()
	res, perr := s.safeProbe(ctx, cs.id)
	latency := time.Since(start)
	release()

	if perr != nil && ctx.Err() != nil {
		// shutting down; the error is an artefact of cancellation
		s.abandon(cs)
		return
	}

	result, ok := s.complete(cs, res, perr, latency)
	if !ok {
		return
	}

	if perr != nil {
		s.notifyProbeError(cs.id, perr)
	}

	select {
	case s.results <- result:
	case <-ctx.Done():
	}
}

// abandon returns a claimed channel to its queue without recording anything.
func (s *Scheduler) abandon(cs *channelState) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	s.land(cs.id)
	if cs.removed {
		return
	}
	cs.state = StateQueued
	s.queues[cs.tier].push(cs.id, cs.nextDue, cs.activity.Score)
}

// complete folds a probe outcome into the channel and requeues it.
// It returns false when the channel was unregistered while the probe ran.
func (s *Scheduler) complete(cs *channelState, res ProbeResult, perr error, latency time.Duration) (Result, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	s.land(cs.id)

	if cs.removed {
		s.logger.Debug("discarding result for unregistered channel", "channel", cs.id)
		return Result{}, false
	}

	now := s.cfg.Now()
	cs.lastProbed = now

	if perr != nil {
		cs.failures++
		cs.lastErr = perr
		s.requeueLocked(cs, now)

		s.logger.Warn("probe failed",
			"channel", cs.id,
			"tier", cs.tier,
			"failures", cs.failures,
			"retryable", lwerrors.IsRetryable(perr),
			"error", perr,
		)
		return Result{Status: s.statusLocked(cs), Latency: latency}, true
	}

	wentLive := res.IsLive && !cs.isLive
	cs.isLive = res.IsLive
	cs.failures = 0
	cs.lastErr = nil
	cs.activity.Observe(res.IsLive, now, s.cfg.Alpha)

	if wentLive {
		observed := res.ObservedAt
		if observed.IsZero() {
			observed = now
		}
		if err := s.history.Record(cs.id, observed.In(now.Location())); err != nil {
			if lwerrors.IsFatal(err) {
				return s.haltLocked(cs, err, res, latency), true
			}
			s.logger.Error("failed to record broadcast", "channel", cs.id, "error", err)
		}
		s.logger.Info("channel went live", "channel", cs.id, "at", observed)
	}

	schedule, _ := s.history.Snapshot(cs.id)
	cs.consistency = history.Consistency(schedule)
	cs.likelihood = s.cfg.Estimator.Estimate(schedule, now)

	previous := cs.tier
	cs.tier, cs.below = s.cfg.Classifier.Refresh(cs.tier, cs.below, cs.likelihood)
	if cs.tier != previous {
		s.logger.Debug("tier changed after probe",
			"channel", cs.id,
			"from", previous,
			"to", cs.tier,
			"likelihood", cs.likelihood,
		)
	}
	s.requeueLocked(cs, now)

	return Result{
		Status:   s.statusLocked(cs),
		WentLive: wentLive,
		Latency:  latency,
		Metadata: res.Metadata,
	}, true
}

// requeueLocked schedules cs one cadence after now on its current tier.
// Must hold cs.mu.
func (s *Scheduler) requeueLocked(cs *channelState, now time.Time) {
	cs.nextDue = now.Add(s.cadence(cs.tier, cs.base))
	cs.state = StateQueued
	s.queues[cs.tier].push(cs.id, cs.nextDue, cs.activity.Score)
}

// haltLocked parks a channel whose history is corrupt. It is not requeued.
// Must hold cs.mu.
func (s *Scheduler) haltLocked(cs *channelState, err error, res ProbeResult, latency time.Duration) Result {
	cs.state = StateHalted
	cs.lastErr = err
	s.logger.Error("channel halted",
		"channel", cs.id,
		"error", err,
	)
	return Result{Status: s.statusLocked(cs), Latency: latency, Metadata: res.Metadata}
}

// safeProbe calls the prober with panic recovery.
// Errors are always returned as *lwerrors.ProbeError. A panic is logged with
// its stack trace and a correlation ID that is carried in the error.
func (s *Scheduler) safeProbe(ctx context.Context, channelID string) (res ProbeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			// log full context server-side for debugging
			s.logger.Error("probe panic",
				"channel", channelID,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			perr := lwerrors.NewProbeError(channelID, fmt.Errorf("panic: %v", r))
			perr.CorrelationID = correlationID
			res, err = ProbeResult{}, perr
		}
	}()

	res, err = s.prober.Probe(ctx, channelID)
	if err != nil {
		var perr *lwerrors.ProbeError
		if !lwerrors.As(err, &perr) {
			err = lwerrors.NewProbeError(channelID, err)
		}
	}
	return res, err
}

// notifyProbeError runs the OnProbeError hook, recovering from panics.
func (s *Scheduler) notifyProbeError(channelID string, err error) {
	if s.cfg.OnProbeError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("probe error handler panic",
				"channel", channelID,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	s.cfg.OnProbeError(channelID, err)
}

// acquirePlatform takes a slot on the platform's semaphore. The returned
// release func must be called once the probe returns.
func (s *Scheduler) acquirePlatform(ctx context.Context, platform string) (func(), error) {
	if platform == "" {
		return func() {}, nil
	}

	s.semMu.Lock()
	sem, ok := s.platforms[platform]
	if !ok {
		sem = make(chan struct{}, s.cfg.PlatformConcurrency)
		s.platforms[platform] = sem
	}
	s.semMu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
