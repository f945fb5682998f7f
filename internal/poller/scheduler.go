package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	lwerrors "github.com/jpalmerr/livewatch/internal/errors"
	"github.com/jpalmerr/livewatch/internal/history"
	"github.com/jpalmerr/livewatch/internal/predict"
)

const (
	// DefaultBaseInterval is used for channels registered without one.
	DefaultBaseInterval = 300 * time.Second
	// DefaultReevaluateEvery is the period of the tier re-evaluation pass.
	DefaultReevaluateEvery = 60 * time.Second
	// DefaultPlatformConcurrency caps concurrent probes against one platform.
	DefaultPlatformConcurrency = 3

	defaultResultBuffer = 64
)

// PoolSizes is the number of workers per tier.
type PoolSizes struct {
	Fast   int
	Medium int
	Slow   int
}

// DefaultPoolSizes is one fast worker, two medium workers and one slow worker.
var DefaultPoolSizes = PoolSizes{Fast: 1, Medium: 2, Slow: 1}

func (p PoolSizes) of(t predict.Tier) int {
	switch t {
	case predict.Fast:
		return p.Fast
	case predict.Slow:
		return p.Slow
	default:
		return p.Medium
	}
}

// Config tunes a [Scheduler]. Zero fields take their defaults.
type Config struct {
	// BaseInterval is used by Register when called with a zero interval.
	BaseInterval time.Duration

	// FastCadence overrides the fast tier polling period (60s).
	FastCadence time.Duration

	// ReevaluateEvery is the period of the re-evaluation pass, and therefore
	// the length of one hysteresis cycle.
	ReevaluateEvery time.Duration

	Pools PoolSizes

	// PlatformConcurrency caps concurrent probes for channels sharing a
	// platform. Channels without a platform are not limited.
	PlatformConcurrency int

	// StartupSpread spreads first probes of newly registered channels over
	// this window using a hash of the channel ID. Zero makes them due at once.
	StartupSpread time.Duration

	Estimator  predict.Estimator
	Classifier predict.Classifier
	Alpha      history.Alpha

	// OnProbeError is called after a probe fails and the channel has been
	// requeued at its current tier.
	OnProbeError func(channelID string, err error)

	// ResultBuffer is the capacity of the results channel.
	ResultBuffer int

	// Now is the scheduler's clock. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.BaseInterval <= 0 {
		c.BaseInterval = DefaultBaseInterval
	}
	if c.FastCadence <= 0 {
		c.FastCadence = predict.FastCadence
	}
	if c.ReevaluateEvery <= 0 {
		c.ReevaluateEvery = DefaultReevaluateEvery
	}
	if c.Pools.Fast < 1 {
		c.Pools.Fast = DefaultPoolSizes.Fast
	}
	if c.Pools.Medium < 1 {
		c.Pools.Medium = DefaultPoolSizes.Medium
	}
	if c.Pools.Slow < 1 {
		c.Pools.Slow = DefaultPoolSizes.Slow
	}
	if c.PlatformConcurrency < 1 {
		c.PlatformConcurrency = DefaultPlatformConcurrency
	}
	if c.Alpha == (history.Alpha{}) {
		c.Alpha = history.DefaultAlpha
	}
	if c.ResultBuffer < 1 {
		c.ResultBuffer = defaultResultBuffer
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// channelState is the scheduler's record for one channel. All fields are
// guarded by mu.
type channelState struct {
	mu sync.Mutex

	id       string
	platform string
	base     time.Duration

	tier  predict.Tier
	below int // consecutive re-evaluation cycles below the High band
	state State

	isLive      bool
	nextDue     time.Time
	lastProbed  time.Time
	consistency float64
	likelihood  float64
	activity    history.Activity

	failures int
	lastErr  error

	// removed is set by Unregister. A worker holding the channel discards
	// its result instead of requeueing.
	removed bool
}

// Scheduler dispatches probes for registered channels across tiered worker pools.
//
// Each tier has its own queue and a fixed number of workers, which bounds the
// number of concurrent probes per tier. A channel leaves its queue when a
// worker takes it and is requeued, possibly on a different tier, once the
// probe returns.
//
// Register, Unregister, Status and Statuses are safe for concurrent use and
// may be called before or after Start. All lifecycle methods (Start, Stop)
// are safe for concurrent use.
type Scheduler struct {
	cfg     Config
	prober  Prober
	logger  *slog.Logger
	history *history.Store
	queues  map[predict.Tier]*tierQueue
	results chan Result

	regMu    sync.RWMutex
	channels map[string]*channelState

	// flying holds channel IDs with a probe outstanding. It outlives
	// Unregister so a quickly re-registered channel cannot be probed twice.
	flightMu sync.Mutex
	flying   map[string]struct{}

	semMu     sync.Mutex
	platforms map[string]chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a [Scheduler] that checks channels with prober.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(prober Prober, cfg Config) *Scheduler {
	cfg = cfg.withDefaults()

	queues := make(map[predict.Tier]*tierQueue, len(predict.Tiers))
	for _, t := range predict.Tiers {
		queues[t] = newTierQueue()
	}

	return &Scheduler{
		cfg:       cfg,
		prober:    prober,
		logger:    cfg.Logger,
		history:   history.NewStore(),
		queues:    queues,
		results:   make(chan Result, cfg.ResultBuffer),
		channels:  make(map[string]*channelState),
		flying:    make(map[string]struct{}),
		platforms: make(map[string]chan struct{}),
	}
}

// Results returns a receive-only channel that emits a [Result] for every
// completed probe.
//
// The channel is closed when the scheduler stops. Workers block while the
// channel is full, so consumers should read until it is closed.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// RegisterOption configures a channel at registration.
type RegisterOption func(*registration)

type registration struct {
	schedule *history.Schedule
	activity history.Activity
	platform string
}

// WithSchedule seeds the channel with a previously saved broadcast history.
func WithSchedule(s history.Schedule) RegisterOption {
	return func(r *registration) { r.schedule = &s }
}

// WithActivity seeds the channel's activity score and counters.
func WithActivity(a history.Activity) RegisterOption {
	return func(r *registration) { r.activity = a }
}

// WithPlatform groups the channel with others on the same platform for
// concurrency limiting.
func WithPlatform(platform string) RegisterOption {
	return func(r *registration) { r.platform = platform }
}

// Register starts monitoring channelID on the medium tier.
//
// Register is idempotent: registering a known channel is a no-op and returns
// nil. A zero base uses [Config.BaseInterval]. A corrupt seeded schedule is
// rejected with a [lwerrors.HistoryCorruptionError] and the channel is not
// registered.
func (s *Scheduler) Register(channelID string, base time.Duration, opts ...RegisterOption) error {
	if channelID == "" {
		return fmt.Errorf("register: channel id is required")
	}
	if base < 0 {
		return fmt.Errorf("register %s: base interval must be positive, got %v", channelID, base)
	}
	if base == 0 {
		base = s.cfg.BaseInterval
	}

	var r registration
	for _, opt := range opts {
		opt(&r)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	if _, ok := s.channels[channelID]; ok {
		return nil
	}

	if r.schedule != nil {
		if err := s.history.Load(channelID, *r.schedule); err != nil {
			return err
		}
	} else {
		s.history.Add(channelID)
	}

	now := s.cfg.Now()
	cs := &channelState{
		id:       channelID,
		platform: r.platform,
		base:     base,
		tier:     predict.Medium,
		state:    StateQueued,
		nextDue:  now.Add(s.stagger(channelID)),
		activity: r.activity,
	}
	schedule, _ := s.history.Snapshot(channelID)
	cs.consistency = history.Consistency(schedule)
	cs.likelihood = s.cfg.Estimator.Estimate(schedule, now)

	s.channels[channelID] = cs
	s.queues[predict.Medium].push(channelID, cs.nextDue, cs.activity.Score)

	s.logger.Debug("channel registered",
		"channel", channelID,
		"base_interval", base,
		"first_due", cs.nextDue,
	)
	return nil
}

// Unregister stops monitoring channelID.
//
// The channel is removed from its queue and the registry. If a probe is in
// flight its result is discarded when it returns. Returns an
// [lwerrors.InvalidChannelError] if the channel is not registered.
func (s *Scheduler) Unregister(channelID string) error {
	// history is removed under regMu, like it is added in Register
	s.regMu.Lock()
	cs, ok := s.channels[channelID]
	if ok {
		delete(s.channels, channelID)
		s.history.Remove(channelID)
	}
	s.regMu.Unlock()

	if !ok {
		return lwerrors.NewInvalidChannelError("unregister", channelID)
	}

	cs.mu.Lock()
	cs.removed = true
	s.queues[cs.tier].remove(channelID)
	cs.mu.Unlock()

	s.logger.Debug("channel unregistered", "channel", channelID)
	return nil
}

// Status returns a snapshot of channelID's scheduling state.
// Returns an [lwerrors.InvalidChannelError] if the channel is not registered.
func (s *Scheduler) Status(channelID string) (Status, error) {
	cs := s.lookup(channelID)
	if cs == nil {
		return Status{}, lwerrors.NewInvalidChannelError("status", channelID)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	return s.statusLocked(cs), nil
}

// Statuses returns a snapshot of every registered channel, sorted by ID.
func (s *Scheduler) Statuses() []Status {
	s.regMu.RLock()
	list := make([]*channelState, 0, len(s.channels))
	for _, cs := range s.channels {
		list = append(list, cs)
	}
	s.regMu.RUnlock()

	out := make([]Status, 0, len(list))
	for _, cs := range list {
		cs.mu.Lock()
		if !cs.removed {
			out = append(out, s.statusLocked(cs))
		}
		cs.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// Len returns the number of registered channels.
func (s *Scheduler) Len() int {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return len(s.channels)
}

// Start launches the tier worker pools and the re-evaluation loop.
//
// Start is non-blocking and returns immediately. Workers run until
// [Scheduler.Stop] is called or ctx is cancelled.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx

	for _, t := range predict.Tiers {
		for i := 0; i < s.cfg.Pools.of(t); i++ {
			s.wg.Add(1)
			go s.worker(runCtx, t)
		}
	}

	s.wg.Add(1)
	go s.reevaluateLoop(runCtx)

	s.logger.Info("scheduler started",
		"channels", s.Len(),
		"fast_workers", s.cfg.Pools.Fast,
		"medium_workers", s.cfg.Pools.Medium,
		"slow_workers", s.cfg.Pools.Slow,
		"reevaluate_every", s.cfg.ReevaluateEvery,
	)
}

// Stop halts the scheduler and waits for all goroutines to complete.
//
// Stop cancels the scheduler's context and blocks until:
//   - All workers exit, including any in-flight probes
//   - The re-evaluation loop exits
//   - The results channel is closed
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

func (s *Scheduler) lookup(channelID string) *channelState {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.channels[channelID]
}

// statusLocked builds a Status for cs. Must hold cs.mu.
func (s *Scheduler) statusLocked(cs *channelState) Status {
	schedule, _ := s.history.Snapshot(cs.id)
	return Status{
		ChannelID:    cs.id,
		Platform:     cs.platform,
		Tier:         cs.tier,
		State:        cs.state,
		IsLive:       cs.isLive,
		NextDueAt:    cs.nextDue,
		LastProbedAt: cs.lastProbed,
		BaseInterval: cs.base,
		Consistency:  cs.consistency,
		Likelihood:   cs.likelihood,
		Failures:     cs.failures,
		LastError:    cs.lastErr,
		Activity:     cs.activity,
		Schedule:     schedule,
	}
}

// cadence returns the polling period of tier for a channel with base interval.
func (s *Scheduler) cadence(tier predict.Tier, base time.Duration) time.Duration {
	return predict.CadenceWith(tier, base, s.cfg.FastCadence)
}

// stagger returns a deterministic offset in [0, StartupSpread) for channelID.
func (s *Scheduler) stagger(channelID string) time.Duration {
	if s.cfg.StartupSpread <= 0 {
		return 0
	}
	return time.Duration(xxh3.HashString(channelID) % uint64(s.cfg.StartupSpread))
}
