package livewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/livewatch/dashboard"
	lwerrors "github.com/jpalmerr/livewatch/internal/errors"
	"github.com/jpalmerr/livewatch/internal/persist"
	"github.com/jpalmerr/livewatch/internal/poller"
	"github.com/jpalmerr/livewatch/internal/predict"
	"github.com/jpalmerr/livewatch/internal/probe"
	"github.com/jpalmerr/livewatch/internal/server"
	"github.com/jpalmerr/livewatch/internal/store"
)

const (
	defaultBaseInterval = 5 * time.Minute
	defaultPort         = 8080
)

// LiveWatch watches stream channels and polls each one at a rate matched to
// how likely it is to be live.
//
// Channels start on the medium tier. A channel is promoted to the fast tier
// as a broadcast hour it has used before approaches, and demoted to the slow
// tier on weekdays it never broadcasts. Broadcast starts are learned from
// probe results.
//
// The typical lifecycle is:
//
//	lw, err := livewatch.New(livewatch.WithChannel(ch))
//	if err != nil {
//	    slog.Error("failed to create livewatch", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	lw.Start(ctx) // blocks until context cancelled
type LiveWatch struct {
	title              string
	port               int
	baseInterval       time.Duration
	logger             *slog.Logger
	statusCallbacks    []func(StatusResult)
	probeErrorHandlers []func(string, error)

	scheduler *poller.Scheduler
	statuses  *store.MemoryStore
	client    *probe.Client

	state    *persist.Store
	saver    *persist.Saver
	restored map[string]persist.State

	mu       sync.RWMutex
	channels map[string]Channel

	startMu sync.Mutex
	started bool
}

// New creates a [LiveWatch] with the given options.
//
// Channels may be given up front with [WithChannel] or added later with
// [LiveWatch.Register]. Channel IDs must be unique. When a state store is
// configured, New opens it and restores saved broadcast history; the store
// is closed when [LiveWatch.Start] returns, or by [LiveWatch.Close].
//
// Example:
//
//	lw, err := livewatch.New(
//	    livewatch.WithChannels(channels...),
//	    livewatch.WithBaseInterval(10 * time.Minute),
//	    livewatch.WithStateStore("sqlite", "./livewatch.db"),
//	)
func New(opts ...Option) (*LiveWatch, error) {
	cfg := &lwConfig{
		baseInterval: defaultBaseInterval,
		port:         defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(cfg.channels))
	for _, ch := range cfg.channels {
		if ch.id == "" {
			return nil, errors.New("channel must be created with NewChannel")
		}
		if seen[ch.id] {
			return nil, fmt.Errorf("duplicate channel id: %q", ch.id)
		}
		seen[ch.id] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	lw := &LiveWatch{
		title:              cfg.title,
		port:               cfg.port,
		baseInterval:       cfg.baseInterval,
		logger:             logger,
		statusCallbacks:    cfg.statusCallbacks,
		probeErrorHandlers: cfg.probeErrorHandlers,
		statuses:           store.NewMemoryStore(),
		channels:           make(map[string]Channel),
	}

	var prober poller.Prober
	if cfg.probe != nil {
		prober = &funcProber{fn: cfg.probe, lookup: lw.channel}
	} else {
		lw.client = probe.NewClient()
		prober = &httpProber{client: lw.client, lookup: lw.channel}
	}

	lw.scheduler = poller.NewScheduler(prober, poller.Config{
		BaseInterval:        cfg.baseInterval,
		ReevaluateEvery:     cfg.reevaluateEvery,
		Pools:               poller.PoolSizes{Fast: cfg.pools[0], Medium: cfg.pools[1], Slow: cfg.pools[2]},
		PlatformConcurrency: cfg.platformConcurrency,
		StartupSpread:       cfg.startupSpread,
		Estimator:           predict.Estimator{ConfidenceFloor: cfg.confidenceFloor},
		OnProbeError:        lw.dispatchProbeError,
		Now:                 cfg.now,
		Logger:              logger,
	})

	if cfg.stateDriver != "" {
		if err := lw.openState(cfg); err != nil {
			return nil, err
		}
	}

	for _, ch := range cfg.channels {
		if err := lw.Register(ch); err != nil {
			_ = lw.Close()
			return nil, fmt.Errorf("register %s: %w", ch.id, err)
		}
	}

	return lw, nil
}

// openState connects the state store and loads every saved channel.
func (lw *LiveWatch) openState(cfg *lwConfig) error {
	st, err := persist.Open(cfg.stateDriver, cfg.stateDSN)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	restored, err := st.LoadAll(context.Background())
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("load state: %w", err)
	}

	lw.state = st
	lw.saver = persist.NewSaver(st, cfg.stateFlushInterval, lw.logger)
	lw.restored = restored
	lw.logger.Info("state restored", "driver", st.Driver(), "channels", len(restored))
	return nil
}

// Register starts watching ch.
//
// Register is idempotent: registering an ID that is already watched is a
// no-op and returns nil. It may be called before or after [LiveWatch.Start].
// Saved history for the ID is restored when a state store is configured.
func (lw *LiveWatch) Register(ch Channel) error {
	if ch.id == "" {
		return errors.New("channel must be created with NewChannel")
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()

	if _, ok := lw.channels[ch.id]; ok {
		return nil
	}

	opts := []poller.RegisterOption{poller.WithPlatform(ch.platform)}
	if saved, ok := lw.restored[ch.id]; ok {
		opts = append(opts, poller.WithSchedule(saved.Schedule), poller.WithActivity(saved.Activity))
	}

	if err := lw.scheduler.Register(ch.id, ch.interval, opts...); err != nil {
		return err
	}
	lw.channels[ch.id] = ch

	if st, err := lw.scheduler.Status(ch.id); err == nil {
		lw.statuses.Update(toStoreStatus(ch, st, 0, nil))
	}
	return nil
}

// Unregister stops watching the channel. A probe already in flight is
// allowed to finish and its result is discarded. Saved state for the channel
// is deleted.
//
// Returns an [*InvalidChannelError] if the channel is not watched.
func (lw *LiveWatch) Unregister(channelID string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if err := lw.scheduler.Unregister(channelID); err != nil {
		return err
	}
	delete(lw.channels, channelID)
	delete(lw.restored, channelID)
	lw.statuses.Remove(channelID)
	if lw.saver != nil {
		lw.saver.Forget(channelID)
	}
	return nil
}

// Status returns the current status of a channel.
//
// Returns an [*InvalidChannelError] if the channel is not watched.
func (lw *LiveWatch) Status(channelID string) (ChannelStatus, error) {
	ch, ok := lw.channel(channelID)
	if !ok {
		return ChannelStatus{}, lwerrors.NewInvalidChannelError("status", channelID)
	}
	st, err := lw.scheduler.Status(channelID)
	if err != nil {
		return ChannelStatus{}, err
	}
	return toChannelStatus(ch, st), nil
}

// Statuses returns the status of every watched channel, ordered by ID.
func (lw *LiveWatch) Statuses() []ChannelStatus {
	all := lw.scheduler.Statuses()
	out := make([]ChannelStatus, 0, len(all))
	for _, st := range all {
		if ch, ok := lw.channel(st.ChannelID); ok {
			out = append(out, toChannelStatus(ch, st))
		}
	}
	return out
}

// Channels returns the watched channels ordered by ID.
func (lw *LiveWatch) Channels() []Channel {
	lw.mu.RLock()
	out := make([]Channel, 0, len(lw.channels))
	for _, ch := range lw.channels {
		out = append(out, ch)
	}
	lw.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Port returns the configured HTTP port.
func (lw *LiveWatch) Port() int {
	return lw.port
}

// BaseInterval returns the base interval for channels without their own.
func (lw *LiveWatch) BaseInterval() time.Duration {
	return lw.baseInterval
}

// Start begins probing channels and serving the dashboard.
//
// Start blocks until ctx is cancelled. During execution:
//
//   - Tier worker pools probe channels as they fall due
//   - Tiers are re-evaluated periodically against each channel's history
//   - The dashboard and API are served on the configured port
//   - Broadcast history is flushed to the state store, if configured
//
// Returns nil on graceful shutdown, or an error if the HTTP server fails to
// start or Start was already called.
func (lw *LiveWatch) Start(ctx context.Context) error {
	lw.startMu.Lock()
	if lw.started {
		lw.startMu.Unlock()
		return errors.New("livewatch already started")
	}
	lw.started = true
	lw.startMu.Unlock()

	defer func() {
		if err := lw.Close(); err != nil {
			lw.logger.Error("close failed", "error", err)
		}
	}()

	lw.logger.Info("livewatch starting", "channel_count", lw.scheduler.Len())
	lw.logger.Info("polling configured", "base_interval", lw.baseInterval.String())
	lw.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", lw.port))

	if ctx.Err() != nil {
		return nil
	}

	saverCtx, stopSaver := context.WithCancel(context.Background())
	var saverWG sync.WaitGroup
	if lw.saver != nil {
		saverWG.Add(1)
		go func() {
			defer saverWG.Done()
			lw.saver.Run(saverCtx)
		}()
	}

	lw.scheduler.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range lw.scheduler.Results() {
			lw.handleResult(result)
		}
	}()

	// the results consumer must drain before the saver takes its final flush
	cleanup := func() {
		lw.scheduler.Stop()
		wg.Wait()
		stopSaver()
		saverWG.Wait()
	}

	httpServer := server.NewServer(lw.statuses, lw, lw.port, dashboard.Assets, lw.title, lw.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	lw.logger.Info("livewatch stopped")
	return nil
}

// Close releases the probe client and the state store. It is called by
// [LiveWatch.Start] on return and only needs calling directly when Start is
// never run.
func (lw *LiveWatch) Close() error {
	if lw.client != nil {
		lw.client.Close()
	}
	if lw.state == nil {
		return nil
	}
	err := lw.state.Close()
	lw.state = nil
	return err
}

// handleResult applies one probe result: status store, saved state,
// callbacks, then logging.
func (lw *LiveWatch) handleResult(result poller.Result) {
	ch, ok := lw.record(result)
	if !ok {
		// unregistered after the probe completed
		return
	}

	if len(lw.statusCallbacks) > 0 {
		public := StatusResult{
			ChannelStatus: toChannelStatus(ch, result.Status),
			WentLive:      result.WentLive,
			Latency:       result.Latency,
			CheckedAt:     result.LastProbedAt,
			Metadata:      copyMap(result.Metadata),
		}
		for _, cb := range lw.statusCallbacks {
			invokeCallbackSafe(cb, public, lw.logger)
		}
	}

	logAttrs := []any{
		"channel", result.ChannelID,
		"live", result.IsLive,
		"tier", result.Tier,
		"likelihood", result.Likelihood,
		"next_due", result.NextDueAt,
		"latency_ms", result.Latency.Milliseconds(),
	}
	switch {
	case result.State == poller.StateHalted:
		// already logged at error level by the scheduler
	case result.LastError != nil:
		lw.logger.Debug("probe completed with error", append(logAttrs, "error", result.LastError.Error())...)
	case result.WentLive:
		lw.logger.Info("channel live", logAttrs...)
	default:
		lw.logger.Debug("probe completed", logAttrs...)
	}
}

// record publishes result to the status store and queues its state for
// saving. Unregister cannot run between the lookup and the save.
func (lw *LiveWatch) record(result poller.Result) (Channel, bool) {
	lw.mu.RLock()
	defer lw.mu.RUnlock()

	ch, ok := lw.channels[result.ChannelID]
	if !ok {
		return Channel{}, false
	}

	lw.statuses.Update(toStoreStatus(ch, result.Status, result.Latency, result.Metadata))

	if lw.saver != nil {
		lw.saver.Queue(persist.State{
			ChannelID: result.ChannelID,
			Tier:      result.Tier,
			Schedule:  result.Schedule,
			Activity:  result.Activity,
			UpdatedAt: result.LastProbedAt,
		})
	}
	return ch, true
}

// channel looks up a watched channel by ID.
func (lw *LiveWatch) channel(id string) (Channel, bool) {
	lw.mu.RLock()
	defer lw.mu.RUnlock()
	ch, ok := lw.channels[id]
	return ch, ok
}

// dispatchProbeError fans a probe failure out to every registered handler.
func (lw *LiveWatch) dispatchProbeError(channelID string, err error) {
	for _, fn := range lw.probeErrorHandlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					lw.logger.Error("probe error handler panicked", "panic", r, "channel", channelID)
				}
			}()
			fn(channelID, err)
		}()
	}
}

// invokeCallbackSafe calls a status callback with panic recovery.
func invokeCallbackSafe(cb func(StatusResult), result StatusResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"panic", r,
				"channel", result.ChannelID,
			)
		}
	}()
	cb(result)
}

func toChannelStatus(ch Channel, st poller.Status) ChannelStatus {
	return ChannelStatus{
		ChannelID:     st.ChannelID,
		URL:           ch.url,
		Platform:      ch.platform,
		Labels:        copyMap(ch.labels),
		Tier:          st.Tier,
		State:         st.State.String(),
		IsLive:        st.IsLive,
		NextDueAt:     st.NextDueAt,
		LastProbedAt:  st.LastProbedAt,
		BaseInterval:  st.BaseInterval,
		Consistency:   st.Consistency,
		Likelihood:    st.Likelihood,
		ActivityScore: st.Activity.Score,
		LiveRatio:     st.Activity.Ratio(),
		Failures:      st.Failures,
		LastError:     st.LastError,
		Schedule:      st.Schedule.Week(),
	}
}

func toStoreStatus(ch Channel, st poller.Status, latency time.Duration, metadata map[string]string) store.ChannelStatus {
	var errStr *string
	if st.LastError != nil {
		s := st.LastError.Error()
		errStr = &s
	}

	schedule := make(map[string][]int)
	for wd, hours := range st.Schedule.Week() {
		schedule[strings.ToLower(wd.String())] = hours
	}

	return store.ChannelStatus{
		ID:             st.ChannelID,
		URL:            ch.url,
		Platform:       ch.platform,
		Labels:         copyMap(ch.labels),
		Tier:           st.Tier.String(),
		State:          st.State.String(),
		Live:           st.IsLive,
		Consistency:    st.Consistency,
		Likelihood:     st.Likelihood,
		Activity:       st.Activity.Score,
		LiveRatio:      st.Activity.Ratio(),
		NextDueAt:      st.NextDueAt,
		LastProbedAt:   st.LastProbedAt,
		LastLiveAt:     st.Activity.LastSeenLive,
		ResponseTimeMs: latency.Milliseconds(),
		Failures:       st.Failures,
		Schedule:       schedule,
		Metadata:       copyMap(metadata),
		Error:          errStr,
	}
}
