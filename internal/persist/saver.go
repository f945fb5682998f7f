package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultFlushInterval is how long queued states wait before being written.
const DefaultFlushInterval = 5 * time.Second

// flushTimeout bounds the final flush after Run's context is cancelled.
const flushTimeout = 5 * time.Second

// Saver coalesces state writes per channel and flushes them in batches.
//
// Probe results arrive far more often than a channel's history changes, so
// only the newest queued state of each channel is written.
type Saver struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]State
	deleted map[string]struct{}
}

// NewSaver creates a [Saver] writing to store every interval.
// A non-positive interval selects [DefaultFlushInterval].
func NewSaver(store *Store, interval time.Duration, logger *slog.Logger) *Saver {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		store:    store,
		interval: interval,
		logger:   logger,
		pending:  make(map[string]State),
		deleted:  make(map[string]struct{}),
	}
}

// Queue schedules st to be saved on the next flush, replacing any state
// already queued for the same channel.
func (s *Saver) Queue(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleted, st.ChannelID)
	s.pending[st.ChannelID] = st
}

// Forget drops any queued state for channelID and deletes its stored state
// on the next flush.
func (s *Saver) Forget(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, channelID)
	s.deleted[channelID] = struct{}{}
}

// Pending returns the number of queued saves and deletes.
func (s *Saver) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) + len(s.deleted)
}

// Flush writes everything queued so far. Failed writes are requeued unless a
// newer state was queued meanwhile; the first error is returned.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending, deleted := s.pending, s.deleted
	s.pending = make(map[string]State)
	s.deleted = make(map[string]struct{})
	s.mu.Unlock()

	var first error
	keep := func(err error) {
		if first == nil {
			first = err
		}
	}

	for id := range deleted {
		if err := s.store.Delete(ctx, id); err != nil {
			keep(err)
			s.mu.Lock()
			if _, requeued := s.pending[id]; !requeued {
				s.deleted[id] = struct{}{}
			}
			s.mu.Unlock()
		}
	}

	for id, st := range pending {
		if err := s.store.Save(ctx, st); err != nil {
			keep(err)
			s.mu.Lock()
			_, newer := s.pending[id]
			_, gone := s.deleted[id]
			if !newer && !gone {
				s.pending[id] = st
			}
			s.mu.Unlock()
		}
	}

	if len(pending)+len(deleted) > 0 {
		s.logger.Debug("state flushed", "saved", len(pending), "deleted", len(deleted), "error", first)
	}
	return first
}

// Run flushes every interval until ctx is cancelled, then flushes once more.
func (s *Saver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			if err := s.Flush(flushCtx); err != nil {
				s.logger.Error("final state flush failed", "error", err, "unsaved", s.Pending())
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.Warn("state flush failed", "error", err)
			}
		}
	}
}
