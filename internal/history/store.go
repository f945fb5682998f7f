package history

import (
	"sync"
	"time"

	lwerrors "github.com/jpalmerr/livewatch/internal/errors"
)

// Store holds one [Schedule] per channel.
//
// The channel map is guarded by a read-write lock that is only held to look
// entries up or change membership. Each entry has its own mutex, so recording
// for one channel never waits on another.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	schedule Schedule
}

// NewStore creates an empty [Store].
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Add starts tracking channelID with an empty schedule.
// Returns false if the channel was already tracked.
func (s *Store) Add(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[channelID]; ok {
		return false
	}
	s.entries[channelID] = &entry{}
	return true
}

// Load replaces the schedule of channelID, tracking it if needed.
// The schedule is validated first; a corrupt schedule is not stored.
func (s *Store) Load(channelID string, schedule Schedule) error {
	if err := schedule.Validate(); err != nil {
		return bindChannel(channelID, err)
	}

	e := s.getOrCreate(channelID)
	e.mu.Lock()
	e.schedule = schedule
	e.mu.Unlock()
	return nil
}

// Record adds the broadcast start observed at ts to the channel's schedule.
//
// Returns an [lwerrors.InvalidChannelError] if the channel is not tracked and
// an [lwerrors.HistoryCorruptionError] if its schedule is corrupt.
func (s *Store) Record(channelID string, ts time.Time) error {
	e := s.get(channelID)
	if e == nil {
		return lwerrors.NewInvalidChannelError("record broadcast", channelID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return bindChannel(channelID, e.schedule.Record(ts))
}

// Snapshot returns a copy of the channel's schedule.
func (s *Store) Snapshot(channelID string) (Schedule, bool) {
	e := s.get(channelID)
	if e == nil {
		return Schedule{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.schedule, true
}

// Remove stops tracking channelID. Unknown channels are ignored.
func (s *Store) Remove(channelID string) {
	s.mu.Lock()
	delete(s.entries, channelID)
	s.mu.Unlock()
}

// Len returns the number of tracked channels.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) get(channelID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[channelID]
}

func (s *Store) getOrCreate(channelID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[channelID]
	if !ok {
		e = &entry{}
		s.entries[channelID] = e
	}
	return e
}

// bindChannel fills in the channel ID on corruption errors raised by a Schedule.
func bindChannel(channelID string, err error) error {
	var cerr *lwerrors.HistoryCorruptionError
	if lwerrors.As(err, &cerr) && cerr.ChannelID == "" {
		cerr.ChannelID = channelID
	}
	return err
}
