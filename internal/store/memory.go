package store

import (
	"sort"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Statuses are keyed by channel ID, with new statuses replacing previous
// values. Subscribers receive updates via buffered channels (buffer size 100).
// Updates are sent non-blocking; if a subscriber's buffer is full, the update
// is dropped for that subscriber to prevent blocking the entire system.
type MemoryStore struct {
	mu          sync.RWMutex
	statuses    map[string]ChannelStatus
	subscribers map[chan ChannelStatus]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]ChannelStatus),
		subscribers: make(map[chan ChannelStatus]struct{}),
	}
}

// Update stores a [ChannelStatus] and notifies all subscribers.
func (m *MemoryStore) Update(status ChannelStatus) {
	m.mu.Lock()
	m.statuses[status.ID] = status
	m.mu.Unlock()

	m.notifySubscribers(status)
}

// Get returns the stored status for id.
func (m *MemoryStore) Get(id string) (ChannelStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[id]
	return status, ok
}

// GetAll returns a snapshot of all stored statuses ordered by ID.
func (m *MemoryStore) GetAll() []ChannelStatus {
	m.mu.RLock()
	results := make([]ChannelStatus, 0, len(m.statuses))
	for _, status := range m.statuses {
		results = append(results, status)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// Remove deletes the status for id and publishes an unregistered event.
func (m *MemoryStore) Remove(id string) {
	m.mu.Lock()
	status, ok := m.statuses[id]
	delete(m.statuses, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	m.notifySubscribers(ChannelStatus{
		ID:       id,
		URL:      status.URL,
		Platform: status.Platform,
		Labels:   status.Labels,
		State:    StateUnregistered,
	})
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan ChannelStatus {
	ch := make(chan ChannelStatus, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan ChannelStatus) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers fans status out to every subscriber without blocking.
func (m *MemoryStore) notifySubscribers(status ChannelStatus) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- status:
		default:
			// subscriber is slow, drop the message
		}
	}
}
