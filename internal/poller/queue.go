package poller

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

type queueItem struct {
	id    string
	due   time.Time
	score float64
	index int
}

// itemHeap orders items by due time, then by higher activity score.
type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].score > h[j].score
	}
	return h[i].due.Before(h[j].due)
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// tierQueue is a concurrency-safe due-time queue for one tier.
//
// Waiters in pop are woken whenever the queue changes, so a push of an
// earlier item shortens their sleep.
type tierQueue struct {
	mu      sync.Mutex
	items   itemHeap
	byID    map[string]*queueItem
	changed chan struct{}
}

func newTierQueue() *tierQueue {
	return &tierQueue{
		byID:    make(map[string]*queueItem),
		changed: make(chan struct{}),
	}
}

// push adds id due at due, or reschedules it if already queued.
func (q *tierQueue) push(id string, due time.Time, score float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.byID[id]; ok {
		item.due = due
		item.score = score
		heap.Fix(&q.items, item.index)
	} else {
		item := &queueItem{id: id, due: due, score: score}
		heap.Push(&q.items, item)
		q.byID[id] = item
	}
	q.notify()
}

// remove drops id from the queue. Returns false if it was not queued.
func (q *tierQueue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&q.items, item.index)
	delete(q.byID, id)
	q.notify()
	return true
}

// contains reports whether id is queued.
func (q *tierQueue) contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.byID[id]
	return ok
}

func (q *tierQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// pop blocks until the earliest item is due, removes it and returns its id.
// Returns ctx.Err() once ctx is done, even if items are due.
func (q *tierQueue) pop(ctx context.Context, now func() time.Time) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		q.mu.Lock()
		changed := q.changed
		wait := time.Duration(-1)
		if len(q.items) > 0 {
			head := q.items[0]
			wait = head.due.Sub(now())
			if wait <= 0 {
				heap.Pop(&q.items)
				delete(q.byID, head.id)
				q.mu.Unlock()
				return head.id, nil
			}
		}
		q.mu.Unlock()

		var timer *time.Timer
		var fire <-chan time.Time
		if wait > 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return "", ctx.Err()
		case <-changed:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// notify wakes every goroutine blocked in pop. Must hold q.mu.
func (q *tierQueue) notify() {
	close(q.changed)
	q.changed = make(chan struct{})
}
