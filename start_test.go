package livewatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func offlineProbe(ctx context.Context, ch Channel) (ProbeResult, error) {
	return ProbeResult{}, nil
}

// TestStart_BlocksUntilContextCancelled verifies that Start blocks until the
// provided context is cancelled.
func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	ch, err := NewChannel("alice", ts.URL)
	if err != nil {
		t.Fatalf("NewChannel() error = %v", err)
	}

	lw, err := New(
		WithChannel(ch),
		WithPort(19001),
		WithBaseInterval(time.Second),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lw.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("Start() returned early with error: %v", err)
	default:
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

// TestStart_ReturnsImmediatelyIfContextAlreadyCancelled verifies that Start
// returns immediately if the context is already cancelled.
func TestStart_ReturnsImmediatelyIfContextAlreadyCancelled(t *testing.T) {
	ch, _ := NewChannel("alice", "https://example.tv/alice")

	lw, err := New(
		WithChannel(ch),
		WithProbe(offlineProbe),
		WithPort(19002),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- lw.Start(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return with already-cancelled context")
	}
}

func TestStart_SecondCallFails(t *testing.T) {
	ch, _ := NewChannel("alice", "https://example.tv/alice")

	lw, err := New(
		WithChannel(ch),
		WithProbe(offlineProbe),
		WithPort(19003),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = lw.Start(ctx)

	if err := lw.Start(context.Background()); err == nil {
		t.Error("second Start() should return an error")
	}
}

// TestStart_MultipleSequentialRuns verifies that a new LiveWatch can be
// started after the previous one shuts down.
func TestStart_MultipleSequentialRuns(t *testing.T) {
	for i := 0; i < 3; i++ {
		ch, _ := NewChannel("alice", "https://example.tv/alice")

		lw, err := New(
			WithChannel(ch),
			WithProbe(offlineProbe),
			WithPort(19004+i),
			WithLogger(testLogger()),
		)
		if err != nil {
			t.Fatalf("iteration %d: New() error = %v", i, err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- lw.Start(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("iteration %d: Start() returned error: %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("iteration %d: Start() did not return", i)
		}
	}
}

// TestStart_ConcurrentAccess verifies registry calls are safe while running.
func TestStart_ConcurrentAccess(t *testing.T) {
	lw, err := New(
		WithProbe(offlineProbe),
		WithBaseInterval(time.Second),
		WithPort(19010),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = lw.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, _ := NewChannel(fmt.Sprintf("ch-%d", i), "https://example.tv/live")
			if err := lw.Register(ch); err != nil {
				t.Errorf("Register() error = %v", err)
			}
			_ = lw.Statuses()
			_ = lw.Channels()
			_, _ = lw.Status(ch.ID())
			if i%2 == 0 {
				if err := lw.Unregister(ch.ID()); err != nil {
					t.Errorf("Unregister() error = %v", err)
				}
			}
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("goroutines did not complete")
	}

	if got := len(lw.Channels()); got != 5 {
		t.Errorf("len(Channels()) = %d, want 5", got)
	}
}

// TestStart_WithTimeoutContext verifies Start respects deadline contexts.
func TestStart_WithTimeoutContext(t *testing.T) {
	ch, _ := NewChannel("alice", "https://example.tv/alice")

	lw, err := New(
		WithChannel(ch),
		WithProbe(offlineProbe),
		WithPort(19011),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = lw.Start(ctx)
	elapsed := time.Since(start)

	if elapsed < 150*time.Millisecond || elapsed > 2*time.Second {
		t.Errorf("Start() ran for %v, expected ~200ms", elapsed)
	}
	if err != nil {
		t.Errorf("Start() error = %v", err)
	}
}

func TestStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()
	p := ln.Addr().(*net.TCPAddr).Port

	ch, _ := NewChannel("alice", "https://example.tv/alice")
	lw, err := New(
		WithChannel(ch),
		WithProbe(offlineProbe),
		WithPort(p),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- lw.Start(context.Background())
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Start() should fail when the port is taken")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return on bind failure")
	}
}

func TestStart_ServesAPI(t *testing.T) {
	ch, _ := NewChannel("alice", "https://example.tv/alice", WithPlatform("example"))

	lw, err := New(
		WithChannel(ch),
		WithProbe(func(ctx context.Context, ch Channel) (ProbeResult, error) {
			return ProbeResult{IsLive: true}, nil
		}),
		WithPort(19012),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lw.Start(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	var body []map[string]any
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://localhost:19012/api/channels")
		if err == nil {
			body = nil
			_ = json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			if len(body) == 1 && body[0]["live"] == true {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}

	if len(body) != 1 {
		t.Fatalf("GET /api/channels returned %d channels, want 1", len(body))
	}
	if body[0]["id"] != "alice" {
		t.Errorf("id = %v, want alice", body[0]["id"])
	}
	if body[0]["live"] != true {
		t.Errorf("live = %v, want true", body[0]["live"])
	}
	if body[0]["tier"] != "fast" {
		t.Errorf("tier = %v, want fast", body[0]["tier"])
	}
}

// TestStart_ReturnsWithSlowProbeInFlight cancels Start while the default HTTP
// prober is waiting on a slow server.
func TestStart_ReturnsWithSlowProbeInFlight(t *testing.T) {
	requested := make(chan struct{})
	var once sync.Once
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(requested) })
		select {
		case <-r.Context().Done():
		case <-time.After(30 * time.Second):
		}
	}))
	defer ts.Close()

	ch, _ := NewChannel("alice", ts.URL, WithTimeout(time.Minute))
	lw, err := New(
		WithChannel(ch),
		WithPort(19013),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lw.Start(ctx)
	}()

	select {
	case <-requested:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server never received a request")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start() did not return after cancel with a probe in flight")
	}
}
