package livewatch

import (
	"context"
	"testing"
	"time"
)

func TestOptions_Valid(t *testing.T) {
	probe := func(ctx context.Context, ch Channel) (ProbeResult, error) { return ProbeResult{}, nil }

	tests := []struct {
		name  string
		opt   Option
		check func(t *testing.T, cfg *lwConfig)
	}{
		{
			name: "base interval",
			opt:  WithBaseInterval(time.Minute),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.baseInterval != time.Minute {
					t.Errorf("baseInterval = %v", cfg.baseInterval)
				}
			},
		},
		{
			name: "port upper bound",
			opt:  WithPort(65535),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.port != 65535 {
					t.Errorf("port = %d", cfg.port)
				}
			},
		},
		{
			name: "title",
			opt:  WithTitle("Studio"),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.title != "Studio" {
					t.Errorf("title = %q", cfg.title)
				}
			},
		},
		{
			name: "probe",
			opt:  WithProbe(probe),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.probe == nil {
					t.Error("probe = nil")
				}
			},
		},
		{
			name: "pool sizes",
			opt:  WithPoolSizes(2, 4, 1),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.pools != [3]int{2, 4, 1} {
					t.Errorf("pools = %v", cfg.pools)
				}
			},
		},
		{
			name: "reevaluation period",
			opt:  WithReevaluationPeriod(30 * time.Second),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.reevaluateEvery != 30*time.Second {
					t.Errorf("reevaluateEvery = %v", cfg.reevaluateEvery)
				}
			},
		},
		{
			name: "confidence floor",
			opt:  WithConfidenceFloor(0.5),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.confidenceFloor != 0.5 {
					t.Errorf("confidenceFloor = %v", cfg.confidenceFloor)
				}
			},
		},
		{
			name: "platform concurrency",
			opt:  WithPlatformConcurrency(8),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.platformConcurrency != 8 {
					t.Errorf("platformConcurrency = %d", cfg.platformConcurrency)
				}
			},
		},
		{
			name: "startup spread",
			opt:  WithStartupSpread(time.Minute),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.startupSpread != time.Minute {
					t.Errorf("startupSpread = %v", cfg.startupSpread)
				}
			},
		},
		{
			name: "state store",
			opt:  WithStateStore("postgres", "postgres://localhost/livewatch"),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.stateDriver != "postgres" || cfg.stateDSN != "postgres://localhost/livewatch" {
					t.Errorf("state = %q %q", cfg.stateDriver, cfg.stateDSN)
				}
			},
		},
		{
			name: "state flush interval",
			opt:  WithStateFlushInterval(time.Second),
			check: func(t *testing.T, cfg *lwConfig) {
				if cfg.stateFlushInterval != time.Second {
					t.Errorf("stateFlushInterval = %v", cfg.stateFlushInterval)
				}
			},
		},
		{
			name: "nil callback ignored",
			opt:  WithStatusCallback(nil),
			check: func(t *testing.T, cfg *lwConfig) {
				if len(cfg.statusCallbacks) != 0 {
					t.Errorf("statusCallbacks = %d, want 0", len(cfg.statusCallbacks))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &lwConfig{}
			if err := tt.opt(cfg); err != nil {
				t.Fatalf("option error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"base interval too short", WithBaseInterval(500 * time.Millisecond)},
		{"base interval too long", WithBaseInterval(25 * time.Hour)},
		{"port zero", WithPort(0)},
		{"port too high", WithPort(65536)},
		{"nil logger", WithLogger(nil)},
		{"nil probe", WithProbe(nil)},
		{"zero pool", WithPoolSizes(1, 0, 1)},
		{"zero reevaluation period", WithReevaluationPeriod(0)},
		{"negative confidence floor", WithConfidenceFloor(-0.1)},
		{"confidence floor above one", WithConfidenceFloor(1.1)},
		{"zero platform concurrency", WithPlatformConcurrency(0)},
		{"negative startup spread", WithStartupSpread(-time.Second)},
		{"unknown driver", WithStateStore("mysql", "dsn")},
		{"empty dsn", WithStateStore("sqlite", "")},
		{"zero flush interval", WithStateFlushInterval(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opt(&lwConfig{}); err == nil {
				t.Error("option expected error")
			}
		})
	}
}

func TestWithClock_DrivesScheduler(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 20, 15, 0, 0, time.UTC)

	lw, err := New(
		WithProbe(offlineProbe),
		withClock(func() time.Time { return fixed }),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer lw.Close()

	ch, _ := NewChannel("alice", "https://example.tv/alice")
	_ = lw.Register(ch)

	st, _ := lw.Status("alice")
	if !st.NextDueAt.Equal(fixed) {
		t.Errorf("NextDueAt = %v, want %v", st.NextDueAt, fixed)
	}
}
