package livewatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/livewatch/internal/persist"
)

// lwConfig holds mutable state during LiveWatch construction.
type lwConfig struct {
	title               string
	channels            []Channel
	baseInterval        time.Duration
	port                int
	logger              *slog.Logger
	statusCallbacks     []func(StatusResult)
	probeErrorHandlers  []func(channelID string, err error)
	probe               ProbeFunc
	pools               [3]int
	reevaluateEvery     time.Duration
	confidenceFloor     float64
	platformConcurrency int
	startupSpread       time.Duration
	stateDriver         string
	stateDSN            string
	stateFlushInterval  time.Duration
	now                 func() time.Time
}

// Option configures a [LiveWatch] instance during construction.
// Options return an error if validation fails.
type Option func(*lwConfig) error

// WithChannel adds a single [Channel] to watch.
func WithChannel(c Channel) Option {
	return func(cfg *lwConfig) error {
		cfg.channels = append(cfg.channels, c)
		return nil
	}
}

// WithChannels adds several channels at once, e.g. the output of
// [NewChannelGrid].
func WithChannels(channels ...Channel) Option {
	return func(cfg *lwConfig) error {
		cfg.channels = append(cfg.channels, channels...)
		return nil
	}
}

// WithBaseInterval sets the base interval for channels without their own.
// The fast tier polls every minute, medium at half the base interval and
// slow at twice it. Defaults to 5 minutes.
//
// Returns an error if the interval is outside 1 second to 24 hours.
func WithBaseInterval(d time.Duration) Option {
	return func(cfg *lwConfig) error {
		if d < minChannelInterval || d > maxChannelInterval {
			return fmt.Errorf("base interval must be between 1s and 24h, got %v", d)
		}
		cfg.baseInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard and API. Defaults to 8080.
func WithPort(port int) Option {
	return func(cfg *lwConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *lwConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function called after every completed probe.
//
// Callbacks run synchronously, in registration order, on the goroutine that
// consumes probe results, so they must not block. Panics are recovered and
// logged. Nil callbacks are ignored.
//
// Example:
//
//	livewatch.WithStatusCallback(func(r livewatch.StatusResult) {
//	    if r.WentLive {
//	        notify(r.ChannelID)
//	    }
//	})
func WithStatusCallback(cb func(StatusResult)) Option {
	return func(cfg *lwConfig) error {
		if cb == nil {
			return nil
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}

// WithProbeErrorHandler registers a function called when a probe fails. The
// error is a [*ProbeError]. The channel has already been requeued at its
// current tier when the handler runs. Nil handlers are ignored.
func WithProbeErrorHandler(fn func(channelID string, err error)) Option {
	return func(cfg *lwConfig) error {
		if fn == nil {
			return nil
		}
		cfg.probeErrorHandlers = append(cfg.probeErrorHandlers, fn)
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "LiveWatch".
func WithTitle(title string) Option {
	return func(cfg *lwConfig) error {
		cfg.title = title
		return nil
	}
}

// WithProbe replaces the built-in HTTP probe. The channel's detector,
// method, headers and timeout are ignored; fn is responsible for its own
// timeouts.
func WithProbe(fn ProbeFunc) Option {
	return func(cfg *lwConfig) error {
		if fn == nil {
			return errors.New("probe cannot be nil")
		}
		cfg.probe = fn
		return nil
	}
}

// WithPoolSizes sets the number of workers per tier. Defaults to 1 fast,
// 2 medium and 1 slow.
func WithPoolSizes(fast, medium, slow int) Option {
	return func(cfg *lwConfig) error {
		if fast < 1 || medium < 1 || slow < 1 {
			return errors.New("each tier needs at least one worker")
		}
		cfg.pools = [3]int{fast, medium, slow}
		return nil
	}
}

// WithReevaluationPeriod sets how often queued channels have their tier
// re-evaluated. A fast channel is demoted after two consecutive periods
// outside the high band. Defaults to 1 minute.
func WithReevaluationPeriod(d time.Duration) Option {
	return func(cfg *lwConfig) error {
		if d <= 0 {
			return errors.New("reevaluation period must be positive")
		}
		cfg.reevaluateEvery = d
		return nil
	}
}

// WithConfidenceFloor sets the minimum history consistency required before
// a channel with no broadcasts on the current weekday is moved to the slow
// tier. Defaults to 0.2.
func WithConfidenceFloor(f float64) Option {
	return func(cfg *lwConfig) error {
		if f < 0 || f > 1 {
			return fmt.Errorf("confidence floor must be within [0, 1], got %v", f)
		}
		cfg.confidenceFloor = f
		return nil
	}
}

// WithPlatformConcurrency caps concurrent probes against one platform.
// Defaults to 3.
func WithPlatformConcurrency(n int) Option {
	return func(cfg *lwConfig) error {
		if n < 1 {
			return errors.New("platform concurrency must be positive")
		}
		cfg.platformConcurrency = n
		return nil
	}
}

// WithStartupSpread spreads the first probes of newly registered channels
// over d, so a large channel list does not hit platforms all at once.
func WithStartupSpread(d time.Duration) Option {
	return func(cfg *lwConfig) error {
		if d < 0 {
			return errors.New("startup spread cannot be negative")
		}
		cfg.startupSpread = d
		return nil
	}
}

// WithStateStore persists broadcast history to a SQL database so
// predictions survive restarts. driver is "sqlite" (dsn is a file path) or
// "postgres" (dsn is a connection string).
func WithStateStore(driver, dsn string) Option {
	return func(cfg *lwConfig) error {
		switch driver {
		case persist.DriverSQLite, persist.DriverPostgres:
		default:
			return fmt.Errorf("unsupported state store driver %q", driver)
		}
		if dsn == "" {
			return errors.New("state store dsn cannot be empty")
		}
		cfg.stateDriver = driver
		cfg.stateDSN = dsn
		return nil
	}
}

// WithStateFlushInterval sets how often persisted state is written.
// Defaults to 5 seconds.
func WithStateFlushInterval(d time.Duration) Option {
	return func(cfg *lwConfig) error {
		if d <= 0 {
			return errors.New("state flush interval must be positive")
		}
		cfg.stateFlushInterval = d
		return nil
	}
}

// withClock replaces the scheduler clock.
func withClock(now func() time.Time) Option {
	return func(cfg *lwConfig) error {
		cfg.now = now
		return nil
	}
}
