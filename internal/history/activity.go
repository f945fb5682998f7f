package history

import (
	"math"
	"time"
)

const (
	// inactivityGrace is how long a channel may go unseen before extra decay applies.
	inactivityGrace = 30 * 24 * time.Hour
	// maxExtraDecayDays caps the number of days of extra decay.
	maxExtraDecayDays = 60
	// extraDecayPerDay multiplies the score once per day past the grace period.
	extraDecayPerDay = 0.99
	// counterCeiling is the check count above which both counters are halved.
	counterCeiling = 100
)

// Alpha holds the smoothing factors used by [Activity.Observe].
type Alpha struct {
	// Active is applied when the probe found the channel live.
	Active float64
	// Offline is applied when the probe found it offline. Keeping it much
	// smaller than Active makes a single live sighting outweigh many misses.
	Offline float64
}

// DefaultAlpha is the default smoothing: slow to forget, quick to notice.
var DefaultAlpha = Alpha{Active: 0.1, Offline: 0.005}

// Activity tracks how often a channel is found live.
type Activity struct {
	// Score is an exponential moving average of live observations in [0, 1].
	Score float64 `json:"score"`

	// Checks and Found count probes and live results. Both are halved once
	// Checks exceeds 100 so the ratio follows recent behaviour.
	Checks int `json:"checks"`
	Found  int `json:"found"`

	// LastSeenLive is when the channel was last observed live.
	LastSeenLive time.Time `json:"last_seen_live"`
}

// Observe folds one probe outcome into the activity at time now.
func (a *Activity) Observe(live bool, now time.Time, alpha Alpha) {
	if live {
		a.LastSeenLive = now
	}

	rate, target := alpha.Offline, 0.0
	if live {
		rate, target = alpha.Active, 1.0
	}
	a.Score = a.Score*(1-rate) + target*rate

	if !a.LastSeenLive.IsZero() {
		if idle := now.Sub(a.LastSeenLive); idle > inactivityGrace {
			days := int((idle - inactivityGrace) / (24 * time.Hour))
			if days > maxExtraDecayDays {
				days = maxExtraDecayDays
			}
			a.Score *= math.Pow(extraDecayPerDay, float64(days))
		}
	}

	a.Checks++
	if live {
		a.Found++
	}
	if a.Checks > counterCeiling {
		a.Checks /= 2
		a.Found /= 2
	}
}

// Ratio returns Found/Checks, or 0 before the first check.
func (a Activity) Ratio() float64 {
	if a.Checks == 0 {
		return 0
	}
	return float64(a.Found) / float64(a.Checks)
}
