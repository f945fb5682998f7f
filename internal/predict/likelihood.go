package predict

import (
	"time"

	"github.com/jpalmerr/livewatch/internal/history"
)

// Band boundaries. Scores at or above HighBand classify as Fast, at or below
// LowBand as Slow, anything else as Medium. The estimator never produces a
// value strictly between LowBand and MediumBand.
const (
	HighBand   = 0.9
	MediumBand = 0.5
	LowBand    = 0.2
)

const (
	// DefaultConfidenceFloor is the minimum consistency needed to call a day
	// with no recorded hours an off-day.
	DefaultConfidenceFloor = 0.2
	// DefaultMinActiveDays is the minimum number of active weekdays needed to
	// call a day with no recorded hours an off-day.
	DefaultMinActiveDays = 1

	// highWindow is how far ahead of a recorded hour the High band starts.
	highWindow    = 60
	minutesPerDay = 24 * 60
)

// Estimator scores how likely a channel is to be live.
//
// The zero value uses [DefaultConfidenceFloor] and [DefaultMinActiveDays].
type Estimator struct {
	ConfidenceFloor float64
	MinActiveDays   int
}

// Estimate returns a likelihood in [0, 1] for the schedule at now.
//
// Hours are compared in now's location, so now should be in the same zone the
// schedule was recorded in.
func (e Estimator) Estimate(s history.Schedule, now time.Time) float64 {
	today := now.Weekday()
	hours := s.Hours(today)

	if len(hours) == 0 {
		if s.ActiveDays() >= e.minActiveDays() && history.Consistency(s) >= e.confidenceFloor() {
			return LowBand
		}
		return MediumBand
	}

	for _, h := range hours {
		if h == now.Hour() {
			return 1.0
		}
	}

	d := minutesUntil(hours, now)
	if d < highWindow {
		return clampBand(HighBand + (1-HighBand)*(1-d/highWindow))
	}
	return clampBand(MediumBand + 0.35*(1-d/minutesPerDay))
}

// minutesUntil returns the forward distance from now to the nearest of hours,
// wrapping past midnight to the next occurrence.
func minutesUntil(hours []int, now time.Time) float64 {
	cur := float64(now.Hour()*60+now.Minute()) + float64(now.Second())/60
	best := float64(minutesPerDay)
	for _, h := range hours {
		d := float64(h*60) - cur
		if d < 0 {
			d += minutesPerDay
		}
		if d < best {
			best = d
		}
	}
	return best
}

// clampBand keeps scores in [0, 1] and out of the (LowBand, MediumBand) gap.
func clampBand(score float64) float64 {
	switch {
	case score > 1:
		return 1
	case score < 0:
		return 0
	case score > LowBand && score < MediumBand:
		return MediumBand
	}
	return score
}

func (e Estimator) confidenceFloor() float64 {
	if e.ConfidenceFloor <= 0 {
		return DefaultConfidenceFloor
	}
	return e.ConfidenceFloor
}

func (e Estimator) minActiveDays() int {
	if e.MinActiveDays < 1 {
		return DefaultMinActiveDays
	}
	return e.MinActiveDays
}
