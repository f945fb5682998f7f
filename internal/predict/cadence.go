package predict

import "time"

// FastCadence is the polling period of the Fast tier.
const FastCadence = 60 * time.Second

// Cadence returns the polling period for tier given the channel's base interval.
func Cadence(tier Tier, base time.Duration) time.Duration {
	return CadenceWith(tier, base, FastCadence)
}

// CadenceWith is [Cadence] with a custom Fast period.
func CadenceWith(tier Tier, base, fast time.Duration) time.Duration {
	switch tier {
	case Fast:
		return fast
	case Slow:
		return base * 2
	default:
		return base / 2
	}
}
