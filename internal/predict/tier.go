package predict

import "fmt"

// Tier is a polling priority class.
type Tier int

const (
	// Medium is the default tier for new and uncertain channels.
	Medium Tier = iota
	// Fast is used when a broadcast is under way or about to start.
	Fast
	// Slow is used on days the channel is confidently off-air.
	Slow
)

// Tiers lists every tier in dispatch-priority order.
var Tiers = []Tier{Fast, Medium, Slow}

func (t Tier) String() string {
	switch t {
	case Fast:
		return "fast"
	case Medium:
		return "medium"
	case Slow:
		return "slow"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	switch t {
	case Fast, Medium, Slow:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("invalid tier %d", int(t))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier parses the lower-case tier names produced by [Tier.String].
func ParseTier(s string) (Tier, error) {
	switch s {
	case "fast":
		return Fast, nil
	case "medium":
		return Medium, nil
	case "slow":
		return Slow, nil
	}
	return Medium, fmt.Errorf("unknown tier %q", s)
}

// Classify maps a likelihood score to a tier without hysteresis.
func Classify(score float64) Tier {
	switch {
	case score >= HighBand:
		return Fast
	case score <= LowBand:
		return Slow
	default:
		return Medium
	}
}
