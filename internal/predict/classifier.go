package predict

// DefaultDemoteAfter is the number of consecutive re-evaluation cycles a Fast
// channel must score outside the High band before it is demoted.
const DefaultDemoteAfter = 2

// Classifier applies hysteresis to tier changes.
//
// The caller keeps a per-channel count of consecutive cycles spent below the
// High band and passes it back on every call. Promotion to Fast is always
// immediate; only demotion out of Fast is delayed.
type Classifier struct {
	// DemoteAfter is the number of consecutive out-of-band cycles needed to
	// leave Fast. Values below 1 use [DefaultDemoteAfter].
	DemoteAfter int
}

// Evaluate classifies score for one re-evaluation cycle.
//
// It returns the tier to apply and the updated below-band counter.
func (c Classifier) Evaluate(current Tier, below int, score float64) (Tier, int) {
	target := Classify(score)
	if target == Fast {
		return Fast, 0
	}
	if current != Fast {
		return target, 0
	}

	below++
	if below >= c.demoteAfter() {
		return target, 0
	}
	return Fast, below
}

// Refresh classifies score outside the re-evaluation cycle, for example right
// after a probe completes. It never advances the counter, so a Fast channel
// stays Fast until enough cycles have passed.
func (c Classifier) Refresh(current Tier, below int, score float64) (Tier, int) {
	target := Classify(score)
	if target == Fast {
		return Fast, 0
	}
	if current == Fast {
		return Fast, below
	}
	return target, 0
}

func (c Classifier) demoteAfter() int {
	if c.DemoteAfter < 1 {
		return DefaultDemoteAfter
	}
	return c.DemoteAfter
}
