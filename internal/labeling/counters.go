package labeling

import "math"

const (
	// InitialTarget is the number of items in a fresh session.
	InitialTarget = 20
	// ExtendedTarget is the target after the user accepts ten more.
	ExtendedTarget = 30
)

// Counters tracks progress and correctness for one labeling session
type Counters struct {
	Target    int `json:"target"`
	Completed int `json:"completed"`
	Correct   int `json:"correct"`
	Wrong     int `json:"wrong"`
}

func NewCounters() Counters {
	return Counters{Target: InitialTarget}
}

// RecordOutcome counts one finalized submission. A nil flag means the
// backend did not grade it.
func (c *Counters) RecordOutcome(correct *bool) {
	c.Completed++
	if correct == nil {
		return
	}
	if *correct {
		c.Correct++
	} else {
		c.Wrong++
	}
}

// ProgressPercent returns the completion percentage clamped to [0,100].
func (c Counters) ProgressPercent() int {
	if c.Target <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(c.Completed) / float64(c.Target)))
	return min(100, max(0, pct))
}
