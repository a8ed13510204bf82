package engine

// PhaseClock is the countdown primitive for a single phase. It holds the
// phase's total length and the seconds left, and only ever moves one second at
// a time on an external trigger. It never goes negative.
type PhaseClock struct {
	totalSeconds     int
	remainingSeconds int
}

func NewPhaseClock(totalSeconds int) *PhaseClock {
	c := &PhaseClock{}
	c.SetPhase(totalSeconds, totalSeconds)
	return c
}

// SetPhase resets the clock for a new phase. Violating inputs are clamped, not
// rejected, so the countdown stays displayable.
func (c *PhaseClock) SetPhase(totalSeconds, remainingSeconds int) {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	if remainingSeconds > totalSeconds {
		remainingSeconds = totalSeconds
	}
	c.totalSeconds = totalSeconds
	c.remainingSeconds = remainingSeconds
}

// Tick consumes one elapsed second. A tick at zero is a no-op.
func (c *PhaseClock) Tick() {
	if c.remainingSeconds > 0 {
		c.remainingSeconds--
	}
}

func (c *PhaseClock) Remaining() int { return c.remainingSeconds }

func (c *PhaseClock) Total() int { return c.totalSeconds }

func (c *PhaseClock) Elapsed() int { return c.totalSeconds - c.remainingSeconds }

func (c *PhaseClock) Expired() bool { return c.remainingSeconds == 0 }

// ProgressPercent reports how far through the phase the countdown is, clamped
// to [0,100]. A zero-length phase reads as 0.
func (c *PhaseClock) ProgressPercent() float64 {
	if c.totalSeconds == 0 {
		return 0
	}
	p := float64(c.totalSeconds-c.remainingSeconds) / float64(c.totalSeconds) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
