package engine

import "focusflow/backend/internal/model"

// MicroBreakScheduler decides, once per elapsed focus-second, whether a
// micro-break should interrupt the current focus run. The reference point for
// the fairness window is elapsed focus time since the run started: it is not
// reset when a micro-break completes, so long-run micro-break frequency stays
// independent of how many have already fired.
type MicroBreakScheduler struct {
	gen                     IntervalGenerator
	nextIntervalSeconds     int
	lastMicroBreakAtSeconds int
}

func NewMicroBreakScheduler(gen IntervalGenerator) *MicroBreakScheduler {
	return &MicroBreakScheduler{gen: gen}
}

// OnFocusStart draws the first interval for a fresh focus run.
func (s *MicroBreakScheduler) OnFocusStart(settings model.TimerSettings) error {
	next, err := s.gen.NextInterval(settings.MicroBreakMinIntervalMinutes, settings.MicroBreakMaxIntervalMinutes)
	if err != nil {
		return err
	}
	s.nextIntervalSeconds = next
	s.lastMicroBreakAtSeconds = 0
	return nil
}

// ShouldTrigger reports whether enough focus time has elapsed since the last
// micro-break. Callers only evaluate this while the phase is Focus and active.
func (s *MicroBreakScheduler) ShouldTrigger(focusElapsedSeconds int) bool {
	if s.nextIntervalSeconds <= 0 {
		return false
	}
	return focusElapsedSeconds-s.lastMicroBreakAtSeconds >= s.nextIntervalSeconds
}

// OnTriggered records the trigger point and draws a fresh interval for the
// remainder of the run.
func (s *MicroBreakScheduler) OnTriggered(focusElapsedSeconds int, settings model.TimerSettings) error {
	s.lastMicroBreakAtSeconds = focusElapsedSeconds
	next, err := s.gen.NextInterval(settings.MicroBreakMinIntervalMinutes, settings.MicroBreakMaxIntervalMinutes)
	if err != nil {
		return err
	}
	s.nextIntervalSeconds = next
	return nil
}

// Reset clears all scheduling state, disabling triggers until the next
// OnFocusStart.
func (s *MicroBreakScheduler) Reset() {
	s.nextIntervalSeconds = 0
	s.lastMicroBreakAtSeconds = 0
}

func (s *MicroBreakScheduler) NextIntervalSeconds() int { return s.nextIntervalSeconds }

func (s *MicroBreakScheduler) LastMicroBreakAtSeconds() int { return s.lastMicroBreakAtSeconds }
