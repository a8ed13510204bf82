package engine

import (
	"fmt"
	"math"
	"time"

	"focusflow/backend/internal/model"
)

// Smart-mode hour-of-day multipliers. Peak hours stretch focus and shorten
// breaks; low-energy hours do the opposite.
const (
	peakFocusMultiplier      = 1.2
	lowEnergyFocusMultiplier = 0.8
	peakBreakMultiplier      = 0.8
	lowEnergyBreakMultiplier = 1.25
)

// minPhaseSeconds floors every derived phase length so a phase is never
// shorter than one minute regardless of adaptive factors.
const minPhaseSeconds = 60

// validTransitions defines the legal phase transitions.
var validTransitions = map[model.Phase]map[model.Phase]bool{
	model.PhaseFocus:       {model.PhaseBreak: true, model.PhaseMicroBreak: true, model.PhaseForcedBreak: true},
	model.PhaseBreak:       {model.PhaseFocus: true},
	model.PhaseMicroBreak:  {model.PhaseFocus: true},
	model.PhaseForcedBreak: {model.PhaseFocus: true},
}

// IsValidTransition checks if a phase transition is legal.
func IsValidTransition(from, to model.Phase) bool {
	return validTransitions[from][to]
}

// Transition describes a completed phase change.
type Transition struct {
	From           model.Phase
	To             model.Phase
	ElapsedSeconds int // seconds spent in the finished phase
	Natural        bool

	// Set when a focus run ended (From == Focus, To == Break|ForcedBreak):
	// the run's accumulated focus seconds and micro-break count.
	FocusSeconds int
	MicroBreaks  int
}

// StateMachine owns the timer's runtime state: current phase, countdown,
// active flag and settings. All mutation goes through its methods; callers
// read via accessors.
type StateMachine struct {
	settings model.TimerSettings
	clock    *PhaseClock
	phase    model.Phase
	active   bool

	focusStartedAtMS       int64 // epoch ms; 0 when no focus run is underway
	continuousFocusSeconds int   // focus seconds since the last real break
	focusElapsedSeconds    int   // focus seconds of the current run (micro-breaks excluded)
	microBreakCount        int   // micro-breaks taken during the current run

	now func() time.Time
}

func NewStateMachine(settings model.TimerSettings) *StateMachine {
	m := &StateMachine{
		settings: NormalizeSettings(settings),
		phase:    model.PhaseFocus,
		now:      time.Now,
	}
	d := m.phaseDurationSeconds(model.PhaseFocus)
	m.clock = NewPhaseClock(d)
	return m
}

func (m *StateMachine) Phase() model.Phase            { return m.phase }
func (m *StateMachine) IsActive() bool                { return m.active }
func (m *StateMachine) TimeLeftSeconds() int          { return m.clock.Remaining() }
func (m *StateMachine) TotalPhaseSeconds() int        { return m.clock.Total() }
func (m *StateMachine) ProgressPercent() float64      { return m.clock.ProgressPercent() }
func (m *StateMachine) Settings() model.TimerSettings { return m.settings }
func (m *StateMachine) FocusStartTimestamp() int64    { return m.focusStartedAtMS }
func (m *StateMachine) ContinuousFocusSeconds() int   { return m.continuousFocusSeconds }
func (m *StateMachine) FocusElapsedSeconds() int      { return m.focusElapsedSeconds }
func (m *StateMachine) MicroBreakCount() int          { return m.microBreakCount }

// Start activates the countdown. Returns true when this begins a fresh focus
// run, which is the caller's cue to draw the first micro-break interval.
// Idempotent when already active.
func (m *StateMachine) Start() bool {
	if m.active {
		return false
	}
	m.active = true
	if m.phase == model.PhaseFocus && m.focusStartedAtMS == 0 {
		m.focusStartedAtMS = m.now().UnixMilli()
		return true
	}
	return false
}

// Pause deactivates the countdown without touching any other state, so a
// resumed session continues exactly where it left off.
func (m *StateMachine) Pause() {
	m.active = false
}

// Reset returns the machine to an inactive Focus phase with the full focus
// duration and zeroed bookkeeping. Always succeeds.
func (m *StateMachine) Reset() {
	m.phase = model.PhaseFocus
	m.active = false
	m.focusStartedAtMS = 0
	m.continuousFocusSeconds = 0
	m.focusElapsedSeconds = 0
	m.microBreakCount = 0
	d := m.phaseDurationSeconds(model.PhaseFocus)
	m.clock.SetPhase(d, d)
}

// Tick consumes one elapsed second. When the countdown reaches zero it
// performs the natural transition for the current phase and returns it;
// otherwise returns nil. A tick while paused has no effect.
func (m *StateMachine) Tick() *Transition {
	if !m.active {
		return nil
	}
	if m.clock.Remaining() > 0 {
		m.clock.Tick()
		if m.phase == model.PhaseFocus {
			m.continuousFocusSeconds++
			m.focusElapsedSeconds++
		}
	}
	if !m.clock.Expired() {
		return nil
	}
	tr, _ := m.TransitionTo(m.naturalTarget())
	if tr != nil {
		tr.Natural = true
	}
	return tr
}

// TransitionTo performs an explicit phase change, recomputing the countdown
// for the target phase from the current settings.
func (m *StateMachine) TransitionTo(target model.Phase) (*Transition, error) {
	from := m.phase
	if !IsValidTransition(from, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}

	tr := &Transition{
		From:           from,
		To:             target,
		ElapsedSeconds: m.clock.Elapsed(),
	}

	switch {
	case from == model.PhaseFocus && (target == model.PhaseBreak || target == model.PhaseForcedBreak):
		// The focus run is over. Capture its totals for the statistics event
		// before clearing them.
		tr.FocusSeconds = m.focusElapsedSeconds
		tr.MicroBreaks = m.microBreakCount
		m.focusStartedAtMS = 0
		m.focusElapsedSeconds = 0
		m.microBreakCount = 0
	case target == model.PhaseMicroBreak:
		m.microBreakCount++
	case target == model.PhaseFocus:
		if from == model.PhaseBreak || from == model.PhaseForcedBreak {
			// A real break restores focus continuity; a micro-break does not.
			m.continuousFocusSeconds = 0
			m.focusElapsedSeconds = 0
			m.microBreakCount = 0
		}
		m.focusStartedAtMS = m.now().UnixMilli()
	}

	d := m.phaseDurationSeconds(target)
	m.clock.SetPhase(d, d)
	m.phase = target
	return tr, nil
}

// SkipTarget resolves the destination of a manual skip, enforcing the mode
// policy: ForcedBreak is never skippable, and classic mode cannot skip Focus.
func (m *StateMachine) SkipTarget() (model.Phase, error) {
	if m.phase == model.PhaseForcedBreak {
		return "", fmt.Errorf("%w: forced break must run to completion", ErrSkipNotAllowed)
	}
	if m.settings.Mode == model.ModeClassic && m.phase == model.PhaseFocus {
		return "", fmt.Errorf("%w: focus cannot be skipped in classic mode", ErrSkipNotAllowed)
	}
	return m.naturalTarget(), nil
}

// UpdateSettings merges a partial update, normalizes the micro-break interval
// bounds, and replaces the stored settings as a whole. Invalid updates are
// rejected and the previous settings retained. When the timer is idle in
// Focus, the countdown is re-derived immediately so the change is visible
// before the next start.
func (m *StateMachine) UpdateSettings(patch model.SettingsPatch) error {
	merged := NormalizeSettings(ApplyPatch(m.settings, patch))
	if err := ValidateSettings(merged); err != nil {
		return err
	}
	m.settings = merged
	if !m.active && m.phase == model.PhaseFocus {
		d := m.phaseDurationSeconds(model.PhaseFocus)
		m.clock.SetPhase(d, d)
	}
	return nil
}

// naturalTarget is the destination of a natural expiry (or a permitted skip)
// from the current phase. In smart mode a focus run that crossed the
// forced-break threshold lands in ForcedBreak instead of Break.
func (m *StateMachine) naturalTarget() model.Phase {
	if m.phase != model.PhaseFocus {
		return model.PhaseFocus
	}
	if m.settings.Mode == model.ModeSmart &&
		m.continuousFocusSeconds >= m.settings.ForcedBreakThresholdMinutes*60 {
		return model.PhaseForcedBreak
	}
	return model.PhaseBreak
}

func (m *StateMachine) phaseDurationSeconds(p model.Phase) int {
	s := m.settings
	var minutes float64
	switch p {
	case model.PhaseFocus:
		minutes = float64(s.FocusDurationMinutes)
		if s.Mode == model.ModeSmart {
			minutes *= s.AdaptiveFactorFocus
			hour := m.now().Hour()
			if containsHour(s.PeakFocusHours, hour) {
				minutes *= peakFocusMultiplier
			}
			if containsHour(s.LowEnergyHours, hour) {
				minutes *= lowEnergyFocusMultiplier
			}
			if cap := float64(s.MaxContinuousFocusTimeMinutes); cap > 0 && minutes > cap {
				minutes = cap
			}
		}
	case model.PhaseBreak, model.PhaseForcedBreak:
		minutes = float64(s.BreakDurationMinutes)
		if s.Mode == model.ModeSmart {
			minutes *= s.AdaptiveFactorBreak
			hour := m.now().Hour()
			if containsHour(s.PeakFocusHours, hour) {
				minutes *= peakBreakMultiplier
			}
			if containsHour(s.LowEnergyHours, hour) {
				minutes *= lowEnergyBreakMultiplier
			}
		}
	case model.PhaseMicroBreak:
		minutes = float64(s.MicroBreakDurationMinutes)
	}
	secs := int(math.Round(minutes * 60))
	if secs < minPhaseSeconds {
		secs = minPhaseSeconds
	}
	return secs
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}
