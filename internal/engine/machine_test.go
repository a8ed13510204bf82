package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"focusflow/backend/internal/model"
)

func intPtr(v int) *int                      { return &v }
func modePtr(m model.TimerMode) *model.TimerMode { return &m }

func smartSettings() model.TimerSettings {
	s := model.DefaultSettings()
	s.Mode = model.ModeSmart
	return s
}

func TestClassicFocusRunsToBreak(t *testing.T) {
	m := NewStateMachine(model.DefaultSettings())

	if m.Phase() != model.PhaseFocus || m.IsActive() {
		t.Fatalf("new machine must be idle in focus, got phase=%s active=%v", m.Phase(), m.IsActive())
	}
	if m.TimeLeftSeconds() != 25*60 {
		t.Fatalf("expected 1500s focus countdown, got %d", m.TimeLeftSeconds())
	}

	m.Start()
	for i := 0; i < 25*60-1; i++ {
		if tr := m.Tick(); tr != nil {
			t.Fatalf("unexpected transition at tick %d: %+v", i+1, tr)
		}
		if left, total := m.TimeLeftSeconds(), m.TotalPhaseSeconds(); left < 0 || left > total {
			t.Fatalf("countdown out of range at tick %d: left=%d total=%d", i+1, left, total)
		}
	}

	tr := m.Tick()
	if tr == nil {
		t.Fatal("final tick must produce the natural transition")
	}
	if tr.From != model.PhaseFocus || tr.To != model.PhaseBreak || !tr.Natural {
		t.Fatalf("expected natural focus->break, got %+v", tr)
	}
	if tr.FocusSeconds != 1500 {
		t.Fatalf("expected 1500 focus seconds recorded, got %d", tr.FocusSeconds)
	}
	if m.Phase() != model.PhaseBreak || m.TotalPhaseSeconds() != 5*60 {
		t.Fatalf("expected break phase of 300s, got %s/%d", m.Phase(), m.TotalPhaseSeconds())
	}
}

func TestPauseKeepsStateAndIsIdempotent(t *testing.T) {
	m := NewStateMachine(model.DefaultSettings())
	m.Start()
	for i := 0; i < 100; i++ {
		m.Tick()
	}

	m.Pause()
	m.Pause()
	if m.IsActive() {
		t.Fatal("expected inactive after pause")
	}
	left := m.TimeLeftSeconds()
	if tr := m.Tick(); tr != nil || m.TimeLeftSeconds() != left {
		t.Fatalf("tick while paused must be a no-op, left went %d -> %d", left, m.TimeLeftSeconds())
	}

	m.Start()
	m.Tick()
	if m.TimeLeftSeconds() != left-1 {
		t.Fatalf("resume must continue where it stopped, got %d want %d", m.TimeLeftSeconds(), left-1)
	}
}

func TestResetReturnsToIdleFocus(t *testing.T) {
	m := NewStateMachine(model.DefaultSettings())
	m.Start()
	for i := 0; i < 400; i++ {
		m.Tick()
	}

	m.Reset()
	if m.IsActive() || m.Phase() != model.PhaseFocus {
		t.Fatalf("expected idle focus after reset, got phase=%s active=%v", m.Phase(), m.IsActive())
	}
	if m.TimeLeftSeconds() != 25*60 || m.ContinuousFocusSeconds() != 0 || m.FocusElapsedSeconds() != 0 {
		t.Fatalf("reset must restore the full duration and clear bookkeeping: left=%d continuous=%d elapsed=%d",
			m.TimeLeftSeconds(), m.ContinuousFocusSeconds(), m.FocusElapsedSeconds())
	}
}

func TestTransitionValidity(t *testing.T) {
	m := NewStateMachine(model.DefaultSettings())

	if _, err := m.TransitionTo(model.PhaseFocus); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("focus->focus must be rejected, got %v", err)
	}

	if _, err := m.TransitionTo(model.PhaseBreak); err != nil {
		t.Fatalf("focus->break: %v", err)
	}
	if _, err := m.TransitionTo(model.PhaseMicroBreak); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("break->micro_break must be rejected, got %v", err)
	}
	if _, err := m.TransitionTo(model.PhaseFocus); err != nil {
		t.Fatalf("break->focus: %v", err)
	}
}

func TestSkipPolicyClassic(t *testing.T) {
	m := NewStateMachine(model.DefaultSettings())

	if _, err := m.SkipTarget(); !errors.Is(err, ErrSkipNotAllowed) {
		t.Fatalf("classic focus skip must be rejected, got %v", err)
	}

	if _, err := m.TransitionTo(model.PhaseBreak); err != nil {
		t.Fatal(err)
	}
	target, err := m.SkipTarget()
	if err != nil || target != model.PhaseFocus {
		t.Fatalf("break skip should land in focus, got %s, %v", target, err)
	}
}

func TestSmartForcedBreakAtThreshold(t *testing.T) {
	m := NewStateMachine(smartSettings())
	m.Start()
	m.continuousFocusSeconds = model.DefaultForcedBreakThresholdMinutes * 60

	target, err := m.SkipTarget()
	if err != nil {
		t.Fatal(err)
	}
	if target != model.PhaseForcedBreak {
		t.Fatalf("past the threshold focus must land in forced_break, got %s", target)
	}

	if _, err := m.TransitionTo(target); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SkipTarget(); !errors.Is(err, ErrSkipNotAllowed) {
		t.Fatalf("forced break must not be skippable, got %v", err)
	}

	if _, err := m.TransitionTo(model.PhaseFocus); err != nil {
		t.Fatal(err)
	}
	if m.ContinuousFocusSeconds() != 0 {
		t.Fatalf("a completed forced break must restore continuity, got %d", m.ContinuousFocusSeconds())
	}
}

func TestMicroBreakKeepsFocusContinuity(t *testing.T) {
	m := NewStateMachine(smartSettings())
	m.Start()
	for i := 0; i < 300; i++ {
		m.Tick()
	}

	if _, err := m.TransitionTo(model.PhaseMicroBreak); err != nil {
		t.Fatal(err)
	}
	if m.MicroBreakCount() != 1 {
		t.Fatalf("expected micro-break count 1, got %d", m.MicroBreakCount())
	}
	if _, err := m.TransitionTo(model.PhaseFocus); err != nil {
		t.Fatal(err)
	}
	if m.ContinuousFocusSeconds() != 300 {
		t.Fatalf("micro-break must not reset continuity, got %d", m.ContinuousFocusSeconds())
	}
	if m.FocusElapsedSeconds() != 300 {
		t.Fatalf("micro-break must not reset run elapsed, got %d", m.FocusElapsedSeconds())
	}
}

func TestUpdateSettingsRederivesIdleFocusCountdown(t *testing.T) {
	m := NewStateMachine(model.DefaultSettings())

	if err := m.UpdateSettings(model.SettingsPatch{FocusDurationMinutes: intPtr(50)}); err != nil {
		t.Fatal(err)
	}
	if m.TimeLeftSeconds() != 50*60 {
		t.Fatalf("idle focus countdown must follow the new duration, got %d", m.TimeLeftSeconds())
	}

	m.Start()
	m.Tick()
	left := m.TimeLeftSeconds()
	if err := m.UpdateSettings(model.SettingsPatch{FocusDurationMinutes: intPtr(30)}); err != nil {
		t.Fatal(err)
	}
	if m.TimeLeftSeconds() != left {
		t.Fatal("a running countdown must not jump on settings update")
	}
}

func TestUpdateSettingsAutoAdjustsIntervalBounds(t *testing.T) {
	m := NewStateMachine(model.DefaultSettings())

	// Default max is 30; raising min past it pushes max to min+5.
	if err := m.UpdateSettings(model.SettingsPatch{MicroBreakMinIntervalMinutes: intPtr(40)}); err != nil {
		t.Fatal(err)
	}
	s := m.Settings()
	if s.MicroBreakMinIntervalMinutes != 40 || s.MicroBreakMaxIntervalMinutes != 45 {
		t.Fatalf("expected bounds 40/45, got %d/%d", s.MicroBreakMinIntervalMinutes, s.MicroBreakMaxIntervalMinutes)
	}
}

func TestUpdateSettingsRejectsInvalidAndKeepsPrevious(t *testing.T) {
	m := NewStateMachine(model.DefaultSettings())
	before := m.Settings()

	err := m.UpdateSettings(model.SettingsPatch{FocusDurationMinutes: intPtr(0)})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if !reflect.DeepEqual(m.Settings(), before) {
		t.Fatal("rejected update must leave settings untouched")
	}

	err = m.UpdateSettings(model.SettingsPatch{Mode: modePtr(model.TimerMode("turbo"))})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings for unknown mode, got %v", err)
	}
}

func TestSmartDurationAppliesHourMultipliers(t *testing.T) {
	s := smartSettings()
	s.PeakFocusHours = []int{9}
	s.LowEnergyHours = []int{14}
	s.MaxContinuousFocusTimeMinutes = 90

	at := func(hour int) func() time.Time {
		return func() time.Time {
			return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
		}
	}

	m := NewStateMachine(s)
	m.now = at(9)
	m.Reset()
	if m.TotalPhaseSeconds() != 30*60 {
		t.Fatalf("peak hour focus should stretch to 1800s, got %d", m.TotalPhaseSeconds())
	}

	m.now = at(14)
	m.Reset()
	if m.TotalPhaseSeconds() != 20*60 {
		t.Fatalf("low-energy focus should shrink to 1200s, got %d", m.TotalPhaseSeconds())
	}

	m.now = at(11)
	m.Reset()
	if m.TotalPhaseSeconds() != 25*60 {
		t.Fatalf("neutral hour should keep 1500s, got %d", m.TotalPhaseSeconds())
	}
}

func TestSmartDurationCappedByMaxContinuousFocus(t *testing.T) {
	s := smartSettings()
	s.FocusDurationMinutes = 80
	s.AdaptiveFactorFocus = 1.5
	s.MaxContinuousFocusTimeMinutes = 90

	m := NewStateMachine(s)
	if m.TotalPhaseSeconds() != 90*60 {
		t.Fatalf("derived focus must be capped at 5400s, got %d", m.TotalPhaseSeconds())
	}
}
