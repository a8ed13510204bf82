package model

// Phase is the timer's current activity mode.
type Phase string

const (
	PhaseFocus       Phase = "focus"
	PhaseBreak       Phase = "break"
	PhaseMicroBreak  Phase = "micro_break"
	PhaseForcedBreak Phase = "forced_break"
)

// TimerMode selects between the fixed classic schedule and the adaptive
// smart schedule.
type TimerMode string

const (
	ModeClassic TimerMode = "classic"
	ModeSmart   TimerMode = "smart"
)

const (
	DefaultFocusDurationMinutes         = 25
	DefaultBreakDurationMinutes         = 5
	DefaultMicroBreakMinIntervalMinutes = 10
	DefaultMicroBreakMaxIntervalMinutes = 30
	DefaultMicroBreakDurationMinutes    = 3
	DefaultMaxContinuousFocusMinutes    = 90
	DefaultForcedBreakThresholdMinutes  = 120
)

// TimerSettings is the per-mode timer configuration. Values are replaced as a
// whole on update, never mutated in place.
type TimerSettings struct {
	Mode                          TimerMode `json:"mode"`
	FocusDurationMinutes          int       `json:"focusDurationMinutes"`
	BreakDurationMinutes          int       `json:"breakDurationMinutes"`
	MicroBreakMinIntervalMinutes  int       `json:"microBreakMinIntervalMinutes"`
	MicroBreakMaxIntervalMinutes  int       `json:"microBreakMaxIntervalMinutes"`
	MicroBreakDurationMinutes     int       `json:"microBreakDurationMinutes"`
	AdaptiveFactorFocus           float64   `json:"adaptiveFactorFocus"`
	AdaptiveFactorBreak           float64   `json:"adaptiveFactorBreak"`
	PeakFocusHours                []int     `json:"peakFocusHours"`
	LowEnergyHours                []int     `json:"lowEnergyHours"`
	MaxContinuousFocusTimeMinutes int       `json:"maxContinuousFocusTimeMinutes"`
	ForcedBreakThresholdMinutes   int       `json:"forcedBreakThresholdMinutes"`
	SoundEnabled                  bool      `json:"soundEnabled"`
	NotificationEnabled           bool      `json:"notificationEnabled"`
}

// SettingsPatch is a partial settings update. Nil fields keep the current
// value.
type SettingsPatch struct {
	Mode                          *TimerMode `json:"mode,omitempty"`
	FocusDurationMinutes          *int       `json:"focusDurationMinutes,omitempty"`
	BreakDurationMinutes          *int       `json:"breakDurationMinutes,omitempty"`
	MicroBreakMinIntervalMinutes  *int       `json:"microBreakMinIntervalMinutes,omitempty"`
	MicroBreakMaxIntervalMinutes  *int       `json:"microBreakMaxIntervalMinutes,omitempty"`
	MicroBreakDurationMinutes     *int       `json:"microBreakDurationMinutes,omitempty"`
	AdaptiveFactorFocus           *float64   `json:"adaptiveFactorFocus,omitempty"`
	AdaptiveFactorBreak           *float64   `json:"adaptiveFactorBreak,omitempty"`
	PeakFocusHours                []int      `json:"peakFocusHours,omitempty"`
	LowEnergyHours                []int      `json:"lowEnergyHours,omitempty"`
	MaxContinuousFocusTimeMinutes *int       `json:"maxContinuousFocusTimeMinutes,omitempty"`
	ForcedBreakThresholdMinutes   *int       `json:"forcedBreakThresholdMinutes,omitempty"`
	SoundEnabled                  *bool      `json:"soundEnabled,omitempty"`
	NotificationEnabled           *bool      `json:"notificationEnabled,omitempty"`
}

// DefaultSettings returns the classic-mode defaults used when a user has no
// persisted settings yet.
func DefaultSettings() TimerSettings {
	return TimerSettings{
		Mode:                          ModeClassic,
		FocusDurationMinutes:          DefaultFocusDurationMinutes,
		BreakDurationMinutes:          DefaultBreakDurationMinutes,
		MicroBreakMinIntervalMinutes:  DefaultMicroBreakMinIntervalMinutes,
		MicroBreakMaxIntervalMinutes:  DefaultMicroBreakMaxIntervalMinutes,
		MicroBreakDurationMinutes:     DefaultMicroBreakDurationMinutes,
		AdaptiveFactorFocus:           1.0,
		AdaptiveFactorBreak:           1.0,
		MaxContinuousFocusTimeMinutes: DefaultMaxContinuousFocusMinutes,
		ForcedBreakThresholdMinutes:   DefaultForcedBreakThresholdMinutes,
		SoundEnabled:                  true,
		NotificationEnabled:           true,
	}
}
