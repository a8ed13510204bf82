package engine

import (
	"fmt"

	"focusflow/backend/internal/model"
)

// minIntervalGapMinutes is restored between the micro-break interval bounds
// when an update would leave min >= max.
const minIntervalGapMinutes = 5

// ApplyPatch merges a partial update over base and returns the merged value.
// Base is never mutated.
func ApplyPatch(base model.TimerSettings, patch model.SettingsPatch) model.TimerSettings {
	merged := base
	if patch.Mode != nil {
		merged.Mode = *patch.Mode
	}
	if patch.FocusDurationMinutes != nil {
		merged.FocusDurationMinutes = *patch.FocusDurationMinutes
	}
	if patch.BreakDurationMinutes != nil {
		merged.BreakDurationMinutes = *patch.BreakDurationMinutes
	}
	if patch.MicroBreakMinIntervalMinutes != nil {
		merged.MicroBreakMinIntervalMinutes = *patch.MicroBreakMinIntervalMinutes
	}
	if patch.MicroBreakMaxIntervalMinutes != nil {
		merged.MicroBreakMaxIntervalMinutes = *patch.MicroBreakMaxIntervalMinutes
	}
	if patch.MicroBreakDurationMinutes != nil {
		merged.MicroBreakDurationMinutes = *patch.MicroBreakDurationMinutes
	}
	if patch.AdaptiveFactorFocus != nil {
		merged.AdaptiveFactorFocus = *patch.AdaptiveFactorFocus
	}
	if patch.AdaptiveFactorBreak != nil {
		merged.AdaptiveFactorBreak = *patch.AdaptiveFactorBreak
	}
	if patch.PeakFocusHours != nil {
		merged.PeakFocusHours = append([]int(nil), patch.PeakFocusHours...)
	}
	if patch.LowEnergyHours != nil {
		merged.LowEnergyHours = append([]int(nil), patch.LowEnergyHours...)
	}
	if patch.MaxContinuousFocusTimeMinutes != nil {
		merged.MaxContinuousFocusTimeMinutes = *patch.MaxContinuousFocusTimeMinutes
	}
	if patch.ForcedBreakThresholdMinutes != nil {
		merged.ForcedBreakThresholdMinutes = *patch.ForcedBreakThresholdMinutes
	}
	if patch.SoundEnabled != nil {
		merged.SoundEnabled = *patch.SoundEnabled
	}
	if patch.NotificationEnabled != nil {
		merged.NotificationEnabled = *patch.NotificationEnabled
	}
	return merged
}

// NormalizeSettings restores the documented micro-break interval invariant
// (min < max): when an update leaves min >= max, the max bound is pushed up to
// keep a minimum gap instead of rejecting the update.
func NormalizeSettings(s model.TimerSettings) model.TimerSettings {
	if s.MicroBreakMinIntervalMinutes >= s.MicroBreakMaxIntervalMinutes {
		s.MicroBreakMaxIntervalMinutes = s.MicroBreakMinIntervalMinutes + minIntervalGapMinutes
	}
	return s
}

// ValidateSettings rejects settings that cannot be made internally consistent.
func ValidateSettings(s model.TimerSettings) error {
	if s.Mode != model.ModeClassic && s.Mode != model.ModeSmart {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, s.Mode)
	}
	if s.FocusDurationMinutes <= 0 {
		return fmt.Errorf("%w: focus duration must be positive", ErrInvalidSettings)
	}
	if s.BreakDurationMinutes <= 0 {
		return fmt.Errorf("%w: break duration must be positive", ErrInvalidSettings)
	}
	if s.MicroBreakDurationMinutes <= 0 {
		return fmt.Errorf("%w: micro-break duration must be positive", ErrInvalidSettings)
	}
	if s.MicroBreakMinIntervalMinutes <= 0 {
		return fmt.Errorf("%w: micro-break interval bounds must be positive", ErrInvalidSettings)
	}
	if s.AdaptiveFactorFocus < 0 || s.AdaptiveFactorBreak < 0 {
		return fmt.Errorf("%w: adaptive factors must be >= 0", ErrInvalidSettings)
	}
	for _, h := range append(append([]int(nil), s.PeakFocusHours...), s.LowEnergyHours...) {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: hour-of-day %d out of range", ErrInvalidSettings, h)
		}
	}
	if s.Mode == model.ModeSmart {
		if s.MaxContinuousFocusTimeMinutes <= 0 {
			return fmt.Errorf("%w: max continuous focus time must be positive", ErrInvalidSettings)
		}
		if s.ForcedBreakThresholdMinutes <= 0 {
			return fmt.Errorf("%w: forced break threshold must be positive", ErrInvalidSettings)
		}
	}
	return nil
}
