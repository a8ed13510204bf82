package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"focusflow/backend/internal/model"
)

// SettingsRepository stores one TimerSettings row per user.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// CreateDefault bootstraps a user's settings row with the classic defaults.
func (r *SettingsRepository) CreateDefault(ctx context.Context, userID string) error {
	return r.Save(ctx, userID, model.DefaultSettings())
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*model.TimerSettings, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT mode, focus_minutes, break_minutes,
		        micro_break_min_minutes, micro_break_max_minutes, micro_break_minutes,
		        adaptive_factor_focus, adaptive_factor_break,
		        peak_focus_hours, low_energy_hours,
		        max_continuous_focus_minutes, forced_break_threshold_minutes,
		        sound_enabled, notification_enabled
		 FROM timer_settings WHERE user_id = ?`,
		userID,
	)

	var s model.TimerSettings
	var peakHours, lowHours string
	err := row.Scan(
		&s.Mode,
		&s.FocusDurationMinutes,
		&s.BreakDurationMinutes,
		&s.MicroBreakMinIntervalMinutes,
		&s.MicroBreakMaxIntervalMinutes,
		&s.MicroBreakDurationMinutes,
		&s.AdaptiveFactorFocus,
		&s.AdaptiveFactorBreak,
		&peakHours,
		&lowHours,
		&s.MaxContinuousFocusTimeMinutes,
		&s.ForcedBreakThresholdMinutes,
		&s.SoundEnabled,
		&s.NotificationEnabled,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if s.PeakFocusHours, err = decodeHours(peakHours); err != nil {
		return nil, fmt.Errorf("decode peak hours: %w", err)
	}
	if s.LowEnergyHours, err = decodeHours(lowHours); err != nil {
		return nil, fmt.Errorf("decode low-energy hours: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, userID string, s model.TimerSettings) error {
	peakHours, err := encodeHours(s.PeakFocusHours)
	if err != nil {
		return fmt.Errorf("encode peak hours: %w", err)
	}
	lowHours, err := encodeHours(s.LowEnergyHours)
	if err != nil {
		return fmt.Errorf("encode low-energy hours: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO timer_settings (
			user_id, mode, focus_minutes, break_minutes,
			micro_break_min_minutes, micro_break_max_minutes, micro_break_minutes,
			adaptive_factor_focus, adaptive_factor_break,
			peak_focus_hours, low_energy_hours,
			max_continuous_focus_minutes, forced_break_threshold_minutes,
			sound_enabled, notification_enabled, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			mode = excluded.mode,
			focus_minutes = excluded.focus_minutes,
			break_minutes = excluded.break_minutes,
			micro_break_min_minutes = excluded.micro_break_min_minutes,
			micro_break_max_minutes = excluded.micro_break_max_minutes,
			micro_break_minutes = excluded.micro_break_minutes,
			adaptive_factor_focus = excluded.adaptive_factor_focus,
			adaptive_factor_break = excluded.adaptive_factor_break,
			peak_focus_hours = excluded.peak_focus_hours,
			low_energy_hours = excluded.low_energy_hours,
			max_continuous_focus_minutes = excluded.max_continuous_focus_minutes,
			forced_break_threshold_minutes = excluded.forced_break_threshold_minutes,
			sound_enabled = excluded.sound_enabled,
			notification_enabled = excluded.notification_enabled,
			updated_at = excluded.updated_at`,
		userID,
		string(s.Mode),
		s.FocusDurationMinutes,
		s.BreakDurationMinutes,
		s.MicroBreakMinIntervalMinutes,
		s.MicroBreakMaxIntervalMinutes,
		s.MicroBreakDurationMinutes,
		s.AdaptiveFactorFocus,
		s.AdaptiveFactorBreak,
		peakHours,
		lowHours,
		s.MaxContinuousFocusTimeMinutes,
		s.ForcedBreakThresholdMinutes,
		s.SoundEnabled,
		s.NotificationEnabled,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func encodeHours(hours []int) (string, error) {
	if hours == nil {
		hours = []int{}
	}
	raw, err := json.Marshal(hours)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeHours(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	var hours []int
	if err := json.Unmarshal([]byte(raw), &hours); err != nil {
		return nil, err
	}
	if len(hours) == 0 {
		return nil, nil
	}
	return hours, nil
}
