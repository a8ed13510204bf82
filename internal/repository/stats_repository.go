package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusflow/backend/internal/model"
)

// StatsRepository persists the aggregated statistics snapshot: one row per
// period rollup, one streak row, and the capped session-record history. Saves
// are idempotent upserts keyed by user and date.
type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Load reads the persisted snapshot. Returns (nil, nil) when the user has no
// statistics yet.
func (r *StatsRepository) Load(ctx context.Context, userID string) (*model.StatsSnapshot, error) {
	snap := model.StatsSnapshot{}
	found := false

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT period, period_key, focus_sessions, total_focus_minutes,
		        completed_sessions, average_focus_minutes, efficiency_score
		 FROM period_stats WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load period stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var period, key string
		var ps model.PeriodStats
		if err := rows.Scan(
			&period, &key,
			&ps.FocusSessions, &ps.TotalFocusTime, &ps.CompletedSessions,
			&ps.AverageFocusDuration, &ps.EfficiencyScore,
		); err != nil {
			return nil, fmt.Errorf("scan period stats: %w", err)
		}
		found = true
		switch period {
		case "daily":
			snap.Daily, snap.DailyKey = ps, key
		case "weekly":
			snap.Weekly, snap.WeeklyKey = ps, key
		case "monthly":
			snap.Monthly, snap.MonthlyKey = ps, key
		case "allTime":
			snap.AllTime = ps
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period stats: %w", err)
	}

	streakRow := r.db.QueryRowContext(
		ctx,
		`SELECT current_days, longest_days, last_qualifying_day
		 FROM streaks WHERE user_id = ?`,
		userID,
	)
	switch err := streakRow.Scan(
		&snap.Streak.CurrentStreakDays,
		&snap.Streak.LongestStreakDays,
		&snap.LastQualifyingDay,
	); err {
	case nil:
		found = true
	case sql.ErrNoRows:
	default:
		return nil, fmt.Errorf("load streak: %w", err)
	}

	records, err := r.listRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		found = true
		snap.History = records
	}

	if !found {
		return nil, nil
	}
	return &snap, nil
}

// Save writes the full snapshot in one transaction.
func (r *StatsRepository) Save(ctx context.Context, userID string, snap model.StatsSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	periods := []struct {
		name  string
		key   string
		stats model.PeriodStats
	}{
		{"daily", snap.DailyKey, snap.Daily},
		{"weekly", snap.WeeklyKey, snap.Weekly},
		{"monthly", snap.MonthlyKey, snap.Monthly},
		{"allTime", "", snap.AllTime},
	}
	for _, p := range periods {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO period_stats (
				user_id, period, period_key, focus_sessions, total_focus_minutes,
				completed_sessions, average_focus_minutes, efficiency_score, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, period) DO UPDATE SET
				period_key = excluded.period_key,
				focus_sessions = excluded.focus_sessions,
				total_focus_minutes = excluded.total_focus_minutes,
				completed_sessions = excluded.completed_sessions,
				average_focus_minutes = excluded.average_focus_minutes,
				efficiency_score = excluded.efficiency_score,
				updated_at = excluded.updated_at`,
			userID, p.name, p.key,
			p.stats.FocusSessions, p.stats.TotalFocusTime, p.stats.CompletedSessions,
			p.stats.AverageFocusDuration, p.stats.EfficiencyScore, now,
		); err != nil {
			return fmt.Errorf("save %s stats: %w", p.name, err)
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO streaks (user_id, current_days, longest_days, last_qualifying_day, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			current_days = excluded.current_days,
			longest_days = excluded.longest_days,
			last_qualifying_day = excluded.last_qualifying_day,
			updated_at = excluded.updated_at`,
		userID, snap.Streak.CurrentStreakDays, snap.Streak.LongestStreakDays,
		snap.LastQualifyingDay, now,
	); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}

	oldestRetained := ""
	for _, rec := range snap.History {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO session_records (
				id, user_id, date, focus_minutes, break_minutes,
				micro_break_count, efficiency_score, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, date) DO UPDATE SET
				focus_minutes = excluded.focus_minutes,
				break_minutes = excluded.break_minutes,
				micro_break_count = excluded.micro_break_count,
				efficiency_score = excluded.efficiency_score,
				updated_at = excluded.updated_at`,
			rec.ID, userID, rec.Date, rec.FocusMinutes, rec.BreakMinutes,
			rec.MicroBreakCount, rec.EfficiencyScore, now,
		); err != nil {
			return fmt.Errorf("save session record %s: %w", rec.Date, err)
		}
		if oldestRetained == "" || rec.Date < oldestRetained {
			oldestRetained = rec.Date
		}
	}

	// Rows that fell out of the retention window are dropped.
	if oldestRetained != "" {
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM session_records WHERE user_id = ? AND date < ?`,
			userID, oldestRetained,
		); err != nil {
			return fmt.Errorf("prune session records: %w", err)
		}
	}

	return tx.Commit()
}

func (r *StatsRepository) listRecords(ctx context.Context, userID string) ([]model.SessionRecord, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, date, focus_minutes, break_minutes, micro_break_count, efficiency_score
		 FROM session_records
		 WHERE user_id = ?
		 ORDER BY date DESC
		 LIMIT ?`,
		userID,
		model.HistoryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	defer rows.Close()

	var records []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		if err := rows.Scan(
			&rec.ID, &rec.Date, &rec.FocusMinutes, &rec.BreakMinutes,
			&rec.MicroBreakCount, &rec.EfficiencyScore,
		); err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session records: %w", err)
	}
	return records, nil
}
