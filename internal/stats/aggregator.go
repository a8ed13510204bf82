// Package stats converts completed-session events into durable rollups:
// per-period totals, streak counters and efficiency scores.
package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"focusflow/backend/internal/model"
)

const dayLayout = "2006-01-02"

// Store is the persistence boundary for aggregated statistics. Writes are
// best-effort write-through: a failed save is logged and retried implicitly on
// the next mutation, never rolled back in memory.
type Store interface {
	Load() (*model.StatsSnapshot, error)
	Save(model.StatsSnapshot) error
}

// Aggregator owns the in-memory statistics state for one user. The in-memory
// state is the source of truth for the running process.
type Aggregator struct {
	store  Store
	logger *zap.SugaredLogger

	daily   model.PeriodStats
	weekly  model.PeriodStats
	monthly model.PeriodStats
	allTime model.PeriodStats

	dailyKey   string
	weeklyKey  string
	monthlyKey string

	streak            model.StreakState
	lastQualifyingDay string
	history           []model.SessionRecord
}

// NewAggregator loads persisted statistics through the store. A load failure
// falls back to empty stats rather than failing startup.
func NewAggregator(store Store, logger *zap.SugaredLogger) *Aggregator {
	a := &Aggregator{store: store, logger: logger}
	snap, err := store.Load()
	if err != nil {
		logger.Warnw("stats load failed, starting empty", "error", err)
		return a
	}
	if snap != nil {
		a.daily = snap.Daily
		a.weekly = snap.Weekly
		a.monthly = snap.Monthly
		a.allTime = snap.AllTime
		a.dailyKey = snap.DailyKey
		a.weeklyKey = snap.WeeklyKey
		a.monthlyKey = snap.MonthlyKey
		a.streak = snap.Streak
		a.lastQualifyingDay = snap.LastQualifyingDay
		a.history = append([]model.SessionRecord(nil), snap.History...)
	}
	return a
}

// ComputeEfficiencyScore scores a session 0-100: base 50, +30 when completed,
// up to +20 for duration relative to the mode's nominal focus length, and -5
// per distraction capped at -20.
func ComputeEfficiencyScore(durationMinutes int, completed bool, distractionCount, referenceDurationMinutes int) int {
	score := 50.0
	if completed {
		score += 30
	}
	if referenceDurationMinutes > 0 && durationMinutes > 0 {
		ratio := float64(durationMinutes) / float64(referenceDurationMinutes)
		if ratio > 2 {
			ratio = 2
		}
		score += 10 * ratio
	}
	penalty := 5 * distractionCount
	if penalty > 20 {
		penalty = 20
	}
	score -= float64(penalty)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// RecordSession upserts the day's SessionRecord and folds the session into
// every period rollup, then writes the snapshot through the store.
func (a *Aggregator) RecordSession(date string, focusMinutes, breakMinutes, microBreakCount, efficiencyScore int, completed bool) {
	a.rollPeriods(date)

	accumulate(&a.daily, focusMinutes, completed, efficiencyScore)
	accumulate(&a.weekly, focusMinutes, completed, efficiencyScore)
	accumulate(&a.monthly, focusMinutes, completed, efficiencyScore)
	accumulate(&a.allTime, focusMinutes, completed, efficiencyScore)

	a.upsertRecord(date, focusMinutes, breakMinutes, microBreakCount)

	if completed && date != a.lastQualifyingDay {
		if a.lastQualifyingDay != previousDay(date) {
			// Qualifying-day gap: the chain is broken before today counts.
			a.streak.CurrentStreakDays = 0
		}
		a.UpdateStreak(true)
		a.lastQualifyingDay = date
	}

	a.persist()
}

// UpdateStreak advances the streak for one calendar-day evaluation. A
// qualifying day extends the current streak and may extend the longest; a
// non-qualifying day resets the current streak to zero. LongestStreakDays is
// non-decreasing.
func (a *Aggregator) UpdateStreak(dayQualifies bool) {
	if !dayQualifies {
		a.streak.CurrentStreakDays = 0
		return
	}
	a.streak.CurrentStreakDays++
	if a.streak.CurrentStreakDays > a.streak.LongestStreakDays {
		a.streak.LongestStreakDays = a.streak.CurrentStreakDays
	}
}

// PeriodStats returns the rollup for "daily", "weekly", "monthly" or
// "allTime".
func (a *Aggregator) PeriodStats(period string) (model.PeriodStats, error) {
	switch period {
	case "daily":
		return a.daily, nil
	case "weekly":
		return a.weekly, nil
	case "monthly":
		return a.monthly, nil
	case "allTime":
		return a.allTime, nil
	default:
		return model.PeriodStats{}, fmt.Errorf("unknown period %q", period)
	}
}

func (a *Aggregator) Streak() model.StreakState { return a.streak }

// History returns up to limit records, newest first. A non-positive limit
// returns the full retained history.
func (a *Aggregator) History(limit int) []model.SessionRecord {
	if limit <= 0 || limit > len(a.history) {
		limit = len(a.history)
	}
	out := make([]model.SessionRecord, limit)
	copy(out, a.history[:limit])
	return out
}

// Snapshot captures the durable statistics state.
func (a *Aggregator) Snapshot() model.StatsSnapshot {
	return model.StatsSnapshot{
		Daily:             a.daily,
		Weekly:            a.weekly,
		Monthly:           a.monthly,
		AllTime:           a.allTime,
		DailyKey:          a.dailyKey,
		WeeklyKey:         a.weeklyKey,
		MonthlyKey:        a.monthlyKey,
		Streak:            a.streak,
		LastQualifyingDay: a.lastQualifyingDay,
		History:           append([]model.SessionRecord(nil), a.history...),
	}
}

func (a *Aggregator) rollPeriods(date string) {
	dayKey, weekKey, monthKey := periodKeys(date)
	if a.dailyKey != dayKey {
		a.daily = model.PeriodStats{}
		a.dailyKey = dayKey
	}
	if a.weeklyKey != weekKey {
		a.weekly = model.PeriodStats{}
		a.weeklyKey = weekKey
	}
	if a.monthlyKey != monthKey {
		a.monthly = model.PeriodStats{}
		a.monthlyKey = monthKey
	}
}

func (a *Aggregator) upsertRecord(date string, focusMinutes, breakMinutes, microBreakCount int) {
	if len(a.history) > 0 && a.history[0].Date == date {
		rec := &a.history[0]
		rec.FocusMinutes += focusMinutes
		rec.BreakMinutes += breakMinutes
		rec.MicroBreakCount += microBreakCount
		rec.EfficiencyScore = a.daily.EfficiencyScore
		return
	}
	rec := model.SessionRecord{
		ID:              uuid.NewString(),
		Date:            date,
		FocusMinutes:    focusMinutes,
		BreakMinutes:    breakMinutes,
		MicroBreakCount: microBreakCount,
		EfficiencyScore: a.daily.EfficiencyScore,
	}
	a.history = append([]model.SessionRecord{rec}, a.history...)
	if len(a.history) > model.HistoryLimit {
		a.history = a.history[:model.HistoryLimit]
	}
}

func (a *Aggregator) persist() {
	if err := a.store.Save(a.Snapshot()); err != nil {
		a.logger.Warnw("stats save failed, in-memory state remains authoritative", "error", err)
	}
}

// accumulate folds one session into a period rollup. The efficiency score is a
// weighted average over the period's session count.
func accumulate(ps *model.PeriodStats, focusMinutes int, completed bool, score int) {
	oldCount := ps.FocusSessions
	ps.TotalFocusTime += focusMinutes
	ps.FocusSessions++
	if completed {
		ps.CompletedSessions++
	}
	ps.AverageFocusDuration = int(math.Round(float64(ps.TotalFocusTime) / float64(ps.FocusSessions)))
	ps.EfficiencyScore = int(math.Round(
		(float64(ps.EfficiencyScore)*float64(oldCount) + float64(score)) / float64(oldCount+1)))
}

func periodKeys(date string) (day, week, month string) {
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return date, date, date
	}
	year, isoWeek := t.ISOWeek()
	return date, fmt.Sprintf("%04d-W%02d", year, isoWeek), date[:7]
}

func previousDay(date string) string {
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dayLayout)
}
