package model

// HistoryLimit caps the persisted session history. Older records are dropped
// silently on insert.
const HistoryLimit = 30

// SessionRecord is the per-calendar-day rollup of completed work. One record
// exists per day; recording a second session on the same day accumulates into
// the existing record.
type SessionRecord struct {
	ID              string `json:"id"`
	Date            string `json:"date"` // YYYY-MM-DD
	FocusMinutes    int    `json:"focusMinutes"`
	BreakMinutes    int    `json:"breakMinutes"`
	MicroBreakCount int    `json:"microBreakCount"`
	EfficiencyScore int    `json:"efficiencyScore"` // 0-100
}

// PeriodStats aggregates focus totals for one rolling window.
type PeriodStats struct {
	FocusSessions        int `json:"focusSessions"`
	TotalFocusTime       int `json:"totalFocusTime"` // minutes
	CompletedSessions    int `json:"completedSessions"`
	AverageFocusDuration int `json:"averageFocusDuration"` // minutes, rounded
	EfficiencyScore      int `json:"efficiencyScore"`      // 0-100, weighted average
}

// StreakState counts consecutive qualifying days (>= 1 completed session).
type StreakState struct {
	CurrentStreakDays int `json:"currentStreakDays"`
	LongestStreakDays int `json:"longestStreakDays"`
}

// StatsSnapshot is the durable statistics state as written through the stats
// store after every mutation and reloaded at startup.
type StatsSnapshot struct {
	Daily   PeriodStats `json:"daily"`
	Weekly  PeriodStats `json:"weekly"`
	Monthly PeriodStats `json:"monthly"`
	AllTime PeriodStats `json:"allTime"`

	// Period keys mark which window the daily/weekly/monthly rollups belong
	// to, so stale windows reset instead of accumulating forever.
	DailyKey   string `json:"dailyKey"`   // YYYY-MM-DD
	WeeklyKey  string `json:"weeklyKey"`  // YYYY-Www
	MonthlyKey string `json:"monthlyKey"` // YYYY-MM

	Streak            StreakState     `json:"streak"`
	LastQualifyingDay string          `json:"lastQualifyingDay"`
	History           []SessionRecord `json:"history"` // newest first
}
