// Package engine implements the focus/break session core: the phase state
// machine, the countdown clock, randomized micro-break scheduling and the
// composition root that feeds completed sessions into the statistics
// aggregator.
package engine

import (
	"math"
	"time"

	"go.uber.org/zap"

	"focusflow/backend/internal/model"
	"focusflow/backend/internal/stats"
)

// Event types delivered to subscribed listeners.
const (
	EventPhaseTransition = "phaseTransition"
	EventStatsUpdated    = "statsUpdated"
)

// Event is the typed notification emitted on every state-affecting operation.
// Sound and desktop-notification collaborators subscribe to these instead of
// being called directly.
type Event struct {
	Type           string      `json:"type"`
	From           model.Phase `json:"from,omitempty"`
	To             model.Phase `json:"to,omitempty"`
	ElapsedSeconds int         `json:"elapsedSeconds,omitempty"`
}

// Listener receives engine events. An unsubscribe func is returned by
// Subscribe.
type Listener func(Event)

// Snapshot is the read-only view of the running timer handed to external
// collaborators.
type Snapshot struct {
	Phase                  model.Phase     `json:"phase"`
	TimeLeftSeconds        int             `json:"timeLeftSeconds"`
	TotalPhaseSeconds      int             `json:"totalPhaseSeconds"`
	IsActive               bool            `json:"isActive"`
	ProgressPercent        float64         `json:"progressPercent"`
	Mode                   model.TimerMode `json:"mode"`
	ContinuousFocusSeconds int             `json:"continuousFocusSeconds"`
}

// SessionEngine wires the state machine, the micro-break scheduler and the
// statistics aggregator together behind the public control surface. One engine
// instance owns one timer's full state tree; there is no ambient global.
type SessionEngine struct {
	machine   *StateMachine
	scheduler *MicroBreakScheduler
	stats     *stats.Aggregator
	logger    *zap.SugaredLogger

	listeners  map[int]Listener
	listenerID int

	// Break-ish seconds accrued since the last recorded session, flushed into
	// the next session record's break minutes.
	pendingBreakSeconds int

	now func() time.Time
}

func NewSessionEngine(settings model.TimerSettings, gen IntervalGenerator, aggregator *stats.Aggregator, logger *zap.SugaredLogger) *SessionEngine {
	return &SessionEngine{
		machine:   NewStateMachine(settings),
		scheduler: NewMicroBreakScheduler(gen),
		stats:     aggregator,
		logger:    logger,
		listeners: map[int]Listener{},
		now:       time.Now,
	}
}

// Subscribe registers a listener for transition and stats-updated events and
// returns its unsubscribe func.
func (e *SessionEngine) Subscribe(l Listener) func() {
	e.listenerID++
	id := e.listenerID
	e.listeners[id] = l
	return func() { delete(e.listeners, id) }
}

// Start activates the countdown. Entering Focus from a fully-reset state draws
// the first micro-break interval.
func (e *SessionEngine) Start() error {
	if e.machine.Start() {
		if err := e.scheduler.OnFocusStart(e.machine.Settings()); err != nil {
			return err
		}
	}
	return nil
}

// Pause stops the countdown in place. Idempotent.
func (e *SessionEngine) Pause() {
	e.machine.Pause()
}

// Reset returns the engine to an inactive Focus phase. Focus progress that was
// underway is recorded as an incomplete session first.
func (e *SessionEngine) Reset() {
	if e.machine.Phase() == model.PhaseFocus && e.machine.FocusElapsedSeconds() > 0 {
		e.recordSession(e.machine.FocusElapsedSeconds(), e.machine.MicroBreakCount(), false)
	}
	e.machine.Reset()
	e.scheduler.Reset()
	e.pendingBreakSeconds = 0
}

// Skip jumps to the natural target of the current phase where the mode policy
// permits it: any phase in smart mode except ForcedBreak, only Break and
// MicroBreak in classic mode.
func (e *SessionEngine) Skip() error {
	target, err := e.machine.SkipTarget()
	if err != nil {
		return err
	}
	tr, err := e.machine.TransitionTo(target)
	if err != nil {
		return err
	}
	return e.handleTransition(tr)
}

// Tick consumes one elapsed second delivered by the host timer. The host owns
// cadence; the engine only ever decrements by exactly one unit per call.
func (e *SessionEngine) Tick() error {
	if !e.machine.IsActive() {
		return nil
	}
	tr := e.machine.Tick()
	if tr == nil {
		if fired, err := e.TriggerMicroBreakCheck(); fired || err != nil {
			return err
		}
		return nil
	}
	return e.handleTransition(tr)
}

// TriggerMicroBreakCheck evaluates the micro-break condition immediately and
// fires the transition when it is due. Reports whether a micro-break started.
func (e *SessionEngine) TriggerMicroBreakCheck() (bool, error) {
	if !e.machine.IsActive() || e.machine.Phase() != model.PhaseFocus {
		return false, nil
	}
	if !e.scheduler.ShouldTrigger(e.machine.FocusElapsedSeconds()) {
		return false, nil
	}
	if err := e.scheduler.OnTriggered(e.machine.FocusElapsedSeconds(), e.machine.Settings()); err != nil {
		return false, err
	}
	tr, err := e.machine.TransitionTo(model.PhaseMicroBreak)
	if err != nil {
		return false, err
	}
	return true, e.handleTransition(tr)
}

// UpdateSettings applies a partial settings update. Invalid updates are
// rejected with the previous settings retained.
func (e *SessionEngine) UpdateSettings(patch model.SettingsPatch) error {
	return e.machine.UpdateSettings(patch)
}

func (e *SessionEngine) Settings() model.TimerSettings { return e.machine.Settings() }

func (e *SessionEngine) Stats() *stats.Aggregator { return e.stats }

// GetSnapshot returns the current timer view.
func (e *SessionEngine) GetSnapshot() Snapshot {
	return Snapshot{
		Phase:                  e.machine.Phase(),
		TimeLeftSeconds:        e.machine.TimeLeftSeconds(),
		TotalPhaseSeconds:      e.machine.TotalPhaseSeconds(),
		IsActive:               e.machine.IsActive(),
		ProgressPercent:        e.machine.ProgressPercent(),
		Mode:                   e.machine.Settings().Mode,
		ContinuousFocusSeconds: e.machine.ContinuousFocusSeconds(),
	}
}

func (e *SessionEngine) handleTransition(tr *Transition) error {
	e.logger.Debugw("phase transition",
		"from", tr.From, "to", tr.To, "elapsed", tr.ElapsedSeconds, "natural", tr.Natural)

	switch {
	case tr.From == model.PhaseFocus && (tr.To == model.PhaseBreak || tr.To == model.PhaseForcedBreak):
		// A focus run ended: completed on natural expiry, incomplete on skip.
		e.recordSession(tr.FocusSeconds, tr.MicroBreaks, tr.Natural)
	case tr.From != model.PhaseFocus:
		e.pendingBreakSeconds += tr.ElapsedSeconds
		if tr.To == model.PhaseFocus && (tr.From == model.PhaseBreak || tr.From == model.PhaseForcedBreak) {
			// Fresh focus run after a real break draws a new interval.
			if err := e.scheduler.OnFocusStart(e.machine.Settings()); err != nil {
				return err
			}
		}
		// After a micro-break the scheduler keeps its reference point, so the
		// fairness window continues from the original focus start.
	}

	e.emit(Event{
		Type:           EventPhaseTransition,
		From:           tr.From,
		To:             tr.To,
		ElapsedSeconds: tr.ElapsedSeconds,
	})
	return nil
}

func (e *SessionEngine) recordSession(focusSeconds, microBreaks int, completed bool) {
	focusMinutes := int(math.Round(float64(focusSeconds) / 60))
	breakMinutes := int(math.Round(float64(e.pendingBreakSeconds) / 60))
	e.pendingBreakSeconds = 0

	score := stats.ComputeEfficiencyScore(focusMinutes, completed, microBreaks, e.machine.Settings().FocusDurationMinutes)
	date := e.now().Format("2006-01-02")
	e.stats.RecordSession(date, focusMinutes, breakMinutes, microBreaks, score, completed)
	e.emit(Event{Type: EventStatsUpdated})
}

func (e *SessionEngine) emit(ev Event) {
	for _, l := range e.listeners {
		l(ev)
	}
}
