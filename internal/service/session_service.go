package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"focusflow/backend/internal/engine"
	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/stats"
)

const statsSaveTimeout = 5 * time.Second

// SessionService keeps one SessionEngine per user, hydrated from persisted
// settings on first use. The host ticker calls TickAll once per elapsed
// second; HTTP handlers call the control operations. A single mutex
// serializes both paths, preserving the engine's single-owner discipline.
type SessionService struct {
	settingsRepo *repository.SettingsRepository
	statsRepo    *repository.StatsRepository
	logger       *zap.SugaredLogger

	mu      sync.Mutex
	engines map[string]*engine.SessionEngine
}

func NewSessionService(
	settingsRepo *repository.SettingsRepository,
	statsRepo *repository.StatsRepository,
	logger *zap.SugaredLogger,
) *SessionService {
	return &SessionService{
		settingsRepo: settingsRepo,
		statsRepo:    statsRepo,
		logger:       logger,
		engines:      make(map[string]*engine.SessionEngine),
	}
}

// userStatsStore binds the stats repository to one user behind the
// aggregator's Store interface. Saves run on a background context so a slow
// write never blocks the tick path's caller beyond the repository call
// itself.
type userStatsStore struct {
	repo   *repository.StatsRepository
	userID string
}

func (s userStatsStore) Load() (*model.StatsSnapshot, error) {
	return s.repo.Load(context.Background(), s.userID)
}

func (s userStatsStore) Save(snap model.StatsSnapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), statsSaveTimeout)
	defer cancel()
	return s.repo.Save(ctx, s.userID, snap)
}

func (s *SessionService) State(ctx context.Context, userID string) (*engine.Snapshot, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	snap := eng.GetSnapshot()
	return &snap, nil
}

func (s *SessionService) Start(ctx context.Context, userID string) (*engine.Snapshot, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := eng.Start(); err != nil {
		return nil, apperrors.Internal("failed to start timer")
	}
	snap := eng.GetSnapshot()
	return &snap, nil
}

func (s *SessionService) Pause(ctx context.Context, userID string) (*engine.Snapshot, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	eng.Pause()
	snap := eng.GetSnapshot()
	return &snap, nil
}

func (s *SessionService) Reset(ctx context.Context, userID string) (*engine.Snapshot, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	eng.Reset()
	snap := eng.GetSnapshot()
	return &snap, nil
}

func (s *SessionService) Skip(ctx context.Context, userID string) (*engine.Snapshot, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := eng.Skip(); err != nil {
		if errors.Is(err, engine.ErrSkipNotAllowed) {
			return nil, apperrors.Conflict("skip_not_allowed", err.Error(), nil)
		}
		return nil, apperrors.Internal("failed to skip phase")
	}
	snap := eng.GetSnapshot()
	return &snap, nil
}

// MicroBreakCheck evaluates the micro-break trigger immediately without
// consuming a tick.
func (s *SessionService) MicroBreakCheck(ctx context.Context, userID string) (bool, *engine.Snapshot, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return false, nil, apiErr
	}
	fired, err := eng.TriggerMicroBreakCheck()
	if err != nil {
		return false, nil, apperrors.Internal("failed to evaluate micro-break")
	}
	snap := eng.GetSnapshot()
	return fired, &snap, nil
}

func (s *SessionService) GetSettings(ctx context.Context, userID string) (*model.TimerSettings, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	settings := eng.Settings()
	return &settings, nil
}

// UpdateSettings applies a partial update through the engine and writes the
// merged settings through. A persistence failure is logged, never surfaced:
// the in-memory settings remain authoritative for the running session.
func (s *SessionService) UpdateSettings(ctx context.Context, userID string, patch model.SettingsPatch) (*model.TimerSettings, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := eng.UpdateSettings(patch); err != nil {
		return nil, apperrors.BadRequest("invalid_settings", err.Error())
	}

	settings := eng.Settings()
	if err := s.settingsRepo.Save(ctx, userID, settings); err != nil {
		s.logger.Warnw("settings save failed", "user", userID, "error", err)
	}
	return &settings, nil
}

func (s *SessionService) PeriodStats(ctx context.Context, userID, period string) (*model.PeriodStats, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	ps, err := eng.Stats().PeriodStats(period)
	if err != nil {
		return nil, apperrors.BadRequest("invalid_period", err.Error())
	}
	return &ps, nil
}

func (s *SessionService) Streak(ctx context.Context, userID string) (*model.StreakState, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	streak := eng.Stats().Streak()
	return &streak, nil
}

func (s *SessionService) History(ctx context.Context, userID string, limit int) ([]model.SessionRecord, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, apiErr := s.engineForLocked(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if limit <= 0 || limit > model.HistoryLimit {
		limit = model.HistoryLimit
	}
	return eng.Stats().History(limit), nil
}

// TickAll fans the host's one-second trigger out to every hydrated engine.
// Paused engines no-op internally.
func (s *SessionService) TickAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, eng := range s.engines {
		if err := eng.Tick(); err != nil {
			s.logger.Errorw("tick failed", "user", userID, "error", err)
		}
	}
}

func (s *SessionService) engineForLocked(ctx context.Context, userID string) (*engine.SessionEngine, *apperrors.APIError) {
	if eng, ok := s.engines[userID]; ok {
		return eng, nil
	}

	settings, err := s.settingsRepo.Get(ctx, userID)
	if err == repository.ErrNotFound {
		defaults := model.DefaultSettings()
		settings = &defaults
		if saveErr := s.settingsRepo.Save(ctx, userID, defaults); saveErr != nil {
			s.logger.Warnw("default settings save failed", "user", userID, "error", saveErr)
		}
	} else if err != nil {
		return nil, apperrors.Internal("failed to load settings")
	}

	aggregator := stats.NewAggregator(userStatsStore{repo: s.statsRepo, userID: userID}, s.logger)
	eng := engine.NewSessionEngine(*settings, engine.NewIntervalGenerator(), aggregator, s.logger)

	// Sound and notification collaborators hang off this stream in the
	// desktop shell; the backend records transitions for diagnostics.
	eng.Subscribe(func(ev engine.Event) {
		if ev.Type == engine.EventPhaseTransition {
			s.logger.Infow("phase transition", "user", userID, "from", ev.From, "to", ev.To)
		}
	})

	s.engines[userID] = eng
	return eng, nil
}
