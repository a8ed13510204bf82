package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"

	"focusflow/backend/internal/db"
	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/router"
	"focusflow/backend/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type stateEnvelope struct {
	State struct {
		Phase             string `json:"phase"`
		TimeLeftSeconds   int    `json:"timeLeftSeconds"`
		TotalPhaseSeconds int    `json:"totalPhaseSeconds"`
		IsActive          bool   `json:"isActive"`
		Mode              string `json:"mode"`
	} `json:"state"`
}

type settingsEnvelope struct {
	Settings struct {
		Mode                         string `json:"mode"`
		FocusDurationMinutes         int    `json:"focusDurationMinutes"`
		MicroBreakMinIntervalMinutes int    `json:"microBreakMinIntervalMinutes"`
		MicroBreakMaxIntervalMinutes int    `json:"microBreakMaxIntervalMinutes"`
	} `json:"settings"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestTimerLifecycle(t *testing.T) {
	engine := setupTestEngine(t)

	user1 := registerUser(t, engine, "user1@example.com", "123456")
	user2 := registerUser(t, engine, "user2@example.com", "123456")

	state := getState(t, engine, user1.Token)
	if state.State.Phase != "focus" || state.State.IsActive {
		t.Fatalf("expected idle focus initially, got %+v", state.State)
	}
	if state.State.TimeLeftSeconds != 25*60 {
		t.Fatalf("expected 1500s focus countdown, got %d", state.State.TimeLeftSeconds)
	}

	status, body := requestJSON(t, engine, http.MethodPost, "/api/timer/start", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d: %s", status, string(body))
	}
	var started stateEnvelope
	if err := json.Unmarshal(body, &started); err != nil {
		t.Fatalf("unmarshal start response: %v", err)
	}
	if !started.State.IsActive {
		t.Fatal("expected active timer after start")
	}

	// Classic mode refuses to skip a focus phase.
	status, raw := requestJSON(t, engine, http.MethodPost, "/api/timer/skip", user1.Token, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for classic focus skip, got %d", status)
	}
	var skipErr apiErrorEnvelope
	if err := json.Unmarshal(raw, &skipErr); err != nil {
		t.Fatalf("unmarshal skip error: %v", err)
	}
	if skipErr.Error.Code != "skip_not_allowed" {
		t.Fatalf("expected skip_not_allowed, got %s", skipErr.Error.Code)
	}

	status, body = requestJSON(t, engine, http.MethodPost, "/api/timer/pause", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on pause, got %d", status)
	}
	var paused stateEnvelope
	if err := json.Unmarshal(body, &paused); err != nil {
		t.Fatalf("unmarshal pause response: %v", err)
	}
	if paused.State.IsActive {
		t.Fatal("expected inactive timer after pause")
	}

	status, body = requestJSON(t, engine, http.MethodPost, "/api/timer/reset", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on reset, got %d", status)
	}
	var resetState stateEnvelope
	if err := json.Unmarshal(body, &resetState); err != nil {
		t.Fatalf("unmarshal reset response: %v", err)
	}
	if resetState.State.IsActive || resetState.State.TimeLeftSeconds != 25*60 {
		t.Fatalf("expected idle full-length focus after reset, got %+v", resetState.State)
	}

	// User isolation: user2's timer is untouched by user1's session.
	state2 := getState(t, engine, user2.Token)
	if state2.State.IsActive {
		t.Fatal("expected user2 timer to stay idle")
	}
}

func TestSettingsUpdateAutoAdjustsBounds(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user@example.com", "123456")

	// Raising min past the default max (30) pushes max to min+5.
	status, body := requestJSON(t, engine, http.MethodPut, "/api/timer/settings", user.Token, map[string]int{
		"microBreakMinIntervalMinutes": 40,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on settings update, got %d: %s", status, string(body))
	}
	var updated settingsEnvelope
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("unmarshal settings response: %v", err)
	}
	if updated.Settings.MicroBreakMinIntervalMinutes != 40 || updated.Settings.MicroBreakMaxIntervalMinutes != 45 {
		t.Fatalf("expected bounds 40/45, got %d/%d",
			updated.Settings.MicroBreakMinIntervalMinutes, updated.Settings.MicroBreakMaxIntervalMinutes)
	}

	// The adjusted settings are what reads return afterwards.
	status, body = requestJSON(t, engine, http.MethodGet, "/api/timer/settings", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on settings read, got %d", status)
	}
	var fetched settingsEnvelope
	if err := json.Unmarshal(body, &fetched); err != nil {
		t.Fatalf("unmarshal settings read: %v", err)
	}
	if fetched.Settings.MicroBreakMaxIntervalMinutes != 45 {
		t.Fatalf("expected persisted max 45, got %d", fetched.Settings.MicroBreakMaxIntervalMinutes)
	}

	status, raw := requestJSON(t, engine, http.MethodPut, "/api/timer/settings", user.Token, map[string]int{
		"focusDurationMinutes": 0,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid settings, got %d", status)
	}
	var invalid apiErrorEnvelope
	if err := json.Unmarshal(raw, &invalid); err != nil {
		t.Fatalf("unmarshal invalid settings error: %v", err)
	}
	if invalid.Error.Code != "invalid_settings" {
		t.Fatalf("expected invalid_settings, got %s", invalid.Error.Code)
	}
}

func TestStatsEndpoints(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user@example.com", "123456")

	status, body := requestJSON(t, engine, http.MethodGet, "/api/stats/periods/daily", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for daily stats, got %d: %s", status, string(body))
	}
	var daily struct {
		Period string `json:"period"`
		Stats  struct {
			FocusSessions int `json:"focusSessions"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(body, &daily); err != nil {
		t.Fatalf("unmarshal daily stats: %v", err)
	}
	if daily.Period != "daily" || daily.Stats.FocusSessions != 0 {
		t.Fatalf("expected empty daily rollup, got %+v", daily)
	}

	status, _ = requestJSON(t, engine, http.MethodGet, "/api/stats/periods/hourly", user.Token, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown period, got %d", status)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/stats/streak", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for streak, got %d", status)
	}
	var streak struct {
		Streak struct {
			CurrentStreakDays int `json:"currentStreakDays"`
			LongestStreakDays int `json:"longestStreakDays"`
		} `json:"streak"`
	}
	if err := json.Unmarshal(body, &streak); err != nil {
		t.Fatalf("unmarshal streak: %v", err)
	}
	if streak.Streak.CurrentStreakDays != 0 || streak.Streak.LongestStreakDays != 0 {
		t.Fatalf("expected zero streak for a fresh user, got %+v", streak.Streak)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/stats/history?limit=10", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for history, got %d", status)
	}
	var history struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history.Records) != 0 {
		t.Fatalf("expected empty history for a fresh user, got %d records", len(history.Records))
	}
}

func TestAuthRequired(t *testing.T) {
	engine := setupTestEngine(t)

	for _, path := range []string{"/api/timer/state", "/api/stats/streak"} {
		status, _ := requestJSON(t, engine, http.MethodGet, path, "", nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("expected 401 without token for %s, got %d", path, status)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestEngine(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	logger := zap.NewNop().Sugar()
	userRepo := repository.NewUserRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)
	statsRepo := repository.NewStatsRepository(database)
	authService := service.NewAuthService(userRepo, settingsRepo, "test-secret", 24*time.Hour)
	sessionService := service.NewSessionService(settingsRepo, statsRepo, logger)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(sessionService)
	statsHandler := handler.NewStatsHandler(sessionService)

	return router.New(authService, authHandler, timerHandler, statsHandler, []string{"http://localhost:5173"})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func getState(t *testing.T, server http.Handler, token string) stateEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/timer/state", token, nil)
	if status != http.StatusOK {
		t.Fatalf("get state failed with status %d: %s", status, string(body))
	}
	var stateResp stateEnvelope
	if err := json.Unmarshal(body, &stateResp); err != nil {
		t.Fatalf("unmarshal state response: %v", err)
	}
	return stateResp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
