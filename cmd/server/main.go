package main

import (
	"log"
	"time"

	"go.uber.org/zap"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/db"
	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/router"
	"focusflow/backend/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		sugar.Fatalw("open database", "error", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		sugar.Fatalw("run migrations", "error", err)
	}

	userRepo := repository.NewUserRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)
	statsRepo := repository.NewStatsRepository(database)

	authService := service.NewAuthService(userRepo, settingsRepo, cfg.JWTSecret, cfg.TokenTTL)
	sessionService := service.NewSessionService(settingsRepo, statsRepo, sugar)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(sessionService)
	statsHandler := handler.NewStatsHandler(sessionService)

	// The host owns the tick cadence: one trigger per elapsed second, fanned
	// out to every session engine.
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			sessionService.TickAll()
		}
	}()

	engine := router.New(authService, authHandler, timerHandler, statsHandler, cfg.CORSOrigins)
	sugar.Infow("backend listening", "port", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		sugar.Fatalw("run server", "error", err)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
