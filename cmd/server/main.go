package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"restoran-api/internal/config"
	"restoran-api/internal/database"
	"restoran-api/internal/jobs"
	"restoran-api/internal/logger"
	"restoran-api/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("database error", "error", err)
		os.Exit(1)
	}

	var scheduler *jobs.Scheduler
	if cfg.ReconcileSchedule != "" {
		scheduler, err = jobs.NewScheduler(cfg.ReconcileSchedule, jobs.NewReconciler(db))
		if err != nil {
			logger.Error("scheduler error", "error", err)
			_ = database.Close(db)
			os.Exit(1)
		}
		scheduler.Start()
	}

	app := server.New(cfg, db)

	go func() {
		logger.Info("server listening", "port", cfg.HTTPPort)
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if err := database.Close(db); err != nil {
		logger.Error("close database", "error", err)
	}
}
