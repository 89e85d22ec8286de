package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/app"
	"github.com/chachabrian/tutorlink-backend/internal/config"
	"github.com/chachabrian/tutorlink-backend/internal/routes"
	"github.com/chachabrian/tutorlink-backend/internal/worker"
	"github.com/chachabrian/tutorlink-backend/pkg/utils"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to the .env file")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	localJobs := pflag.Bool("local-jobs", false, "run the completion sweep and reminders in this process instead of cmd/worker")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if _, _, err := app.OpenStore(ctx, cfg, logger); err != nil {
			logger.Fatal("Migration failed", zap.Error(err))
		}
		logger.Info("Migrations applied")
		return
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	// Initialize WebSocket hub
	go a.Hub.Run()
	if a.Bus != nil {
		go a.Bus.Relay(ctx, a.Hub)
	}

	// Without Redis there is no task queue, so the jobs run here.
	if *localJobs || a.Redis == nil {
		jobs := worker.NewLocalScheduler(a.Processor, worker.IntervalFromSpec(cfg.SweepInterval, 5*time.Minute), logger)
		jobs.Start(ctx)
		defer jobs.Stop()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.NewRouter(a.RouterDependencies())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("reschedule_policy", cfg.ReschedulePolicy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
