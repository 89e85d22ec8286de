package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/app"
	"github.com/chachabrian/tutorlink-backend/internal/config"
	"github.com/chachabrian/tutorlink-backend/internal/worker"
	"github.com/chachabrian/tutorlink-backend/pkg/utils"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to the .env file")
	concurrency := pflag.Int("concurrency", 10, "number of tasks processed concurrently")
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

	if cfg.RedisURL == "" {
		logger.Fatal("REDIS_URL is required for the worker; run the API with --local-jobs instead")
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Invalid REDIS_URL", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	client := asynq.NewClient(redisOpt)
	defer client.Close()

	loc, _ := cfg.Location()
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: loc})
	if err := worker.RegisterPeriodic(scheduler, cfg.SweepInterval); err != nil {
		logger.Fatal("Failed to register periodic tasks", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Shutdown()

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: *concurrency,
		Queues:      map[string]int{"default": 1},
	})
	if err := srv.Start(a.Processor.Mux(client)); err != nil {
		logger.Fatal("Failed to start worker", zap.Error(err))
	}
	logger.Info("Worker started",
		zap.String("sweep_interval", cfg.SweepInterval),
		zap.Duration("reminder_lead", cfg.ReminderLead),
	)

	<-ctx.Done()
	logger.Info("Shutting down worker")
	srv.Shutdown()
}
