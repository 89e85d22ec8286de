// Package app wires configuration into stores and services for the
// binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chachabrian/tutorlink-backend/internal/calendar"
	"github.com/chachabrian/tutorlink-backend/internal/config"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/routes"
	"github.com/chachabrian/tutorlink-backend/internal/services"
	"github.com/chachabrian/tutorlink-backend/internal/worker"
	"github.com/chachabrian/tutorlink-backend/pkg/utils"
)

// App holds the shared infrastructure and services.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *gorm.DB // nil with the memory store
	Redis *redis.Client
	Store database.Store
	Hub   *services.Hub
	Bus   *services.EventBus

	Storage   services.Storage
	Assistant *services.GeminiAssistant

	Auth     *services.AuthService
	Users    *services.UserService
	Tutors   *services.TutorService
	Bookings *services.BookingService
	Tasks    *services.TaskService
	Reviews  *services.ReviewService
	Calendar *services.CalendarService
	Chat     *services.ChatService

	Processor *worker.Processor
}

// OpenStore connects the configured store. Postgres is migrated first.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (database.Store, *gorm.DB, error) {
	if cfg.DBDriver == "memory" {
		log.Warn("Using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), nil, nil
	}

	db, err := database.InitDB(cfg.DSN(), cfg.IsProduction())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.RunMigrations(ctx, db, log); err != nil {
		return nil, nil, err
	}
	return database.NewGormStore(db), db, nil
}

// New builds every service from cfg.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a.Store, a.DB, err = OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL != "" {
		a.Redis, err = services.InitRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
	}

	a.Hub = services.NewHub(log)
	var realtime services.Publisher = services.HubPublisher{Hub: a.Hub}
	var revoker services.Revoker = services.NewMemoryRevoker()
	var ledger worker.ReminderLedger
	if a.Redis != nil {
		a.Bus = services.NewEventBus(a.Redis, log)
		realtime = a.Bus
		revoker = services.NewRedisRevoker(a.Redis)
		ledger = services.NewRedisReminderLedger(a.Redis)
	}

	var push services.PushSender
	fcm, err := services.InitFirebase(ctx, cfg.FirebaseServiceAccountPath, log)
	if err != nil {
		log.Warn("Firebase initialization failed, push notifications disabled", zap.Error(err))
	} else if fcm != nil {
		push = fcm
	}

	a.Storage, err = services.InitStorage(services.StorageConfig{
		AWSRegion:    cfg.AWSRegion,
		AWSAccessKey: cfg.AWSAccessKey,
		AWSSecretKey: cfg.AWSSecretKey,
		Bucket:       cfg.AWSBucket,
		UploadDir:    cfg.UploadDir,
		BaseURL:      cfg.BaseURL,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var assistant services.Assistant
	if cfg.GeminiAPIKey != "" {
		a.Assistant, err = services.NewGeminiAssistant(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("Study assistant disabled", zap.Error(err))
		} else {
			assistant = a.Assistant
		}
	}

	clock := lifecycle.RealClock
	notifier := services.NewDispatcher(realtime, push, a.Store, log)
	machine := lifecycle.NewMachine(clock, loc, lifecycle.ReschedulePolicy(cfg.ReschedulePolicy))

	a.Auth = services.NewAuthService(a.Store, utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), revoker, log)
	a.Users = services.NewUserService(a.Store, a.Storage, log)
	a.Reviews = services.NewReviewService(a.Store, clock, notifier, log)
	a.Tutors = services.NewTutorService(a.Store, a.Reviews, log)
	a.Bookings = services.NewBookingService(a.Store, machine, notifier, log)
	a.Tasks = services.NewTaskService(a.Store, log)
	a.Calendar = services.NewCalendarService(a.Store, calendar.NewProjector(loc, clock, log))
	a.Chat = services.NewChatService(assistant, log)
	a.Processor = worker.NewProcessor(a.Bookings, ledger, clock, loc, cfg.ReminderLead, log)

	return a, nil
}

// RouterDependencies returns what the HTTP router needs.
func (a *App) RouterDependencies() routes.Dependencies {
	uploadDir := ""
	if local, ok := a.Storage.(*services.LocalStorage); ok {
		uploadDir = local.Dir()
	}
	return routes.Dependencies{
		Auth:              a.Auth,
		Users:             a.Users,
		Tutors:            a.Tutors,
		Bookings:          a.Bookings,
		Tasks:             a.Tasks,
		Reviews:           a.Reviews,
		Calendar:          a.Calendar,
		Chat:              a.Chat,
		Hub:               a.Hub,
		UploadDir:         uploadDir,
		AllowOrigins:      a.Config.Origins(),
		MaxRequestsPerMin: a.Config.MaxRequestsPerMin,
		Logger:            a.Logger,
	}
}

// Close releases connections held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Assistant != nil {
		errs = append(errs, a.Assistant.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
