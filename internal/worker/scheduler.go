package worker

import (
	"context"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReminderScanSpec is how often upcoming sessions are scanned for reminders.
const ReminderScanSpec = "@every 1m"

// RegisterPeriodic registers the sweep and the reminder scan on an asynq
// scheduler. sweepSpec is a cron spec such as "@every 5m".
func RegisterPeriodic(s *asynq.Scheduler, sweepSpec string) error {
	if _, err := s.Register(sweepSpec, NewSweepTask(), asynq.Unique(time.Minute)); err != nil {
		return err
	}
	if _, err := s.Register(ReminderScanSpec, NewReminderScanTask(), asynq.Unique(30*time.Second)); err != nil {
		return err
	}
	return nil
}

// IntervalFromSpec turns "@every <duration>" into a duration, falling back
// to def for any other spec.
func IntervalFromSpec(spec string, def time.Duration) time.Duration {
	rest, ok := strings.CutPrefix(strings.TrimSpace(spec), "@every ")
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(rest))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// LocalScheduler runs the jobs on tickers inside the API process. It is
// used when no Redis is configured for asynq.
type LocalScheduler struct {
	processor     *Processor
	sweepInterval time.Duration
	scanInterval  time.Duration
	logger        *zap.Logger
	stopChan      chan struct{}
}

func NewLocalScheduler(processor *Processor, sweepInterval time.Duration, logger *zap.Logger) *LocalScheduler {
	return &LocalScheduler{
		processor:     processor,
		sweepInterval: sweepInterval,
		scanInterval:  time.Minute,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start launches the background jobs
func (s *LocalScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("sweep_interval", s.sweepInterval),
		zap.Duration("reminder_scan_interval", s.scanInterval),
	)
	go s.loop(ctx, s.sweepInterval, "completion sweep", func(ctx context.Context) {
		_, _ = s.processor.Sweep(ctx)
	})
	go s.loop(ctx, s.scanInterval, "reminder scan", func(ctx context.Context) {
		if _, err := s.processor.SendDueReminders(ctx); err != nil {
			s.logger.Error("Reminder scan failed", zap.Error(err))
		}
	})
}

// Stop ends the background jobs
func (s *LocalScheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

func (s *LocalScheduler) loop(ctx context.Context, every time.Duration, name string, run func(context.Context)) {
	run(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run(ctx)
		case <-s.stopChan:
			s.logger.Info("Background job stopped", zap.String("job", name))
			return
		case <-ctx.Done():
			s.logger.Info("Background job cancelled", zap.String("job", name))
			return
		}
	}
}
