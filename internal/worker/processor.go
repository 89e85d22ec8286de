package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// reminderScanWindow is how far past the lead time each scan looks; it
// must exceed the scan interval so no session falls between two scans.
const reminderScanWindow = 10 * time.Minute

// ReminderLedger records which reminders were sent.
type ReminderLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Bookings is the part of the booking service the jobs use.
type Bookings interface {
	Sweep(ctx context.Context, participantID uint) (services.SweepResult, error)
	StartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	SendReminder(ctx context.Context, bookingID uint) error
}

type Processor struct {
	bookings Bookings
	ledger   ReminderLedger
	clock    lifecycle.Clock
	loc      *time.Location
	lead     time.Duration
	log      *zap.Logger
}

// NewProcessor sends reminders lead before each session start; loc is the
// zone booking times are written in. A nil ledger keeps claims in memory.
func NewProcessor(bookings Bookings, ledger ReminderLedger, clock lifecycle.Clock, loc *time.Location, lead time.Duration, log *zap.Logger) *Processor {
	if clock == nil {
		clock = lifecycle.RealClock
	}
	if loc == nil {
		loc = time.Local
	}
	if ledger == nil {
		ledger = NewMemoryLedger(clock)
	}
	return &Processor{bookings: bookings, ledger: ledger, clock: clock, loc: loc, lead: lead, log: log}
}

// Mux routes asynq tasks to the processor; the scan enqueues through enq.
func (p *Processor) Mux(enq Enqueuer) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSessionReminder, p.HandleReminder)
	mux.HandleFunc(TypeBookingSweep, p.HandleSweep)
	mux.HandleFunc(TypeReminderScan, func(ctx context.Context, _ *asynq.Task) error {
		_, err := p.ScheduleReminders(ctx, enq)
		return err
	})
	return mux
}

func (p *Processor) HandleReminder(ctx context.Context, task *asynq.Task) error {
	var payload ReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		p.log.Error("Invalid reminder payload", zap.Error(err))
		return fmt.Errorf("decode reminder payload: %w: %w", err, asynq.SkipRetry)
	}
	_, err := p.remind(ctx, payload)
	return err
}

// remind reports false when the slot's reminder was already sent.
func (p *Processor) remind(ctx context.Context, payload ReminderPayload) (bool, error) {
	first, err := p.ledger.Claim(ctx, payload.key(), 24*time.Hour)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	if !first {
		p.log.Debug("Reminder already sent", zap.Uint("booking_id", payload.BookingID))
		return false, nil
	}
	if err := p.bookings.SendReminder(ctx, payload.BookingID); err != nil {
		return false, fmt.Errorf("send reminder for booking %d: %w", payload.BookingID, err)
	}
	p.log.Info("Session reminder sent", zap.Uint("booking_id", payload.BookingID))
	return true, nil
}

func (p *Processor) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	_, err := p.Sweep(ctx)
	return err
}

// Sweep completes every confirmed session whose end time has passed.
func (p *Processor) Sweep(ctx context.Context) (services.SweepResult, error) {
	result, err := p.bookings.Sweep(ctx, 0)
	if err != nil {
		p.log.Error("Completion sweep failed", zap.Error(err))
		return result, err
	}
	if len(result.Completed) > 0 || len(result.Failed) > 0 {
		p.log.Info("Completion sweep finished",
			zap.Int("completed", len(result.Completed)),
			zap.Int("failed", len(result.Failed)),
		)
	}
	return result, nil
}

// dueReminders returns the sessions starting within the next lead plus scan window.
func (p *Processor) dueReminders(ctx context.Context) ([]models.Booking, error) {
	now := p.clock.Now()
	return p.bookings.StartingBetween(ctx, now, now.Add(p.lead+reminderScanWindow))
}

// ScheduleReminders enqueues a reminder lead before each upcoming session.
// Slots that already have a reminder task are skipped.
func (p *Processor) ScheduleReminders(ctx context.Context, enq Enqueuer) (int, error) {
	bookings, err := p.dueReminders(ctx)
	if err != nil {
		return 0, err
	}
	scheduled := 0
	for _, b := range bookings {
		start, err := lifecycle.Combine(b.Date, b.StartTime, p.loc)
		if err != nil {
			continue
		}
		task, opts, err := NewReminderTask(b, start.Add(-p.lead))
		if err != nil {
			return scheduled, err
		}
		if _, err := enq.EnqueueContext(ctx, task, opts...); err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
				continue
			}
			p.log.Warn("Failed to enqueue reminder", zap.Uint("booking_id", b.ID), zap.Error(err))
			continue
		}
		scheduled++
	}
	return scheduled, nil
}

// SendDueReminders sends reminders directly for sessions starting within
// the lead time. It is used when no task queue is available.
func (p *Processor) SendDueReminders(ctx context.Context) (int, error) {
	now := p.clock.Now()
	bookings, err := p.bookings.StartingBetween(ctx, now, now.Add(p.lead))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, b := range bookings {
		ok, err := p.remind(ctx, ReminderPayload{BookingID: b.ID, Date: b.Date, StartTime: b.StartTime})
		if err != nil {
			p.log.Warn("Reminder failed", zap.Uint("booking_id", b.ID), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// MemoryLedger is a process-local ReminderLedger.
type MemoryLedger struct {
	mu      sync.Mutex
	clock   lifecycle.Clock
	entries map[string]time.Time
}

func NewMemoryLedger(clock lifecycle.Clock) *MemoryLedger {
	if clock == nil {
		clock = lifecycle.RealClock
	}
	return &MemoryLedger{clock: clock, entries: make(map[string]time.Time)}
}

func (l *MemoryLedger) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if expires, ok := l.entries[key]; ok && now.Before(expires) {
		return false, nil
	}
	l.entries[key] = now.Add(ttl)
	return true, nil
}
