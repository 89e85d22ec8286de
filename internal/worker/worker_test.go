package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

type fakeBookings struct {
	upcoming  []models.Booking
	reminded  []uint
	sweeps    int
	lastRange [2]time.Time
}

func (f *fakeBookings) Sweep(context.Context, uint) (services.SweepResult, error) {
	f.sweeps++
	return services.SweepResult{Completed: []uint{1}}, nil
}

func (f *fakeBookings) StartingBetween(_ context.Context, from, to time.Time) ([]models.Booking, error) {
	f.lastRange = [2]time.Time{from, to}
	return f.upcoming, nil
}

func (f *fakeBookings) SendReminder(_ context.Context, id uint) error {
	f.reminded = append(f.reminded, id)
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	ids   map[string]bool
}

func (e *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	for _, opt := range opts {
		if opt.Type() == asynq.TaskIDOpt {
			id := opt.Value().(string)
			if e.ids[id] {
				return nil, asynq.ErrTaskIDConflict
			}
			e.ids[id] = true
		}
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

var now = time.Date(2025, 1, 10, 8, 40, 0, 0, time.UTC)

func session(id uint, start string) models.Booking {
	b := models.Booking{Date: "2025-01-10", StartTime: start, Status: models.BookingStatusConfirmed}
	b.ID = id
	return b
}

func TestScheduleRemindersDeduplicatesSlots(t *testing.T) {
	bookings := &fakeBookings{upcoming: []models.Booking{session(1, "09:00"), session(2, "09:10")}}
	p := NewProcessor(bookings, nil, lifecycle.FixedClock(now), time.UTC, 30*time.Minute, zap.NewNop())
	enq := &fakeEnqueuer{ids: map[string]bool{}}

	n, err := p.ScheduleReminders(context.Background(), enq)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, now.Add(40*time.Minute), bookings.lastRange[1])

	n, err = p.ScheduleReminders(context.Background(), enq)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "the same slots are not enqueued twice")

	var payload ReminderPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, ReminderPayload{BookingID: 1, Date: "2025-01-10", StartTime: "09:00"}, payload)
}

func TestHandleReminderSendsOnce(t *testing.T) {
	bookings := &fakeBookings{}
	p := NewProcessor(bookings, NewMemoryLedger(lifecycle.FixedClock(now)), lifecycle.FixedClock(now), time.UTC, 30*time.Minute, zap.NewNop())

	task, _, err := NewReminderTask(session(7, "09:00"), now)
	require.NoError(t, err)
	require.NoError(t, p.HandleReminder(context.Background(), task))
	require.NoError(t, p.HandleReminder(context.Background(), task))
	assert.Equal(t, []uint{7}, bookings.reminded)

	err = p.HandleReminder(context.Background(), asynq.NewTask(TypeSessionReminder, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendDueRemindersAndSweep(t *testing.T) {
	bookings := &fakeBookings{upcoming: []models.Booking{session(3, "09:00")}}
	p := NewProcessor(bookings, nil, lifecycle.FixedClock(now), time.UTC, 30*time.Minute, zap.NewNop())

	sent, err := p.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	sent, err = p.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	// Only the new session counts; the one already reminded is skipped.
	bookings.upcoming = append(bookings.upcoming, session(4, "09:05"))
	sent, err = p.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []uint{3, 4}, bookings.reminded)

	require.NoError(t, p.HandleSweep(context.Background(), NewSweepTask()))
	assert.Equal(t, 1, bookings.sweeps)
}

func TestIntervalFromSpec(t *testing.T) {
	assert.Equal(t, 5*time.Minute, IntervalFromSpec("@every 5m", time.Hour))
	assert.Equal(t, time.Hour, IntervalFromSpec("*/5 * * * *", time.Hour))
	assert.Equal(t, time.Hour, IntervalFromSpec("@every soon", time.Hour))
}
