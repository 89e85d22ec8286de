// Package worker runs the background jobs: session reminders and the
// periodic auto-completion sweep.
package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/chachabrian/tutorlink-backend/internal/models"
)

const (
	TypeSessionReminder = "session:reminder"
	TypeReminderScan    = "session:reminder-scan"
	TypeBookingSweep    = "booking:sweep"
)

// ReminderPayload identifies the session slot a reminder was planned for.
// A rescheduled booking gets a new slot and therefore a new reminder.
type ReminderPayload struct {
	BookingID uint   `json:"bookingId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
}

func (p ReminderPayload) key() string {
	return fmt.Sprintf("reminder:%d:%sT%s", p.BookingID, p.Date, p.StartTime)
}

// NewReminderTask builds a reminder task processed at fireAt. The task id
// is derived from the slot, so enqueueing the same slot twice conflicts.
func NewReminderTask(b models.Booking, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	payload := ReminderPayload{BookingID: b.ID, Date: b.Date, StartTime: b.StartTime}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSessionReminder, data)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(payload.key()),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

func NewReminderScanTask() *asynq.Task {
	return asynq.NewTask(TypeReminderScan, nil)
}

func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeBookingSweep, nil)
}
