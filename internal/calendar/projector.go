// Package calendar projects bookings and tasks onto month day buckets and
// exports them as iCalendar text.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventBooking EventKind = "booking"
	EventTask    EventKind = "task"
)

// TaskDueTime is the time tasks are shown at on their due date.
const TaskDueTime = "23:59"

// Event is one calendar entry. Booking events carry the session fields,
// task events carry title and priority.
type Event struct {
	ID              uint               `json:"id"`
	Kind            EventKind          `json:"kind"`
	Date            string             `json:"date"`
	Time            string             `json:"time"`
	Subject         string             `json:"subject,omitempty"`
	Title           string             `json:"title,omitempty"`
	CounterpartName string             `json:"counterpartName,omitempty"`
	Status          string             `json:"status"`
	MeetingType     models.MeetingType `json:"meetingType,omitempty"`
	Duration        int                `json:"duration,omitempty"`
	Priority        string             `json:"priority,omitempty"`
}

// Projector builds calendar views. Dates are wall-clock values in Location.
type Projector struct {
	Location *time.Location
	Clock    lifecycle.Clock
	Logger   *zap.Logger
}

// NewProjector returns a Projector; a nil logger disables warnings.
func NewProjector(loc *time.Location, clock lifecycle.Clock, logger *zap.Logger) *Projector {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = lifecycle.RealClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{Location: loc, Clock: clock, Logger: logger}
}

// EventsForMonth maps YYYY-MM-DD to the events on that day in the given
// month, ordered by time. viewerID selects which participant is the
// counterpart on booking events.
func (p *Projector) EventsForMonth(bookings []models.Booking, tasks []models.Task, year int, month time.Month, viewerID uint) map[string][]Event {
	days := make(map[string][]Event)

	for i := range bookings {
		b := &bookings[i]
		if !p.inMonth(b.Date, year, month) {
			continue
		}
		days[b.Date] = append(days[b.Date], Event{
			ID:              b.ID,
			Kind:            EventBooking,
			Date:            b.Date,
			Time:            b.StartTime,
			Subject:         b.Subject,
			CounterpartName: counterpartName(b, viewerID),
			Status:          string(b.Status),
			MeetingType:     b.MeetingType,
			Duration:        b.Duration,
		})
	}

	for i := range tasks {
		t := &tasks[i]
		if t.DueDate == "" || !p.inMonth(t.DueDate, year, month) {
			continue
		}
		days[t.DueDate] = append(days[t.DueDate], Event{
			ID:       t.ID,
			Kind:     EventTask,
			Date:     t.DueDate,
			Time:     TaskDueTime,
			Title:    t.Title,
			Subject:  t.Subject,
			Status:   string(t.Status),
			Priority: string(t.Priority),
		})
	}

	for day := range days {
		sortEvents(days[day])
	}
	return days
}

// Flatten returns all events of a projection ordered by date and time.
func Flatten(days map[string][]Event) []Event {
	keys := make([]string, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Strings(keys)

	var out []Event
	for _, day := range keys {
		out = append(out, days[day]...)
	}
	return out
}

func (p *Projector) inMonth(date string, year int, month time.Month) bool {
	d, err := lifecycle.ParseDate(date, p.Location)
	if err != nil {
		p.Logger.Warn("Skipping calendar entry with malformed date", zap.String("date", date))
		return false
	}
	return d.Year() == year && d.Month() == month
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		if events[i].Kind != events[j].Kind {
			return events[i].Kind == EventBooking
		}
		return events[i].ID < events[j].ID
	})
}

func counterpartName(b *models.Booking, viewerID uint) string {
	switch viewerID {
	case b.StudentID:
		if b.Tutor != nil {
			return b.Tutor.Name
		}
	case b.TutorID:
		if b.Student != nil {
			return b.Student.Name
		}
	}
	return ""
}

func (e Event) summary() string {
	if e.Kind == EventTask {
		return fmt.Sprintf("Task due: %s", e.Title)
	}
	if e.CounterpartName != "" {
		return fmt.Sprintf("%s session with %s", e.Subject, e.CounterpartName)
	}
	return fmt.Sprintf("%s session", e.Subject)
}
