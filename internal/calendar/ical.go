package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const productID = "-//TutorLink//Calendar Export//EN"

var uidNamespace = uuid.MustParse("5f0c1c8e-8f55-4d3e-9a39-6f1d2b7f3a10")

// Exportable reports whether an event belongs in an export: tasks that are
// not completed, and bookings that are confirmed or scheduled.
func Exportable(e Event) bool {
	switch e.Kind {
	case EventTask:
		return e.Status != string(models.TaskStatusCompleted)
	case EventBooking:
		return models.BookingStatus(e.Status).IsConfirmed()
	}
	return false
}

// ExportICalendar serializes the exportable events as an RFC 5545
// calendar. Bookings that have already ended are left out even before the
// sweep completes them; open tasks are kept when overdue. Events with
// malformed dates or times are skipped with a warning.
func (p *Projector) ExportICalendar(events []Event) string {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ics.MethodPublish)

	stamp := p.Clock.Now()
	for _, e := range events {
		if !Exportable(e) {
			continue
		}
		start, err := lifecycle.Combine(e.Date, e.Time, p.Location)
		if err != nil {
			p.Logger.Warn("Skipping event with malformed date/time",
				zap.String("kind", string(e.Kind)),
				zap.Uint("id", e.ID),
				zap.Error(err),
			)
			continue
		}
		minutes := e.Duration
		if minutes <= 0 {
			minutes = lifecycle.DefaultSessionMinutes
		}
		end := start.Add(time.Duration(minutes) * time.Minute)
		if e.Kind == EventBooking && !end.After(stamp) {
			continue
		}

		event := cal.AddEvent(eventUID(e))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(e.summary())
		event.SetDescription(e.description())
		event.SetProperty(ics.ComponentPropertyStatus, "CONFIRMED")
	}
	return cal.Serialize()
}

func eventUID(e Event) string {
	name := fmt.Sprintf("%s:%d", e.Kind, e.ID)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@tutorlink"
}

func (e Event) description() string {
	var parts []string
	if e.Kind == EventTask {
		if e.Subject != "" {
			parts = append(parts, "Subject: "+e.Subject)
		}
		parts = append(parts, "Priority: "+e.Priority, "Status: "+e.Status)
		return strings.Join(parts, "\n")
	}
	if e.MeetingType != "" {
		parts = append(parts, "Meeting: "+string(e.MeetingType))
	}
	minutes := e.Duration
	if minutes <= 0 {
		minutes = lifecycle.DefaultSessionMinutes
	}
	parts = append(parts, fmt.Sprintf("Duration: %d minutes", minutes), "Status: "+e.Status)
	return strings.Join(parts, "\n")
}
