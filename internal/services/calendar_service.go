package services

import (
	"context"
	"fmt"
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/calendar"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

// CalendarExport is an iCalendar file ready to download.
type CalendarExport struct {
	Filename string
	Body     string
}

type CalendarService struct {
	store     database.Store
	projector *calendar.Projector
}

func NewCalendarService(store database.Store, projector *calendar.Projector) *CalendarService {
	return &CalendarService{store: store, projector: projector}
}

func validMonth(year, month int) error {
	if year < 1970 || year > 9999 {
		return apperror.Validation("year", "year is out of range")
	}
	if month < 1 || month > 12 {
		return apperror.Validation("month", "month must be between 1 and 12")
	}
	return nil
}

// Month projects the caller's bookings and tasks onto the days of a month.
func (s *CalendarService) Month(ctx context.Context, session *models.Session, year, month int) (map[string][]calendar.Event, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	bookings, err := s.store.ListBookings(ctx, models.BookingFilter{
		ParticipantID: session.UserID,
		DateFrom:      first.Format(lifecycle.DateLayout),
		DateTo:        last.Format(lifecycle.DateLayout),
	})
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, models.TaskFilter{OwnerID: session.UserID})
	if err != nil {
		return nil, err
	}
	return s.projector.EventsForMonth(bookings, tasks, year, time.Month(month), session.UserID), nil
}

// Export renders a month, or a single day when date is set, as iCalendar.
func (s *CalendarService) Export(ctx context.Context, session *models.Session, year, month int, date string) (*CalendarExport, error) {
	if date != "" {
		day, err := time.Parse(lifecycle.DateLayout, date)
		if err != nil {
			return nil, apperror.Validation("date", "must be formatted YYYY-MM-DD")
		}
		year, month = day.Year(), int(day.Month())
	}
	days, err := s.Month(ctx, session, year, month)
	if err != nil {
		return nil, err
	}

	var events []calendar.Event
	filename := fmt.Sprintf("tutorlink-%04d-%02d.ics", year, month)
	if date != "" {
		events = days[date]
		filename = fmt.Sprintf("tutorlink-%s.ics", date)
	} else {
		events = calendar.Flatten(days)
	}
	return &CalendarExport{Filename: filename, Body: s.projector.ExportICalendar(events)}, nil
}
