package calendar

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	viewerID uint = 1
	tutorID  uint = 2
)

func projector() *Projector {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	return NewProjector(time.UTC, lifecycle.FixedClock(now), nil)
}

func fixtures() ([]models.Booking, []models.Task) {
	tutor := &models.User{Name: "Ada Tutor"}
	bookings := []models.Booking{
		{StudentID: viewerID, TutorID: tutorID, Tutor: tutor, Subject: "Maths", Date: "2025-01-10", StartTime: "14:00", EndTime: "15:30", Duration: 90, Status: models.BookingStatusConfirmed, MeetingType: models.MeetingTypeVirtual},
		{StudentID: viewerID, TutorID: tutorID, Tutor: tutor, Subject: "Physics", Date: "2025-01-10", StartTime: "09:00", EndTime: "10:00", Duration: 60, Status: models.BookingStatusScheduled},
		{StudentID: viewerID, TutorID: tutorID, Subject: "Biology", Date: "2025-01-10", StartTime: "11:00", EndTime: "12:00", Duration: 60, Status: models.BookingStatusCancelled},
		{StudentID: viewerID, TutorID: tutorID, Subject: "Chemistry", Date: "2025-02-03", StartTime: "09:00", EndTime: "10:00", Status: models.BookingStatusConfirmed},
		{StudentID: viewerID, TutorID: tutorID, Subject: "Broken", Date: "10-01-2025", StartTime: "09:00", Status: models.BookingStatusConfirmed},
	}
	for i := range bookings {
		bookings[i].ID = uint(i + 1)
	}
	tasks := []models.Task{
		{Title: "Essay", Subject: "English", Priority: models.TaskPriorityHigh, Status: models.TaskStatusInProgress, DueDate: "2025-01-10"},
		{Title: "Done already", Status: models.TaskStatusCompleted, DueDate: "2025-01-10"},
		{Title: "No due date", Status: models.TaskStatusPending},
	}
	for i := range tasks {
		tasks[i].ID = uint(100 + i)
	}
	return bookings, tasks
}

func TestEventsForMonth(t *testing.T) {
	bookings, tasks := fixtures()
	days := projector().EventsForMonth(bookings, tasks, 2025, time.January, viewerID)

	require.Len(t, days, 1)
	day := days["2025-01-10"]
	require.Len(t, day, 5)

	var times []string
	for _, e := range day {
		times = append(times, e.Time)
	}
	assert.Equal(t, []string{"09:00", "11:00", "14:00", "23:59", "23:59"}, times)

	maths := day[2]
	assert.Equal(t, EventBooking, maths.Kind)
	assert.Equal(t, "Maths", maths.Subject)
	assert.Equal(t, "Ada Tutor", maths.CounterpartName)
	assert.Equal(t, 90, maths.Duration)
	assert.Equal(t, models.MeetingTypeVirtual, maths.MeetingType)

	essay := day[3]
	assert.Equal(t, EventTask, essay.Kind)
	assert.Equal(t, TaskDueTime, essay.Time)
	assert.Equal(t, "Essay", essay.Title)
	assert.Equal(t, "high", essay.Priority)
	assert.Equal(t, "in-progress", essay.Status)
}

func TestEventsForMonthOtherMonth(t *testing.T) {
	bookings, tasks := fixtures()
	days := projector().EventsForMonth(bookings, tasks, 2025, time.February, viewerID)
	require.Len(t, days["2025-02-03"], 1)
	assert.Empty(t, days["2025-01-10"])
}

var (
	dtStart = regexp.MustCompile(`DTSTART[^:]*:(\d{8}T\d{6}Z?)`)
	dtEnd   = regexp.MustCompile(`DTEND[^:]*:(\d{8}T\d{6}Z?)`)
)

func parseStamp(t *testing.T, s string) time.Time {
	t.Helper()
	layout := "20060102T150405"
	if strings.HasSuffix(s, "Z") {
		layout += "Z"
	}
	ts, err := time.Parse(layout, s)
	require.NoError(t, err)
	return ts
}

func TestExportRoundTrip(t *testing.T) {
	p := projector()
	bookings, tasks := fixtures()
	day := p.EventsForMonth(bookings, tasks, 2025, time.January, viewerID)["2025-01-10"]

	out := p.ExportICalendar(day)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "END:VCALENDAR")
	// Physics (scheduled), Maths (confirmed) and the open task; the
	// cancelled booking and completed task are filtered out.
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 3, strings.Count(out, "STATUS:CONFIRMED"))

	starts := dtStart.FindAllStringSubmatch(out, -1)
	ends := dtEnd.FindAllStringSubmatch(out, -1)
	require.Len(t, starts, 3)
	require.Len(t, ends, 3)

	var durations []time.Duration
	for i := range starts {
		durations = append(durations, parseStamp(t, ends[i][1]).Sub(parseStamp(t, starts[i][1])))
	}
	assert.ElementsMatch(t, []time.Duration{60 * time.Minute, 90 * time.Minute, 60 * time.Minute}, durations)
}

func TestExportSkipsMalformedEvents(t *testing.T) {
	p := projector()
	events := []Event{
		{ID: 1, Kind: EventBooking, Date: "2025-01-10", Time: "25:99", Status: "confirmed", Subject: "Bad"},
		{ID: 2, Kind: EventBooking, Date: "2025-01-10", Time: "09:00", Status: "confirmed", Subject: "Good"},
	}
	out := p.ExportICalendar(events)
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
}

func TestExportSkipsEndedBookings(t *testing.T) {
	now := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	p := NewProjector(time.UTC, lifecycle.FixedClock(now), nil)
	events := []Event{
		{ID: 1, Kind: EventBooking, Date: "2024-12-01", Time: "09:00", Duration: 60, Status: "confirmed", Subject: "Past"},
		{ID: 2, Kind: EventBooking, Date: "2025-01-10", Time: "09:00", Duration: 60, Status: "confirmed", Subject: "Ends now"},
		{ID: 3, Kind: EventBooking, Date: "2025-01-10", Time: "09:30", Duration: 60, Status: "confirmed", Subject: "In progress"},
		{ID: 4, Kind: EventTask, Date: "2025-01-02", Time: TaskDueTime, Status: "pending", Title: "Overdue"},
	}

	out := p.ExportICalendar(events)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.NotContains(t, out, "Past")
	assert.NotContains(t, out, "Ends now")
	assert.Contains(t, out, "In progress")
	assert.Contains(t, out, "Overdue")
}

func TestExportDefaultsDuration(t *testing.T) {
	p := projector()
	out := p.ExportICalendar([]Event{{ID: 9, Kind: EventBooking, Date: "2025-01-10", Time: "09:00", Status: "confirmed"}})

	start := dtStart.FindStringSubmatch(out)
	end := dtEnd.FindStringSubmatch(out)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, time.Hour, parseStamp(t, end[1]).Sub(parseStamp(t, start[1])))
}

func TestEventUIDIsStable(t *testing.T) {
	e := Event{ID: 4, Kind: EventBooking}
	assert.Equal(t, eventUID(e), eventUID(e))
	assert.NotEqual(t, eventUID(e), eventUID(Event{ID: 4, Kind: EventTask}))
}
