package lifecycle

import (
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/models"
)

// AutoCompleteNote is attached to bookings completed by the sweep.
const AutoCompleteNote = "Auto-completed after session end time"

// CompletionPolicy decides when a session may be marked complete.
// Dates and times are interpreted as wall-clock values in Location.
type CompletionPolicy struct {
	Clock    Clock
	Location *time.Location
}

func (p CompletionPolicy) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

func (p CompletionPolicy) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// EndOf returns the instant the session ends.
func (p CompletionPolicy) EndOf(b *models.Booking) (time.Time, error) {
	return Combine(b.Date, b.EndTime, p.loc())
}

// StartOf returns the instant the session starts.
func (p CompletionPolicy) StartOf(b *models.Booking) (time.Time, error) {
	return Combine(b.Date, b.StartTime, p.loc())
}

// CanMarkComplete is true iff the booking is confirmed (or scheduled) and
// its end time has been reached. A session ending exactly now is eligible.
func (p CompletionPolicy) CanMarkComplete(b *models.Booking) bool {
	if b == nil || !b.Status.IsConfirmed() {
		return false
	}
	end, err := p.EndOf(b)
	if err != nil {
		return false
	}
	return !p.now().Before(end)
}

// TimeUntilComplete returns the whole minutes, rounded up, until the booking
// becomes eligible for completion, clamped at zero. It returns nil for a nil
// booking or an unparsable end time.
func (p CompletionPolicy) TimeUntilComplete(b *models.Booking) *int {
	if b == nil {
		return nil
	}
	end, err := p.EndOf(b)
	if err != nil {
		return nil
	}
	minutes := 0
	if d := end.Sub(p.now()); d > 0 {
		minutes = int((d + time.Minute - 1) / time.Minute)
	}
	return &minutes
}
