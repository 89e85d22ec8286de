// Package notifications merges the three sources shown in a user's
// notification panel: booking requests, reschedule requests and
// cancellation notices.
package notifications

import (
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

// Kind identifies which list a notification item belongs to.
type Kind string

const (
	KindRequest      Kind = "request"
	KindReschedule   Kind = "reschedule"
	KindCancellation Kind = "cancellation"
)

// Feed is the render-ready notification panel state.
type Feed struct {
	Total         int                         `json:"total"`
	Requests      []models.Booking            `json:"requests"`
	Reschedules   []models.RescheduleRequest  `json:"reschedules"`
	Cancellations []models.CancellationNotice `json:"cancellations"`
}

// Aggregate builds a Feed whose Total is the sum of the three list lengths.
// The input slices are copied, so the result never aliases caller memory.
func Aggregate(requests []models.Booking, reschedules []models.RescheduleRequest, cancellations []models.CancellationNotice) Feed {
	f := Feed{
		Requests:      append([]models.Booking{}, requests...),
		Reschedules:   append([]models.RescheduleRequest{}, reschedules...),
		Cancellations: append([]models.CancellationNotice{}, cancellations...),
	}
	f.recount()
	return f
}

func (f *Feed) recount() {
	f.Total = len(f.Requests) + len(f.Reschedules) + len(f.Cancellations)
}

// Remove drops exactly one item with the given id from the list of kind and
// reports whether an item was removed. It is used for optimistic updates;
// the next full fetch reconciles with the server.
func (f *Feed) Remove(kind Kind, id uint) bool {
	removed := false
	switch kind {
	case KindRequest:
		f.Requests, removed = removeOne(f.Requests, func(b models.Booking) bool { return b.ID == id })
	case KindReschedule:
		f.Reschedules, removed = removeOne(f.Reschedules, func(r models.RescheduleRequest) bool { return r.ID == id })
	case KindCancellation:
		f.Cancellations, removed = removeOne(f.Cancellations, func(n models.CancellationNotice) bool { return n.ID == id })
	}
	if removed {
		f.recount()
	}
	return removed
}

func removeOne[T any](items []T, match func(T) bool) ([]T, bool) {
	for i, item := range items {
		if match(item) {
			out := make([]T, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
	}
	return items, false
}
