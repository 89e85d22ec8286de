package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) last() Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return Event{}
	}
	return n.events[len(n.events)-1]
}

func (n *recordingNotifier) count(t EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.events {
		if ev.Type == t {
			c++
		}
	}
	return c
}

type fixture struct {
	store    *database.MemoryStore
	clock    *testClock
	notifier *recordingNotifier
	bookings *BookingService
	reviews  *ReviewService
	student  *models.Session
	tutor    *models.Session
	other    *models.Session
}

func newFixture(t *testing.T, policy lifecycle.ReschedulePolicy) *fixture {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemoryStore()
	clock := &testClock{now: time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	log := zap.NewNop()

	student := &models.User{Name: "Sam Student", Email: "sam@example.com", Role: models.RoleStudent}
	other := &models.User{Name: "Olive Other", Email: "olive@example.com", Role: models.RoleStudent}
	tutor := &models.User{Name: "Tia Tutor", Email: "tia@example.com", Role: models.RoleTutor}
	for _, u := range []*models.User{student, other, tutor} {
		require.NoError(t, store.CreateUser(ctx, u))
	}
	require.NoError(t, store.SaveTutorProfile(ctx, &models.TutorProfile{
		UserID:     tutor.ID,
		Subjects:   []string{"Maths", "Physics"},
		HourlyRate: 40,
	}))

	machine := lifecycle.NewMachine(clock, time.UTC, policy)
	return &fixture{
		store:    store,
		clock:    clock,
		notifier: notifier,
		bookings: NewBookingService(store, machine, notifier, log),
		reviews:  NewReviewService(store, clock, notifier, log),
		student:  &models.Session{UserID: student.ID, Role: models.RoleStudent},
		tutor:    &models.Session{UserID: tutor.ID, Role: models.RoleTutor},
		other:    &models.Session{UserID: other.ID, Role: models.RoleStudent},
	}
}

// request creates a pending 09:00-10:30 booking on 2025-01-10.
func (f *fixture) request(t *testing.T) *BookingView {
	t.Helper()
	v, err := f.bookings.Create(context.Background(), f.student, CreateBookingInput{
		TutorID:   f.tutor.UserID,
		Subject:   "Maths",
		Date:      "2025-01-10",
		StartTime: "09:00",
		Duration:  90,
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) confirmed(t *testing.T) *BookingView {
	t.Helper()
	v := f.request(t)
	accepted, err := f.bookings.Respond(context.Background(), f.tutor, v.ID, lifecycle.ActionAccept, "See you")
	require.NoError(t, err)
	return accepted
}
