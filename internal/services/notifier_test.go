package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

type fakePublisher struct {
	sent []WebSocketMessage
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, _ uint, msg WebSocketMessage) error {
	p.sent = append(p.sent, msg)
	return p.err
}

type fakePush struct {
	tokens   []string
	payloads []PushPayload
}

func (p *fakePush) Send(_ context.Context, token string, payload PushPayload) error {
	p.tokens = append(p.tokens, token)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestDispatcherHonoursPreferences(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	user := &models.User{Name: "Sam", Email: "sam@example.com", Role: models.RoleStudent, FCMToken: "device-1"}
	require.NoError(t, store.CreateUser(ctx, user))

	realtime := &fakePublisher{}
	push := &fakePush{}
	d := NewDispatcher(realtime, push, store, zap.NewNop())

	d.Notify(ctx, Event{Type: EventBookingAccepted, UserID: user.ID, Title: "Accepted", Data: map[string]any{"bookingId": uint(7)}})
	require.Len(t, realtime.sent, 1)
	assert.Equal(t, "booking_accepted", realtime.sent[0].Type)
	require.Len(t, push.payloads, 1)
	assert.Equal(t, "device-1", push.tokens[0])
	assert.Equal(t, "7", push.payloads[0].Data["bookingId"])

	prefs := models.DefaultPreferences(user.ID)
	prefs.RescheduleAlerts = false
	require.NoError(t, store.SavePreferences(ctx, prefs))

	d.Notify(ctx, Event{Type: EventRescheduleRequested, UserID: user.ID, Title: "Reschedule"})
	assert.Len(t, realtime.sent, 2)
	assert.Len(t, push.payloads, 1)

	d.Notify(ctx, Event{Type: EventSessionReminder, UserID: user.ID, Title: "Soon"})
	assert.Len(t, push.payloads, 2)
}

func TestDispatcherIsBestEffort(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	user := &models.User{Name: "Sam", Email: "sam@example.com", Role: models.RoleStudent}
	require.NoError(t, store.CreateUser(ctx, user))

	realtime := &fakePublisher{err: errors.New("redis down")}
	push := &fakePush{}
	d := NewDispatcher(realtime, push, store, zap.NewNop())

	assert.NotPanics(t, func() {
		d.Notify(ctx, Event{Type: EventBookingRequested, UserID: user.ID})
		d.Notify(ctx, Event{Type: EventBookingRequested, UserID: 999})
		d.Notify(ctx, Event{Type: EventBookingRequested})
	})
	assert.Len(t, realtime.sent, 2)
	assert.Empty(t, push.payloads, "users without a device token get no push")
}
