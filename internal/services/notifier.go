package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/database"
)

type EventType string

const (
	EventBookingRequested    EventType = "booking_requested"
	EventBookingAccepted     EventType = "booking_accepted"
	EventBookingDeclined     EventType = "booking_declined"
	EventBookingCancelled    EventType = "booking_cancelled"
	EventRescheduleRequested EventType = "reschedule_requested"
	EventRescheduleApproved  EventType = "reschedule_approved"
	EventRescheduleRejected  EventType = "reschedule_rejected"
	EventSessionCompleted    EventType = "session_completed"
	EventReviewPosted        EventType = "review_posted"
	EventSessionReminder     EventType = "session_reminder"
)

// Category maps an event onto a notification preference switch.
func (t EventType) Category() string {
	switch t {
	case EventRescheduleRequested, EventRescheduleApproved, EventRescheduleRejected:
		return "reschedule"
	case EventSessionReminder:
		return "reminder"
	}
	return "booking"
}

// Event is a notification for one user.
type Event struct {
	Type   EventType
	UserID uint
	Title  string
	Body   string
	Data   map[string]any
}

// Notifier delivers events. Delivery is best effort and never fails the
// operation that produced the event.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Publisher is the realtime path: the local hub or the Redis bus.
type Publisher interface {
	Publish(ctx context.Context, userID uint, msg WebSocketMessage) error
}

// HubPublisher publishes straight into a local hub.
type HubPublisher struct {
	Hub *Hub
}

func (p HubPublisher) Publish(_ context.Context, userID uint, msg WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	p.Hub.BroadcastToUser(userID, data)
	return nil
}

// Dispatcher sends each event over the realtime path and, when the user has
// a device token and allows the category, as a push notification.
type Dispatcher struct {
	realtime Publisher
	push     PushSender
	store    database.Store
	log      *zap.Logger
}

func NewDispatcher(realtime Publisher, push PushSender, store database.Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{realtime: realtime, push: push, store: store, log: log}
}

func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	if ev.UserID == 0 {
		return
	}
	log := d.log.With(zap.String("event", string(ev.Type)), zap.Uint("user_id", ev.UserID))

	if d.realtime != nil {
		payload := map[string]any{"title": ev.Title, "body": ev.Body}
		for k, v := range ev.Data {
			payload[k] = v
		}
		msg := WebSocketMessage{Type: string(ev.Type), Data: payload}
		if err := d.realtime.Publish(ctx, ev.UserID, msg); err != nil {
			log.Warn("Realtime delivery failed", zap.Error(err))
		}
	}

	if d.push == nil {
		return
	}
	user, err := d.store.GetUser(ctx, ev.UserID)
	if err != nil {
		log.Warn("Push skipped, user lookup failed", zap.Error(err))
		return
	}
	if user.FCMToken == "" {
		return
	}
	prefs, err := d.store.GetPreferences(ctx, ev.UserID)
	if err != nil {
		log.Warn("Push skipped, preference lookup failed", zap.Error(err))
		return
	}
	if !prefs.Allows(ev.Type.Category()) {
		return
	}

	data := map[string]string{"type": string(ev.Type)}
	for k, v := range ev.Data {
		data[k] = fmt.Sprint(v)
	}
	err = d.push.Send(ctx, user.FCMToken, PushPayload{
		Title: ev.Title,
		Body:  ev.Body,
		Data:  data,
		Tag:   string(ev.Type),
	})
	if err != nil {
		log.Warn("Push delivery failed", zap.Error(err))
	}
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
