package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// PushPayload is a mobile push notification.
type PushPayload struct {
	Title     string
	Body      string
	Data      map[string]string
	ChannelID string
	Tag       string
}

// PushSender delivers push notifications to a device token.
type PushSender interface {
	Send(ctx context.Context, token string, payload PushPayload) error
}

// FCMSender sends push notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	log    *zap.Logger
}

// InitFirebase returns nil without error when no service account is
// configured; push notifications are then disabled.
func InitFirebase(ctx context.Context, serviceAccountPath string, log *zap.Logger) (*FCMSender, error) {
	if serviceAccountPath == "" {
		log.Warn("FIREBASE_SERVICE_ACCOUNT_PATH not set, push notifications disabled")
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Info("Firebase Cloud Messaging initialized")
	return &FCMSender{client: client, log: log}, nil
}

func getAndroidConfig(payload PushPayload) *messaging.AndroidConfig {
	channelID := payload.ChannelID
	if channelID == "" {
		channelID = "tutorlink_sessions"
	}
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:                 "default",
			ChannelID:             channelID,
			Priority:              messaging.PriorityHigh,
			DefaultSound:          true,
			Icon:                  "ic_stat_logo",
			Color:                 "#4F46E5",
			Tag:                   payload.Tag,
			DefaultVibrateTimings: true,
		},
	}
}

func getAPNSConfig() *messaging.APNSConfig {
	badge := 1
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound:            "default",
				Badge:            &badge,
				MutableContent:   true,
				ContentAvailable: true,
			},
		},
	}
}

func (s *FCMSender) Send(ctx context.Context, token string, payload PushPayload) error {
	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:    payload.Data,
		Token:   token,
		Android: getAndroidConfig(payload),
		APNS:    getAPNSConfig(),
	}

	id, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	s.log.Debug("Push notification sent", zap.String("message_id", id))
	return nil
}
