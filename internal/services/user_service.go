package services

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

const maxAvatarBytes = 5 << 20

var avatarExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type ProfileInput struct {
	Name  string
	Phone string
}

type UserService struct {
	store   database.Store
	storage Storage
	log     *zap.Logger
}

func NewUserService(store database.Store, storage Storage, log *zap.Logger) *UserService {
	return &UserService{store: store, storage: storage, log: log}
}

func (s *UserService) Profile(ctx context.Context, session *models.Session) (*models.User, error) {
	return s.store.GetUser(ctx, session.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, session *models.Session, in ProfileInput) (*models.User, error) {
	u, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	u.Phone = strings.TrimSpace(in.Phone)
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UploadAvatar stores the image and replaces the user's previous avatar.
func (s *UserService) UploadAvatar(ctx context.Context, session *models.Session, file *multipart.FileHeader) (*models.User, error) {
	if s.storage == nil {
		return nil, apperror.Unavailable("file storage is not configured")
	}
	if file.Size > maxAvatarBytes {
		return nil, apperror.Validation("avatar", "image must be 5MB or smaller")
	}
	if !avatarExtensions[strings.ToLower(filepath.Ext(file.Filename))] {
		return nil, apperror.Validation("avatar", "image must be jpg, png or webp")
	}

	u, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.Upload(ctx, file, "avatars")
	if err != nil {
		return nil, err
	}
	previous := u.AvatarURL
	u.AvatarURL = url
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	if previous != "" {
		if err := s.storage.Delete(ctx, previous); err != nil {
			s.log.Warn("Failed to delete previous avatar", zap.String("url", previous), zap.Error(err))
		}
	}
	return u, nil
}

// SetPushToken registers the device token used for push notifications.
// An empty token unregisters the device.
func (s *UserService) SetPushToken(ctx context.Context, session *models.Session, token string) error {
	u, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return err
	}
	u.FCMToken = strings.TrimSpace(token)
	return s.store.UpdateUser(ctx, u)
}

func (s *UserService) Preferences(ctx context.Context, session *models.Session) (*models.NotificationPreference, error) {
	return s.store.GetPreferences(ctx, session.UserID)
}

func (s *UserService) UpdatePreferences(ctx context.Context, session *models.Session, p models.NotificationPreference) (*models.NotificationPreference, error) {
	p.UserID = session.UserID
	if err := s.store.SavePreferences(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
