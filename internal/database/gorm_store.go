package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

// GormStore implements Store on Postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translateError(s.db.WithContext(ctx).Create(u).Error, "user")
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translateError(err, "user")
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error; err != nil {
		return nil, translateError(err, "user")
	}
	return &u, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	return translateError(s.db.WithContext(ctx).Save(u).Error, "user")
}

func (s *GormStore) SaveTutorProfile(ctx context.Context, p *models.TutorProfile) error {
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"bio", "subjects", "hourly_rate", "updated_at"}),
		}).
		Create(p).Error
	return translateError(err, "tutor profile")
}

func (s *GormStore) GetTutorProfile(ctx context.Context, userID uint) (*models.TutorProfile, error) {
	var p models.TutorProfile
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Availability", func(db *gorm.DB) *gorm.DB {
			return db.Order("weekday, start_time")
		}).
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, translateError(err, "tutor")
	}
	return &p, nil
}

func (s *GormStore) ListTutorProfiles(ctx context.Context, subject string) ([]models.TutorProfile, error) {
	var profiles []models.TutorProfile
	q := s.db.WithContext(ctx).Preload("User").Preload("Availability").Order("id")
	if subject != "" {
		q = q.Where("EXISTS (SELECT 1 FROM jsonb_array_elements_text(subjects) AS s WHERE LOWER(s) = LOWER(?))", subject)
	}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("list tutor profiles: %w", err)
	}
	return profiles, nil
}

func (s *GormStore) ReplaceAvailability(ctx context.Context, tutorID uint, slots []models.AvailabilitySlot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tutor_id = ?", tutorID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return fmt.Errorf("clear availability: %w", err)
		}
		if len(slots) == 0 {
			return nil
		}
		for i := range slots {
			slots[i].ID = 0
			slots[i].TutorID = tutorID
		}
		if err := tx.Create(&slots).Error; err != nil {
			return translateError(err, "availability slot")
		}
		return nil
	})
}

func (s *GormStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return translateError(s.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error, "booking")
}

func (s *GormStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).Preload("Student").Preload("Tutor").First(&b, id).Error; err != nil {
		return nil, translateError(err, "booking")
	}
	return &b, nil
}

func (s *GormStore) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	q := s.db.WithContext(ctx).Preload("Student").Preload("Tutor")
	if f.StudentID != 0 {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.TutorID != 0 {
		q = q.Where("tutor_id = ?", f.TutorID)
	}
	if f.ParticipantID != 0 {
		q = q.Where("student_id = ? OR tutor_id = ?", f.ParticipantID, f.ParticipantID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.DateFrom != "" {
		q = q.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("date <= ?", f.DateTo)
	}

	var bookings []models.Booking
	if err := q.Order("date, start_time, id").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *GormStore) ApplyTransition(ctx context.Context, t models.Transition) error {
	b := t.Booking
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(b).
			Where("status = ?", t.From).
			Select("*").
			Omit("CreatedAt", "DeletedAt", clause.Associations).
			Updates(b)
		if res.Error != nil {
			return translateError(res.Error, "booking")
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Booking{}).Where("id = ?", b.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("check booking: %w", err)
			}
			if count == 0 {
				return apperror.NotFound("booking")
			}
			return apperror.Conflict("booking was modified by another request, reload and try again")
		}

		if r := t.Reschedule; r != nil {
			if err := tx.Omit(clause.Associations).Save(r).Error; err != nil {
				return translateError(err, "reschedule request")
			}
		}
		if n := t.Cancellation; n != nil {
			if err := tx.Omit(clause.Associations).Save(n).Error; err != nil {
				return translateError(err, "cancellation notice")
			}
		}
		return nil
	})
}

func (s *GormStore) GetRescheduleRequest(ctx context.Context, id uint) (*models.RescheduleRequest, error) {
	var r models.RescheduleRequest
	if err := s.db.WithContext(ctx).Preload("Booking").First(&r, id).Error; err != nil {
		return nil, translateError(err, "reschedule request")
	}
	return &r, nil
}

func (s *GormStore) PendingRescheduleForBooking(ctx context.Context, bookingID uint) (*models.RescheduleRequest, error) {
	var r models.RescheduleRequest
	err := s.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, models.RequestStatusPending).
		Order("created_at DESC").
		First(&r).Error
	if err != nil {
		return nil, translateError(err, "reschedule request")
	}
	return &r, nil
}

func (s *GormStore) ListRescheduleRequests(ctx context.Context, recipientID uint, status models.RequestStatus) ([]models.RescheduleRequest, error) {
	q := s.db.WithContext(ctx).
		Preload("Booking").
		Preload("Booking.Student").
		Preload("Booking.Tutor").
		Where("recipient_id = ?", recipientID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.RescheduleRequest
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reschedule requests: %w", err)
	}
	return out, nil
}

func (s *GormStore) GetCancellationNotice(ctx context.Context, id uint) (*models.CancellationNotice, error) {
	var n models.CancellationNotice
	if err := s.db.WithContext(ctx).Preload("Booking").First(&n, id).Error; err != nil {
		return nil, translateError(err, "cancellation notice")
	}
	return &n, nil
}

func (s *GormStore) ListCancellationNotices(ctx context.Context, recipientID uint, status models.RequestStatus) ([]models.CancellationNotice, error) {
	q := s.db.WithContext(ctx).
		Preload("Booking").
		Preload("Booking.Student").
		Preload("Booking.Tutor").
		Where("recipient_id = ?", recipientID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.CancellationNotice
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list cancellation notices: %w", err)
	}
	return out, nil
}

func (s *GormStore) UpdateCancellationNotice(ctx context.Context, n *models.CancellationNotice) error {
	return translateError(s.db.WithContext(ctx).Omit(clause.Associations).Save(n).Error, "cancellation notice")
}

func (s *GormStore) CreateTask(ctx context.Context, t *models.Task) error {
	return translateError(s.db.WithContext(ctx).Create(t).Error, "task")
}

func (s *GormStore) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translateError(err, "task")
	}
	return &t, nil
}

func (s *GormStore) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	q := s.db.WithContext(ctx).Where("owner_id = ?", f.OwnerID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	var tasks []models.Task
	if err := q.Order("due_date, id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *GormStore) UpdateTask(ctx context.Context, t *models.Task) error {
	return translateError(s.db.WithContext(ctx).Save(t).Error, "task")
}

func (s *GormStore) DeleteTask(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("task")
	}
	return nil
}

func (s *GormStore) CreateReview(ctx context.Context, r *models.Review) error {
	return translateError(s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error, "review")
}

func (s *GormStore) GetReviewByBooking(ctx context.Context, bookingID uint) (*models.Review, error) {
	var r models.Review
	if err := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&r).Error; err != nil {
		return nil, translateError(err, "review")
	}
	return &r, nil
}

func (s *GormStore) ListReviewsForTutor(ctx context.Context, tutorID uint) ([]models.Review, error) {
	var out []models.Review
	err := s.db.WithContext(ctx).
		Preload("Student").
		Where("tutor_id = ?", tutorID).
		Order("review_date DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}

func (s *GormStore) GetPreferences(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	var p models.NotificationPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &p, nil
}

func (s *GormStore) SavePreferences(ctx context.Context, p *models.NotificationPreference) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.NotificationPreference{UserID: p.UserID}).Error
		if err != nil {
			return translateError(err, "notification preferences")
		}
		// Map updates so false values are written rather than skipped for their defaults.
		err = tx.Model(&models.NotificationPreference{}).
			Where("user_id = ?", p.UserID).
			Updates(map[string]any{
				"push_enabled":      p.PushEnabled,
				"booking_alerts":    p.BookingAlerts,
				"reschedule_alerts": p.RescheduleAlerts,
				"reminder_alerts":   p.ReminderAlerts,
			}).Error
		if err != nil {
			return fmt.Errorf("update preferences: %w", err)
		}
		return tx.Where("user_id = ?", p.UserID).First(p).Error
	})
}
