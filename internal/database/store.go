package database

import (
	"context"

	"github.com/chachabrian/tutorlink-backend/internal/models"
)

// Store is the persistence surface used by the services. Lookups of missing
// rows return an apperror of kind not_found; unique violations return
// kind conflict.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error

	SaveTutorProfile(ctx context.Context, p *models.TutorProfile) error
	GetTutorProfile(ctx context.Context, userID uint) (*models.TutorProfile, error)
	ListTutorProfiles(ctx context.Context, subject string) ([]models.TutorProfile, error)
	ReplaceAvailability(ctx context.Context, tutorID uint, slots []models.AvailabilitySlot) error

	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error)
	// ApplyTransition persists a status change and its side records in one
	// unit. It fails with kind conflict when the stored status no longer
	// equals t.From.
	ApplyTransition(ctx context.Context, t models.Transition) error

	GetRescheduleRequest(ctx context.Context, id uint) (*models.RescheduleRequest, error)
	PendingRescheduleForBooking(ctx context.Context, bookingID uint) (*models.RescheduleRequest, error)
	ListRescheduleRequests(ctx context.Context, recipientID uint, status models.RequestStatus) ([]models.RescheduleRequest, error)

	GetCancellationNotice(ctx context.Context, id uint) (*models.CancellationNotice, error)
	ListCancellationNotices(ctx context.Context, recipientID uint, status models.RequestStatus) ([]models.CancellationNotice, error)
	UpdateCancellationNotice(ctx context.Context, n *models.CancellationNotice) error

	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id uint) (*models.Task, error)
	ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id uint) error

	CreateReview(ctx context.Context, r *models.Review) error
	GetReviewByBooking(ctx context.Context, bookingID uint) (*models.Review, error)
	ListReviewsForTutor(ctx context.Context, tutorID uint) ([]models.Review, error)

	GetPreferences(ctx context.Context, userID uint) (*models.NotificationPreference, error)
	SavePreferences(ctx context.Context, p *models.NotificationPreference) error
}
