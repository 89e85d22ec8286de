package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

type ReviewInput struct {
	Rating         int
	ReviewText     string
	WouldRecommend bool
}

type ReviewService struct {
	store    database.Store
	clock    lifecycle.Clock
	notifier Notifier
	log      *zap.Logger
}

func NewReviewService(store database.Store, clock lifecycle.Clock, notifier Notifier, log *zap.Logger) *ReviewService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ReviewService{store: store, clock: clock, notifier: notifier, log: log}
}

// Create attaches the student's review to a completed booking. A booking
// can be reviewed once.
func (s *ReviewService) Create(ctx context.Context, session *models.Session, bookingID uint, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperror.Validation("rating", "rating must be between 1 and 5")
	}
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !session.IsStudent() || b.StudentID != session.UserID {
		return nil, apperror.Forbidden("only the booking's student can review this session")
	}
	if b.Status != models.BookingStatusCompleted {
		return nil, apperror.Transition(string(b.Status), string(lifecycle.ActionReview))
	}

	r := &models.Review{
		BookingID:      b.ID,
		StudentID:      b.StudentID,
		TutorID:        b.TutorID,
		Rating:         in.Rating,
		ReviewText:     strings.TrimSpace(in.ReviewText),
		WouldRecommend: in.WouldRecommend,
		ReviewDate:     s.clock.Now(),
	}
	if err := s.store.CreateReview(ctx, r); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, Event{
		Type:   EventReviewPosted,
		UserID: b.TutorID,
		Title:  "New review",
		Body:   fmt.Sprintf("%s rated your %s session %d/5", nameOf(b.Student), b.Subject, r.Rating),
		Data:   map[string]any{"bookingId": b.ID, "reviewId": r.ID, "rating": r.Rating},
	})
	return r, nil
}

func (s *ReviewService) ForTutor(ctx context.Context, tutorID uint) ([]models.Review, error) {
	return s.store.ListReviewsForTutor(ctx, tutorID)
}

// Rating returns the average rating and review count of a tutor.
func (s *ReviewService) Rating(ctx context.Context, tutorID uint) (float64, int, error) {
	reviews, err := s.store.ListReviewsForTutor(ctx, tutorID)
	if err != nil {
		return 0, 0, err
	}
	return averageRating(reviews), len(reviews), nil
}

func averageRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return float64(int(avg*10+0.5)) / 10
}
