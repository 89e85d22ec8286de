package services

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

type TutorProfileInput struct {
	Bio        string
	Subjects   []string
	HourlyRate float64
}

type TutorService struct {
	store   database.Store
	reviews *ReviewService
	log     *zap.Logger
}

func NewTutorService(store database.Store, reviews *ReviewService, log *zap.Logger) *TutorService {
	return &TutorService{store: store, reviews: reviews, log: log}
}

func (s *TutorService) summarize(ctx context.Context, p models.TutorProfile) (models.TutorSummary, error) {
	avg, count, err := s.reviews.Rating(ctx, p.UserID)
	if err != nil {
		return models.TutorSummary{}, err
	}
	return models.TutorSummary{TutorProfile: p, AverageRating: avg, ReviewCount: count}, nil
}

func (s *TutorService) List(ctx context.Context, subject string) ([]models.TutorSummary, error) {
	profiles, err := s.store.ListTutorProfiles(ctx, strings.TrimSpace(subject))
	if err != nil {
		return nil, err
	}
	out := make([]models.TutorSummary, 0, len(profiles))
	for _, p := range profiles {
		summary, err := s.summarize(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *TutorService) Get(ctx context.Context, tutorID uint) (*models.TutorSummary, error) {
	p, err := s.store.GetTutorProfile(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, *p)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *TutorService) UpdateProfile(ctx context.Context, session *models.Session, in TutorProfileInput) (*models.TutorProfile, error) {
	if !session.IsTutor() {
		return nil, apperror.Forbidden("only tutors have a tutor profile")
	}
	if in.HourlyRate < 0 {
		return nil, apperror.Validation("hourlyRate", "must not be negative")
	}
	subjects := make([]string, 0, len(in.Subjects))
	seen := map[string]bool{}
	for _, subject := range in.Subjects {
		subject = strings.TrimSpace(subject)
		key := strings.ToLower(subject)
		if subject == "" || seen[key] {
			continue
		}
		seen[key] = true
		subjects = append(subjects, subject)
	}

	p := &models.TutorProfile{
		UserID:     session.UserID,
		Bio:        strings.TrimSpace(in.Bio),
		Subjects:   subjects,
		HourlyRate: in.HourlyRate,
	}
	if err := s.store.SaveTutorProfile(ctx, p); err != nil {
		return nil, err
	}
	return s.store.GetTutorProfile(ctx, session.UserID)
}

// SetAvailability replaces the tutor's weekly slots. Slots on the same
// weekday must not overlap.
func (s *TutorService) SetAvailability(ctx context.Context, session *models.Session, slots []models.AvailabilitySlot) ([]models.AvailabilitySlot, error) {
	if !session.IsTutor() {
		return nil, apperror.Forbidden("only tutors have availability")
	}
	for _, slot := range slots {
		if slot.Weekday < 0 || slot.Weekday > 6 {
			return nil, apperror.Validation("weekday", "must be between 0 (Sunday) and 6")
		}
		minutes, err := lifecycle.MinutesBetween(slot.StartTime, slot.EndTime)
		if err != nil {
			return nil, apperror.Validation("startTime", "times must be formatted HH:MM")
		}
		if minutes <= 0 {
			return nil, apperror.Validation("endTime", "must be after the start time")
		}
	}

	sorted := append([]models.AvailabilitySlot(nil), slots...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weekday != sorted[j].Weekday {
			return sorted[i].Weekday < sorted[j].Weekday
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Weekday == cur.Weekday && cur.StartTime < prev.EndTime {
			return nil, apperror.Validation("slots", "availability slots overlap")
		}
	}

	if err := s.store.ReplaceAvailability(ctx, session.UserID, sorted); err != nil {
		return nil, err
	}
	return sorted, nil
}

// Earnings totals completed sessions and the payout still pending on
// confirmed ones.
func (s *TutorService) Earnings(ctx context.Context, session *models.Session) (*models.Earnings, error) {
	if !session.IsTutor() {
		return nil, apperror.Forbidden("only tutors have earnings")
	}
	bookings, err := s.store.ListBookings(ctx, models.BookingFilter{
		TutorID: session.UserID,
		Statuses: []models.BookingStatus{
			models.BookingStatusCompleted,
			models.BookingStatusConfirmed,
			models.BookingStatusScheduled,
		},
	})
	if err != nil {
		return nil, err
	}

	e := &models.Earnings{ByMonth: map[string]float64{}}
	for _, b := range bookings {
		if b.Status == models.BookingStatusCompleted {
			e.TotalEarned += b.TotalAmount
			e.CompletedSessions++
			if len(b.Date) >= 7 {
				e.ByMonth[b.Date[:7]] += b.TotalAmount
			}
			continue
		}
		e.PendingPayout += b.TotalAmount
	}
	return e, nil
}
