package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

func TestReviewOnlyAfterCompletion(t *testing.T) {
	f := newFixture(t, lifecycle.RescheduleWithApproval)
	ctx := context.Background()
	v := f.confirmed(t)

	_, err := f.reviews.Create(ctx, f.student, v.ID, ReviewInput{Rating: 5})
	assert.True(t, apperror.Is(err, apperror.KindTransition))

	f.clock.Set(time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))
	_, err = f.bookings.Complete(ctx, f.tutor, v.ID, "")
	require.NoError(t, err)

	_, err = f.reviews.Create(ctx, f.student, v.ID, ReviewInput{Rating: 6})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = f.reviews.Create(ctx, f.other, v.ID, ReviewInput{Rating: 4})
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))

	review, err := f.reviews.Create(ctx, f.student, v.ID, ReviewInput{Rating: 4, ReviewText: "Clear explanations", WouldRecommend: true})
	require.NoError(t, err)
	assert.Equal(t, f.tutor.UserID, review.TutorID)
	assert.Equal(t, EventReviewPosted, f.notifier.last().Type)

	_, err = f.reviews.Create(ctx, f.student, v.ID, ReviewInput{Rating: 5})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	avg, count, err := f.reviews.Rating(ctx, f.tutor.UserID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 1, count)
}

func TestTutorProfileAvailabilityAndEarnings(t *testing.T) {
	f := newFixture(t, lifecycle.RescheduleWithApproval)
	ctx := context.Background()
	tutors := NewTutorService(f.store, f.reviews, zap.NewNop())

	profile, err := tutors.UpdateProfile(ctx, f.tutor, TutorProfileInput{
		Bio: "Maths graduate", Subjects: []string{"Maths", " maths ", "Chemistry", ""}, HourlyRate: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Maths", "Chemistry"}, profile.Subjects)

	_, err = tutors.UpdateProfile(ctx, f.student, TutorProfileInput{})
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))

	_, err = tutors.SetAvailability(ctx, f.tutor, []models.AvailabilitySlot{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 1, StartTime: "11:00", EndTime: "13:00"},
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	slots, err := tutors.SetAvailability(ctx, f.tutor, []models.AvailabilitySlot{
		{Weekday: 3, StartTime: "14:00", EndTime: "16:00"},
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, slots[0].Weekday)

	summary, err := tutors.Get(ctx, f.tutor.UserID)
	require.NoError(t, err)
	assert.Len(t, summary.Availability, 2)
	assert.Equal(t, 50.0, summary.HourlyRate)

	chem, err := tutors.List(ctx, "chemistry")
	require.NoError(t, err)
	assert.Len(t, chem, 1)
	none, err := tutors.List(ctx, "history")
	require.NoError(t, err)
	assert.Empty(t, none)

	done := f.confirmed(t)
	f.confirmed(t)
	f.clock.Set(time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))
	_, err = f.bookings.Complete(ctx, f.tutor, done.ID, "")
	require.NoError(t, err)

	earnings, err := tutors.Earnings(ctx, f.tutor)
	require.NoError(t, err)
	assert.Equal(t, 1, earnings.CompletedSessions)
	assert.Equal(t, 75.0, earnings.TotalEarned)
	assert.Equal(t, 75.0, earnings.PendingPayout)
	assert.Equal(t, map[string]float64{"2025-01": 75}, earnings.ByMonth)
}
