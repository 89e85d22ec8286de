package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/calendar"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

func TestCalendarMonthAndExport(t *testing.T) {
	f := newFixture(t, lifecycle.RescheduleWithApproval)
	ctx := context.Background()
	cal := NewCalendarService(f.store, calendar.NewProjector(time.UTC, f.clock, zap.NewNop()))

	confirmed := f.confirmed(t)
	f.request(t)
	require.NoError(t, f.store.CreateTask(ctx, &models.Task{OwnerID: f.student.UserID, Title: "Revise", DueDate: "2025-01-10", Status: models.TaskStatusPending, Priority: models.TaskPriorityLow}))

	days, err := cal.Month(ctx, f.student, 2025, 1)
	require.NoError(t, err)
	events := days["2025-01-10"]
	require.Len(t, events, 3)
	assert.Equal(t, confirmed.ID, events[0].ID)
	assert.Equal(t, "Tia Tutor", events[0].CounterpartName)
	assert.Equal(t, calendar.EventTask, events[2].Kind)

	// The tutor sees the bookings but not the student's tasks.
	tutorDays, err := cal.Month(ctx, f.tutor, 2025, 1)
	require.NoError(t, err)
	assert.Len(t, tutorDays["2025-01-10"], 2)

	export, err := cal.Export(ctx, f.student, 0, 0, "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "tutorlink-2025-01-10.ics", export.Filename)
	assert.Contains(t, export.Body, "BEGIN:VCALENDAR")
	assert.Contains(t, export.Body, "Maths session with Tia Tutor")
	assert.Contains(t, export.Body, "Task due: Revise")

	month, err := cal.Export(ctx, f.student, 2025, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "tutorlink-2025-01.ics", month.Filename)

	_, err = cal.Month(ctx, f.student, 2025, 13)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = cal.Export(ctx, f.student, 0, 0, "10/01/2025")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
