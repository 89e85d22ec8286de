package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

func TestTaskProgressFollowsStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewTaskService(database.NewMemoryStore(), zap.NewNop())
	owner := &models.Session{UserID: 1, Role: models.RoleStudent}

	task, err := svc.Create(ctx, owner, TaskInput{Title: "Essay draft", Status: models.TaskStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, 50, task.Progress)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)

	started, err := svc.UpdateStatus(ctx, owner, task.ID, models.TaskStatusStarted)
	require.NoError(t, err)
	assert.Equal(t, 25, started.Progress)

	done, err := svc.UpdateStatus(ctx, owner, task.ID, models.TaskStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 100, done.Progress)

	updated, err := svc.Update(ctx, owner, task.ID, TaskInput{Title: "Essay final", Status: models.TaskStatusPending, Priority: models.TaskPriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Progress)
	assert.Equal(t, models.TaskPriorityHigh, updated.Priority)
}

func TestTaskValidationAndOwnership(t *testing.T) {
	ctx := context.Background()
	svc := NewTaskService(database.NewMemoryStore(), zap.NewNop())
	owner := &models.Session{UserID: 1, Role: models.RoleStudent}
	stranger := &models.Session{UserID: 2, Role: models.RoleTutor}

	_, err := svc.Create(ctx, owner, TaskInput{Title: ""})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = svc.Create(ctx, owner, TaskInput{Title: "x", Priority: "urgent"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = svc.Create(ctx, owner, TaskInput{Title: "x", DueDate: "tomorrow"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	task, err := svc.Create(ctx, owner, TaskInput{Title: "Read chapter 4", DueDate: "2025-01-20"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger, task.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.True(t, apperror.Is(svc.Delete(ctx, stranger, task.ID), apperror.KindNotFound))

	_, err = svc.UpdateStatus(ctx, owner, task.ID, "done")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	require.NoError(t, svc.Delete(ctx, owner, task.ID))
	_, err = svc.Get(ctx, owner, task.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestTaskListFilters(t *testing.T) {
	ctx := context.Background()
	svc := NewTaskService(database.NewMemoryStore(), zap.NewNop())
	owner := &models.Session{UserID: 1, Role: models.RoleStudent}

	for _, in := range []TaskInput{
		{Title: "a", Priority: models.TaskPriorityHigh},
		{Title: "b", Priority: models.TaskPriorityLow, Status: models.TaskStatusCompleted},
		{Title: "c", Priority: models.TaskPriorityHigh, Status: models.TaskStatusCompleted},
	} {
		_, err := svc.Create(ctx, owner, in)
		require.NoError(t, err)
	}

	high, err := svc.List(ctx, owner, "", models.TaskPriorityHigh)
	require.NoError(t, err)
	assert.Len(t, high, 2)

	completedHigh, err := svc.List(ctx, owner, models.TaskStatusCompleted, models.TaskPriorityHigh)
	require.NoError(t, err)
	require.Len(t, completedHigh, 1)
	assert.Equal(t, "c", completedHigh[0].Title)
}
