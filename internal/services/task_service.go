package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

type TaskInput struct {
	Title         string
	Description   string
	Subject       string
	Priority      models.TaskPriority
	Status        models.TaskStatus
	EstimatedTime int
	DueDate       string
}

type TaskService struct {
	store database.Store
	log   *zap.Logger
}

func NewTaskService(store database.Store, log *zap.Logger) *TaskService {
	return &TaskService{store: store, log: log}
}

func validPriority(p models.TaskPriority) bool {
	return p == models.TaskPriorityLow || p == models.TaskPriorityMedium || p == models.TaskPriorityHigh
}

func validTaskStatus(st models.TaskStatus) bool {
	switch st {
	case models.TaskStatusPending, models.TaskStatusStarted, models.TaskStatusInProgress, models.TaskStatusCompleted:
		return true
	}
	return false
}

func (s *TaskService) apply(t *models.Task, in TaskInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return apperror.Validation("title", "title is required")
	}
	if in.Priority == "" {
		in.Priority = models.TaskPriorityMedium
	}
	if !validPriority(in.Priority) {
		return apperror.Validation("priority", "must be low, medium or high")
	}
	if in.Status == "" {
		in.Status = models.TaskStatusPending
	}
	if !validTaskStatus(in.Status) {
		return apperror.Validation("status", "must be pending, started, in-progress or completed")
	}
	if in.EstimatedTime < 0 {
		return apperror.Validation("estimatedTime", "must not be negative")
	}
	if in.DueDate != "" {
		if _, err := time.Parse(lifecycle.DateLayout, in.DueDate); err != nil {
			return apperror.Validation("dueDate", "must be formatted YYYY-MM-DD")
		}
	}

	t.Title = title
	t.Description = strings.TrimSpace(in.Description)
	t.Subject = strings.TrimSpace(in.Subject)
	t.Priority = in.Priority
	t.Status = in.Status
	t.EstimatedTime = in.EstimatedTime
	t.DueDate = in.DueDate
	t.SyncProgress()
	return nil
}

func (s *TaskService) Create(ctx context.Context, session *models.Session, in TaskInput) (*models.Task, error) {
	t := &models.Task{OwnerID: session.UserID}
	if err := s.apply(t, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) List(ctx context.Context, session *models.Session, status models.TaskStatus, priority models.TaskPriority) ([]models.Task, error) {
	if status != "" && !validTaskStatus(status) {
		return nil, apperror.Validation("status", "unknown task status")
	}
	if priority != "" && !validPriority(priority) {
		return nil, apperror.Validation("priority", "unknown task priority")
	}
	return s.store.ListTasks(ctx, models.TaskFilter{OwnerID: session.UserID, Status: status, Priority: priority})
}

func (s *TaskService) Get(ctx context.Context, session *models.Session, id uint) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != session.UserID {
		return nil, apperror.NotFound("task")
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, session *models.Session, id uint, in TaskInput) (*models.Task, error) {
	t, err := s.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = t.Status
	}
	if in.Priority == "" {
		in.Priority = t.Priority
	}
	if err := s.apply(t, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateStatus changes only the status; progress follows it.
func (s *TaskService) UpdateStatus(ctx context.Context, session *models.Session, id uint, status models.TaskStatus) (*models.Task, error) {
	if !validTaskStatus(status) {
		return nil, apperror.Validation("status", "must be pending, started, in-progress or completed")
	}
	t, err := s.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}
	t.Status = status
	t.SyncProgress()
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, session *models.Session, id uint) error {
	if _, err := s.Get(ctx, session, id); err != nil {
		return err
	}
	return s.store.DeleteTask(ctx, id)
}
