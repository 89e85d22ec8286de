package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

type TaskInput struct {
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	Subject       string              `json:"subject,omitempty"`
	Priority      models.TaskPriority `json:"priority,omitempty"`
	Status        models.TaskStatus   `json:"status,omitempty"`
	EstimatedTime int                 `json:"estimatedTime,omitempty"`
	DueDate       string              `json:"dueDate,omitempty"`
}

func (c *Client) Tasks(ctx context.Context, status models.TaskStatus, priority models.TaskPriority) ([]models.Task, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if priority != "" {
		q.Set("priority", string(priority))
	}
	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.Task
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.Validation("title", "title is required")
	}
	var out models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id uint, in TaskInput) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.Validation("title", "title is required")
	}
	var out models.Task
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id uint, status models.TaskStatus) (*models.Task, error) {
	var out models.Task
	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d/status", id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil)
}
