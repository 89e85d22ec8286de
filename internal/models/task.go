package models

import "gorm.io/gorm"

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusStarted    TaskStatus = "started"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ProgressFor maps a task status to its fixed progress percentage.
func ProgressFor(status TaskStatus) int {
	switch status {
	case TaskStatusStarted:
		return 25
	case TaskStatusInProgress:
		return 50
	case TaskStatusCompleted:
		return 100
	}
	return 0
}

// Task is a self-tracked to-do item owned by a student or tutor.
type Task struct {
	gorm.Model
	OwnerID       uint         `json:"ownerId" gorm:"index;not null"`
	Title         string       `json:"title" gorm:"not null"`
	Description   string       `json:"description"`
	Subject       string       `json:"subject"`
	Priority      TaskPriority `json:"priority" gorm:"not null;default:'medium'"`
	Status        TaskStatus   `json:"status" gorm:"not null;default:'pending'"`
	Progress      int          `json:"progress" gorm:"not null;default:0"`
	EstimatedTime int          `json:"estimatedTime"` // minutes
	DueDate       string       `json:"dueDate"`
}

// TableName specifies the table name
func (Task) TableName() string {
	return "tasks"
}

// SyncProgress overwrites Progress from Status.
func (t *Task) SyncProgress() {
	t.Progress = ProgressFor(t.Status)
}

type TaskFilter struct {
	OwnerID  uint
	Status   TaskStatus
	Priority TaskPriority
}
