package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// taskRequest has no progress field; progress always follows status.
type taskRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Subject       string `json:"subject"`
	Priority      string `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status        string `json:"status" binding:"omitempty,oneof=pending started in-progress completed"`
	EstimatedTime int    `json:"estimatedTime" binding:"min=0"`
	DueDate       string `json:"dueDate" binding:"omitempty,dateformat"`
}

func (r taskRequest) input() services.TaskInput {
	return services.TaskInput{
		Title:         r.Title,
		Description:   r.Description,
		Subject:       r.Subject,
		Priority:      models.TaskPriority(r.Priority),
		Status:        models.TaskStatus(r.Status),
		EstimatedTime: r.EstimatedTime,
		DueDate:       r.DueDate,
	}
}

func ListTasks(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := tasks.List(c.Request.Context(), sessionOf(c),
			models.TaskStatus(c.Query("status")),
			models.TaskPriority(c.Query("priority")),
		)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func CreateTask(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input taskRequest
		if !bindJSON(c, &input) {
			return
		}
		task, err := tasks.Create(c.Request.Context(), sessionOf(c), input.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

func GetTask(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		task, err := tasks.Get(c.Request.Context(), sessionOf(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func UpdateTask(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input taskRequest
		if !bindJSON(c, &input) {
			return
		}
		task, err := tasks.Update(c.Request.Context(), sessionOf(c), id, input.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func UpdateTaskStatus(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			Status string `json:"status" binding:"required,oneof=pending started in-progress completed"`
		}
		if !bindJSON(c, &input) {
			return
		}
		task, err := tasks.UpdateStatus(c.Request.Context(), sessionOf(c), id, models.TaskStatus(input.Status))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func DeleteTask(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := tasks.Delete(c.Request.Context(), sessionOf(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
	}
}
