package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// Chat forwards a message and the recent history to the study assistant.
func Chat(chat *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Message string              `json:"message" binding:"required"`
			History []services.ChatTurn `json:"history"`
		}
		if !bindJSON(c, &input) {
			return
		}

		reply, err := chat.Reply(c.Request.Context(), input.History, input.Message)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reply": reply})
	}
}
