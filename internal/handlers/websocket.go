package handlers

import (
	"github.com/chachabrian/tutorlink-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades the request to a websocket bound to the caller.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessionOf(c)
		services.HandleWebSocket(hub, c.Writer, c.Request, session.UserID, string(session.Role))
	}
}
