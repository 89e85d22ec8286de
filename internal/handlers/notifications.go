package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// GetNotifications returns the caller's actionable notification feed.
func GetNotifications(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		feed, err := bookings.Notifications(c.Request.Context(), sessionOf(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, feed)
	}
}

// AcknowledgeNotification marks a cancellation notice as seen.
func AcknowledgeNotification(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		notice, err := bookings.Acknowledge(c.Request.Context(), sessionOf(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, notice)
	}
}
