package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// GetNotificationPreferences retrieves user's notification preferences
func GetNotificationPreferences(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefs, err := users.Preferences(c.Request.Context(), sessionOf(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, prefs)
	}
}

// UpdateNotificationPreferences updates only the switches present in the body.
func UpdateNotificationPreferences(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			PushEnabled      *bool `json:"pushEnabled"`
			BookingAlerts    *bool `json:"bookingAlerts"`
			RescheduleAlerts *bool `json:"rescheduleAlerts"`
			ReminderAlerts   *bool `json:"reminderAlerts"`
		}
		if !bindJSON(c, &input) {
			return
		}

		ctx := c.Request.Context()
		session := sessionOf(c)
		prefs, err := users.Preferences(ctx, session)
		if err != nil {
			respondError(c, err)
			return
		}

		if input.PushEnabled != nil {
			prefs.PushEnabled = *input.PushEnabled
		}
		if input.BookingAlerts != nil {
			prefs.BookingAlerts = *input.BookingAlerts
		}
		if input.RescheduleAlerts != nil {
			prefs.RescheduleAlerts = *input.RescheduleAlerts
		}
		if input.ReminderAlerts != nil {
			prefs.ReminderAlerts = *input.ReminderAlerts
		}

		updated, err := users.UpdatePreferences(ctx, session, *prefs)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}
