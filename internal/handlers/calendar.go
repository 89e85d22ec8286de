package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// monthQuery reads ?year=&month=, defaulting to the current month.
func monthQuery(c *gin.Context) (int, int, bool) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if raw := c.Query("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperror.Validation("year", "must be a number"))
			return 0, 0, false
		}
		year = v
	}
	if raw := c.Query("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperror.Validation("month", "must be a number"))
			return 0, 0, false
		}
		month = v
	}
	return year, month, true
}

// GetCalendar returns the caller's bookings and tasks grouped by day.
func GetCalendar(cal *services.CalendarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, month, ok := monthQuery(c)
		if !ok {
			return
		}
		days, err := cal.Month(c.Request.Context(), sessionOf(c), year, month)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"year": year, "month": month, "days": days})
	}
}

// ExportCalendar downloads a month, or a single ?date=, as an .ics file.
func ExportCalendar(cal *services.CalendarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, month, ok := monthQuery(c)
		if !ok {
			return
		}
		export, err := cal.Export(c.Request.Context(), sessionOf(c), year, month, c.Query("date"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(export.Body))
	}
}
