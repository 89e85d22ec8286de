package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// CreateBooking handles a student's session request
func CreateBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			TutorID     uint   `json:"tutorId" binding:"required"`
			Subject     string `json:"subject" binding:"required"`
			Date        string `json:"date" binding:"required,dateformat"`
			StartTime   string `json:"startTime" binding:"required,timeformat"`
			EndTime     string `json:"endTime" binding:"omitempty,timeformat"`
			Duration    int    `json:"duration" binding:"omitempty,min=1"`
			MeetingType string `json:"meetingType"`
			Location    string `json:"location"`
			MeetingLink string `json:"meetingLink"`
			Notes       string `json:"notes"`
		}
		if !bindJSON(c, &input) {
			return
		}

		view, err := bookings.Create(c.Request.Context(), sessionOf(c), services.CreateBookingInput{
			TutorID:     input.TutorID,
			Subject:     input.Subject,
			Date:        input.Date,
			StartTime:   input.StartTime,
			EndTime:     input.EndTime,
			Duration:    input.Duration,
			MeetingType: models.MeetingType(input.MeetingType),
			Location:    input.Location,
			MeetingLink: input.MeetingLink,
			Notes:       input.Notes,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

// GetBooking retrieves a booking visible to one of its participants
func GetBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		view, err := bookings.Get(c.Request.Context(), sessionOf(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func GetStudentBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.StudentBookings(c.Request.Context(), sessionOf(c), statusFilter(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetTutorBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.TutorBookings(c.Request.Context(), sessionOf(c), statusFilter(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetTutorSessions lists confirmed sessions with their completion eligibility.
func GetTutorSessions(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.TutorSessions(c.Request.Context(), sessionOf(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetPendingRequests lists pending requests addressed to the tutor.
func GetPendingRequests(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.PendingRequests(c.Request.Context(), sessionOf(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// RespondToRequest accepts or declines a pending booking request
func RespondToRequest(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			Action          string `json:"action" binding:"required,oneof=accept decline"`
			ResponseMessage string `json:"responseMessage"`
		}
		if !bindJSON(c, &input) {
			return
		}

		view, err := bookings.Respond(c.Request.Context(), sessionOf(c), id, lifecycle.Action(input.Action), input.ResponseMessage)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func CancelBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			Reason string `json:"reason"`
		}
		if !bindJSON(c, &input) {
			return
		}

		view, err := bookings.Cancel(c.Request.Context(), sessionOf(c), id, input.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func RescheduleBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			NewDate      string `json:"newDate"`
			NewStartTime string `json:"newStartTime"`
			NewEndTime   string `json:"newEndTime"`
			Reason       string `json:"reason"`
		}
		if !bindJSON(c, &input) {
			return
		}

		view, err := bookings.Reschedule(c.Request.Context(), sessionOf(c), id, lifecycle.RescheduleInput{
			NewDate:      input.NewDate,
			NewStartTime: input.NewStartTime,
			NewEndTime:   input.NewEndTime,
			Reason:       input.Reason,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// RespondToReschedule approves or rejects the pending reschedule request of a
// booking. requestId is optional; the latest pending request is used without it.
func RespondToReschedule(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			RequestID uint   `json:"requestId"`
			Action    string `json:"action" binding:"required"`
		}
		if !bindJSON(c, &input) {
			return
		}

		var approve bool
		switch strings.ToLower(input.Action) {
		case "approve", "approved", "accept":
			approve = true
		case "reject", "rejected", "decline":
		default:
			respondError(c, apperror.Validation("action", "must be approve or reject"))
			return
		}

		view, err := bookings.RespondToReschedule(c.Request.Context(), sessionOf(c), id, input.RequestID, approve)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// CompleteBooking marks a finished session complete
func CompleteBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			CompletionNotes string `json:"completionNotes"`
		}
		// The body is optional.
		if c.Request.ContentLength > 0 && !bindJSON(c, &input) {
			return
		}

		view, err := bookings.Complete(c.Request.Context(), sessionOf(c), id, input.CompletionNotes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// GetDashboard completes due sessions for the caller, then returns the overview.
func GetDashboard(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		dashboard, err := bookings.Dashboard(c.Request.Context(), sessionOf(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dashboard)
	}
}
