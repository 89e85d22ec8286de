package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// ListTutors returns tutor profiles, optionally filtered by ?subject=.
func ListTutors(tutors *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := tutors.List(c.Request.Context(), c.Query("subject"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetTutor(tutors *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		tutor, err := tutors.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tutor)
	}
}

func UpdateTutorProfile(tutors *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Bio        string   `json:"bio"`
			Subjects   []string `json:"subjects"`
			HourlyRate float64  `json:"hourlyRate" binding:"min=0"`
		}
		if !bindJSON(c, &input) {
			return
		}

		profile, err := tutors.UpdateProfile(c.Request.Context(), sessionOf(c), services.TutorProfileInput{
			Bio:        input.Bio,
			Subjects:   input.Subjects,
			HourlyRate: input.HourlyRate,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// SetAvailability replaces the tutor's weekly availability.
func SetAvailability(tutors *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Slots []struct {
				Weekday   int    `json:"weekday" binding:"min=0,max=6"`
				StartTime string `json:"startTime" binding:"required,timeformat"`
				EndTime   string `json:"endTime" binding:"required,timeformat"`
			} `json:"slots" binding:"dive"`
		}
		if !bindJSON(c, &input) {
			return
		}

		slots := make([]models.AvailabilitySlot, 0, len(input.Slots))
		for _, s := range input.Slots {
			slots = append(slots, models.AvailabilitySlot{Weekday: s.Weekday, StartTime: s.StartTime, EndTime: s.EndTime})
		}
		saved, err := tutors.SetAvailability(c.Request.Context(), sessionOf(c), slots)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"slots": saved})
	}
}

func GetEarnings(tutors *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		earnings, err := tutors.Earnings(c.Request.Context(), sessionOf(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, earnings)
	}
}
