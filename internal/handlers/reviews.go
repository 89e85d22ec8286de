package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// CreateReview posts the student's review of a completed session.
func CreateReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			Rating         int    `json:"rating" binding:"required,min=1,max=5"`
			ReviewText     string `json:"reviewText"`
			WouldRecommend bool   `json:"wouldRecommend"`
		}
		if !bindJSON(c, &input) {
			return
		}

		review, err := reviews.Create(c.Request.Context(), sessionOf(c), id, services.ReviewInput{
			Rating:         input.Rating,
			ReviewText:     input.ReviewText,
			WouldRecommend: input.WouldRecommend,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

func GetTutorReviews(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		list, err := reviews.ForTutor(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
