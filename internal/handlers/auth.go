package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

// Register creates a student or tutor account and signs it in.
func Register(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6"`
			Phone    string `json:"phone"`
			Role     string `json:"role" binding:"required,oneof=student tutor"`
		}
		if !bindJSON(c, &input) {
			return
		}

		result, err := auth.Register(c.Request.Context(), services.RegisterInput{
			Name:     input.Name,
			Email:    input.Email,
			Password: input.Password,
			Phone:    input.Phone,
			Role:     models.Role(input.Role),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func Login(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if !bindJSON(c, &input) {
			return
		}

		result, err := auth.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// Logout revokes the token used for this request.
func Logout(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Logout(c.Request.Context(), sessionOf(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	}
}
