package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/services"
)

func GetProfile(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.Profile(c.Request.Context(), sessionOf(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateProfile(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name  string `json:"name"`
			Phone string `json:"phone"`
		}
		if !bindJSON(c, &input) {
			return
		}

		user, err := users.UpdateProfile(c.Request.Context(), sessionOf(c), services.ProfileInput{
			Name:  input.Name,
			Phone: input.Phone,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UploadAvatar stores the multipart "avatar" file and updates the profile.
func UploadAvatar(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("avatar")
		if err != nil {
			respondError(c, apperror.Validation("avatar", "an image file is required"))
			return
		}

		user, err := users.UploadAvatar(c.Request.Context(), sessionOf(c), file)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// SetPushToken registers the device token used for push notifications.
func SetPushToken(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Token string `json:"token" binding:"required"`
		}
		if !bindJSON(c, &input) {
			return
		}

		if err := users.SetPushToken(c.Request.Context(), sessionOf(c), input.Token); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Push token registered"})
	}
}

func ClearPushToken(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := users.SetPushToken(c.Request.Context(), sessionOf(c), ""); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Push token removed"})
	}
}
