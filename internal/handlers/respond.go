package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/middleware"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

// respondError writes err as {"error", "kind", "field"}. Errors that are not
// application errors are logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body := gin.H{"error": appErr.Message, "kind": appErr.Kind}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		c.JSON(appErr.Status(), body)
		return
	}
	middleware.Logger(c, zap.L()).Error("Unhandled error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again"})
}

// bindJSON binds the request body into dst and answers 400 when it is invalid.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		field, message := TranslateValidationError(err)
		body := gin.H{"error": message, "kind": apperror.KindValidation}
		if field != "" {
			body["field"] = field
		}
		c.JSON(http.StatusBadRequest, body)
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperror.Validation(name, "must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

func sessionOf(c *gin.Context) *models.Session {
	return middleware.CurrentSession(c)
}

// statusFilter parses ?status=a,b into booking statuses.
func statusFilter(c *gin.Context) []models.BookingStatus {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	var out []models.BookingStatus
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, models.BookingStatus(s))
		}
	}
	return out
}
