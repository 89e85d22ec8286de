package handlers

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
)

// RegisterValidators installs the custom binding tags on gin's validator
// and makes errors report JSON field names.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("dateformat", validateDateFormat)
	_ = v.RegisterValidation("timeformat", validateTimeFormat)
}

// validateDateFormat checks if string is valid YYYY-MM-DD format
func validateDateFormat(fl validator.FieldLevel) bool {
	_, err := time.Parse(lifecycle.DateLayout, fl.Field().String())
	return err == nil
}

// validateTimeFormat checks if string is valid HH:MM format
func validateTimeFormat(fl validator.FieldLevel) bool {
	_, err := lifecycle.ParseClock(fl.Field().String())
	return err == nil
}

// TranslateValidationError turns a binding error into a readable message and
// the first offending field, if known.
func TranslateValidationError(err error) (string, string) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "", err.Error()
	}

	var messages []string
	for _, fe := range ve {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "email":
			messages = append(messages, "invalid email format")
		case "min":
			messages = append(messages, field+" must be at least "+fe.Param())
		case "max":
			messages = append(messages, field+" must be at most "+fe.Param())
		case "dateformat":
			messages = append(messages, field+" must be in YYYY-MM-DD format (e.g., 2025-01-31)")
		case "timeformat":
			messages = append(messages, field+" must be in HH:MM format (e.g., 14:00)")
		case "oneof":
			messages = append(messages, field+" must be one of: "+fe.Param())
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return ve[0].Field(), strings.Join(messages, ", ")
}
