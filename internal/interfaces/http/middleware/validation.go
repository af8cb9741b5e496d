package middleware

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/channelops/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key carrying the request id
const RequestIDKey = "X-Request-ID"

// SetupValidator makes binding errors report json field names instead of
// Go struct field names. Call once at startup.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

// HandleValidationError writes a 400 with per-field details for binding
// failures
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestIDOf(c)))
}

// FormatValidationErrors flattens a validator error into the standard
// error envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: messageFor(e),
			})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

func requestIDOf(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// messageFor renders one rule violation for API consumers
func messageFor(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "url":
		return "Invalid URL format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min", "max", "len", "gte", "lte", "gt", "lt":
		return boundMessage(e)
	case "numeric":
		return "Must be numeric"
	case "alphanum":
		return "Must be alphanumeric"
	case "alpha":
		return "Must contain only letters"
	default:
		return "Invalid value"
	}
}

// boundMessage renders the size and range rules, phrasing string rules in
// characters
func boundMessage(e validator.FieldError) string {
	unit := ""
	if e.Type().Kind() == reflect.String {
		unit = " characters"
	}
	switch e.Tag() {
	case "min":
		return fmt.Sprintf("Must be at least %s%s", e.Param(), unit)
	case "max":
		return fmt.Sprintf("Must be at most %s%s", e.Param(), unit)
	case "len":
		return fmt.Sprintf("Must be exactly %s%s", e.Param(), unit)
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	default:
		return "Must be less than " + e.Param()
	}
}
