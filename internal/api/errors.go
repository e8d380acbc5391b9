package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/jd-tailor/internal/api/shared"
	"github.com/phrazzld/jd-tailor/internal/platform/gemini"
	"github.com/phrazzld/jd-tailor/internal/skills"
	"github.com/phrazzld/jd-tailor/internal/task"
)

// ErrInvalidQuery marks a malformed query parameter.
var ErrInvalidQuery = errors.New("invalid query parameter")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the errors themselves to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrInvalidTransition):
		return http.StatusConflict

	case errors.Is(err, skills.ErrEmptyJobDescription),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrRunnerStopped),
		errors.Is(err, gemini.ErrNotConfigured):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, task.ErrInvalidTransition):
		return "Task is no longer pending"
	case errors.Is(err, skills.ErrEmptyJobDescription):
		return "Job description is required"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, ErrInvalidQuery):
		return "Invalid query parameter"
	case errors.Is(err, task.ErrQueueFull):
		return "Too many pending tasks, try again later"
	case errors.Is(err, task.ErrRunnerStopped):
		return "Server is shutting down"
	case errors.Is(err, gemini.ErrNotConfigured):
		return "LLM is not configured"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. A non-empty
// message replaces the default safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}

// SanitizeValidationError turns validator errors into a message naming the
// first offending field and rule.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", toSnake(fe.Field()), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
