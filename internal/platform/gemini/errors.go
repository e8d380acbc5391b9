package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the client configuration is unusable.
	ErrInvalidConfig = errors.New("invalid LLM configuration")

	// ErrEmptyPrompt is returned when a prompt is empty.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidResponse is returned when the API answers without usable content.
	ErrInvalidResponse = errors.New("invalid LLM response")

	// ErrContentBlocked is returned when safety filters blocked the response.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned when retries are exhausted.
	ErrTransientFailure = errors.New("transient LLM failure")

	// ErrNotConfigured is returned by a disabled client.
	ErrNotConfigured = errors.New("gemini API key is not configured")
)

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrContentBlocked) ||
		errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrEmptyPrompt) ||
		errors.Is(err, ErrNotConfigured)
}
