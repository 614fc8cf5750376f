package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when a model call fails for a non-transient reason
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for rate limiting and other temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during generation")

	// ErrInvalidConfig is returned when the collaborator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrInvalidInput is returned when the caller passes empty text or an unusable image
	ErrInvalidInput = errors.New("invalid generation input")
)

// IsTransient reports whether err is a rate-limit class failure worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}
