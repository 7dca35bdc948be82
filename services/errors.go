package services

import "errors"

var (
	// ErrInvalidInput reports an empty or whitespace-only utterance. The
	// session is untouched when this is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited reports that a client exhausted its admission window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrGenerationTimeout reports that the generation call exceeded its
	// budget. Callers degrade to the fallback reply, it never reaches the
	// wire.
	ErrGenerationTimeout = errors.New("generation timed out")
)
