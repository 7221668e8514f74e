package story

import "errors"

var (
	// ErrInvalidInput is returned for an empty seed quote.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingConfig is returned when no generator is configured.
	ErrMissingConfig = errors.New("missing configuration")
	// ErrGenerationFailed wraps text generation failures.
	ErrGenerationFailed = errors.New("story generation failed")
)

// User-facing messages.
const (
	MsgInvalidInput  = "Invalid input provided."
	MsgConfigError   = "Configuration error. Please contact the administrator."
	MsgDBError       = "Failed to save story to database."
	MsgStoryNotFound = "Story not found."
	MsgStoreError    = "Failed to load stories."
	// FallbackStory is shown instead of a story when generation fails.
	FallbackStory = "The whispers grow louder as the darkness deepens. Soon, you'll understand the meaning behind these words. Soon, you'll see what lies beneath the surface."
)
