package assistant

import (
	"context"
	"errors"

	"helperbot/internal/domain"
)

const (
	UnavailableMessage = "The assistant is temporarily unavailable. Please try again in a moment."
	CancelledMessage   = "The request was cancelled."
	FailureMessage     = "Sorry, something went wrong while answering. Please try again."
	// PersistenceWarningMessage accompanies answers that could not be saved.
	PersistenceWarningMessage = "This conversation could not be saved; history may be incomplete."
)

// UserMessage maps a failed turn to the single message shown to the user.
// Cancellation wins over completion failure since the guard wraps both.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return CancelledMessage
	case errors.Is(err, domain.ErrCompletionUnavailable):
		return UnavailableMessage
	default:
		return FailureMessage
	}
}
