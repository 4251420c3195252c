package domain

import "errors"

var (
	// ErrStoreUnavailable marks Document Store index/query failures.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrCompletionUnavailable marks failed or timed-out completion calls.
	ErrCompletionUnavailable = errors.New("completion service unavailable")
	// ErrPersistenceUnavailable marks failed durable history writes.
	ErrPersistenceUnavailable = errors.New("conversation persistence unavailable")
	// ErrInvalidConfig marks configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
)
