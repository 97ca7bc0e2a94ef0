package playlist

import (
	"errors"
	"fmt"
)

// ErrRepositoryUnavailable means the library backend could not be
// reached. Fatal for the request; the caller should suggest a retry.
var ErrRepositoryUnavailable = errors.New("track repository unavailable")

// ErrBudgetExhausted means the usable token budget cannot fit even one
// candidate line. Indicates misconfiguration, not a transient failure.
var ErrBudgetExhausted = errors.New("context token budget exhausted")

// ErrNoCandidates means no tracks survived filtering.
var ErrNoCandidates = errors.New("no tracks match the selected filters")

// ErrSaveFailed means the library rejected one or more track ids while
// saving a playlist, usually because the library changed after
// generation.
var ErrSaveFailed = errors.New("playlist save failed")

// ProviderError wraps a failed model call. Retryable reports whether the
// failure is transient (rate limit, server error, transport).
type ProviderError struct {
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (retryable=%t): %v", e.Retryable, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
