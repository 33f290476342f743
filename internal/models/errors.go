package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWatch matches every error that aborts a single watcher execution.
	ErrWatch = errors.New("watch failed")
	// ErrRateLimitExceeded matches rate-limit failures that could not be waited out.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// WatchError reports an upstream call with a non-success status or a response missing required fields.
type WatchError struct {
	Message string
	Err     error
}

func (e *WatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the ErrWatch sentinel and the underlying cause.
func (e *WatchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrWatch, e.Err}
	}
	return []error{ErrWatch}
}

// NewWatchError creates a WatchError with a formatted message.
func NewWatchError(format string, args ...interface{}) *WatchError {
	return &WatchError{Message: fmt.Sprintf(format, args...)}
}

// WrapWatchError wraps err as a WatchError.
func WrapWatchError(err error, format string, args ...interface{}) *WatchError {
	return &WatchError{Message: fmt.Sprintf(format, args...), Err: err}
}

// RateLimitExceededError signals that an upstream quota was exhausted and the reset is too far
// away, or unknown.
type RateLimitExceededError struct {
	URL      string
	Limit    string
	HasReset bool
	ResetIn  time.Duration
	MaxWait  time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if !e.HasReset {
		return fmt.Sprintf("rate limit exceeded for '%s' with no reset time", e.URL)
	}
	return fmt.Sprintf("rate limit exceeded for '%s', reset is too far (%s > %s)",
		e.URL, e.ResetIn.Round(time.Second), e.MaxWait)
}

// Unwrap makes the error match both ErrRateLimitExceeded and ErrWatch.
func (e *RateLimitExceededError) Unwrap() []error {
	return []error{ErrRateLimitExceeded, ErrWatch}
}
