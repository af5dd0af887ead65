package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials indicates the provided identifier or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrChallengeMismatch indicates the submitted one-time code is wrong.
	ErrChallengeMismatch = errors.New("one-time code does not match")
	// ErrChallengeExpired indicates the one-time code is past its TTL or already used.
	ErrChallengeExpired = errors.New("one-time code expired")
	// ErrDeviceUntrusted indicates the requesting device has not been approved.
	ErrDeviceUntrusted = errors.New("device is not trusted")
	// ErrPermissionDenied indicates the actor's role lacks the required capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSessionNotFound indicates no confirmation session exists for the identifier.
	ErrSessionNotFound = errors.New("confirmation session not found")
)

// AccountLockedError is returned while a lockout is in force. Submissions
// during the lock are rejected before credentials are examined.
type AccountLockedError struct {
	RetryAfter time.Duration
}

// Error implements error.
func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %s", e.RetryAfter.Round(time.Second))
}

// ExecutionError wraps the failure of a confirmed destructive action.
// The wrapped action owns its own atomicity; by the time this surfaces
// the mutation may have partially applied, and the failure is audited.
type ExecutionError struct {
	Action string
	Cause  error
}

// Error implements error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Action, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
