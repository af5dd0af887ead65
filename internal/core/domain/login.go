package domain

import "time"

// AttemptOutcome classifies a login attempt.
type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptFailure AttemptOutcome = "failure"
)

// LoginAttempt records one authentication attempt for an account.
// Attempts only need to live as long as the throttle window; expiry is
// logical (filtered by timestamp), physical deletion is housekeeping.
type LoginAttempt struct {
	Account string
	Outcome AttemptOutcome
	IP      string
	At      time.Time
}

// LockoutStatus is the throttle verdict for an account at a moment in time.
// Remaining is derived from the stored lockout deadline, never from a
// ticking counter, so it survives process restarts.
type LockoutStatus struct {
	Locked    bool
	Remaining time.Duration
	ExpiresAt time.Time
}
