package domain

import "time"

// ChallengePurpose scopes a one-time code to the flow that issued it.
type ChallengePurpose string

const (
	ChallengePurposeLogin        ChallengePurpose = "login"
	ChallengePurposeConfirmation ChallengePurpose = "confirmation"
)

// Challenge is a single-use, time-boxed verification code. Expiry is
// decided by comparing ExpiresAt to the wall clock at verification time;
// no countdown timer is authoritative.
type Challenge struct {
	Purpose   ChallengePurpose
	Account   string
	Code      string
	Attempts  int
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the challenge is past its deadline.
func (c Challenge) Expired(at time.Time) bool {
	return !at.Before(c.ExpiresAt)
}

// Remaining returns the validity left at the supplied moment.
func (c Challenge) Remaining(at time.Time) time.Duration {
	if remaining := c.ExpiresAt.Sub(at); remaining > 0 {
		return remaining
	}
	return 0
}
