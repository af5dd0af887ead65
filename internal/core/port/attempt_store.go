package port

import (
	"context"
	"time"
)

// LoginAttemptStore persists failed-login history and lockout deadlines.
// Counting is window-based against a reference time so the verdict does
// not depend on when entries are physically expired.
type LoginAttemptStore interface {
	RecordFailure(ctx context.Context, account string, at time.Time) error
	CountFailures(ctx context.Context, account string, window time.Duration, reference time.Time) (int, error)
	PurgeFailures(ctx context.Context, account string) error

	SetLockout(ctx context.Context, account string, expiresAt time.Time, at time.Time) error
	LockoutDeadline(ctx context.Context, account string) (time.Time, bool, error)
	ClearLockout(ctx context.Context, account string) error
}
