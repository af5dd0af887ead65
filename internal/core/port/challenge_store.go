package port

import (
	"context"
	"time"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

// ChallengeStore persists pending one-time codes. Storing a challenge for
// a (purpose, account) pair replaces any prior one, which is what makes a
// resend invalidate the earlier code.
type ChallengeStore interface {
	Store(ctx context.Context, challenge domain.Challenge, ttl time.Duration) error
	Fetch(ctx context.Context, purpose domain.ChallengePurpose, account string) (*domain.Challenge, error)
	IncrementAttempts(ctx context.Context, purpose domain.ChallengePurpose, account string) (int, error)
	Delete(ctx context.Context, purpose domain.ChallengePurpose, account string) error
}
