package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/infra/config"
)

// ThrottleService enforces the failed-login lockout policy.
//
// Policy: once the failure count inside the rolling window reaches the
// threshold, the account locks for a flat duration measured from the
// triggering failure. Further failures while locked do not move the
// deadline. A successful login clears history only when no lock is in
// force; a lock cannot be lifted by submitting correct credentials.
type ThrottleService struct {
	attempts port.LoginAttemptStore
	cfg      config.LockoutSettings
	logger   *zap.Logger
	now      func() time.Time
}

// NewThrottleService constructs a ThrottleService, applying defaults for
// unset policy knobs.
func NewThrottleService(attempts port.LoginAttemptStore, cfg config.LockoutSettings, log *zap.Logger) *ThrottleService {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 15 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ThrottleService{
		attempts: attempts,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *ThrottleService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RecordAttempt registers a login outcome for the account.
func (s *ThrottleService) RecordAttempt(ctx context.Context, account string, outcome domain.AttemptOutcome) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return fmt.Errorf("account is required")
	}

	now := s.now().UTC()

	if outcome == domain.AttemptSuccess {
		status, err := s.Status(ctx, account)
		if err != nil {
			return err
		}
		if status.Locked {
			// Correct credentials do not lift an active lock, and the
			// failure history stays so the lock outlives a restart.
			return nil
		}
		if err := s.attempts.PurgeFailures(ctx, account); err != nil {
			return fmt.Errorf("purge attempts: %w", err)
		}
		if err := s.attempts.ClearLockout(ctx, account); err != nil {
			return fmt.Errorf("clear lockout: %w", err)
		}
		return nil
	}

	if err := s.attempts.RecordFailure(ctx, account, now); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}

	count, err := s.attempts.CountFailures(ctx, account, s.cfg.Window, now)
	if err != nil {
		return fmt.Errorf("count failures: %w", err)
	}
	if count < s.cfg.MaxFailures {
		return nil
	}

	// Lock from the triggering failure only. A 6th failure while locked
	// must not extend the deadline.
	if _, active, err := s.attempts.LockoutDeadline(ctx, account); err != nil {
		return fmt.Errorf("read lockout: %w", err)
	} else if active {
		return nil
	}

	deadline := now.Add(s.cfg.LockDuration)
	if err := s.attempts.SetLockout(ctx, account, deadline, now); err != nil {
		return fmt.Errorf("set lockout: %w", err)
	}

	s.logger.Warn("account locked out",
		zap.String("account", account),
		zap.Int("failures", count),
		zap.Time("until", deadline),
	)
	return nil
}

// Status returns the lock verdict for an account. The decision compares
// the stored deadline against the clock; no ticking state is involved, so
// it holds across restarts. Store errors propagate so callers fail closed.
func (s *ThrottleService) Status(ctx context.Context, account string) (domain.LockoutStatus, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return domain.LockoutStatus{}, fmt.Errorf("account is required")
	}

	deadline, active, err := s.attempts.LockoutDeadline(ctx, account)
	if err != nil {
		return domain.LockoutStatus{}, fmt.Errorf("read lockout: %w", err)
	}
	if !active {
		return domain.LockoutStatus{}, nil
	}

	now := s.now().UTC()
	if !deadline.After(now) {
		return domain.LockoutStatus{}, nil
	}

	return domain.LockoutStatus{
		Locked:    true,
		Remaining: deadline.Sub(now),
		ExpiresAt: deadline,
	}, nil
}
