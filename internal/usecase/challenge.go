package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/infra/config"
	"github.com/edcore/school-admin-guard/internal/infra/security"
	"github.com/edcore/school-admin-guard/internal/repository"
)

// ChallengeService issues and verifies one-time codes. A challenge is
// single use: successful verification consumes it, a resend replaces it,
// and expiry is decided by comparing the stored deadline to the wall
// clock at verification time.
type ChallengeService struct {
	store  port.ChallengeStore
	cfg    config.ChallengeSettings
	logger *zap.Logger
	now    func() time.Time
}

// NewChallengeService constructs a ChallengeService with defaults for
// unset settings.
func NewChallengeService(store port.ChallengeStore, cfg config.ChallengeSettings, log *zap.Logger) *ChallengeService {
	if cfg.TTL <= 0 {
		cfg.TTL = 300 * time.Second
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChallengeService{
		store:  store,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *ChallengeService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// TTL exposes the configured challenge lifetime.
func (s *ChallengeService) TTL() time.Duration {
	return s.cfg.TTL
}

// Issue creates a fresh challenge for the purpose and account, replacing
// any pending one.
func (s *ChallengeService) Issue(ctx context.Context, purpose domain.ChallengePurpose, account string) (*domain.Challenge, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, fmt.Errorf("account is required")
	}

	code, err := security.GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate challenge code: %w", err)
	}

	now := s.now().UTC()
	challenge := domain.Challenge{
		Purpose:   purpose,
		Account:   account,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}

	if err := s.store.Store(ctx, challenge, s.cfg.TTL); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	return &challenge, nil
}

// Resend invalidates the pending code and issues a new one with a fresh
// TTL. Storing under the same key is what kills the old code.
func (s *ChallengeService) Resend(ctx context.Context, purpose domain.ChallengePurpose, account string) (*domain.Challenge, error) {
	return s.Issue(ctx, purpose, account)
}

// Verify checks a submitted code. Expiry wins over correctness: a correct
// code past the deadline fails with ErrChallengeExpired. A consumed or
// absent challenge also reports expired, which covers replay.
func (s *ChallengeService) Verify(ctx context.Context, purpose domain.ChallengePurpose, account, code string) error {
	account = strings.TrimSpace(account)
	code = strings.TrimSpace(code)
	if account == "" || code == "" {
		return ErrChallengeMismatch
	}

	challenge, err := s.store.Fetch(ctx, purpose, account)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChallengeExpired
		}
		return fmt.Errorf("fetch challenge: %w", err)
	}

	if challenge.Expired(s.now().UTC()) {
		if err := s.discard(ctx, purpose, account); err != nil {
			s.logger.Warn("expired challenge not discarded", zap.Error(err))
		}
		return ErrChallengeExpired
	}

	if !security.CodesEqual(challenge.Code, code) {
		attempts, incErr := s.store.IncrementAttempts(ctx, purpose, account)
		if incErr != nil && !errors.Is(incErr, repository.ErrNotFound) {
			s.logger.Warn("challenge attempt counter not updated", zap.Error(incErr))
		}
		if attempts >= s.cfg.MaxAttempts {
			if err := s.discard(ctx, purpose, account); err != nil {
				s.logger.Warn("exhausted challenge not discarded", zap.Error(err))
			}
			return ErrChallengeExpired
		}
		return ErrChallengeMismatch
	}

	// Single use: a verified code is gone, so replay sees "expired".
	if err := s.discard(ctx, purpose, account); err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	return nil
}

func (s *ChallengeService) discard(ctx context.Context, purpose domain.ChallengePurpose, account string) error {
	err := s.store.Delete(ctx, purpose, account)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
