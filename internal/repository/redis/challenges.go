package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/repository"
)

const (
	defaultChallengePrefix = "guard:challenge"

	fieldCode      = "code"
	fieldIssuedAt  = "issued_at"
	fieldExpiresAt = "expires_at"
	fieldAttempts  = "attempts"
)

// ChallengeStore persists one-time codes in Redis hashes with TTL. A
// store for the same (purpose, account) key overwrites the prior record,
// so a resend implicitly invalidates the earlier code.
type ChallengeStore struct {
	client *red.Client
	prefix string
}

// NewChallengeStore constructs the store with the provided key prefix.
func NewChallengeStore(client *red.Client, keyPrefix string) *ChallengeStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultChallengePrefix
	}
	return &ChallengeStore{client: client, prefix: prefix}
}

// Store persists a challenge, replacing any prior one for the same key.
func (s *ChallengeStore) Store(ctx context.Context, challenge domain.Challenge, ttl time.Duration) error {
	switch {
	case challenge.Purpose == "":
		return errors.New("purpose is required")
	case challenge.Account == "":
		return errors.New("account is required")
	case challenge.Code == "":
		return errors.New("code is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	key := s.key(challenge.Purpose, challenge.Account)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		fieldCode:      challenge.Code,
		fieldIssuedAt:  strconv.FormatInt(challenge.IssuedAt.UnixNano(), 10),
		fieldExpiresAt: strconv.FormatInt(challenge.ExpiresAt.UnixNano(), 10),
		fieldAttempts:  "0",
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store challenge: %w", err)
	}
	return nil
}

// Fetch retrieves the pending challenge for the purpose and account.
func (s *ChallengeStore) Fetch(ctx context.Context, purpose domain.ChallengePurpose, account string) (*domain.Challenge, error) {
	key := s.key(purpose, account)

	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall challenge: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	code := strings.TrimSpace(values[fieldCode])
	if code == "" {
		return nil, repository.ErrNotFound
	}

	issuedAt, err := parseNanos(values[fieldIssuedAt])
	if err != nil {
		return nil, fmt.Errorf("parse issued_at: %w", err)
	}
	expiresAt, err := parseNanos(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	attempts := 0
	if raw := values[fieldAttempts]; raw != "" {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			attempts = v
		}
	}

	return &domain.Challenge{
		Purpose:   purpose,
		Account:   account,
		Code:      code,
		Attempts:  attempts,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (s *ChallengeStore) IncrementAttempts(ctx context.Context, purpose domain.ChallengePurpose, account string) (int, error) {
	if _, err := s.Fetch(ctx, purpose, account); err != nil {
		return 0, err
	}

	count, err := s.client.HIncrBy(ctx, s.key(purpose, account), fieldAttempts, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby challenge attempts: %w", err)
	}
	return int(count), nil
}

// Delete removes the challenge, enforcing single-use semantics.
func (s *ChallengeStore) Delete(ctx context.Context, purpose domain.ChallengePurpose, account string) error {
	deleted, err := s.client.Del(ctx, s.key(purpose, account)).Result()
	if err != nil {
		return fmt.Errorf("redis delete challenge: %w", err)
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *ChallengeStore) key(purpose domain.ChallengePurpose, account string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, purpose, account)
}

func parseNanos(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, v).UTC(), nil
}

var _ port.ChallengeStore = (*ChallengeStore)(nil)
