package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edcore/school-admin-guard/internal/core/port"
)

// AttemptStoreConfig defines key prefixes and housekeeping TTL for the
// login attempt store.
type AttemptStoreConfig struct {
	AttemptPrefix string
	LockoutPrefix string
	AttemptTTL    time.Duration
}

// AttemptStore keeps failed-login timestamps in Redis sorted sets and the
// lockout deadline in a plain key. The lock verdict is always derived from
// the stored deadline compared against the caller's reference time; key
// TTLs only bound memory.
type AttemptStore struct {
	client *redis.Client
	cfg    AttemptStoreConfig
}

// NewAttemptStore constructs a store using the provided Redis client.
func NewAttemptStore(client *redis.Client, cfg AttemptStoreConfig) *AttemptStore {
	if cfg.AttemptPrefix == "" {
		cfg.AttemptPrefix = "guard:login_attempts"
	}
	if cfg.LockoutPrefix == "" {
		cfg.LockoutPrefix = "guard:lockout"
	}
	return &AttemptStore{client: client, cfg: cfg}
}

// RecordFailure stores a failed attempt timestamp and applies TTL.
func (s *AttemptStore) RecordFailure(ctx context.Context, account string, at time.Time) error {
	key := s.attemptKey(account)
	member := redis.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()}

	if err := s.client.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	if s.cfg.AttemptTTL > 0 {
		if err := s.client.Expire(ctx, key, s.cfg.AttemptTTL).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	return nil
}

// CountFailures returns how many failures occurred within the window
// ending at the reference time.
func (s *AttemptStore) CountFailures(ctx context.Context, account string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	key := s.attemptKey(account)
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))

	count, err := s.client.ZCount(ctx, key, min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}

	return int(count), nil
}

// PurgeFailures drops the full attempt history for an account.
func (s *AttemptStore) PurgeFailures(ctx context.Context, account string) error {
	if err := s.client.Del(ctx, s.attemptKey(account)).Err(); err != nil {
		return fmt.Errorf("redis del attempts: %w", err)
	}
	return nil
}

// SetLockout records the lockout deadline for an account. The key expires
// with the lock so an expired lock also vanishes from Redis.
func (s *AttemptStore) SetLockout(ctx context.Context, account string, expiresAt time.Time, at time.Time) error {
	ttl := expiresAt.Sub(at)
	if ttl <= 0 {
		return errors.New("lockout deadline must be in the future")
	}

	key := s.lockoutKey(account)
	value := strconv.FormatInt(expiresAt.UnixNano(), 10)
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set lockout: %w", err)
	}
	return nil
}

// LockoutDeadline returns the stored lockout deadline if one exists.
func (s *AttemptStore) LockoutDeadline(ctx context.Context, account string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.lockoutKey(account)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis get lockout: %w", err)
	}

	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse lockout deadline: %w", err)
	}

	return time.Unix(0, nanos).UTC(), true, nil
}

// ClearLockout removes the lockout key for an account.
func (s *AttemptStore) ClearLockout(ctx context.Context, account string) error {
	if err := s.client.Del(ctx, s.lockoutKey(account)).Err(); err != nil {
		return fmt.Errorf("redis del lockout: %w", err)
	}
	return nil
}

func (s *AttemptStore) attemptKey(account string) string {
	return fmt.Sprintf("%s:%s", s.cfg.AttemptPrefix, account)
}

func (s *AttemptStore) lockoutKey(account string) string {
	return fmt.Sprintf("%s:%s", s.cfg.LockoutPrefix, account)
}

var _ port.LoginAttemptStore = (*AttemptStore)(nil)
