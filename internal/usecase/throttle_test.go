package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/infra/config"
)

func newThrottleForTest(store *attemptStoreMock, at *time.Time) *ThrottleService {
	svc := NewThrottleService(store, config.LockoutSettings{
		Window:       15 * time.Minute,
		MaxFailures:  5,
		LockDuration: 15 * time.Minute,
	}, nil)
	svc.WithClock(func() time.Time { return *at })
	return svc
}

func TestThrottle_LocksOnFifthFailure(t *testing.T) {
	store := newAttemptStoreMock()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newThrottleForTest(store, &now)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := svc.RecordAttempt(ctx, "principal", domain.AttemptFailure); err != nil {
			t.Fatalf("RecordAttempt failure %d: %v", i+1, err)
		}
		now = now.Add(time.Second)
	}

	status, err := svc.Status(ctx, "principal")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Locked {
		t.Fatalf("account locked after only four failures")
	}

	if err := svc.RecordAttempt(ctx, "principal", domain.AttemptFailure); err != nil {
		t.Fatalf("RecordAttempt fifth failure: %v", err)
	}

	status, err = svc.Status(ctx, "principal")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Locked {
		t.Fatalf("account not locked after fifth failure")
	}
	if status.Remaining <= 0 || status.Remaining > 15*time.Minute {
		t.Fatalf("unexpected remaining lock time %v", status.Remaining)
	}
}

func TestThrottle_CorrectPasswordDoesNotLiftLock(t *testing.T) {
	store := newAttemptStoreMock()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newThrottleForTest(store, &now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.RecordAttempt(ctx, "principal", domain.AttemptFailure); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	// A success while locked must be a no-op: the lock holds and the
	// failure history survives.
	if err := svc.RecordAttempt(ctx, "principal", domain.AttemptSuccess); err != nil {
		t.Fatalf("RecordAttempt success: %v", err)
	}

	status, err := svc.Status(ctx, "principal")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Locked {
		t.Fatalf("success lifted an active lock")
	}
	if len(store.failures["principal"]) != 5 {
		t.Fatalf("failure history was purged while locked")
	}
}

func TestThrottle_ExtraFailureDoesNotExtendLock(t *testing.T) {
	store := newAttemptStoreMock()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newThrottleForTest(store, &now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.RecordAttempt(ctx, "principal", domain.AttemptFailure); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}
	deadline := store.deadlines["principal"]

	now = now.Add(5 * time.Minute)
	if err := svc.RecordAttempt(ctx, "principal", domain.AttemptFailure); err != nil {
		t.Fatalf("RecordAttempt sixth failure: %v", err)
	}

	if !store.deadlines["principal"].Equal(deadline) {
		t.Fatalf("sixth failure moved the lock deadline from %v to %v", deadline, store.deadlines["principal"])
	}
}

func TestThrottle_LockExpiresByWallClock(t *testing.T) {
	store := newAttemptStoreMock()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newThrottleForTest(store, &now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.RecordAttempt(ctx, "principal", domain.AttemptFailure); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	now = now.Add(15*time.Minute + time.Second)

	status, err := svc.Status(ctx, "principal")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Locked {
		t.Fatalf("lock still in force past its deadline")
	}

	// The next success clears history and the stale deadline.
	if err := svc.RecordAttempt(ctx, "principal", domain.AttemptSuccess); err != nil {
		t.Fatalf("RecordAttempt success: %v", err)
	}
	if len(store.failures["principal"]) != 0 {
		t.Fatalf("success after lock expiry did not purge history")
	}
	if _, ok := store.deadlines["principal"]; ok {
		t.Fatalf("success after lock expiry did not clear the deadline")
	}
}

func TestThrottle_StatusFailsClosedOnStoreError(t *testing.T) {
	store := newAttemptStoreMock()
	store.statusErr = context.DeadlineExceeded
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newThrottleForTest(store, &now)

	if _, err := svc.Status(context.Background(), "principal"); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}
