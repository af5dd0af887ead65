package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/repository"
)

// Shared hand-rolled mocks for the usecase tests.

type accountRepoMock struct {
	byID       map[string]domain.Account
	byUsername map[string]domain.Account
	createErr  error
}

func newAccountRepoMock(accounts ...domain.Account) *accountRepoMock {
	m := &accountRepoMock{
		byID:       make(map[string]domain.Account),
		byUsername: make(map[string]domain.Account),
	}
	for _, account := range accounts {
		m.byID[account.ID] = account
		m.byUsername[account.Username] = account
	}
	return m
}

func (m *accountRepoMock) Create(_ context.Context, account domain.Account) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byUsername[account.Username]; exists {
		return repository.ErrConflict
	}
	m.byID[account.ID] = account
	m.byUsername[account.Username] = account
	return nil
}

func (m *accountRepoMock) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if account, ok := m.byID[id]; ok {
		return &account, nil
	}
	return nil, repository.ErrNotFound
}

func (m *accountRepoMock) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	if account, ok := m.byUsername[username]; ok {
		return &account, nil
	}
	return nil, repository.ErrNotFound
}

func (m *accountRepoMock) UpdateStatus(_ context.Context, id string, status domain.AccountStatus) error {
	account, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Status = status
	m.byID[id] = account
	m.byUsername[account.Username] = account
	return nil
}

func (m *accountRepoMock) Delete(_ context.Context, id string) error {
	account, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byUsername, account.Username)
	return nil
}

func (m *accountRepoMock) List(_ context.Context) ([]domain.Account, error) {
	out := make([]domain.Account, 0, len(m.byID))
	for _, account := range m.byID {
		out = append(out, account)
	}
	return out, nil
}

type attemptStoreMock struct {
	mu        sync.Mutex
	failures  map[string][]time.Time
	deadlines map[string]time.Time

	recordErr error
	statusErr error
}

func newAttemptStoreMock() *attemptStoreMock {
	return &attemptStoreMock{
		failures:  make(map[string][]time.Time),
		deadlines: make(map[string]time.Time),
	}
}

func (m *attemptStoreMock) RecordFailure(_ context.Context, account string, at time.Time) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[account] = append(m.failures[account], at)
	return nil
}

func (m *attemptStoreMock) CountFailures(_ context.Context, account string, window time.Duration, reference time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := reference.Add(-window)
	count := 0
	for _, at := range m.failures[account] {
		if !at.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *attemptStoreMock) PurgeFailures(_ context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, account)
	return nil
}

func (m *attemptStoreMock) SetLockout(_ context.Context, account string, expiresAt time.Time, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines[account] = expiresAt
	return nil
}

func (m *attemptStoreMock) LockoutDeadline(_ context.Context, account string) (time.Time, bool, error) {
	if m.statusErr != nil {
		return time.Time{}, false, m.statusErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.deadlines[account]
	return deadline, ok, nil
}

func (m *attemptStoreMock) ClearLockout(_ context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deadlines, account)
	return nil
}

type deviceStoreMock struct {
	devices map[string]domain.TrustedDevice
	getErr  error
}

func newDeviceStoreMock() *deviceStoreMock {
	return &deviceStoreMock{devices: make(map[string]domain.TrustedDevice)}
}

func deviceKey(account, fingerprint string) string {
	return account + "/" + fingerprint
}

func (m *deviceStoreMock) Get(_ context.Context, account, fingerprint string) (*domain.TrustedDevice, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if device, ok := m.devices[deviceKey(account, fingerprint)]; ok {
		return &device, nil
	}
	return nil, repository.ErrNotFound
}

func (m *deviceStoreMock) Upsert(_ context.Context, device domain.TrustedDevice) error {
	m.devices[deviceKey(device.Account, device.Fingerprint)] = device
	return nil
}

func (m *deviceStoreMock) SetTrusted(_ context.Context, account, fingerprint string, trusted bool) error {
	key := deviceKey(account, fingerprint)
	device, ok := m.devices[key]
	if !ok {
		return repository.ErrNotFound
	}
	device.Trusted = trusted
	m.devices[key] = device
	return nil
}

func (m *deviceStoreMock) Delete(_ context.Context, account, fingerprint string) error {
	key := deviceKey(account, fingerprint)
	if _, ok := m.devices[key]; !ok {
		return repository.ErrNotFound
	}
	delete(m.devices, key)
	return nil
}

func (m *deviceStoreMock) ListByAccount(_ context.Context, account string) ([]domain.TrustedDevice, error) {
	var out []domain.TrustedDevice
	for _, device := range m.devices {
		if device.Account == account {
			out = append(out, device)
		}
	}
	return out, nil
}

type challengeStoreMock struct {
	challenges map[string]*domain.Challenge
	attempts   map[string]int
}

func newChallengeStoreMock() *challengeStoreMock {
	return &challengeStoreMock{
		challenges: make(map[string]*domain.Challenge),
		attempts:   make(map[string]int),
	}
}

func challengeKey(purpose domain.ChallengePurpose, account string) string {
	return string(purpose) + "/" + account
}

func (m *challengeStoreMock) Store(_ context.Context, challenge domain.Challenge, _ time.Duration) error {
	key := challengeKey(challenge.Purpose, challenge.Account)
	m.challenges[key] = &challenge
	m.attempts[key] = 0
	return nil
}

func (m *challengeStoreMock) Fetch(_ context.Context, purpose domain.ChallengePurpose, account string) (*domain.Challenge, error) {
	if challenge, ok := m.challenges[challengeKey(purpose, account)]; ok {
		copied := *challenge
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *challengeStoreMock) IncrementAttempts(_ context.Context, purpose domain.ChallengePurpose, account string) (int, error) {
	key := challengeKey(purpose, account)
	if _, ok := m.challenges[key]; !ok {
		return 0, repository.ErrNotFound
	}
	m.attempts[key]++
	return m.attempts[key], nil
}

func (m *challengeStoreMock) Delete(_ context.Context, purpose domain.ChallengePurpose, account string) error {
	key := challengeKey(purpose, account)
	if _, ok := m.challenges[key]; !ok {
		return repository.ErrNotFound
	}
	delete(m.challenges, key)
	delete(m.attempts, key)
	return nil
}

type auditStoreMock struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry
	appendErr error
}

func (m *auditStoreMock) Append(_ context.Context, entry domain.AuditEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *auditStoreMock) Query(_ context.Context, _ domain.AuditFilter) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *auditStoreMock) Count(_ context.Context, _ domain.AuditFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *auditStoreMock) byAction(action string) []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, entry := range m.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

func newAuditServiceForTest(store *auditStoreMock) *AuditService {
	return NewAuditService(store, nil, nil, nil)
}
