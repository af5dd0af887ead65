package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SystemState is a snapshot of the dashboard's operational switches.
type SystemState struct {
	MaintenanceMode bool      `json:"maintenance_mode"`
	Lockdown        bool      `json:"lockdown"`
	CacheClearedAt  time.Time `json:"cache_cleared_at,omitzero"`
}

// SystemService owns the in-process operational switches. Its mutating
// methods are the callbacks handed to confirmation ladders; nothing else
// calls them, so every flip is preceded by a completed ladder and
// followed by one audit entry.
type SystemService struct {
	mu     sync.RWMutex
	state  SystemState
	logger *zap.Logger
	now    func() time.Time
}

// NewSystemService constructs a SystemService.
func NewSystemService(log *zap.Logger) *SystemService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemService{logger: log, now: time.Now}
}

// WithClock overrides the internal clock, used in tests.
func (s *SystemService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// State returns the current switch positions.
func (s *SystemService) State() SystemState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ClearCache drops cached dashboard data.
func (s *SystemService) ClearCache(_ context.Context) error {
	s.mu.Lock()
	s.state.CacheClearedAt = s.now().UTC()
	s.mu.Unlock()

	s.logger.Info("dashboard cache cleared")
	return nil
}

// SetMaintenance flips maintenance mode.
func (s *SystemService) SetMaintenance(_ context.Context, enabled bool) error {
	s.mu.Lock()
	s.state.MaintenanceMode = enabled
	s.mu.Unlock()

	s.logger.Warn("maintenance mode changed", zap.Bool("enabled", enabled))
	return nil
}

// SetLockdown flips the system-wide lockdown switch.
func (s *SystemService) SetLockdown(_ context.Context, enabled bool) error {
	s.mu.Lock()
	s.state.Lockdown = enabled
	s.mu.Unlock()

	s.logger.Warn("system lockdown changed", zap.Bool("enabled", enabled))
	return nil
}
