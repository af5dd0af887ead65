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
	"github.com/edcore/school-admin-guard/internal/infra/security"
	"github.com/edcore/school-admin-guard/internal/repository"
)

// DeviceTrustService tracks which fingerprinted devices an account has
// approved. The store failing never produces a trusted verdict: every
// degraded path answers "untrusted".
type DeviceTrustService struct {
	devices port.DeviceStore
	audit   *AuditService
	logger  *zap.Logger
	now     func() time.Time
}

// NewDeviceTrustService constructs a DeviceTrustService.
func NewDeviceTrustService(devices port.DeviceStore, audit *AuditService, log *zap.Logger) *DeviceTrustService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceTrustService{
		devices: devices,
		audit:   audit,
		logger:  log,
		now:     time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *DeviceTrustService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Fingerprint derives the deterministic device identifier for the signals.
func (s *DeviceTrustService) Fingerprint(signals domain.DeviceSignals) string {
	return security.Fingerprint(signals)
}

// Observe registers a device sighting during login and reports whether
// the device is trusted. Unknown devices get an untrusted record; store
// failures degrade to untrusted rather than erroring the login.
func (s *DeviceTrustService) Observe(ctx context.Context, account string, signals domain.DeviceSignals, ip string) (*domain.TrustedDevice, bool) {
	fingerprint := security.Fingerprint(signals)
	now := s.now().UTC()

	existing, err := s.devices.Get(ctx, account, fingerprint)
	switch {
	case err == nil:
		refreshed := *existing
		refreshed.IPAddress = ip
		refreshed.LastUsed = now
		if upsertErr := s.devices.Upsert(ctx, refreshed); upsertErr != nil {
			s.logger.Warn("device sighting not persisted", zap.Error(upsertErr))
		}
		return &refreshed, refreshed.Trusted
	case errors.Is(err, repository.ErrNotFound):
		device := domain.TrustedDevice{
			Fingerprint: fingerprint,
			Account:     account,
			DisplayName: displayNameFromSignals(signals),
			Browser:     browserFromUserAgent(signals.UserAgent),
			OS:          osFromUserAgent(signals.UserAgent),
			IPAddress:   ip,
			Trusted:     false,
			FirstSeen:   now,
			LastUsed:    now,
		}
		if upsertErr := s.devices.Upsert(ctx, device); upsertErr != nil {
			s.logger.Warn("new device not persisted", zap.Error(upsertErr))
		}
		return &device, false
	default:
		s.logger.Warn("device lookup failed, treating as untrusted", zap.Error(err))
		return nil, false
	}
}

// IsTrusted reports whether the fingerprint has been approved for the
// account. Any store failure answers false.
func (s *DeviceTrustService) IsTrusted(ctx context.Context, account, fingerprint string) bool {
	device, err := s.devices.Get(ctx, account, fingerprint)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("device lookup failed, treating as untrusted", zap.Error(err))
		}
		return false
	}
	return device.Trusted
}

// Approve marks a device trusted. This is the only path that flips the
// flag to true.
func (s *DeviceTrustService) Approve(ctx context.Context, actor Actor, account, fingerprint string) error {
	if err := s.devices.SetTrusted(ctx, account, fingerprint, true); err != nil {
		return fmt.Errorf("approve device: %w", err)
	}

	s.recordDeviceAudit(ctx, actor, "device.approve", fingerprint, domain.AuditSuccess)
	return nil
}

// Revoke withdraws trust from a device. An active session on that device
// keeps running; the next trust check sees the revocation.
func (s *DeviceTrustService) Revoke(ctx context.Context, actor Actor, account, fingerprint string) error {
	if err := s.devices.SetTrusted(ctx, account, fingerprint, false); err != nil {
		return fmt.Errorf("revoke device: %w", err)
	}

	s.recordDeviceAudit(ctx, actor, "device.revoke", fingerprint, domain.AuditWarning)
	return nil
}

// Forget removes the device record entirely.
func (s *DeviceTrustService) Forget(ctx context.Context, actor Actor, account, fingerprint string) error {
	if err := s.devices.Delete(ctx, account, fingerprint); err != nil {
		return fmt.Errorf("forget device: %w", err)
	}

	s.recordDeviceAudit(ctx, actor, "device.forget", fingerprint, domain.AuditWarning)
	return nil
}

// List returns every device seen for the account.
func (s *DeviceTrustService) List(ctx context.Context, account string) ([]domain.TrustedDevice, error) {
	devices, err := s.devices.ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

func (s *DeviceTrustService) recordDeviceAudit(ctx context.Context, actor Actor, action, fingerprint string, outcome domain.AuditOutcome) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(ctx, RecordAuditInput{
		Action:     action,
		Resource:   domain.ResourceDevices,
		ResourceID: fingerprint,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		IPAddress:  actor.IP,
		Outcome:    outcome,
	}); err != nil {
		s.logger.Error("device audit not recorded", zap.String("action", action), zap.Error(err))
	}
}

func displayNameFromSignals(signals domain.DeviceSignals) string {
	browser := browserFromUserAgent(signals.UserAgent)
	os := osFromUserAgent(signals.UserAgent)
	if browser == "Unknown browser" && os == "Unknown OS" {
		return "Unknown device"
	}
	return browser + " on " + os
}

func browserFromUserAgent(ua string) string {
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "edg/"):
		return "Edge"
	case strings.Contains(lower, "firefox/"):
		return "Firefox"
	case strings.Contains(lower, "chrome/"):
		return "Chrome"
	case strings.Contains(lower, "safari/"):
		return "Safari"
	}
	return "Unknown browser"
}

func osFromUserAgent(ua string) string {
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "windows"):
		return "Windows"
	case strings.Contains(lower, "mac os"), strings.Contains(lower, "macos"):
		return "macOS"
	case strings.Contains(lower, "android"):
		return "Android"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"):
		return "iOS"
	case strings.Contains(lower, "linux"):
		return "Linux"
	}
	return "Unknown OS"
}
