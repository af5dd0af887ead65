package port

import (
	"context"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

// DeviceStore persists per-account trusted device records keyed by fingerprint.
type DeviceStore interface {
	Get(ctx context.Context, account, fingerprint string) (*domain.TrustedDevice, error)
	Upsert(ctx context.Context, device domain.TrustedDevice) error
	SetTrusted(ctx context.Context, account, fingerprint string, trusted bool) error
	Delete(ctx context.Context, account, fingerprint string) error
	ListByAccount(ctx context.Context, account string) ([]domain.TrustedDevice, error)
}
