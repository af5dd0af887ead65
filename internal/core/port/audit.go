package port

import (
	"context"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

// AuditStore is the durable, append-only system of record for audit
// entries. Implementations must retain every entry indefinitely; bounded
// retention is only acceptable for read mirrors.
type AuditStore interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	Query(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error)
	Count(ctx context.Context, filter domain.AuditFilter) (int, error)
}

// AuditMirror is a bounded, fast-read copy of recent audit entries.
type AuditMirror interface {
	Append(entry domain.AuditEntry)
	Recent(filter domain.AuditFilter) []domain.AuditEntry
}

// AuditPublisher streams audit entries to downstream consumers.
type AuditPublisher interface {
	PublishAuditEntry(ctx context.Context, entry domain.AuditEntry) error
}
