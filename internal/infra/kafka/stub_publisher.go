package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
)

// StubPublisher logs audit entries instead of sending them to Kafka.
// Useful for development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// PublishAuditEntry logs the entry at debug level.
func (p *StubPublisher) PublishAuditEntry(_ context.Context, entry domain.AuditEntry) error {
	p.logger.Debug("audit entry (stub publisher)",
		zap.String("id", entry.ID),
		zap.String("action", entry.Action),
		zap.String("actor_id", entry.ActorID),
		zap.String("outcome", string(entry.Outcome)),
	)
	return nil
}

var _ port.AuditPublisher = (*StubPublisher)(nil)
