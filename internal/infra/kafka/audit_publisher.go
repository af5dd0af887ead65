package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
)

const auditTopic = "audit_entries"

// auditEvent is the wire shape of a published audit entry.
type auditEvent struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	IPAddress  string         `json:"ip_address,omitempty"`
	Outcome    string         `json:"outcome"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// AuditPublisher streams audit entries to Kafka for downstream viewers.
type AuditPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewAuditPublisher constructs an AuditPublisher over the shared producer.
func NewAuditPublisher(producer *Producer, logger *zap.Logger) *AuditPublisher {
	return &AuditPublisher{producer: producer, logger: logger}
}

// PublishAuditEntry enqueues the entry on the audit topic, keyed by actor
// so per-actor ordering is preserved.
func (p *AuditPublisher) PublishAuditEntry(_ context.Context, entry domain.AuditEntry) error {
	payload, err := json.Marshal(auditEvent{
		ID:         entry.ID,
		Action:     entry.Action,
		Resource:   string(entry.Resource),
		ResourceID: entry.ResourceID,
		ActorID:    entry.ActorID,
		ActorRole:  string(entry.ActorRole),
		IPAddress:  entry.IPAddress,
		Outcome:    string(entry.Outcome),
		Before:     entry.Before,
		After:      entry.After,
		OccurredAt: entry.At,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.producer.TopicName(auditTopic),
		Key:   sarama.StringEncoder(entry.ActorID),
		Value: sarama.ByteEncoder(payload),
	}

	return nil
}

var _ port.AuditPublisher = (*AuditPublisher)(nil)
