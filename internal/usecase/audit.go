package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/infra/ids"
	"github.com/edcore/school-admin-guard/internal/infra/logger"
)

// RecordAuditInput captures the fields callers provide for a new entry.
// ID and timestamp are assigned by the service.
type RecordAuditInput struct {
	Action     string
	Resource   domain.Resource
	ResourceID string
	ActorID    string
	ActorRole  domain.Role
	IPAddress  string
	Outcome    domain.AuditOutcome
	Before     map[string]any
	After      map[string]any
}

// AuditService appends entries to the durable store, the local mirror,
// and the event stream. The durable store is the system of record: a
// failed insert is an error the caller sees, never a silent drop. Mirror
// and publisher failures are logged but do not fail the append.
type AuditService struct {
	store     port.AuditStore
	mirror    port.AuditMirror
	publisher port.AuditPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(store port.AuditStore, mirror port.AuditMirror, publisher port.AuditPublisher, log *zap.Logger) *AuditService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditService{
		store:     store,
		mirror:    mirror,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Record assigns identity and timestamp to the entry and appends it.
func (s *AuditService) Record(ctx context.Context, input RecordAuditInput) (*domain.AuditEntry, error) {
	entry := domain.AuditEntry{
		ID:         ids.New(),
		Action:     input.Action,
		Resource:   input.Resource,
		ResourceID: input.ResourceID,
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		IPAddress:  input.IPAddress,
		Outcome:    input.Outcome,
		Before:     input.Before,
		After:      input.After,
		At:         s.now().UTC(),
	}

	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.Error("audit append failed",
			zap.String("action", entry.Action),
			zap.String("actor_id", entry.ActorID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if s.mirror != nil {
		s.mirror.Append(entry)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAuditEntry(ctx, entry); err != nil {
			s.logger.Warn("audit publish failed",
				zap.String("id", entry.ID),
				zap.String("ip", logger.MaskIP(entry.IPAddress)),
				zap.Error(err),
			)
		}
	}

	return &entry, nil
}

// AuditPage is a page of query results plus the unpaginated total.
type AuditPage struct {
	Entries []domain.AuditEntry
	Total   int
}

// Query reads from the durable store with filters and pagination.
func (s *AuditService) Query(ctx context.Context, filter domain.AuditFilter) (*AuditPage, error) {
	entries, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	return &AuditPage{Entries: entries, Total: total}, nil
}

// Recent serves the bounded in-memory mirror, for dashboards that poll.
func (s *AuditService) Recent(filter domain.AuditFilter) []domain.AuditEntry {
	if s.mirror == nil {
		return nil
	}
	return s.mirror.Recent(filter)
}
