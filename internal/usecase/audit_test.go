package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/repository/memory"
)

type auditPublisherMock struct {
	published  []domain.AuditEntry
	publishErr error
}

func (m *auditPublisherMock) PublishAuditEntry(_ context.Context, entry domain.AuditEntry) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, entry)
	return nil
}

func TestAudit_RecordAssignsIdentityAndFansOut(t *testing.T) {
	store := &auditStoreMock{}
	mirror := memory.NewAuditMirror(10)
	publisher := &auditPublisherMock{}
	svc := NewAuditService(store, mirror, publisher, nil)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	entry, err := svc.Record(context.Background(), RecordAuditInput{
		Action:    "login.success",
		Resource:  domain.ResourceSystem,
		ActorID:   "acc-1",
		ActorRole: domain.RoleSuperAdmin,
		Outcome:   domain.AuditSuccess,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("entry must be assigned an id")
	}
	if !entry.At.Equal(now) {
		t.Fatalf("entry timestamp not from the clock: %v", entry.At)
	}

	if len(store.entries) != 1 {
		t.Fatalf("durable store holds %d entries, want 1", len(store.entries))
	}
	if recent := mirror.Recent(domain.AuditFilter{}); len(recent) != 1 || recent[0].ID != entry.ID {
		t.Fatalf("mirror missing the entry: %+v", recent)
	}
	if len(publisher.published) != 1 || publisher.published[0].ID != entry.ID {
		t.Fatalf("publisher missing the entry: %+v", publisher.published)
	}
}

func TestAudit_DurableFailurePropagates(t *testing.T) {
	cause := errors.New("postgres down")
	store := &auditStoreMock{appendErr: cause}
	mirror := memory.NewAuditMirror(10)
	publisher := &auditPublisherMock{}
	svc := NewAuditService(store, mirror, publisher, nil)

	_, err := svc.Record(context.Background(), RecordAuditInput{Action: "login.success"})
	if !errors.Is(err, cause) {
		t.Fatalf("store failure must surface to the caller, got %v", err)
	}

	// Nothing fans out when the system of record refused the entry.
	if len(mirror.Recent(domain.AuditFilter{})) != 0 {
		t.Fatal("mirror received an entry the store rejected")
	}
	if len(publisher.published) != 0 {
		t.Fatal("publisher received an entry the store rejected")
	}
}

func TestAudit_PublisherFailureIsBestEffort(t *testing.T) {
	store := &auditStoreMock{}
	publisher := &auditPublisherMock{publishErr: errors.New("broker unreachable")}
	svc := NewAuditService(store, nil, publisher, nil)

	if _, err := svc.Record(context.Background(), RecordAuditInput{Action: "login.success"}); err != nil {
		t.Fatalf("publish failure must not fail the append: %v", err)
	}
	if len(store.entries) != 1 {
		t.Fatalf("durable store holds %d entries, want 1", len(store.entries))
	}
}

func TestAudit_QueryReturnsPageWithTotal(t *testing.T) {
	store := &auditStoreMock{}
	svc := NewAuditService(store, nil, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.Record(context.Background(), RecordAuditInput{Action: "login.success"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	page, err := svc.Query(context.Background(), domain.AuditFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Entries) != 3 || page.Total != 3 {
		t.Fatalf("unexpected page: %d entries, total %d", len(page.Entries), page.Total)
	}
}

func TestAudit_RecentWithoutMirror(t *testing.T) {
	svc := NewAuditService(&auditStoreMock{}, nil, nil, nil)
	if entries := svc.Recent(domain.AuditFilter{}); entries != nil {
		t.Fatalf("expected nil without a mirror, got %+v", entries)
	}
}
