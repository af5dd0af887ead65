package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

func mirrorEntry(i int, action string) domain.AuditEntry {
	return domain.AuditEntry{
		ID:        fmt.Sprintf("entry-%03d", i),
		Action:    action,
		Resource:  domain.ResourceSystem,
		ActorID:   "acc-1",
		ActorRole: domain.RoleSuperAdmin,
		Outcome:   domain.AuditSuccess,
		At:        time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
	}
}

func TestAuditMirror_NewestFirst(t *testing.T) {
	mirror := NewAuditMirror(10)
	for i := 0; i < 3; i++ {
		mirror.Append(mirrorEntry(i, "login.success"))
	}

	recent := mirror.Recent(domain.AuditFilter{})
	if len(recent) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(recent))
	}
	if recent[0].ID != "entry-002" || recent[2].ID != "entry-000" {
		t.Fatalf("entries not newest first: %s .. %s", recent[0].ID, recent[2].ID)
	}
}

func TestAuditMirror_TrimsOldestPastCapacity(t *testing.T) {
	mirror := NewAuditMirror(5)
	for i := 0; i < 8; i++ {
		mirror.Append(mirrorEntry(i, "login.success"))
	}

	recent := mirror.Recent(domain.AuditFilter{})
	if len(recent) != 5 {
		t.Fatalf("expected capacity of 5, got %d", len(recent))
	}
	if recent[0].ID != "entry-007" {
		t.Fatalf("newest entry missing: %s", recent[0].ID)
	}
	if recent[4].ID != "entry-003" {
		t.Fatalf("oldest kept entry wrong: %s", recent[4].ID)
	}
}

func TestAuditMirror_FilterAndLimit(t *testing.T) {
	mirror := NewAuditMirror(20)
	for i := 0; i < 6; i++ {
		action := "login.success"
		if i%2 == 0 {
			action = "admin.delete"
		}
		mirror.Append(mirrorEntry(i, action))
	}

	deletions := mirror.Recent(domain.AuditFilter{Action: "admin.delete"})
	if len(deletions) != 3 {
		t.Fatalf("expected 3 deletions, got %d", len(deletions))
	}

	limited := mirror.Recent(domain.AuditFilter{Action: "admin.delete", Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("limit not honored, got %d", len(limited))
	}
	if limited[0].ID != "entry-004" {
		t.Fatalf("limit should keep the newest matches: %s", limited[0].ID)
	}
}

func TestAuditMirror_SearchAndTimeWindow(t *testing.T) {
	mirror := NewAuditMirror(20)
	entry := mirrorEntry(0, "admin.delete")
	entry.ResourceID = "Budi"
	mirror.Append(entry)
	mirror.Append(mirrorEntry(1, "login.success"))

	// Search is case-insensitive across action, resource and actor fields.
	matched := mirror.Recent(domain.AuditFilter{Search: "budi"})
	if len(matched) != 1 || matched[0].ResourceID != "Budi" {
		t.Fatalf("search miss: %+v", matched)
	}

	from := mirrorEntry(1, "").At
	windowed := mirror.Recent(domain.AuditFilter{From: from})
	if len(windowed) != 1 || windowed[0].ID != "entry-001" {
		t.Fatalf("time window miss: %+v", windowed)
	}
}

func TestAuditMirror_DefaultCapacity(t *testing.T) {
	mirror := NewAuditMirror(0)
	for i := 0; i < 150; i++ {
		mirror.Append(mirrorEntry(i, "login.success"))
	}
	if got := len(mirror.Recent(domain.AuditFilter{})); got != 100 {
		t.Fatalf("expected default capacity of 100, got %d", got)
	}
}
