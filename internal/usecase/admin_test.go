package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/infra/security"
)

func newAdminFixture(t *testing.T, seed ...domain.Account) (*AdminService, *accountRepoMock, *auditStoreMock) {
	t.Helper()

	accounts := newAccountRepoMock(seed...)
	audit := &auditStoreMock{}
	svc := NewAdminService(accounts, security.NewPasswordHasher(security.DefaultArgon2Params()), nil, newAuditServiceForTest(audit), nil)
	return svc, accounts, audit
}

func TestAdmin_CreateAdmin(t *testing.T) {
	svc, accounts, audit := newAdminFixture(t)
	actor := Actor{ID: "acc-1", Role: domain.RoleSuperAdmin, IP: "10.0.0.7"}

	account, err := svc.CreateAdmin(context.Background(), actor, CreateAdminInput{
		Username: "  librarian  ",
		Email:    "Librarian@School.Test",
		Password: "Viaduct-Kestrel-9-Lantern",
		Role:     domain.RoleLibraryAdmin,
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if account.Username != "librarian" {
		t.Fatalf("username not trimmed: %q", account.Username)
	}
	if account.Email != "librarian@school.test" {
		t.Fatalf("email not normalized: %q", account.Email)
	}
	if account.Status != domain.AccountActive {
		t.Fatalf("new account must start active, got %s", account.Status)
	}

	if _, err := accounts.GetByUsername(context.Background(), "librarian"); err != nil {
		t.Fatalf("account not persisted: %v", err)
	}

	entries := audit.byAction("admin.create")
	if len(entries) != 1 {
		t.Fatalf("expected one admin.create audit entry, got %d", len(entries))
	}
	// The audit trail must not carry the address in the clear.
	if entries[0].After["email"] == "librarian@school.test" {
		t.Fatalf("audit entry leaked the raw email")
	}
}

func TestAdmin_CreateAdminRejectsWeakPassword(t *testing.T) {
	svc, _, audit := newAdminFixture(t)

	_, err := svc.CreateAdmin(context.Background(), Actor{}, CreateAdminInput{
		Username: "librarian",
		Email:    "librarian@school.test",
		Password: "password123",
		Role:     domain.RoleLibraryAdmin,
	})
	var violation *security.PasswordValidationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected PasswordValidationError, got %v", err)
	}
	if len(audit.byAction("admin.create")) != 0 {
		t.Fatalf("failed creation must not audit a success")
	}
}

func TestAdmin_CreateAdminRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newAdminFixture(t)

	_, err := svc.CreateAdmin(context.Background(), Actor{}, CreateAdminInput{
		Username: "librarian",
		Email:    "librarian@school.test",
		Password: "Viaduct-Kestrel-9-Lantern",
		Role:     domain.Role("janitor"),
	})
	if err == nil {
		t.Fatal("unknown role accepted")
	}
}

func TestAdmin_CreateAdminConflict(t *testing.T) {
	svc, _, _ := newAdminFixture(t, domain.Account{
		ID: "acc-1", Username: "librarian", Email: "librarian@school.test",
	})

	_, err := svc.CreateAdmin(context.Background(), Actor{}, CreateAdminInput{
		Username: "librarian",
		Email:    "other@school.test",
		Password: "Viaduct-Kestrel-9-Lantern",
		Role:     domain.RoleLibraryAdmin,
	})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestAdmin_SetStatus(t *testing.T) {
	svc, accounts, audit := newAdminFixture(t, domain.Account{
		ID: "acc-2", Username: "librarian", Status: domain.AccountActive,
	})
	actor := Actor{ID: "acc-1", Role: domain.RoleSuperAdmin}

	if err := svc.SetStatus(context.Background(), actor, "acc-2", domain.AccountDisabled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	account, err := accounts.GetByID(context.Background(), "acc-2")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if account.Status != domain.AccountDisabled {
		t.Fatalf("status not updated: %s", account.Status)
	}

	entries := audit.byAction("admin.set_status")
	if len(entries) != 1 {
		t.Fatalf("expected one admin.set_status audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Outcome != domain.AuditWarning {
		t.Fatalf("disabling an account should record a warning, got %s", entry.Outcome)
	}
	if entry.Before["status"] != "active" || entry.After["status"] != "disabled" {
		t.Fatalf("before/after states wrong: %+v -> %+v", entry.Before, entry.After)
	}
}

func TestAdmin_SetStatusNoOp(t *testing.T) {
	svc, _, audit := newAdminFixture(t, domain.Account{
		ID: "acc-2", Username: "librarian", Status: domain.AccountActive,
	})

	if err := svc.SetStatus(context.Background(), Actor{}, "acc-2", domain.AccountActive); err != nil {
		t.Fatalf("SetStatus no-op: %v", err)
	}
	if len(audit.byAction("admin.set_status")) != 0 {
		t.Fatalf("no-op status change must not audit")
	}
}

func TestAdmin_DeleteAdminWritesNoAuditOfItsOwn(t *testing.T) {
	svc, accounts, audit := newAdminFixture(t, domain.Account{
		ID: "acc-2", Username: "librarian",
	})

	if err := svc.DeleteAdmin(context.Background(), "acc-2"); err != nil {
		t.Fatalf("DeleteAdmin: %v", err)
	}
	if _, err := accounts.GetByID(context.Background(), "acc-2"); err == nil {
		t.Fatal("account still present after delete")
	}
	// The confirmation ladder records the execution entry; a second entry
	// here would double-count the deletion.
	if len(audit.entries) != 0 {
		t.Fatalf("expected no audit entries from DeleteAdmin, got %d", len(audit.entries))
	}
}

func TestAdmin_DeleteAdminUnknownAccount(t *testing.T) {
	svc, _, _ := newAdminFixture(t)
	if err := svc.DeleteAdmin(context.Background(), "acc-404"); err == nil {
		t.Fatal("expected error for unknown account")
	}
}
