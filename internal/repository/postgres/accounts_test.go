package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/repository"
)

func TestAccountRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO guard\.accounts`).
		WithArgs("acc-1", "headmaster", "headmaster@school.test", "argon-hash", "super_admin", "active", created, created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), domain.Account{
		ID:           "acc-1",
		Username:     "headmaster",
		Email:        "headmaster@school.test",
		PasswordHash: "argon-hash",
		Role:         domain.RoleSuperAdmin,
		Status:       domain.AccountActive,
		CreatedAt:    created,
		UpdatedAt:    created,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_Create_UniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`INSERT INTO guard\.accounts`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_key"})

	err = repo.Create(context.Background(), domain.Account{ID: "acc-1", Username: "headmaster"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(accountColumns).
		AddRow("acc-1", "headmaster", "headmaster@school.test", "argon-hash", "super_admin", "active", created, created)

	mock.ExpectQuery(`SELECT .+ FROM guard\.accounts WHERE username = \$1`).
		WithArgs("headmaster").
		WillReturnRows(rows)

	account, err := repo.GetByUsername(context.Background(), "headmaster")
	if err != nil {
		t.Fatalf("GetByUsername returned error: %v", err)
	}
	if account.ID != "acc-1" || account.Role != domain.RoleSuperAdmin || account.Status != domain.AccountActive {
		t.Fatalf("unexpected account: %+v", account)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM guard\.accounts WHERE id = \$1`).
		WithArgs("acc-404").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "acc-404")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`UPDATE guard\.accounts SET status = \$1, updated_at = now\(\) WHERE id = \$2`).
		WithArgs("disabled", "acc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateStatus(context.Background(), "acc-1", domain.AccountDisabled); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`UPDATE guard\.accounts`).
		WithArgs("disabled", "acc-404").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), "acc-404", domain.AccountDisabled)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_Delete_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`DELETE FROM guard\.accounts WHERE id = \$1`).
		WithArgs("acc-404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "acc-404"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(accountColumns).
		AddRow("acc-1", "headmaster", "headmaster@school.test", "h1", "super_admin", "active", created, created).
		AddRow("acc-2", "librarian", "librarian@school.test", "h2", "admin_library", "disabled", created, created)

	mock.ExpectQuery(`SELECT .+ FROM guard\.accounts ORDER BY created_at ASC`).
		WillReturnRows(rows)

	accounts, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[1].Role != domain.RoleLibraryAdmin || accounts[1].Status != domain.AccountDisabled {
		t.Fatalf("unexpected second account: %+v", accounts[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
