package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/repository"
)

// AccountRepository implements port.AccountRepository for PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs an AccountRepository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var accountColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"role",
	"status",
	"created_at",
	"updated_at",
}

// Create inserts an account record.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	sql, args, err := r.builder.Insert("guard.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Username,
			account.Email,
			account.PasswordHash,
			string(account.Role),
			string(account.Status),
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by primary key.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByUsername fetches an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username})
}

func (r *AccountRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Account, error) {
	sql, args, err := r.builder.Select(accountColumns...).
		From("guard.accounts").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, sql, args...)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	return account, nil
}

// UpdateStatus changes the lifecycle status of an account.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	sql, args, err := r.builder.Update("guard.accounts").
		Set("status", string(status)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an account permanently.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.builder.Delete("guard.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns all accounts ordered by creation time.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	sql, args, err := r.builder.Select(accountColumns...).
		From("guard.accounts").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		role    string
		status  string
	)
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&role,
		&status,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Role = domain.Role(role)
	account.Status = domain.AccountStatus(status)
	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
