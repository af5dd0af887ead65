package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecutor abstracts the pgx surface the repositories need, so tests
// can substitute a mock pool.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every PostgreSQL-backed repository.
type Repositories struct {
	Accounts *AccountRepository
	Devices  *DeviceRepository
	Audit    *AuditRepository
}

// NewRepositories wires all repositories onto a shared pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Accounts: NewAccountRepository(pool),
		Devices:  NewDeviceRepository(pool),
		Audit:    NewAuditRepository(pool),
	}
}
