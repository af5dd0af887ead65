package port

import (
	"context"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

// AccountRepository provides access to administrator accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Account, error)
}
