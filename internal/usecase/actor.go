package usecase

import "github.com/edcore/school-admin-guard/internal/core/domain"

// Actor identifies who is performing an operation, for audit trails.
type Actor struct {
	ID   string
	Role domain.Role
	IP   string
}
