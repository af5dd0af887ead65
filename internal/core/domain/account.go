package domain

import "time"

// AccountStatus captures the lifecycle state of an admin account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountDisabled AccountStatus = "disabled"
)

// Account represents an administrator able to sign in to the dashboard.
// The role is fixed at creation; changing it means issuing a new account.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the account may authenticate.
func (a Account) IsActive() bool {
	return a.Status == AccountActive
}
