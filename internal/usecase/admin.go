package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/infra/logger"
	"github.com/edcore/school-admin-guard/internal/infra/security"
	"github.com/edcore/school-admin-guard/internal/repository"
)

// ErrAccountExists is returned when a username or email is already taken.
var ErrAccountExists = errors.New("account already exists")

// CreateAdminInput carries a new administrator account request.
type CreateAdminInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// AdminService manages administrator accounts. Deleting an account is a
// destructive action; handlers route it through a confirmation ladder
// before the deletion callback here ever runs.
type AdminService struct {
	accounts  port.AccountRepository
	hasher    *security.PasswordHasher
	validator *security.PasswordValidator
	audit     *AuditService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(accounts port.AccountRepository, hasher *security.PasswordHasher, validator *security.PasswordValidator, audit *AuditService, log *zap.Logger) *AdminService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{
		accounts:  accounts,
		hasher:    hasher,
		validator: validator,
		audit:     audit,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *AdminService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// CreateAdmin provisions a new administrator account.
func (s *AdminService) CreateAdmin(ctx context.Context, actor Actor, input CreateAdminInput) (*domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required")
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", input.Role)
	}
	if err := s.validator.Validate(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Status:       domain.AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.recordAdminAudit(ctx, actor, "admin.create", username, domain.AuditSuccess, nil, map[string]any{
		"username": username,
		"email":    logger.MaskEmail(email),
		"role":     string(input.Role),
	})
	return &account, nil
}

// DeleteAdmin removes an administrator account. Intended to run as a
// confirmation ladder action, which writes the execution audit entry, so
// no extra entry is recorded here.
func (s *AdminService) DeleteAdmin(ctx context.Context, id string) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// SetStatus enables or disables an account.
func (s *AdminService) SetStatus(ctx context.Context, actor Actor, id string, status domain.AccountStatus) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if account.Status == status {
		return nil
	}

	if err := s.accounts.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	outcome := domain.AuditSuccess
	if status == domain.AccountDisabled {
		outcome = domain.AuditWarning
	}
	s.recordAdminAudit(ctx, actor, "admin.set_status", account.Username, outcome,
		map[string]any{"status": string(account.Status)},
		map[string]any{"status": string(status)},
	)
	return nil
}

// Get returns a single account by id.
func (s *AdminService) Get(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// List returns every administrator account.
func (s *AdminService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *AdminService) recordAdminAudit(ctx context.Context, actor Actor, action, resourceID string, outcome domain.AuditOutcome, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(ctx, RecordAuditInput{
		Action:     action,
		Resource:   domain.ResourceAdmins,
		ResourceID: resourceID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		IPAddress:  actor.IP,
		Outcome:    outcome,
		Before:     before,
		After:      after,
	}); err != nil {
		s.logger.Error("admin audit not recorded", zap.String("action", action), zap.Error(err))
	}
}
