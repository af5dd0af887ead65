package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/infra/logger"
	"github.com/edcore/school-admin-guard/internal/infra/security"
	"github.com/edcore/school-admin-guard/internal/repository"
)

// LoginInput carries one sign-in attempt.
type LoginInput struct {
	Username string
	Password string
	Signals  domain.DeviceSignals
	IP       string
}

// CompleteOTPInput finishes a login that required a one-time code.
type CompleteOTPInput struct {
	Username       string
	Code           string
	Signals        domain.DeviceSignals
	IP             string
	RememberDevice bool
}

// LoginResult is the outcome of a successful credential check. When the
// device is untrusted no token is issued yet; the caller must complete
// the one-time code step first.
type LoginResult struct {
	Account      *domain.Account
	Token        string
	RequiresOTP  bool
	ChallengeTTL time.Duration
	Device       *domain.TrustedDevice
}

// LoginService runs the sign-in sequence: lockout check first, then
// credentials, then device trust, with a one-time code step for unknown
// devices.
type LoginService struct {
	accounts   port.AccountRepository
	hasher     *security.PasswordHasher
	tokens     *security.TokenIssuer
	throttle   *ThrottleService
	devices    *DeviceTrustService
	challenges *ChallengeService
	audit      *AuditService
	logger     *zap.Logger
}

// NewLoginService constructs a LoginService.
func NewLoginService(
	accounts port.AccountRepository,
	hasher *security.PasswordHasher,
	tokens *security.TokenIssuer,
	throttle *ThrottleService,
	devices *DeviceTrustService,
	challenges *ChallengeService,
	audit *AuditService,
	log *zap.Logger,
) *LoginService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginService{
		accounts:   accounts,
		hasher:     hasher,
		tokens:     tokens,
		throttle:   throttle,
		devices:    devices,
		challenges: challenges,
		audit:      audit,
		logger:     log,
	}
}

// Login checks the lockout state and credentials. The lock check runs
// before any credential work, so a locked account is refused even with
// the correct password. Unknown usernames still pay the throttle so they
// cannot be probed for free.
func (s *LoginService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	status, err := s.throttle.Status(ctx, username)
	if err != nil {
		// Fail closed: if the lock state is unknowable, refuse the login.
		return nil, fmt.Errorf("lockout status: %w", err)
	}
	if status.Locked {
		return nil, &AccountLockedError{RetryAfter: status.Remaining}
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.rejectCredentials(ctx, username, input.IP)
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.rejectCredentials(ctx, username, input.IP)
	}

	if !account.IsActive() {
		s.recordLoginAudit(ctx, account, input.IP, "login.denied", domain.AuditWarning)
		return nil, ErrInactiveAccount
	}

	if err := s.throttle.RecordAttempt(ctx, username, domain.AttemptSuccess); err != nil {
		s.logger.Warn("attempt history not cleared", zap.Error(err))
	}

	device, trusted := s.devices.Observe(ctx, account.ID, input.Signals, input.IP)
	if !trusted {
		challenge, err := s.challenges.Issue(ctx, domain.ChallengePurposeLogin, account.ID)
		if err != nil {
			return nil, fmt.Errorf("issue login challenge: %w", err)
		}
		s.recordLoginAudit(ctx, account, input.IP, "login.challenge", domain.AuditWarning)
		return &LoginResult{
			Account:      account,
			RequiresOTP:  true,
			ChallengeTTL: challenge.Remaining(challenge.IssuedAt),
			Device:       device,
		}, nil
	}

	token, err := s.tokens.Issue(*account)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.recordLoginAudit(ctx, account, input.IP, "login.success", domain.AuditSuccess)
	return &LoginResult{Account: account, Token: token, Device: device}, nil
}

// CompleteOTPLogin verifies the one-time code for a login from an
// untrusted device and issues the session token. Opting to remember the
// device counts as an explicit approval of it.
func (s *LoginService) CompleteOTPLogin(ctx context.Context, input CompleteOTPInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !account.IsActive() {
		return nil, ErrInactiveAccount
	}

	if err := s.challenges.Verify(ctx, domain.ChallengePurposeLogin, account.ID, input.Code); err != nil {
		return nil, err
	}

	fingerprint := s.devices.Fingerprint(input.Signals)
	if input.RememberDevice {
		actor := Actor{ID: account.ID, Role: account.Role, IP: input.IP}
		if err := s.devices.Approve(ctx, actor, account.ID, fingerprint); err != nil {
			s.logger.Warn("device not remembered", zap.Error(err))
		}
	}

	token, err := s.tokens.Issue(*account)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.recordLoginAudit(ctx, account, input.IP, "login.success", domain.AuditSuccess)
	return &LoginResult{Account: account, Token: token}, nil
}

// ResendLoginOTP replaces the pending login code for the account.
func (s *LoginService) ResendLoginOTP(ctx context.Context, username string) (time.Duration, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, fmt.Errorf("lookup account: %w", err)
	}

	if _, err := s.challenges.Resend(ctx, domain.ChallengePurposeLogin, account.ID); err != nil {
		return 0, fmt.Errorf("resend login challenge: %w", err)
	}
	return s.challenges.TTL(), nil
}

// rejectCredentials records the failed attempt and maps every credential
// problem onto one error so responses do not reveal whether the username
// exists.
func (s *LoginService) rejectCredentials(ctx context.Context, username, ip string) error {
	if err := s.throttle.RecordAttempt(ctx, username, domain.AttemptFailure); err != nil {
		s.logger.Warn("failed attempt not recorded",
			zap.String("ip", logger.MaskIP(ip)),
			zap.Error(err),
		)
	}

	status, err := s.throttle.Status(ctx, username)
	if err == nil && status.Locked {
		return &AccountLockedError{RetryAfter: status.Remaining}
	}
	return ErrInvalidCredentials
}

func (s *LoginService) recordLoginAudit(ctx context.Context, account *domain.Account, ip, action string, outcome domain.AuditOutcome) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(ctx, RecordAuditInput{
		Action:     action,
		Resource:   domain.ResourceSystem,
		ResourceID: account.Username,
		ActorID:    account.ID,
		ActorRole:  account.Role,
		IPAddress:  ip,
		Outcome:    outcome,
	}); err != nil {
		s.logger.Error("login audit not recorded", zap.String("action", action), zap.Error(err))
	}
}

// PasswordVerifierFor adapts the account's stored hash into the callback
// shape the confirmation ladder's password stage expects.
func (s *LoginService) PasswordVerifierFor(account *domain.Account) PasswordVerifier {
	return func(_ context.Context, password string) (bool, error) {
		return s.hasher.Verify(password, account.PasswordHash)
	}
}
