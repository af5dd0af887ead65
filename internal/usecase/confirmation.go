package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

// ActionFunc is the destructive operation a confirmation ladder guards.
// The action owns its own atomicity; the ladder only decides whether it
// may run and records how it went.
type ActionFunc func(ctx context.Context) error

// PasswordVerifier checks the actor's password for a password stage.
type PasswordVerifier func(ctx context.Context, password string) (bool, error)

// BeginConfirmationInput configures a new confirmation session.
type BeginConfirmationInput struct {
	ActionName     string
	Actor          Actor
	Resource       domain.Resource
	ResourceID     string
	Stages         []domain.StageSpec
	Action         ActionFunc
	VerifyPassword PasswordVerifier
}

// confirmationEntry pairs a session with its callbacks. The entry mutex
// serializes every stage transition, so a state check and the transition
// it guards are atomic even under concurrent requests.
type confirmationEntry struct {
	mu             sync.Mutex
	session        *domain.ConfirmationSession
	action         ActionFunc
	verifyPassword PasswordVerifier
	actor          Actor
	resource       domain.Resource
	resourceID     string
}

// snapshot copies the session state for callers outside the entry lock.
func (e *confirmationEntry) snapshot() *domain.ConfirmationSession {
	copied := *e.session
	return &copied
}

// ConfirmationService owns the pending confirmation sessions. Sessions
// exist only for the lifetime of one pending destructive action and are
// discarded on cancel or completion. Exactly one audit entry is written
// per transition into the executing state.
type ConfirmationService struct {
	mu      sync.Mutex
	pending map[string]*confirmationEntry

	challenges *ChallengeService
	audit      *AuditService
	logger     *zap.Logger
	now        func() time.Time
}

// NewConfirmationService constructs a ConfirmationService.
func NewConfirmationService(challenges *ChallengeService, audit *AuditService, log *zap.Logger) *ConfirmationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConfirmationService{
		pending:    make(map[string]*confirmationEntry),
		challenges: challenges,
		audit:      audit,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *ConfirmationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Begin opens a session for a destructive action. When the ladder has an
// otp stage a challenge is issued up front so the code is already on its
// way to the actor.
func (s *ConfirmationService) Begin(ctx context.Context, input BeginConfirmationInput) (*domain.ConfirmationSession, error) {
	if strings.TrimSpace(input.ActionName) == "" {
		return nil, fmt.Errorf("action name is required")
	}
	if input.Action == nil {
		return nil, fmt.Errorf("action callback is required")
	}
	for _, stage := range input.Stages {
		if stage.Kind == domain.StagePassword && input.VerifyPassword == nil {
			return nil, fmt.Errorf("password stage requires a verifier")
		}
		if stage.Kind == domain.StageTypedPhrase && stage.Phrase == "" {
			return nil, fmt.Errorf("typed-phrase stage requires a phrase")
		}
	}

	session := domain.NewConfirmationSession(
		uuid.NewString(),
		input.ActionName,
		input.Actor.ID,
		input.Actor.Role,
		input.Stages,
		s.now().UTC(),
	)

	if hasStage(input.Stages, domain.StageOTP) {
		if _, err := s.challenges.Issue(ctx, domain.ChallengePurposeConfirmation, input.Actor.ID); err != nil {
			return nil, fmt.Errorf("issue confirmation challenge: %w", err)
		}
	}

	entry := &confirmationEntry{
		session:        session,
		action:         input.Action,
		verifyPassword: input.VerifyPassword,
		actor:          input.Actor,
		resource:       input.Resource,
		resourceID:     input.ResourceID,
	}

	s.mu.Lock()
	s.pending[session.ID] = entry
	s.mu.Unlock()

	return entry.snapshot(), nil
}

// Session returns a snapshot of a pending session's state.
func (s *ConfirmationService) Session(id string) (*domain.ConfirmationSession, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.snapshot(), nil
}

// Acknowledge dismisses a warning stage.
func (s *ConfirmationService) Acknowledge(id string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Acknowledge(s.now().UTC())
}

// SubmitPhrase advances a typed-phrase stage on an exact match.
func (s *ConfirmationService) SubmitPhrase(id, phrase string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.SubmitPhrase(phrase, s.now().UTC())
}

// SubmitPassword verifies the actor's password for a password stage. A
// wrong password blocks the stage; rate limiting is the login throttle's
// concern, not this machine's.
func (s *ConfirmationService) SubmitPassword(ctx context.Context, id, password string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if stage, ok := entry.session.CurrentStage(); !ok || stage.Kind != domain.StagePassword {
		return domain.ErrStageOrder
	}

	ok, err := entry.verifyPassword(ctx, password)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return entry.session.PassStage(domain.StagePassword, s.now().UTC())
}

// SubmitOTP verifies the one-time code for an otp stage.
func (s *ConfirmationService) SubmitOTP(ctx context.Context, id, code string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if stage, ok := entry.session.CurrentStage(); !ok || stage.Kind != domain.StageOTP {
		return domain.ErrStageOrder
	}

	if err := s.challenges.Verify(ctx, domain.ChallengePurposeConfirmation, entry.actor.ID, code); err != nil {
		return err
	}
	return entry.session.PassStage(domain.StageOTP, s.now().UTC())
}

// ResendOTP replaces the pending confirmation code.
func (s *ConfirmationService) ResendOTP(ctx context.Context, id string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}
	if _, err := s.challenges.Resend(ctx, domain.ChallengePurposeConfirmation, entry.actor.ID); err != nil {
		return fmt.Errorf("resend confirmation challenge: %w", err)
	}
	return nil
}

// Cancel discards a pending session. Allowed from any stage, including
// mid-countdown, but not once execution has started.
func (s *ConfirmationService) Cancel(id string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	err = entry.session.Cancel(s.now().UTC())
	entry.mu.Unlock()
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
	return nil
}

// Execute runs the guarded action once every stage is satisfied. The
// session is settled and removed whatever the outcome, and exactly one
// audit entry records it. A failure never retries silently.
func (s *ConfirmationService) Execute(ctx context.Context, id string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	// The transition into executing happens under the entry lock, so of
	// any concurrent Execute calls exactly one passes and runs the action.
	entry.mu.Lock()
	err = entry.session.BeginExecution(s.now().UTC())
	entry.mu.Unlock()
	if err != nil {
		return err
	}

	actionErr := entry.action(ctx)

	settled := s.now().UTC()
	outcome := domain.AuditSuccess
	entry.mu.Lock()
	if actionErr != nil {
		outcome = domain.AuditFailure
		if err := entry.session.Fail(actionErr.Error(), settled); err != nil {
			s.logger.Error("confirmation session not settled", zap.Error(err))
		}
	} else {
		if err := entry.session.Complete(settled); err != nil {
			s.logger.Error("confirmation session not settled", zap.Error(err))
		}
	}
	entry.mu.Unlock()

	s.recordExecution(ctx, entry, outcome, actionErr)

	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()

	if actionErr != nil {
		return &ExecutionError{Action: entry.session.ActionName, Cause: actionErr}
	}
	return nil
}

func (s *ConfirmationService) recordExecution(ctx context.Context, entry *confirmationEntry, outcome domain.AuditOutcome, actionErr error) {
	if s.audit == nil {
		return
	}

	var after map[string]any
	if actionErr != nil {
		after = map[string]any{"error": actionErr.Error()}
	}

	if _, err := s.audit.Record(ctx, RecordAuditInput{
		Action:     entry.session.ActionName,
		Resource:   entry.resource,
		ResourceID: entry.resourceID,
		ActorID:    entry.actor.ID,
		ActorRole:  entry.actor.Role,
		IPAddress:  entry.actor.IP,
		Outcome:    outcome,
		After:      after,
	}); err != nil {
		s.logger.Error("execution audit not recorded",
			zap.String("action", entry.session.ActionName),
			zap.Error(err),
		)
	}
}

func (s *ConfirmationService) entry(id string) (*confirmationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func hasStage(stages []domain.StageSpec, kind domain.StageKind) bool {
	for _, stage := range stages {
		if stage.Kind == kind {
			return true
		}
	}
	return false
}

// Ladder presets for the dashboard's tiered destructive actions. The
// variants differ only in which stages are configured; the machine is
// shared.

// StagesCacheClear guards the lowest-risk action with a bare warning.
func StagesCacheClear() []domain.StageSpec {
	return []domain.StageSpec{
		{Kind: domain.StageAcknowledge},
	}
}

// StagesMaintenanceMode adds a short mandatory wait after the warning.
func StagesMaintenanceMode() []domain.StageSpec {
	return []domain.StageSpec{
		{Kind: domain.StageAcknowledge},
		{Kind: domain.StageCountdown, Wait: 5 * time.Second},
	}
}

// StagesAdminDeletion requires typing the target's username exactly,
// then waiting out a cooldown.
func StagesAdminDeletion(username string) []domain.StageSpec {
	return []domain.StageSpec{
		{Kind: domain.StageAcknowledge},
		{Kind: domain.StageTypedPhrase, Phrase: username, CaseSensitive: true},
		{Kind: domain.StageCountdown, Wait: 5 * time.Second},
	}
}

// StagesSystemLockdown is the full ladder: password, one-time code, and
// a cooldown before the switch can be thrown.
func StagesSystemLockdown() []domain.StageSpec {
	return []domain.StageSpec{
		{Kind: domain.StageAcknowledge},
		{Kind: domain.StagePassword},
		{Kind: domain.StageOTP},
		{Kind: domain.StageCountdown, Wait: 10 * time.Second},
	}
}
