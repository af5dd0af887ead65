package domain

import (
	"errors"
	"strings"
	"time"
)

// StageKind enumerates the verification stages a confirmation ladder can
// be assembled from.
type StageKind string

const (
	StageAcknowledge StageKind = "acknowledge"
	StageTypedPhrase StageKind = "typed_phrase"
	StagePassword    StageKind = "password"
	StageOTP         StageKind = "otp"
	StageCountdown   StageKind = "countdown"
)

// StageSpec configures a single stage of a ladder.
type StageSpec struct {
	Kind StageKind

	// Phrase and CaseSensitive apply to typed-phrase stages.
	Phrase        string
	CaseSensitive bool

	// Wait applies to countdown stages.
	Wait time.Duration
}

// ConfirmationState is the lifecycle state of a confirmation session.
type ConfirmationState string

const (
	ConfirmationPending   ConfirmationState = "pending"
	ConfirmationExecuting ConfirmationState = "executing"
	ConfirmationSucceeded ConfirmationState = "succeeded"
	ConfirmationFailed    ConfirmationState = "failed"
	ConfirmationCancelled ConfirmationState = "cancelled"
)

var (
	// ErrPhraseMismatch indicates the typed confirmation phrase does not match.
	ErrPhraseMismatch = errors.New("confirmation phrase does not match")
	// ErrStageOrder indicates input was supplied for a stage that is not current.
	ErrStageOrder = errors.New("input does not match the current stage")
	// ErrCountdownActive indicates the mandatory wait has not elapsed yet.
	ErrCountdownActive = errors.New("countdown has not elapsed")
	// ErrStagesIncomplete indicates execution was requested before all stages passed.
	ErrStagesIncomplete = errors.New("confirmation stages incomplete")
	// ErrSessionSettled indicates the session already reached a terminal state.
	ErrSessionSettled = errors.New("confirmation session already settled")
	// ErrCancelWhileExecuting indicates cancellation arrived after execution began.
	ErrCancelWhileExecuting = errors.New("cannot cancel while executing")
)

// ConfirmationSession is the state machine instance guarding one pending
// destructive action. All transitions take the caller's notion of now so
// decisions are wall-clock based and indifferent to display timers.
type ConfirmationSession struct {
	ID         string
	ActionName string
	ActorID    string
	ActorRole  Role

	Stages     []StageSpec
	StageIndex int
	State      ConfirmationState

	// CountdownDeadline is set when a countdown stage becomes current.
	CountdownDeadline time.Time

	CreatedAt    time.Time
	SettledAt    time.Time
	FailureCause string
}

// NewConfirmationSession starts a session in the pending state with the
// first stage current. A session with no stages is immediately executable.
func NewConfirmationSession(id, action, actorID string, actorRole Role, stages []StageSpec, at time.Time) *ConfirmationSession {
	s := &ConfirmationSession{
		ID:         id,
		ActionName: action,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Stages:     stages,
		State:      ConfirmationPending,
		CreatedAt:  at,
	}
	s.armCountdown(at)
	return s
}

// CurrentStage returns the stage awaiting input, if any remain.
func (s *ConfirmationSession) CurrentStage() (StageSpec, bool) {
	if s.StageIndex >= len(s.Stages) {
		return StageSpec{}, false
	}
	return s.Stages[s.StageIndex], true
}

// CountdownRemaining reports the wait left on a current countdown stage.
// Zero means no countdown is pending at the supplied moment.
func (s *ConfirmationSession) CountdownRemaining(at time.Time) time.Duration {
	stage, ok := s.CurrentStage()
	if !ok || stage.Kind != StageCountdown {
		return 0
	}
	if remaining := s.CountdownDeadline.Sub(at); remaining > 0 {
		return remaining
	}
	return 0
}

// Acknowledge dismisses a warning stage and advances unconditionally.
func (s *ConfirmationSession) Acknowledge(at time.Time) error {
	if err := s.expectStage(StageAcknowledge); err != nil {
		return err
	}
	s.advance(at)
	return nil
}

// SubmitPhrase checks the typed phrase against the configured literal.
// Mismatches block the stage but are not attempt-limited.
func (s *ConfirmationSession) SubmitPhrase(input string, at time.Time) error {
	if err := s.expectStage(StageTypedPhrase); err != nil {
		return err
	}
	stage := s.Stages[s.StageIndex]
	want, got := stage.Phrase, strings.TrimSpace(input)
	if !stage.CaseSensitive {
		want, got = strings.ToLower(want), strings.ToLower(got)
	}
	if want != got {
		return ErrPhraseMismatch
	}
	s.advance(at)
	return nil
}

// PassStage marks a delegated stage (password or otp) as satisfied. The
// owning service performs the actual verification before calling this.
func (s *ConfirmationSession) PassStage(kind StageKind, at time.Time) error {
	if kind != StagePassword && kind != StageOTP {
		return ErrStageOrder
	}
	if err := s.expectStage(kind); err != nil {
		return err
	}
	s.advance(at)
	return nil
}

// BeginExecution transitions to executing once every stage is satisfied.
// A current countdown stage is consumed here when its deadline has passed;
// elapsed wall-clock time is the only thing that releases it.
func (s *ConfirmationSession) BeginExecution(at time.Time) error {
	if s.State != ConfirmationPending {
		return ErrSessionSettled
	}
	if stage, ok := s.CurrentStage(); ok && stage.Kind == StageCountdown {
		if at.Before(s.CountdownDeadline) {
			return ErrCountdownActive
		}
		s.advance(at)
	}
	if s.StageIndex < len(s.Stages) {
		return ErrStagesIncomplete
	}
	s.State = ConfirmationExecuting
	return nil
}

// Complete settles an executing session as succeeded.
func (s *ConfirmationSession) Complete(at time.Time) error {
	if s.State != ConfirmationExecuting {
		return ErrSessionSettled
	}
	s.State = ConfirmationSucceeded
	s.SettledAt = at
	return nil
}

// Fail settles an executing session as failed, retaining the cause. The
// machine never retries on its own; a fresh session is required.
func (s *ConfirmationSession) Fail(cause string, at time.Time) error {
	if s.State != ConfirmationExecuting {
		return ErrSessionSettled
	}
	s.State = ConfirmationFailed
	s.FailureCause = cause
	s.SettledAt = at
	return nil
}

// Cancel discards a pending session. Cancellation is allowed from any
// stage, including mid-countdown, but never once execution has begun.
func (s *ConfirmationSession) Cancel(at time.Time) error {
	switch s.State {
	case ConfirmationExecuting:
		return ErrCancelWhileExecuting
	case ConfirmationPending:
		s.State = ConfirmationCancelled
		s.SettledAt = at
		return nil
	}
	return ErrSessionSettled
}

// Settled reports whether the session reached a terminal state.
func (s *ConfirmationSession) Settled() bool {
	switch s.State {
	case ConfirmationSucceeded, ConfirmationFailed, ConfirmationCancelled:
		return true
	}
	return false
}

func (s *ConfirmationSession) expectStage(kind StageKind) error {
	if s.State != ConfirmationPending {
		return ErrSessionSettled
	}
	stage, ok := s.CurrentStage()
	if !ok || stage.Kind != kind {
		return ErrStageOrder
	}
	return nil
}

func (s *ConfirmationSession) advance(at time.Time) {
	s.StageIndex++
	s.armCountdown(at)
}

// armCountdown pins the deadline the moment a countdown stage becomes
// current, so the wait is measured from stage entry regardless of how
// often the session is re-read.
func (s *ConfirmationSession) armCountdown(at time.Time) {
	if stage, ok := s.CurrentStage(); ok && stage.Kind == StageCountdown {
		s.CountdownDeadline = at.Add(stage.Wait)
	}
}
