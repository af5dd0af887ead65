package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/transport/http/middleware"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// ConfirmationHandler drives pending confirmation sessions through their
// stages. Which actions open a session, and with which ladder, is decided
// by the owning handlers; this one only advances and settles them.
type ConfirmationHandler struct {
	confirmations *usecase.ConfirmationService
}

// NewConfirmationHandler constructs ConfirmationHandler.
func NewConfirmationHandler(confirmations *usecase.ConfirmationService) *ConfirmationHandler {
	return &ConfirmationHandler{confirmations: confirmations}
}

// RegisterRoutes binds confirmation routes under an authenticated group.
func (h *ConfirmationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/:id", h.status)
	r.POST("/:id/acknowledge", h.acknowledge)
	r.POST("/:id/phrase", h.phrase)
	r.POST("/:id/password", h.password)
	r.POST("/:id/otp", h.otp)
	r.POST("/:id/otp/resend", h.resendOTP)
	r.POST("/:id/execute", h.execute)
	r.DELETE("/:id", h.cancel)
}

func (h *ConfirmationHandler) status(c *gin.Context) {
	session, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newConfirmationView(session))
}

func (h *ConfirmationHandler) acknowledge(c *gin.Context) {
	h.advance(c, func(id string) error {
		return h.confirmations.Acknowledge(id)
	})
}

func (h *ConfirmationHandler) phrase(c *gin.Context) {
	var req SubmitPhraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "confirmation phrase is required"))
		return
	}

	h.advance(c, func(id string) error {
		return h.confirmations.SubmitPhrase(id, req.Phrase)
	})
}

func (h *ConfirmationHandler) password(c *gin.Context) {
	var req SubmitPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password is required"))
		return
	}

	h.advance(c, func(id string) error {
		return h.confirmations.SubmitPassword(c.Request.Context(), id, req.Password)
	})
}

func (h *ConfirmationHandler) otp(c *gin.Context) {
	var req SubmitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "verification code is required"))
		return
	}

	h.advance(c, func(id string) error {
		return h.confirmations.SubmitOTP(c.Request.Context(), id, req.Code)
	})
}

func (h *ConfirmationHandler) resendOTP(c *gin.Context) {
	if _, ok := h.owned(c); !ok {
		return
	}
	if err := h.confirmations.ResendOTP(c.Request.Context(), c.Param("id")); err != nil {
		respondConfirmationError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}

func (h *ConfirmationHandler) execute(c *gin.Context) {
	if _, ok := h.owned(c); !ok {
		return
	}
	id := c.Param("id")
	if err := h.confirmations.Execute(c.Request.Context(), id); err != nil {
		var execErr *usecase.ExecutionError
		if errors.As(err, &execErr) {
			c.JSON(http.StatusBadGateway, NewErrorResponse(c, "action failed: "+execErr.Cause.Error()))
			return
		}
		respondConfirmationError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "action completed"})
}

func (h *ConfirmationHandler) cancel(c *gin.Context) {
	if _, ok := h.owned(c); !ok {
		return
	}
	if err := h.confirmations.Cancel(c.Param("id")); err != nil {
		respondConfirmationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConfirmationHandler) advance(c *gin.Context, op func(id string) error) {
	if _, ok := h.owned(c); !ok {
		return
	}
	id := c.Param("id")
	if err := op(id); err != nil {
		respondConfirmationError(c, err)
		return
	}

	session, err := h.confirmations.Session(id)
	if err != nil {
		respondConfirmationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newConfirmationView(session))
}

// owned loads the session and verifies it belongs to the caller. A
// session opened by someone else reads as not found.
func (h *ConfirmationHandler) owned(c *gin.Context) (*domain.ConfirmationSession, bool) {
	session, err := h.confirmations.Session(c.Param("id"))
	if err != nil {
		respondConfirmationError(c, err)
		return nil, false
	}

	actor, ok := middleware.GetActor(c)
	if !ok || actor.ID != session.ActorID {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "confirmation session not found"))
		return nil, false
	}
	return session, true
}

func respondConfirmationError(c *gin.Context, err error) {
	RespondWithMappedError(c, err, []ErrorCase{
		{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "confirmation session not found"},
		{Err: domain.ErrPhraseMismatch, Status: http.StatusUnprocessableEntity, Message: "confirmation phrase does not match"},
		{Err: domain.ErrStageOrder, Status: http.StatusConflict, Message: "input does not match the current stage"},
		{Err: domain.ErrCountdownActive, Status: http.StatusConflict, Message: "countdown has not elapsed"},
		{Err: domain.ErrStagesIncomplete, Status: http.StatusConflict, Message: "confirmation stages incomplete"},
		{Err: domain.ErrCancelWhileExecuting, Status: http.StatusConflict, Message: "cannot cancel while the action is running"},
		{Err: domain.ErrSessionSettled, Status: http.StatusConflict, Message: "confirmation session already settled"},
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "incorrect password"},
		{Err: usecase.ErrChallengeExpired, Status: http.StatusGone, Message: "verification code expired"},
		{Err: usecase.ErrChallengeMismatch, Status: http.StatusUnauthorized, Message: "incorrect verification code"},
	}, http.StatusInternalServerError, "confirmation failed")
}

func newConfirmationView(session *domain.ConfirmationSession) ConfirmationView {
	view := ConfirmationView{
		ID:         session.ID,
		Action:     session.ActionName,
		State:      session.State,
		StageIndex: session.StageIndex,
		StageCount: len(session.Stages),
	}

	if stage, ok := session.CurrentStage(); ok {
		view.Stage = string(stage.Kind)
		if stage.Kind == domain.StageCountdown {
			remaining := session.CountdownRemaining(time.Now().UTC())
			secs := int(remaining / time.Second)
			if remaining%time.Second != 0 {
				secs++
			}
			view.CountdownSecs = secs
		}
	}

	return view
}
