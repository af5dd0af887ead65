package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/infra/security"
	"github.com/edcore/school-admin-guard/internal/repository"
	"github.com/edcore/school-admin-guard/internal/transport/http/middleware"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// AdminHandler manages administrator accounts. Deletion does not happen
// here directly: the delete endpoint opens a confirmation session whose
// action performs the removal once the ladder is climbed.
type AdminHandler struct {
	admins        *usecase.AdminService
	confirmations *usecase.ConfirmationService
	engine        *usecase.PermissionEngine
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admins *usecase.AdminService, confirmations *usecase.ConfirmationService, engine *usecase.PermissionEngine) *AdminHandler {
	return &AdminHandler{admins: admins, confirmations: confirmations, engine: engine}
}

// RegisterRoutes binds admin-management routes under an authenticated group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", middleware.RequirePermission(h.engine, domain.ResourceAdmins, domain.ActionView), h.list)
	r.POST("", middleware.RequirePermission(h.engine, domain.ResourceAdmins, domain.ActionCreate), h.create)
	r.PATCH("/:id/status", middleware.RequirePermission(h.engine, domain.ResourceAdmins, domain.ActionUpdate), h.setStatus)
	r.POST("/:id/delete", middleware.RequirePermission(h.engine, domain.ResourceAdmins, domain.ActionDelete), h.beginDelete)
}

func (h *AdminHandler) list(c *gin.Context) {
	accounts, err := h.admins.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list administrators"))
		return
	}

	views := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, newAccountSummary(account))
	}
	c.JSON(http.StatusOK, gin.H{"admins": views})
}

func (h *AdminHandler) create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account payload"))
		return
	}

	role, ok := domain.ParseRole(strings.TrimSpace(req.Role))
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown role"))
		return
	}

	account, err := h.admins.CreateAdmin(c.Request.Context(), actor, usecase.CreateAdminInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Error()))
			return
		}
		if errors.Is(err, usecase.ErrAccountExists) {
			c.JSON(http.StatusConflict, NewErrorResponse(c, "username or email already taken"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to create administrator"))
		return
	}

	c.JSON(http.StatusCreated, newAccountSummary(*account))
}

func (h *AdminHandler) setStatus(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid status payload"))
		return
	}

	var status domain.AccountStatus
	switch strings.TrimSpace(req.Status) {
	case string(domain.AccountActive):
		status = domain.AccountActive
	case string(domain.AccountDisabled):
		status = domain.AccountDisabled
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown account status"))
		return
	}

	err := h.admins.SetStatus(c.Request.Context(), actor, c.Param("id"), status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "administrator not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to update status"))
		return
	}

	c.Status(http.StatusNoContent)
}

// beginDelete opens the confirmation ladder for removing an account. The
// caller must type the target's exact username and wait out the cooldown
// before the deletion runs.
func (h *AdminHandler) beginDelete(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	target, err := h.admins.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "administrator not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to look up administrator"))
		return
	}

	if target.ID == actor.ID {
		c.JSON(http.StatusConflict, NewErrorResponse(c, "cannot delete your own account"))
		return
	}

	session, err := h.confirmations.Begin(c.Request.Context(), usecase.BeginConfirmationInput{
		ActionName: "admin.delete",
		Actor:      actor,
		Resource:   domain.ResourceAdmins,
		ResourceID: target.Username,
		Stages:     usecase.StagesAdminDeletion(target.Username),
		Action: func(ctx context.Context) error {
			return h.admins.DeleteAdmin(ctx, target.ID)
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to start confirmation"))
		return
	}

	c.JSON(http.StatusCreated, newConfirmationView(session))
}
