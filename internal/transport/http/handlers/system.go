package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/transport/http/middleware"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// SystemHandler exposes the operational switches. Every mutation opens a
// confirmation session; the switch only flips when the ladder completes.
type SystemHandler struct {
	system        *usecase.SystemService
	admins        *usecase.AdminService
	login         *usecase.LoginService
	confirmations *usecase.ConfirmationService
	engine        *usecase.PermissionEngine
}

// NewSystemHandler constructs SystemHandler.
func NewSystemHandler(
	system *usecase.SystemService,
	admins *usecase.AdminService,
	login *usecase.LoginService,
	confirmations *usecase.ConfirmationService,
	engine *usecase.PermissionEngine,
) *SystemHandler {
	return &SystemHandler{
		system:        system,
		admins:        admins,
		login:         login,
		confirmations: confirmations,
		engine:        engine,
	}
}

// ToggleRequest sets an operational switch's target position.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// RegisterRoutes binds system routes under an authenticated group.
func (h *SystemHandler) RegisterRoutes(r *gin.RouterGroup) {
	view := middleware.RequirePermission(h.engine, domain.ResourceSystem, domain.ActionView)
	mutate := middleware.RequirePermission(h.engine, domain.ResourceSystem, domain.ActionUpdate)

	r.GET("/state", view, h.state)
	r.POST("/cache/clear", mutate, h.beginCacheClear)
	r.POST("/maintenance", mutate, h.beginMaintenance)
	r.POST("/lockdown", mutate, h.beginLockdown)
}

func (h *SystemHandler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.system.State())
}

func (h *SystemHandler) beginCacheClear(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	h.begin(c, usecase.BeginConfirmationInput{
		ActionName: "system.cache_clear",
		Actor:      actor,
		Resource:   domain.ResourceSystem,
		Stages:     usecase.StagesCacheClear(),
		Action: func(ctx context.Context) error {
			return h.system.ClearCache(ctx)
		},
	})
}

func (h *SystemHandler) beginMaintenance(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid toggle payload"))
		return
	}

	h.begin(c, usecase.BeginConfirmationInput{
		ActionName: "system.maintenance",
		Actor:      actor,
		Resource:   domain.ResourceSystem,
		Stages:     usecase.StagesMaintenanceMode(),
		Action: func(ctx context.Context) error {
			return h.system.SetMaintenance(ctx, req.Enabled)
		},
	})
}

// beginLockdown opens the full ladder: password, one-time code, and a
// cooldown, in that order.
func (h *SystemHandler) beginLockdown(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid toggle payload"))
		return
	}

	account, err := h.admins.Get(c.Request.Context(), actor.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to start confirmation"))
		return
	}

	h.begin(c, usecase.BeginConfirmationInput{
		ActionName:     "system.lockdown",
		Actor:          actor,
		Resource:       domain.ResourceSystem,
		Stages:         usecase.StagesSystemLockdown(),
		VerifyPassword: h.login.PasswordVerifierFor(account),
		Action: func(ctx context.Context) error {
			return h.system.SetLockdown(ctx, req.Enabled)
		},
	})
}

func (h *SystemHandler) begin(c *gin.Context, input usecase.BeginConfirmationInput) {
	session, err := h.confirmations.Begin(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to start confirmation"))
		return
	}
	c.JSON(http.StatusCreated, newConfirmationView(session))
}
