package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/repository"
	"github.com/edcore/school-admin-guard/internal/transport/http/middleware"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// DeviceHandler exposes the trusted-devices self-service endpoints. Each
// administrator manages only their own device list.
type DeviceHandler struct {
	devices *usecase.DeviceTrustService
	engine  *usecase.PermissionEngine
}

// NewDeviceHandler constructs DeviceHandler.
func NewDeviceHandler(devices *usecase.DeviceTrustService, engine *usecase.PermissionEngine) *DeviceHandler {
	return &DeviceHandler{devices: devices, engine: engine}
}

// RegisterRoutes binds device routes under an authenticated group.
func (h *DeviceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", middleware.RequirePermission(h.engine, domain.ResourceDevices, domain.ActionView), h.list)
	r.POST("/:fingerprint/approve", middleware.RequirePermission(h.engine, domain.ResourceDevices, domain.ActionApprove), h.approve)
	r.POST("/:fingerprint/revoke", middleware.RequirePermission(h.engine, domain.ResourceDevices, domain.ActionApprove), h.revoke)
	r.DELETE("/:fingerprint", middleware.RequirePermission(h.engine, domain.ResourceDevices, domain.ActionDelete), h.forget)
}

func (h *DeviceHandler) list(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	devices, err := h.devices.List(c.Request.Context(), actor.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list devices"))
		return
	}

	views := make([]DeviceSummary, 0, len(devices))
	for _, device := range devices {
		views = append(views, newDeviceSummary(device))
	}
	c.JSON(http.StatusOK, gin.H{"devices": views})
}

func (h *DeviceHandler) approve(c *gin.Context) {
	h.mutate(c, func(actor usecase.Actor, fingerprint string) error {
		return h.devices.Approve(c.Request.Context(), actor, actor.ID, fingerprint)
	})
}

func (h *DeviceHandler) revoke(c *gin.Context) {
	h.mutate(c, func(actor usecase.Actor, fingerprint string) error {
		return h.devices.Revoke(c.Request.Context(), actor, actor.ID, fingerprint)
	})
}

func (h *DeviceHandler) forget(c *gin.Context) {
	h.mutate(c, func(actor usecase.Actor, fingerprint string) error {
		return h.devices.Forget(c.Request.Context(), actor, actor.ID, fingerprint)
	})
}

func (h *DeviceHandler) mutate(c *gin.Context, op func(actor usecase.Actor, fingerprint string) error) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	fingerprint := strings.TrimSpace(c.Param("fingerprint"))
	if fingerprint == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "device fingerprint is required"))
		return
	}

	if err := op(actor, fingerprint); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "device not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "device update failed"))
		return
	}

	c.Status(http.StatusNoContent)
}
