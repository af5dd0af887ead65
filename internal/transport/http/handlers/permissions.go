package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/transport/http/middleware"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// PermissionHandler tells the dashboard what the caller may do, so the
// frontend can hide what would be refused anyway.
type PermissionHandler struct {
	engine *usecase.PermissionEngine
}

// NewPermissionHandler constructs PermissionHandler.
func NewPermissionHandler(engine *usecase.PermissionEngine) *PermissionHandler {
	return &PermissionHandler{engine: engine}
}

// RegisterRoutes binds permission routes under an authenticated group.
func (h *PermissionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/permissions", h.mine)
}

func (h *PermissionHandler) mine(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, PermissionsResponse{
		Role:      actor.Role,
		Resources: h.engine.AccessibleResources(actor.Role),
		Grants:    h.engine.Grants(actor.Role),
	})
}
