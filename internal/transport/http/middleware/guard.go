package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// RequirePermission gates a route on the capability table. The server is
// the authority here: hiding a button in the dashboard is cosmetic, this
// check is what actually refuses the request.
func RequirePermission(engine *usecase.PermissionEngine, resource domain.Resource, action domain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if !engine.CanPerform(actor.Role, resource, action) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// RequireRole gates a route on an exact role match.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if !allowed[actor.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// SystemGates refuses requests while an operational switch is thrown.
// Super admins stay in so they can turn the switches back off.
func SystemGates(system *usecase.SystemService) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := system.State()
		if !state.Lockdown && !state.MaintenanceMode {
			c.Next()
			return
		}

		if actor, ok := GetActor(c); ok && actor.Role == domain.RoleSuperAdmin {
			c.Next()
			return
		}

		if state.Lockdown {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				newErrorResponse(c, "system is locked down"))
			return
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable,
			newErrorResponse(c, "system is under maintenance"))
	}
}
