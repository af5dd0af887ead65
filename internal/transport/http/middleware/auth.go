package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/infra/security"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header and stores the actor in
// the request context.
func RequireAuth(tokens *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing session token"))
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session token expired"))
			case errors.Is(err, security.ErrInvalidSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid session token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		role, ok := domain.ParseRole(claims.Role)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid session token"))
			return
		}

		actor := usecase.Actor{
			ID:   claims.Subject,
			Role: role,
			IP:   c.ClientIP(),
		}
		c.Set(ActorKey, actor)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.AccountID = actor.ID
		}

		c.Next()
	}
}

// GetActor retrieves the authenticated actor from context (helper for handlers)
func GetActor(c *gin.Context) (usecase.Actor, bool) {
	val, exists := c.Get(ActorKey)
	if !exists {
		return usecase.Actor{}, false
	}

	actor, ok := val.(usecase.Actor)
	return actor, ok
}
