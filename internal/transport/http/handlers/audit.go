package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/transport/http/middleware"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// AuditHandler exposes the activity log viewer.
type AuditHandler struct {
	audit  *usecase.AuditService
	engine *usecase.PermissionEngine
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *usecase.AuditService, engine *usecase.PermissionEngine) *AuditHandler {
	return &AuditHandler{audit: audit, engine: engine}
}

// RegisterRoutes binds audit routes under an authenticated group.
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	view := middleware.RequirePermission(h.engine, domain.ResourceAudit, domain.ActionView)
	r.GET("", view, h.query)
	r.GET("/recent", view, h.recent)
}

func (h *AuditHandler) query(c *gin.Context) {
	filter, err := auditFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	page, err := h.audit.Query(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to query audit log"))
		return
	}

	views := make([]AuditEntryView, 0, len(page.Entries))
	for _, entry := range page.Entries {
		views = append(views, newAuditEntryView(entry))
	}
	c.JSON(http.StatusOK, AuditPageResponse{Entries: views, Total: page.Total})
}

// recent serves the dashboard's activity widget from the in-memory
// mirror, skipping the database entirely.
func (h *AuditHandler) recent(c *gin.Context) {
	filter, err := auditFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	entries := h.audit.Recent(filter)
	views := make([]AuditEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newAuditEntryView(entry))
	}
	c.JSON(http.StatusOK, AuditPageResponse{Entries: views, Total: len(views)})
}

func auditFilterFromQuery(c *gin.Context) (domain.AuditFilter, error) {
	filter := domain.AuditFilter{
		Action:  strings.TrimSpace(c.Query("action")),
		ActorID: strings.TrimSpace(c.Query("actor_id")),
		Search:  strings.TrimSpace(c.Query("search")),
	}

	if raw := strings.TrimSpace(c.Query("resource")); raw != "" {
		filter.Resource = domain.Resource(raw)
	}
	if raw := strings.TrimSpace(c.Query("outcome")); raw != "" {
		filter.Outcome = domain.AuditOutcome(raw)
	}

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.AuditFilter{}, errInvalidQueryTime
		}
		filter.From = from
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.AuditFilter{}, errInvalidQueryTime
		}
		filter.To = to
	}

	filter.Limit = intQuery(c, "limit", 50)
	if filter.Limit > 500 {
		filter.Limit = 500
	}
	filter.Offset = intQuery(c, "offset", 0)

	return filter, nil
}

var errInvalidQueryTime = &queryError{"from/to must be RFC 3339 timestamps"}

type queryError struct{ msg string }

func (e *queryError) Error() string { return e.msg }

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
