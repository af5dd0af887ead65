package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

func TestLogger_RefusalLogsAtWarnWithActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(EnrichContext(), Logger(zap.New(core)))
	router.Use(setActor(usecase.Actor{ID: "acc-9", Role: domain.RoleFinanceAdmin}))
	router.GET("/api/v1/audit", func(c *gin.Context) {
		c.Status(http.StatusForbidden)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil))

	entries := logs.FilterMessage("request refused").All()
	if len(entries) != 1 {
		t.Fatalf("expected one refusal entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("refusal logged at %s, want warn", entries[0].Level)
	}
	if fields["account_id"] != "acc-9" || fields["role"] != "admin_finance" {
		t.Fatalf("actor fields missing or wrong: %v", fields)
	}
	if fields["status"] != int64(http.StatusForbidden) {
		t.Fatalf("status field = %v, want 403", fields["status"])
	}
}

func TestLogger_SuccessLogsAtInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(EnrichContext(), Logger(zap.New(core)))
	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := len(logs.FilterMessage("request completed").All()); got != 1 {
		t.Fatalf("expected one completion entry, got %d", got)
	}
	if got := len(logs.FilterMessage("request refused").All()); got != 0 {
		t.Fatalf("successful request logged as refused")
	}
}
