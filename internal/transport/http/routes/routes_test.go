package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/infra/config"
	"github.com/edcore/school-admin-guard/internal/infra/security"
	httproutes "github.com/edcore/school-admin-guard/internal/transport/http/routes"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := security.NewTokenIssuer("test-secret-at-least-long-enough", "guard-test", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	return httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
		Tokens: tokens,
		Services: httproutes.ServiceSet{
			System:      usecase.NewSystemService(nil),
			Permissions: usecase.NewPermissionEngine(usecase.DefaultCapabilityTable()),
		},
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestReadinessWithoutCheckers(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t)

	paths := []string{
		"/api/v1/me/permissions",
		"/api/v1/devices",
		"/api/v1/audit",
		"/api/v1/admins",
		"/api/v1/system/state",
	}
	for _, path := range paths {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected status 401, got %d", path, w.Code)
		}
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}
