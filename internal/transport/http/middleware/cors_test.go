package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCORSRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(origins))
	router.GET("/api/v1/me/permissions", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCORS_ListedOriginGetsCredentials(t *testing.T) {
	router := newCORSRouter([]string{"https://dashboard.school.example"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/permissions", nil)
	req.Header.Set("Origin", "https://dashboard.school.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.school.example" {
		t.Fatalf("allow-origin = %q", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("listed origin did not get credentials")
	}
	if rr.Header().Get("Vary") != "Origin" {
		t.Fatalf("missing Vary: Origin")
	}
}

func TestCORS_UnlistedOriginGetsNothing(t *testing.T) {
	router := newCORSRouter([]string{"https://dashboard.school.example"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/permissions", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin allowed: %q", got)
	}
}

func TestCORS_WildcardNeverGrantsCredentials(t *testing.T) {
	router := newCORSRouter([]string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/permissions", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q, want *", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatalf("wildcard must not allow credentials")
	}
}

func TestCORS_PreflightAdvertisesServedMethodsOnly(t *testing.T) {
	router := newCORSRouter([]string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/me/permissions", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d, want 204", rr.Code)
	}
	methods := rr.Header().Get("Access-Control-Allow-Methods")
	if strings.Contains(methods, "PUT") || strings.Contains(methods, "HEAD") {
		t.Fatalf("preflight advertises unserved methods: %q", methods)
	}
	for _, want := range []string{"GET", "POST", "PATCH", "DELETE"} {
		if !strings.Contains(methods, want) {
			t.Fatalf("preflight missing %s: %q", want, methods)
		}
	}
}
