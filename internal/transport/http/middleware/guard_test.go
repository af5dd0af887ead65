package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := usecase.NewPermissionEngine(usecase.DefaultCapabilityTable())

	cases := []struct {
		name   string
		actor  *usecase.Actor
		status int
	}{
		{
			name:   "permitted role",
			actor:  &usecase.Actor{ID: "acc-1", Role: domain.RoleLibraryAdmin},
			status: http.StatusOK,
		},
		{
			name:   "out of scope role",
			actor:  &usecase.Actor{ID: "acc-2", Role: domain.RoleFinanceAdmin},
			status: http.StatusForbidden,
		},
		{
			name:   "unauthenticated",
			actor:  nil,
			status: http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			if tc.actor != nil {
				router.Use(setActor(*tc.actor))
			}
			router.Use(RequirePermission(engine, domain.ResourceBooks, domain.ActionUpdate))
			router.GET("/books", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/books", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(setActor(usecase.Actor{ID: "acc-1", Role: domain.RoleScheduleAdmin}))
	router.Use(RequireRole(domain.RoleSuperAdmin))
	router.GET("/restricted", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/restricted", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestSystemGates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(system *usecase.SystemService, actor *usecase.Actor) *gin.Engine {
		router := gin.New()
		if actor != nil {
			router.Use(setActor(*actor))
		}
		router.Use(SystemGates(system))
		router.GET("/resource", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	get := func(router *gin.Engine) int {
		req := httptest.NewRequest(http.MethodGet, "/resource", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	system := usecase.NewSystemService(nil)
	admin := &usecase.Actor{ID: "acc-1", Role: domain.RoleLibraryAdmin}
	super := &usecase.Actor{ID: "acc-2", Role: domain.RoleSuperAdmin}

	if code := get(newRouter(system, admin)); code != http.StatusOK {
		t.Fatalf("open system should pass, got %d", code)
	}

	ctx := context.Background()

	if err := system.SetMaintenance(ctx, true); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}
	if code := get(newRouter(system, admin)); code != http.StatusServiceUnavailable {
		t.Fatalf("maintenance should refuse scoped admins, got %d", code)
	}
	if code := get(newRouter(system, super)); code != http.StatusOK {
		t.Fatalf("super admin must stay in during maintenance, got %d", code)
	}
	if err := system.SetMaintenance(ctx, false); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}

	if err := system.SetLockdown(ctx, true); err != nil {
		t.Fatalf("SetLockdown: %v", err)
	}
	if code := get(newRouter(system, admin)); code != http.StatusServiceUnavailable {
		t.Fatalf("lockdown should refuse scoped admins, got %d", code)
	}
	if code := get(newRouter(system, super)); code != http.StatusOK {
		t.Fatalf("super admin must stay in during lockdown, got %d", code)
	}
}
