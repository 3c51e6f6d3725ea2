package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/luisareyes-dev/tianguis-backend/pkg/auth"
	"github.com/luisareyes-dev/tianguis-backend/pkg/config"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.Port = "8080"
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Issuer = "tianguis-test"
	cfg.JWT.ExpirationMinutes = 15
	cfg.RateLimit.DisputeWindow = time.Minute
	cfg.RateLimit.DisputeLimit = 5
	cfg.RateLimit.DisputeMsgWindow = time.Minute
	cfg.RateLimit.DisputeMsgLimit = 20
	return cfg
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "router-test"})
	return NewRouter(cfg, logg, stubPinger{}, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
}

func mintToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		ActorID: uuid.New(),
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Tianguis-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
}

func TestHealthReadyChecksDependencies(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(testConfig())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/disputes"},
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodGet, "/api/admin/v1/disputes"},
		{http.MethodPost, "/api/v1/vendor/items/" + uuid.NewString() + "/pack"},
	}

	for _, tt := range paths {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tt.method, tt.path, resp.Code)
		}
	}
}

func TestAdminRoutesRejectNonAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := mintToken(t, cfg, enums.ActorRoleBuyer)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/disputes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestVendorRoutesRejectNonVendor(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := mintToken(t, cfg, enums.ActorRoleBuyer)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/items/"+uuid.NewString()+"/pack", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestWebhookRequiresSignature(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", strings.NewReader(`{"event_id":"evt"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
