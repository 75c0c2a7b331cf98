package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tradedesk-backend/api/controllers"
	"github.com/angelmondragon/tradedesk-backend/internal/inquiries"
	"github.com/angelmondragon/tradedesk-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// Embedding the interface keeps the fakes short; unexercised methods panic.
type fakeInquiries struct {
	inquiries.Service
	created *pkgAuth.Actor
	calls   int
}

func (f *fakeInquiries) Create(_ context.Context, input inquiries.CreateInput, actor *pkgAuth.Actor) (*models.Inquiry, error) {
	f.calls++
	f.created = actor
	return &models.Inquiry{InquiryNo: "RFQ-2026-0001", ContactEmail: input.ContactEmail}, nil
}

type fakeOrders struct {
	orders.Service
	listed int
}

func (f *fakeOrders) List(context.Context, *pkgAuth.Actor, orders.ListFilter) (*orders.ListResult, error) {
	f.listed++
	return &orders.ListResult{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "tradedesk-test", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	deps.Config = testConfig()
	deps.Logger = logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	reg := prometheus.NewRegistry()
	deps.HTTPMetrics = metrics.NewHTTPMetrics(reg)
	deps.Gatherer = reg
	return NewRouter(deps)
}

func bearer(t *testing.T, role enums.UserRole) string {
	t.Helper()
	companyID := uuid.New()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:    uuid.New(),
		CompanyID: &companyID,
		Role:      role,
		Email:     "user@acme.test",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, Deps{Pingers: map[string]controllers.Pinger{"db": stubPinger{}}})

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestReadinessFailsWhenDependencyDown(t *testing.T) {
	router := newTestRouter(t, Deps{Pingers: map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("down")}}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	router := newTestRouter(t, Deps{})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "/health/live") {
		t.Fatalf("expected route label in metrics output")
	}
}

func TestAnonymousInquiryReachesService(t *testing.T) {
	inq := &fakeInquiries{}
	router := newTestRouter(t, Deps{Inquiries: inq})

	body := `{"contactName":"Li Wei","contactEmail":"li@buyer.test","items":[{"productId":"` + uuid.NewString() + `","quantity":3}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if inq.calls != 1 || inq.created != nil {
		t.Fatalf("expected one anonymous create, got calls=%d actor=%v", inq.calls, inq.created)
	}
}

func TestInquiryListRequiresAuth(t *testing.T) {
	router := newTestRouter(t, Deps{Inquiries: &fakeInquiries{}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/inquiries", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestBuyerCanListOrders(t *testing.T) {
	ord := &fakeOrders{}
	router := newTestRouter(t, Deps{Orders: ord})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", bearer(t, enums.UserRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if ord.listed != 1 {
		t.Fatalf("expected list to be called once, got %d", ord.listed)
	}
}

func TestAdminRoutesRejectOtherRoles(t *testing.T) {
	router := newTestRouter(t, Deps{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/products"},
		{http.MethodPatch, "/api/v1/orders/" + uuid.NewString() + "/status"},
		{http.MethodPatch, "/api/v1/payments/" + uuid.NewString() + "/status"},
		{http.MethodPost, "/api/v1/shippings"},
		{http.MethodPut, "/api/v1/layout"},
		{http.MethodPost, "/api/v1/admin/users"},
	}
	for _, role := range []enums.UserRole{enums.UserRoleBuyer, enums.UserRoleSales} {
		for _, tc := range tests {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
			req.Header.Set("Authorization", bearer(t, role))
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != http.StatusForbidden {
				t.Fatalf("%s %s as %s: expected 403 got %d", tc.method, tc.path, role, resp.Code)
			}
		}
	}
}
