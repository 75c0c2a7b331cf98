package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/google/uuid"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "tradedesk-test", ExpirationMinutes: 60}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsBuyerActor(t *testing.T) {
	companyID := uuid.New()
	token := mintTestToken(t, enums.UserRoleBuyer, &companyID)

	var captured *auth.Actor
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured == nil || captured.Role != enums.UserRoleBuyer {
		t.Fatalf("expected buyer actor, got %+v", captured)
	}
	if captured.CompanyID == nil || *captured.CompanyID != companyID {
		t.Fatalf("expected company %s got %v", companyID, captured.CompanyID)
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	called := false
	handler := OptionalAuth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if ActorFromContext(r.Context()) != nil {
			t.Fatal("anonymous request must not carry an actor")
		}
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", nil))
	if !called {
		t.Fatal("handler not reached")
	}
}

func TestOptionalAuthRejectsBadToken(t *testing.T) {
	handler := OptionalAuth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	adminOnly := RequireRole(nil, enums.UserRoleAdmin)(ok)

	tests := []struct {
		name  string
		actor *auth.Actor
		want  int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "buyer", actor: &auth.Actor{UserID: uuid.New(), Role: enums.UserRoleBuyer}, want: http.StatusForbidden},
		{name: "sales", actor: &auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSales}, want: http.StatusForbidden},
		{name: "admin", actor: &auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, want: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/x/status", nil)
			if tc.actor != nil {
				req = req.WithContext(WithActor(req.Context(), tc.actor))
			}
			resp := httptest.NewRecorder()
			adminOnly.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, resp.Code)
			}
		})
	}
}

func mintTestToken(t *testing.T, role enums.UserRole, companyID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:    uuid.New(),
		CompanyID: companyID,
		Role:      role,
		Email:     "buyer@acme.test",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
