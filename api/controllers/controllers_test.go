package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func buyerActor() *pkgAuth.Actor {
	companyID := uuid.New()
	return &pkgAuth.Actor{UserID: uuid.New(), CompanyID: &companyID, Role: enums.UserRoleBuyer, Email: "buyer@acme.test"}
}

// withRoute attaches the actor (when non-nil) and chi URL params.
func withRoute(req *http.Request, actor *pkgAuth.Actor, params map[string]string) *http.Request {
	ctx := req.Context()
	if actor != nil {
		ctx = middleware.WithActor(ctx, actor)
	}
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body
}
