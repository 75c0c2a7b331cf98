package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
)

type stubNotificationService struct {
	notifications.Service
	params *notifications.ListParams
	marked uuid.UUID
}

func (s *stubNotificationService) List(ctx context.Context, actor *pkgAuth.Actor, params notifications.ListParams) (*notifications.ListResult, error) {
	s.params = &params
	return &notifications.ListResult{}, nil
}

func (s *stubNotificationService) UnreadCount(ctx context.Context, actor *pkgAuth.Actor) (int64, error) {
	return 7, nil
}

func (s *stubNotificationService) MarkRead(ctx context.Context, actor *pkgAuth.Actor, id uuid.UUID) error {
	s.marked = id
	return nil
}

func (s *stubNotificationService) MarkAllRead(ctx context.Context, actor *pkgAuth.Actor) (int64, error) {
	return 3, nil
}

func TestListNotificationsQuery(t *testing.T) {
	stub := &stubNotificationService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=5&cursor=abc&unreadOnly=true", nil)
	rec := serve(ListNotifications(stub, testLogger()), withRoute(req, buyerActor(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.params.Limit != 5 || stub.params.Cursor != "abc" || !stub.params.UnreadOnly {
		t.Fatalf("unexpected params %+v", stub.params)
	}

	for _, query := range []string{"limit=0", "limit=x", "limit=100000", "unreadOnly=maybe"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?"+query, nil)
		rec := serve(ListNotifications(&stubNotificationService{}, testLogger()), withRoute(req, buyerActor(), nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestNotificationHandlersWithoutService(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := serve(ListNotifications(nil, testLogger()), withRoute(req, buyerActor(), nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	stub := &stubNotificationService{}
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+id.String()+"/read", nil)
	rec := serve(MarkNotificationRead(stub, testLogger()), withRoute(req, buyerActor(), map[string]string{"id": id.String()}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.marked != id {
		t.Fatalf("expected %s marked, got %s", id, stub.marked)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	rec := serve(MarkAllNotificationsRead(&stubNotificationService{}, testLogger()), withRoute(req, buyerActor(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Updated int64 `json:"updated"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Updated != 3 {
		t.Fatalf("expected 3 updated, got %d", body.Data.Updated)
	}
}

func TestUnreadNotificationCount(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	rec := serve(UnreadNotificationCount(&stubNotificationService{}, testLogger()), withRoute(req, buyerActor(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Unread int64 `json:"unread"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Unread != 7 {
		t.Fatalf("expected 7 unread, got %d", body.Data.Unread)
	}

	anon := serve(UnreadNotificationCount(&stubNotificationService{}, testLogger()), withRoute(req, nil, nil))
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without an actor, got %d", anon.Code)
	}
}
