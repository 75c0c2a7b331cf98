package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

// inboxHandler resolves the actor and the service once for every inbox route.
// fn returns the payload to write on success.
func inboxHandler(svc notifications.Service, logg *logger.Logger, fn func(r *http.Request, actor *pkgAuth.Actor) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("notifications"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload, err := fn(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// ListNotifications serves GET /notifications?limit=&cursor=&unreadOnly=.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, actor *pkgAuth.Actor) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), actor, notifications.ListParams{
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
	})
}

// UnreadNotificationCount feeds the badge on the notification bell.
func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, actor *pkgAuth.Actor) (any, error) {
		n, err := svc.UnreadCount(r.Context(), actor)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"unread": n}, nil
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, actor *pkgAuth.Actor) (any, error) {
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), actor, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, actor *pkgAuth.Actor) (any, error) {
		n, err := svc.MarkAllRead(r.Context(), actor)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": n}, nil
	})
}
