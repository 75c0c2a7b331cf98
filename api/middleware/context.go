package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
)

type contextKey string

const (
	ctxActor  contextKey = "actor"
	ctxLocale contextKey = "locale"
)

// ActorFromContext returns the authenticated caller, or nil for anonymous
// requests.
func ActorFromContext(ctx context.Context) *pkgAuth.Actor {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxActor).(*pkgAuth.Actor); ok {
		return v
	}
	return nil
}

// WithActor injects the caller into the context.
func WithActor(ctx context.Context, actor *pkgAuth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// UserIDFromContext returns the caller id as a string, empty when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != nil {
		return actor.UserID.String()
	}
	return ""
}

// CompanyIDFromContext returns the caller's company id, empty for staff and
// anonymous callers.
func CompanyIDFromContext(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != nil && actor.CompanyID != nil {
		return actor.CompanyID.String()
	}
	return ""
}

func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return types.DefaultLocale
	}
	if v, ok := ctx.Value(ctxLocale).(string); ok && v != "" {
		return v
	}
	return types.DefaultLocale
}

// WithLocale stores the negotiated content locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxLocale, locale)
}
