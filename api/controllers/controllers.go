// Package controllers holds the HTTP handlers. Each handler decodes and
// validates the request, calls one service operation and writes the
// envelope.
package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradedesk-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
)

func requireActor(r *http.Request) (*pkgAuth.Actor, error) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
