package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	statusChangeTTL = 24 * time.Hour
	moneyMovingTTL  = 7 * 24 * time.Hour
)

// idempotentRoutes maps "METHOD pattern" to how long a key is remembered.
var idempotentRoutes = map[string]time.Duration{
	"PATCH /api/v1/orders/{id}/status":   statusChangeTTL,
	"PATCH /api/v1/payments/{id}/status": statusChangeTTL,
	"POST /api/v1/orders":                moneyMovingTTL,
	"POST /api/v1/orders/{id}/cancel":    moneyMovingTTL,
	"POST /api/v1/payments":              moneyMovingTTL,
	"POST /api/v1/shippings":             moneyMovingTTL,
}

type idempotencyStore interface {
	IdempotencyKey(scope, id string) string
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// storedResponse is what a key resolves to. Status 0 marks a request that
// is still being handled.
type storedResponse struct {
	Fingerprint string `json:"fp"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedResponse) pending() bool { return s.Status == 0 }

// Idempotency makes the covered writes safe to retry. The first request
// reserves its key; later ones with the same key and body get the stored
// response, and ones with a different body are rejected.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := idempotencyTTL(r)
			if !covered || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.Messagef(pkgerrors.CodeValidation, "%s header required", IdempotencyHeader))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(callerScope(r), clientKey)
			fp := fingerprint(body)
			reservation, _ := json.Marshal(storedResponse{Fingerprint: fp})

			won, err := store.SetNX(ctx, key, string(reservation), ttl)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !won {
				replay(ctx, store, logg, w, key, fp)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			done, _ := json.Marshal(storedResponse{
				Fingerprint: fp,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(ctx, key, string(done), ttl); err != nil && logg != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

func replay(ctx context.Context, store idempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, fp string) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		// The reservation expired or was released between SetNX and Get.
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotent response"))
		return
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent response"))
		return
	}
	switch {
	case prior.Fingerprint != fp:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
	case prior.pending():
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

// idempotencyTTL looks the matched chi pattern up in idempotentRoutes.
func idempotencyTTL(r *http.Request) (time.Duration, bool) {
	pattern := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		pattern = rc.RoutePattern()
	}
	ttl, ok := idempotentRoutes[r.Method+" "+pattern]
	return ttl, ok
}

// callerScope keeps keys from different users, and from different
// endpoints of the same user, apart.
func callerScope(r *http.Request) string {
	return fmt.Sprintf("%s|%s|%s %s",
		UserIDFromContext(r.Context()), CompanyIDFromContext(r.Context()), r.Method, r.URL.Path)
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
