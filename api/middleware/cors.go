package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
)

// devOrigins are the storefront and admin panel dev servers.
var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS allows the configured origins, or devOrigins when none are set.
// Credentials stay off: clients send bearer tokens, not cookies.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = devOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Accept-Language", "Authorization", "Content-Type",
			"Idempotency-Key", responses.RequestIDHeader,
		},
		ExposedHeaders: []string{responses.RequestIDHeader, "Content-Language"},
		MaxAge:         300,
	})
}
