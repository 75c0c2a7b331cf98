package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNegotiateLocale(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		header string
		want   string
	}{
		{name: "default", want: "en"},
		{name: "chinese header", header: "zh-CN,zh;q=0.9,en;q=0.8", want: "zh"},
		{name: "unsupported falls back", header: "fr-FR", want: "en"},
		{name: "query wins", query: "zh", header: "en-US", want: "zh"},
		{name: "bad query uses header", query: "!!", header: "zh", want: "zh"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NegotiateLocale(tc.query, tc.header); got != tc.want {
				t.Fatalf("NegotiateLocale(%q, %q) = %q, want %q", tc.query, tc.header, got, tc.want)
			}
		})
	}
}

func TestLocaleMiddlewareStoresLocale(t *testing.T) {
	var got string
	handler := Locale()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/storefront/layout?locale=zh-Hans", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got != "zh" {
		t.Fatalf("expected zh in context, got %q", got)
	}
	if rec.Header().Get("Content-Language") != "zh" {
		t.Fatalf("missing Content-Language header")
	}
}
