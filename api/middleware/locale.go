package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// SupportedLocales are the content languages LocalizedText fields carry.
var SupportedLocales = []language.Tag{language.English, language.Chinese}

var localeMatcher = language.NewMatcher(SupportedLocales)

// Locale negotiates the content language from ?locale= or Accept-Language
// and stores the base language code ("en", "zh") in the context.
func Locale() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := NegotiateLocale(r.URL.Query().Get("locale"), r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", locale)
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
		})
	}
}

// NegotiateLocale picks the best supported locale. An explicit query value
// wins over the header.
func NegotiateLocale(query, acceptLanguage string) string {
	var prefs []language.Tag
	if q := strings.TrimSpace(query); q != "" {
		if tag, err := language.Parse(q); err == nil {
			prefs = append(prefs, tag)
		}
	}
	if header := strings.TrimSpace(acceptLanguage); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil {
			prefs = append(prefs, tags...)
		}
	}
	if len(prefs) == 0 {
		return SupportedLocales[0].String()
	}
	_, index, _ := localeMatcher.Match(prefs...)
	base, _ := SupportedLocales[index].Base()
	return base.String()
}
