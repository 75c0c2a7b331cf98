package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"sort"
	"strings"
)

// DefaultLocale is the fallback language for every LocalizedText lookup.
const DefaultLocale = "en"

// LocalizedText maps a language code to its translation. Legacy rows hold a
// bare string, which is read as the English value.
type LocalizedText map[string]string

// NewLocalizedText builds a text with only the default locale set.
func NewLocalizedText(en string) LocalizedText {
	return LocalizedText{DefaultLocale: en}
}

// Get resolves the text for locale, falling back to English and then to
// any non-empty translation (lowest language code first).
func (t LocalizedText) Get(locale string) string {
	if len(t) == 0 {
		return ""
	}
	if v := t[locale]; v != "" {
		return v
	}
	if v := t[normalizeLocale(locale)]; v != "" {
		return v
	}
	if v := t[DefaultLocale]; v != "" {
		return v
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t[k] != "" {
			return t[k]
		}
	}
	return ""
}

// Default returns the English value using the same fallback chain as Get.
func (t LocalizedText) Default() string {
	return t.Get(DefaultLocale)
}

// IsZero reports whether no locale carries a value.
func (t LocalizedText) IsZero() bool {
	for _, v := range t {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts either an object of translations or a plain string.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*t = parseLocalized(raw)
		return nil
	}
	var decoded map[string]string
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return err
	}
	*t = LocalizedText(decoded)
	return nil
}

// Value stores the text as a JSON object.
func (t LocalizedText) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]string(t))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes the JSON column, treating non-JSON content as English.
func (t *LocalizedText) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	raw, err := columnBytes(value)
	if err != nil {
		return err
	}
	*t = parseLocalized(string(raw))
	return nil
}

func parseLocalized(raw string) LocalizedText {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return LocalizedText{}
	}
	if strings.HasPrefix(trimmed, "{") {
		var decoded map[string]string
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return LocalizedText(decoded)
		}
	}
	return LocalizedText{DefaultLocale: raw}
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		locale = locale[:idx]
	}
	if locale == "" {
		return DefaultLocale
	}
	return locale
}
