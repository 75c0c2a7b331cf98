package types

import (
	"strings"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
)

// DefaultCurrency applies when a buyer leaves the currency blank.
const DefaultCurrency = "USD"

// NormalizeCurrency upper-cases a three-letter code. Blank input yields
// DefaultCurrency; anything else that is not three letters is a validation
// error.
func NormalizeCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return DefaultCurrency, nil
	}
	if len(code) != 3 {
		return "", pkgerrors.Messagef(pkgerrors.CodeValidation, "currency %q must be a 3-letter code", raw)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", pkgerrors.Messagef(pkgerrors.CodeValidation, "currency %q must be a 3-letter code", raw)
		}
	}
	return code, nil
}

// TrimmedPtr trims an optional string and maps blank to nil.
func TrimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
