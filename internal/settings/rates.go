package settings

import (
	"strings"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency every stored rate is quoted against.
const BaseCurrency = "USD"

// RateInput is one submitted exchange rate.
type RateInput struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
}

// Rates maps a currency code to units per one USD.
type Rates map[string]decimal.Decimal

// Convert re-prices amount from one currency into another through USD.
func (r Rates) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount, nil
	}
	fromRate, err := r.rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := r.rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(fromRate).Mul(toRate).Round(4), nil
}

func (r Rates) rate(currency string) (decimal.Decimal, error) {
	if currency == BaseCurrency {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := r[currency]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, pkgerrors.Messagef(pkgerrors.CodeNotFound, "no exchange rate for %s", currency)
	}
	return rate, nil
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
