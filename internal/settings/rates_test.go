package settings

import (
	"testing"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

func TestRatesConvert(t *testing.T) {
	rates := Rates{
		"CNY": decimal.RequireFromString("7.2"),
		"EUR": decimal.RequireFromString("0.9"),
	}

	got, err := rates.Convert(decimal.NewFromInt(100), "USD", "CNY")
	if err != nil || !got.Equal(decimal.NewFromInt(720)) {
		t.Fatalf("USD->CNY = %s, %v", got, err)
	}
	got, err = rates.Convert(decimal.NewFromInt(720), "cny", "eur")
	if err != nil || !got.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("CNY->EUR = %s, %v", got, err)
	}
	got, err = rates.Convert(decimal.NewFromInt(5), "GBP", "GBP")
	if err != nil || !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("identity = %s, %v", got, err)
	}
	if _, err := rates.Convert(decimal.NewFromInt(1), "USD", "JPY"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
