package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
)

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"", DefaultCurrency, true},
		{"  ", DefaultCurrency, true},
		{" eur ", "EUR", true},
		{"Cny", "CNY", true},
		{"euro", "", false},
		{"U5D", "", false},
		{"€€", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeCurrency(tt.raw)
		if !tt.ok {
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%q: got %v", tt.raw, err)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestTrimmedPtr(t *testing.T) {
	blank, padded := "   ", "  dock 4 "
	assert.Nil(t, TrimmedPtr(nil))
	assert.Nil(t, TrimmedPtr(&blank))
	got := TrimmedPtr(&padded)
	require.NotNil(t, got)
	assert.Equal(t, "dock 4", *got)
	assert.Equal(t, "  dock 4 ", padded, "input is left untouched")
}
