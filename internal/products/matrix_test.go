package product

import (
	"testing"

	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(labels ...string) []MatrixValue {
	out := make([]MatrixValue, 0, len(labels))
	for _, l := range labels {
		out = append(out, MatrixValue{ID: uuid.New(), Label: types.LocalizedText{"en": l, "zh": "x"}})
	}
	return out
}

func TestGenerateMatrixCartesianProduct(t *testing.T) {
	colors := values("Red", "Blue", "Green")
	sizes := values("Small", "Large")
	rows := GenerateMatrix("TS", decimal.NewFromInt(12), []AttributeSelection{
		{AttributeID: uuid.New(), Values: colors},
		{AttributeID: uuid.New(), Values: sizes},
	}, nil)

	require.Len(t, rows, 6)
	keys := map[string]struct{}{}
	for _, row := range rows {
		keys[row.CombinationKey] = struct{}{}
		assert.True(t, row.Price.Equal(decimal.NewFromInt(12)))
		assert.Equal(t, 0, row.Stock)
		assert.Equal(t, 1, row.MOQ)
		assert.Nil(t, row.ID)
	}
	assert.Len(t, keys, 6, "combination keys are unique")
	assert.Equal(t, "TS-RED-SMA", rows[0].SKUCode)
	assert.Equal(t, "TS-RED-LAR", rows[1].SKUCode)
	assert.Equal(t, "TS-GRE-LAR", rows[5].SKUCode)
	assert.Equal(t, "Red / Small", rows[0].Specs)
}

func TestGenerateMatrixEmptyCases(t *testing.T) {
	assert.Empty(t, GenerateMatrix("TS", decimal.Zero, nil, nil))
	assert.Empty(t, GenerateMatrix("TS", decimal.Zero, []AttributeSelection{
		{AttributeID: uuid.New(), Values: values("Red")},
		{AttributeID: uuid.New(), Values: nil},
	}, nil))
}

func TestGenerateMatrixPreservesSurvivingRows(t *testing.T) {
	colors := values("Red", "Blue")
	sizes := values("S", "M")
	selections := []AttributeSelection{
		{AttributeID: uuid.New(), Values: colors},
		{AttributeID: uuid.New(), Values: sizes},
	}
	first := GenerateMatrix("TS", decimal.NewFromInt(10), selections, nil)
	require.Len(t, first, 4)

	id := uuid.New()
	img := "red-s.png"
	edited := first[0]
	edited.ID = &id
	edited.Price = decimal.NewFromInt(99)
	edited.Stock = 7
	edited.MOQ = 3
	edited.Image = &img
	edited.SKUCode = "CUSTOM-1"
	edited.TierPrices = types.TierPrices{{MinQty: 10, Price: decimal.NewFromInt(90)}}
	// Existing rows are keyed by value set, not attribute order.
	edited.CombinationKey = ""
	edited.AttributeValueIDs = []uuid.UUID{sizes[0].ID, colors[0].ID}
	other := first[3]

	selections[1].Values = append(selections[1].Values, values("L")...)
	second := GenerateMatrix("TS", decimal.NewFromInt(10), selections, []SKURow{edited, other})

	require.Len(t, second, 6)
	kept := second[0]
	require.NotNil(t, kept.ID)
	assert.Equal(t, id, *kept.ID)
	assert.Equal(t, "CUSTOM-1", kept.SKUCode)
	assert.True(t, kept.Price.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, 7, kept.Stock)
	assert.Equal(t, 3, kept.MOQ)
	assert.Equal(t, &img, kept.Image)
	assert.Len(t, kept.TierPrices, 1)

	for _, row := range second {
		if row.CombinationKey == other.CombinationKey {
			assert.Equal(t, other.SKUCode, row.SKUCode, "surviving key keeps its row")
		}
	}
}

func TestGenerateMatrixDroppedRowsDisappear(t *testing.T) {
	colors := values("Red", "Blue")
	attr := uuid.New()
	first := GenerateMatrix("TS", decimal.Zero, []AttributeSelection{{AttributeID: attr, Values: colors}}, nil)
	second := GenerateMatrix("TS", decimal.Zero, []AttributeSelection{{AttributeID: attr, Values: colors[:1]}}, first)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].SKUCode, second[0].SKUCode)
}

func TestCombinationKeyIsOrderIndependent(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, CombinationKey([]uuid.UUID{a, b, c}), CombinationKey([]uuid.UUID{c, a, b}))
	assert.Equal(t, "", CombinationKey(nil))
}

func TestCodeSegment(t *testing.T) {
	cases := map[string]string{
		"red":     "RED",
		"Xl":      "XL",
		"42 Long": "LON",
		"42":      "42",
		"Échelle": "ÉCH",
		"  ":      "X",
		"3 b":     "B",
	}
	for label, want := range cases {
		assert.Equal(t, want, codeSegment(label), label)
	}
}

func TestGenerateMatrixDisambiguatesCodes(t *testing.T) {
	rows := GenerateMatrix("TS", decimal.Zero, []AttributeSelection{
		{AttributeID: uuid.New(), Values: values("Redwood", "Red")},
	}, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, "TS-RED", rows[0].SKUCode)
	assert.Equal(t, "TS-RED-2", rows[1].SKUCode)
}
