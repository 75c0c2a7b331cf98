package product

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const codeSegmentLen = 3

// MatrixValue is one selected value of an attribute.
type MatrixValue struct {
	ID    uuid.UUID
	Label types.LocalizedText
}

// AttributeSelection lists the chosen values of one attribute, in display order.
type AttributeSelection struct {
	AttributeID uuid.UUID
	Values      []MatrixValue
}

// SKURow is one generated or preserved variant row.
type SKURow struct {
	ID                *uuid.UUID       `json:"id,omitempty"`
	SKUCode           string           `json:"skuCode"`
	CombinationKey    string           `json:"combinationKey"`
	AttributeValueIDs []uuid.UUID      `json:"attributeValueIds"`
	Specs             string           `json:"specs"`
	Price             decimal.Decimal  `json:"price"`
	Stock             int              `json:"stock"`
	MOQ               int              `json:"moq"`
	Image             *string          `json:"image,omitempty"`
	TierPrices        types.TierPrices `json:"tierPrices"`
}

// CombinationKey returns the order-independent key of a value combination.
func CombinationKey(valueIDs []uuid.UUID) string {
	parts := make([]string, 0, len(valueIDs))
	for _, id := range valueIDs {
		parts = append(parts, id.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, "-")
}

// GenerateMatrix expands the Cartesian product of the selected values. Rows of
// existing whose key survives are returned unchanged; the rest are dropped.
// Zero attributes, or any attribute with zero values, yields an empty matrix.
func GenerateMatrix(prefix string, basePrice decimal.Decimal, selections []AttributeSelection, existing []SKURow) []SKURow {
	if len(selections) == 0 {
		return []SKURow{}
	}
	total := 1
	for _, sel := range selections {
		if len(sel.Values) == 0 {
			return []SKURow{}
		}
		total *= len(sel.Values)
	}

	byKey := make(map[string]SKURow, len(existing))
	for _, row := range existing {
		key := row.CombinationKey
		if key == "" {
			key = CombinationKey(row.AttributeValueIDs)
		}
		byKey[key] = row
	}

	usedCodes := make(map[string]struct{}, total)
	for _, row := range existing {
		usedCodes[row.SKUCode] = struct{}{}
	}

	rows := make([]SKURow, 0, total)
	combo := make([]MatrixValue, len(selections))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(selections) {
			rows = append(rows, buildRow(prefix, basePrice, combo, byKey, usedCodes))
			return
		}
		for _, v := range selections[depth].Values {
			combo[depth] = v
			walk(depth + 1)
		}
	}
	walk(0)
	return rows
}

func buildRow(prefix string, basePrice decimal.Decimal, combo []MatrixValue, byKey map[string]SKURow, usedCodes map[string]struct{}) SKURow {
	ids := make([]uuid.UUID, len(combo))
	labels := make([]string, len(combo))
	segments := make([]string, 0, len(combo)+1)
	if p := strings.TrimSpace(prefix); p != "" {
		segments = append(segments, p)
	}
	for i, v := range combo {
		ids[i] = v.ID
		labels[i] = v.Label.Get("en")
		segments = append(segments, codeSegment(labels[i]))
	}
	key := CombinationKey(ids)
	specs := strings.Join(labels, " / ")

	if prev, ok := byKey[key]; ok {
		prev.CombinationKey = key
		if prev.Specs == "" {
			prev.Specs = specs
		}
		return prev
	}

	code := uniqueCode(strings.Join(segments, "-"), usedCodes)
	return SKURow{
		SKUCode:           code,
		CombinationKey:    key,
		AttributeValueIDs: ids,
		Specs:             specs,
		Price:             basePrice,
		Stock:             0,
		MOQ:               1,
		TierPrices:        types.TierPrices{},
	}
}

// codeSegment takes the first three letters of label, upper-cased. Labels
// without letters fall back to their first three non-space runes.
func codeSegment(label string) string {
	var letters, fallback []rune
	for _, r := range strings.TrimSpace(label) {
		if unicode.IsLetter(r) && len(letters) < codeSegmentLen {
			letters = append(letters, unicode.ToUpper(r))
		}
		if !unicode.IsSpace(r) && len(fallback) < codeSegmentLen {
			fallback = append(fallback, unicode.ToUpper(r))
		}
	}
	if len(letters) > 0 {
		return string(letters)
	}
	if len(fallback) > 0 {
		return string(fallback)
	}
	return "X"
}

func uniqueCode(base string, used map[string]struct{}) string {
	code := base
	for n := 2; ; n++ {
		if _, taken := used[code]; !taken {
			used[code] = struct{}{}
			return code
		}
		code = fmt.Sprintf("%s-%d", base, n)
	}
}
