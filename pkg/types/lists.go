package types

import (
	"database/sql/driver"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StringList stores an ordered list of strings in a JSON column.
type StringList []string

// Value stores the list as a JSON array.
func (l StringList) Value() (driver.Value, error) { return jsonArrayValue(l) }

// Scan decodes a JSON array column.
func (l *StringList) Scan(value any) error { return scanJSONArray(value, l) }

// UUIDList stores a set of ids in a JSON column.
type UUIDList []uuid.UUID

// Value stores the list as a JSON array.
func (l UUIDList) Value() (driver.Value, error) { return jsonArrayValue(l) }

// Scan decodes a JSON array column.
func (l *UUIDList) Scan(value any) error { return scanJSONArray(value, l) }

// Contains reports whether id is in the list.
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, candidate := range l {
		if candidate == id {
			return true
		}
	}
	return false
}

// TierPrice is a quantity break: orders of at least MinQty pay Price per unit.
type TierPrice struct {
	MinQty int             `json:"minQty" validate:"min=1"`
	Price  decimal.Decimal `json:"price"`
}

// TierPrices stores a SKU's quantity breaks in a JSON column.
type TierPrices []TierPrice

// Sorted returns a copy ordered by ascending MinQty.
func (t TierPrices) Sorted() TierPrices {
	out := make(TierPrices, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinQty < out[j].MinQty })
	return out
}

// Value stores the list as a JSON array.
func (t TierPrices) Value() (driver.Value, error) { return jsonArrayValue(t) }

// Scan decodes a JSON array column.
func (t *TierPrices) Scan(value any) error { return scanJSONArray(value, t) }
