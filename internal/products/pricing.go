package product

import (
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// EffectiveUnitPrice picks the tier with the highest MinQty not above qty,
// falling back to the SKU price when no tier qualifies.
func EffectiveUnitPrice(price decimal.Decimal, tiers types.TierPrices, qty int) decimal.Decimal {
	best := -1
	unit := price
	for _, tier := range tiers {
		if tier.MinQty <= qty && tier.MinQty > best {
			best = tier.MinQty
			unit = tier.Price
		}
	}
	return unit
}
