package enums

// ProductStatus tracks catalog visibility.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

var productStatuses = newSet("product status",
	ProductStatusDraft,
	ProductStatusActive,
	ProductStatusArchived,
)

func (p ProductStatus) String() string { return string(p) }

func (p ProductStatus) IsValid() bool { return productStatuses.has(p) }

// ParseProductStatus accepts only the exact wire spelling.
func ParseProductStatus(value string) (ProductStatus, error) {
	return productStatuses.parse(value)
}
