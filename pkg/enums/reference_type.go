package enums

// ReferenceType names the entity a notification points at.
type ReferenceType string

const (
	ReferenceTypeInquiry  ReferenceType = "inquiry"
	ReferenceTypeOrder    ReferenceType = "order"
	ReferenceTypePayment  ReferenceType = "payment"
	ReferenceTypeShipping ReferenceType = "shipping"
)

var referenceTypes = newSet("reference type",
	ReferenceTypeInquiry,
	ReferenceTypeOrder,
	ReferenceTypePayment,
	ReferenceTypeShipping,
)

func (r ReferenceType) String() string { return string(r) }

func (r ReferenceType) IsValid() bool { return referenceTypes.has(r) }

// ParseReferenceType accepts only the exact wire spelling.
func ParseReferenceType(value string) (ReferenceType, error) {
	return referenceTypes.parse(value)
}
