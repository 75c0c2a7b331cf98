package enums

// AttributeType controls how an attribute's values are rendered.
type AttributeType string

const (
	AttributeTypeSelect AttributeType = "select"
	AttributeTypeColor  AttributeType = "color"
	AttributeTypeSize   AttributeType = "size"
	AttributeTypeText   AttributeType = "text"
)

var attributeTypes = newSet("attribute type",
	AttributeTypeSelect,
	AttributeTypeColor,
	AttributeTypeSize,
	AttributeTypeText,
)

func (a AttributeType) String() string { return string(a) }

func (a AttributeType) IsValid() bool { return attributeTypes.has(a) }

// ParseAttributeType accepts only the exact wire spelling.
func ParseAttributeType(value string) (AttributeType, error) {
	return attributeTypes.parse(value)
}
