package enums

import "fmt"

// AttributeType is the stored type of a product attribute value.
type AttributeType string

const (
	AttributeTypeString AttributeType = "string"
	AttributeTypeNumber AttributeType = "number"
	AttributeTypeBool   AttributeType = "bool"
)

var validAttributeTypes = []AttributeType{
	AttributeTypeString,
	AttributeTypeNumber,
	AttributeTypeBool,
}

// String implements fmt.Stringer.
func (a AttributeType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttributeType.
func (a AttributeType) IsValid() bool {
	for _, candidate := range validAttributeTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttributeType converts raw input into an AttributeType.
func ParseAttributeType(value string) (AttributeType, error) {
	for _, candidate := range validAttributeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attribute type %q", value)
}
