package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/angelmondragon/koumale-backend/pkg/enums"
)

// AttributeValue is a typed product attribute. Raw holds the canonical string
// form that listing filters compare against.
type AttributeValue struct {
	Type enums.AttributeType
	Raw  string
}

// StringAttribute builds a string-typed value.
func StringAttribute(v string) AttributeValue {
	return AttributeValue{Type: enums.AttributeTypeString, Raw: v}
}

// NumberAttribute builds a number-typed value.
func NumberAttribute(v float64) AttributeValue {
	return AttributeValue{Type: enums.AttributeTypeNumber, Raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// BoolAttribute builds a bool-typed value.
func BoolAttribute(v bool) AttributeValue {
	return AttributeValue{Type: enums.AttributeTypeBool, Raw: strconv.FormatBool(v)}
}

// UnmarshalJSON accepts JSON strings, numbers and booleans.
func (a *AttributeValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("attribute value cannot be null")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = StringAttribute(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*a = BoolAttribute(b)
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return fmt.Errorf("unsupported attribute value %s", string(trimmed))
		}
		*a = NumberAttribute(f)
	}
	return nil
}

// MarshalJSON renders the value back in its native JSON type.
func (a AttributeValue) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case enums.AttributeTypeNumber:
		if f, err := strconv.ParseFloat(a.Raw, 64); err == nil {
			return json.Marshal(f)
		}
	case enums.AttributeTypeBool:
		if b, err := strconv.ParseBool(a.Raw); err == nil {
			return json.Marshal(b)
		}
	}
	return json.Marshal(a.Raw)
}

// Attributes is the typed attribute bag of a product.
type Attributes map[string]AttributeValue
