package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is an ordered list of strings persisted as a JSON array.
type StringList []string

// Value marshals the list into JSON, storing nil as an empty array.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	buf, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON array into the list.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("string list: unsupported scan type %T", value)
	}

	result := StringList{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return err
		}
	}
	*l = result
	return nil
}

// MarshalJSON renders nil as an empty array.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
