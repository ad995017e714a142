package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SelectedAttributes records the variant choices a shopper made for a cart line.
type SelectedAttributes map[string]string

// Value marshals the map into JSON. Keys are emitted in sorted order so equal
// selections produce equal stored text.
func (s SelectedAttributes) Value() (driver.Value, error) {
	return s.Canonical(), nil
}

// Scan decodes JSON into the map.
func (s *SelectedAttributes) Scan(value interface{}) error {
	if value == nil {
		*s = SelectedAttributes{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("selected attributes: unsupported scan type %T", value)
	}

	result := SelectedAttributes{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return err
		}
	}
	*s = result
	return nil
}

// Canonical returns the stable JSON form used for equality checks.
func (s SelectedAttributes) Canonical() string {
	if len(s) == 0 {
		return "{}"
	}
	buf, err := json.Marshal(map[string]string(s))
	if err != nil {
		return "{}"
	}
	return string(buf)
}

// Equal reports whether two selections contain the same choices.
func (s SelectedAttributes) Equal(other SelectedAttributes) bool {
	return s.Canonical() == other.Canonical()
}
