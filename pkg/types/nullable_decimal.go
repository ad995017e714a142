package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NullableDecimal tracks whether a price field was present in JSON and whether
// it was explicitly cleared with null or an empty string.
type NullableDecimal struct {
	Set   bool
	Value *decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableDecimal) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	n.Set = true

	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}

	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			n.Value = nil
			return nil
		}
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid decimal %q", raw)
		}
		n.Value = &parsed
		return nil
	}

	var parsed decimal.Decimal
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

// Cleared reports whether the field was sent as null or "".
func (n NullableDecimal) Cleared() bool {
	return n.Set && n.Value == nil
}
