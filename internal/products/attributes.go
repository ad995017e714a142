package product

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

const maxAttributeKeyLen = 64

// validateAttributes rejects keys that could never be filtered on because the
// listing reserves them for its own parameters.
func validateAttributes(attrs types.Attributes) error {
	for key := range attrs {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || trimmed != key {
			return pkgerrors.New(pkgerrors.CodeValidation, "attribute keys must be non-empty and trimmed").
				WithDetails(map[string]string{"attribute": key})
		}
		if len(key) > maxAttributeKeyLen {
			return pkgerrors.New(pkgerrors.CodeValidation, "attribute key too long").
				WithDetails(map[string]string{"attribute": key})
		}
		if IsReservedParam(key) {
			return pkgerrors.New(pkgerrors.CodeValidation, "attribute key is reserved").
				WithDetails(map[string]string{"attribute": key})
		}
	}
	return nil
}

func attributeRows(productID uuid.UUID, attrs types.Attributes) []models.ProductAttribute {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]models.ProductAttribute, 0, len(keys))
	for _, key := range keys {
		value := attrs[key]
		rows = append(rows, models.ProductAttribute{
			ProductID: productID,
			Key:       key,
			Value:     value.Raw,
			ValueType: value.Type,
		})
	}
	return rows
}

func attributesFromRows(rows []models.ProductAttribute) map[uuid.UUID]types.Attributes {
	out := make(map[uuid.UUID]types.Attributes)
	for _, row := range rows {
		bag, ok := out[row.ProductID]
		if !ok {
			bag = types.Attributes{}
			out[row.ProductID] = bag
		}
		bag[row.Key] = types.AttributeValue{Type: row.ValueType, Raw: row.Value}
	}
	return out
}
