package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/koumale-backend/internal/cart"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

type addItemRequest struct {
	ProductID          uuid.UUID                `json:"productId" validate:"required"`
	Quantity           int                      `json:"quantity" validate:"required,min=1"`
	SelectedAttributes types.SelectedAttributes `json:"selectedAttributes,omitempty"`
	Note               *string                  `json:"note,omitempty" validate:"omitempty,max=500"`
}

func (req addItemRequest) toInput() cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		ProductID:          req.ProductID,
		Quantity:           req.Quantity,
		SelectedAttributes: req.SelectedAttributes,
		Note:               req.Note,
	}
}

type updateItemRequest struct {
	Quantity           *int                      `json:"quantity,omitempty"`
	Note               *string                   `json:"note,omitempty" validate:"omitempty,max=500"`
	SelectedAttributes *types.SelectedAttributes `json:"selectedAttributes,omitempty"`
}

func (req updateItemRequest) toInput() cartsvc.UpdateItemInput {
	return cartsvc.UpdateItemInput{
		Quantity:           req.Quantity,
		Note:               req.Note,
		SelectedAttributes: req.SelectedAttributes,
	}
}
