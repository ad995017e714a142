package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/koumale-backend/api/responses"
	"github.com/angelmondragon/koumale-backend/api/validators"
	product "github.com/angelmondragon/koumale-backend/internal/products"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

// ProductsList serves the filtered, ranked public catalog.
func ProductsList(svc product.Service, vendors product.VendorResolver, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := product.BuildPlan(r.Context(), r.URL.Query(), now(), vendors)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, total, err := svc.List(r.Context(), plan)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, items, total, plan.Page)
	}
}

// ProductGet returns one product and counts the view.
func ProductGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "productId", "product")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ProductClick(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "productId", "product")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clicks, err := svc.Click(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "clicks": clicks})
	}
}

func Categories(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, categories)
	}
}

type createProductRequest struct {
	Name             string           `json:"name" validate:"required"`
	Description      string           `json:"description" validate:"required"`
	Price            *decimal.Decimal `json:"price"`
	PromotionalPrice *decimal.Decimal `json:"promotionalPrice,omitempty"`
	Category         string           `json:"category" validate:"required"`
	Attributes       types.Attributes `json:"attributes,omitempty"`
	Images           []string         `json:"images,omitempty"`
	IsActive         *bool            `json:"isActive,omitempty"`
}

func (req createProductRequest) toInput() (product.CreateProductInput, error) {
	if req.Price == nil {
		return product.CreateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"price": "is required"})
	}
	return product.CreateProductInput{
		Name:             req.Name,
		Description:      req.Description,
		Price:            *req.Price,
		PromotionalPrice: req.PromotionalPrice,
		Category:         req.Category,
		Attributes:       req.Attributes,
		Images:           req.Images,
		IsActive:         req.IsActive,
	}, nil
}

// ProductCreate stores a product under the caller's vendor profile.
func ProductCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateProduct(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

type updateProductRequest struct {
	Name             *string               `json:"name,omitempty"`
	Description      *string               `json:"description,omitempty"`
	Price            *decimal.Decimal      `json:"price,omitempty"`
	PromotionalPrice types.NullableDecimal `json:"promotionalPrice"`
	Category         *string               `json:"category,omitempty"`
	Attributes       *types.Attributes     `json:"attributes,omitempty"`
	Images           *[]string             `json:"images,omitempty"`
	IsActive         *bool                 `json:"isActive,omitempty"`
}

func ProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "productId", "product")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateProduct(r.Context(), actor, id, product.UpdateProductInput{
			Name:             body.Name,
			Description:      body.Description,
			Price:            body.Price,
			PromotionalPrice: body.PromotionalPrice,
			Category:         body.Category,
			Attributes:       body.Attributes,
			Images:           body.Images,
			IsActive:         body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func ProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "productId", "product")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "product deleted", nil)
	}
}
