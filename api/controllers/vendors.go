package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/koumale-backend/api/responses"
	"github.com/angelmondragon/koumale-backend/api/validators"
	product "github.com/angelmondragon/koumale-backend/internal/products"
	"github.com/angelmondragon/koumale-backend/internal/vendors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
)

// VendorsList serves the public vendor directory.
func VendorsList(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := vendors.BuildPlan(r.URL.Query())
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

// VendorGet returns an approved vendor by slug.
func VendorGet(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

func VendorProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := pagination.Parse(r.URL.Query())
		category := strings.TrimSpace(r.URL.Query().Get("category"))

		items, total, err := svc.ListForVendor(r.Context(), chi.URLParam(r, "slug"), category, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, items, total, page)
	}
}

// VendorsPending lists vendors awaiting approval for admins.
func VendorsPending(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := pagination.Parse(r.URL.Query())

		items, total, err := svc.ListPending(r.Context(), r.URL.Query().Get("q"), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, items, total, page)
	}
}

type updateVendorRequest struct {
	BusinessName *string   `json:"businessName,omitempty"`
	Description  *string   `json:"description,omitempty"`
	ContactPhone *string   `json:"contactPhone,omitempty"`
	WhatsappLink *string   `json:"whatsappLink,omitempty"`
	TelegramLink *string   `json:"telegramLink,omitempty"`
	Address      *string   `json:"address,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64  `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Logo         *string   `json:"logo,omitempty"`
	CoverImage   *string   `json:"coverImage,omitempty"`
	Documents    *[]string `json:"documents,omitempty"`
}

func (req updateVendorRequest) toInput() vendors.UpdateInput {
	return vendors.UpdateInput{
		BusinessName: req.BusinessName,
		Description:  req.Description,
		ContactPhone: req.ContactPhone,
		WhatsappLink: req.WhatsappLink,
		TelegramLink: req.TelegramLink,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Logo:         req.Logo,
		CoverImage:   req.CoverImage,
		Documents:    req.Documents,
	}
}

// VendorUpdateMine updates the caller's own vendor profile.
func VendorUpdateMine(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateVendorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.UpdateMine(r.Context(), actor, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

// VendorUpdate updates a vendor by id for its owner or an admin.
func VendorUpdate(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := validators.ParseUUIDParam(r, "vendorId", "vendor")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateVendorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Update(r.Context(), actor, vendorID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

func VendorStatsMine(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// VendorDeleteMine removes the caller's vendor profile and its catalog.
func VendorDeleteMine(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteMine(r.Context(), actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "vendor deleted", nil)
	}
}

func VendorDelete(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := validators.ParseUUIDParam(r, "vendorId", "vendor")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, vendorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "vendor deleted", nil)
	}
}
