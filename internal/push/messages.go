package push

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification types carried in data.type.
const (
	TypeNewVendor              = "new_vendor"
	TypeVendorPendingApproval  = "vendor_pending_approval"
	TypeNewProduct             = "new_product"
	TypeProductReview          = "product_review"
	TypePromotionalReminder    = "promotional_reminder"
	TypeTrendingProduct        = "trending_product"
	TypePopularVendor          = "popular_vendor"
	TypeVendorPublishReminder  = "vendor_reminder_publish_products"
	TypeVendorPromoteReminder  = "vendor_reminder_promote_products"
	TypeNewUser                = "new_user"
	TypeAdminFewProductsNotice = "admin_reminder_few_products"
	TypeAdminLowViewsNotice    = "admin_reminder_low_views"
)

const (
	adminVendorsURL  = "/dashboard/admin/vendors"
	adminUsersURL    = "/dashboard/admin/users"
	adminProductsURL = "/dashboard/admin/products"
	vendorProducts   = "/dashboard/vendor/products"
	catalogURL       = "/products"
)

// ProductRef identifies a product and where shoppers can see it.
type ProductRef struct {
	ID               uuid.UUID
	Name             string
	VendorName       string
	VendorSlug       string
	Price            decimal.Decimal
	PromotionalPrice decimal.Decimal
}

// VendorRef identifies a storefront and its owner.
type VendorRef struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Slug   string
}

func vendorURL(slug string) string {
	return "/vendor/" + slug
}

func productURL(ref ProductRef) string {
	if ref.VendorSlug == "" {
		return catalogURL
	}
	return fmt.Sprintf("/vendor/%s/product/%s", ref.VendorSlug, ref.ID)
}

// DiscountPercent is the rounded reduction a promotion grants.
func DiscountPercent(price, promo decimal.Decimal) int64 {
	if !price.IsPositive() {
		return 0
	}
	return price.Sub(promo).Div(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func newVendorPayload(v VendorRef) Payload {
	return Payload{
		Title: "Nouvelle boutique disponible ! 🏪",
		Body:  v.Name + " vient de rejoindre KOUMALE. Découvrez-la maintenant !",
		URL:   vendorURL(v.Slug),
		Data:  map[string]any{"type": TypeNewVendor, "vendorId": v.ID.String()},
	}
}

func vendorPendingPayload(v VendorRef) Payload {
	return Payload{
		Title: "Nouvelle boutique en attente de validation",
		Body:  v.Name + " attend votre validation",
		URL:   adminVendorsURL,
		Data:  map[string]any{"type": TypeVendorPendingApproval, "vendorId": v.ID.String()},
	}
}

func newUserPayload(userID uuid.UUID, email string) Payload {
	return Payload{
		Title: "Nouvel utilisateur inscrit 👤",
		Body:  email + " vient de s'inscrire sur KOUMALE",
		URL:   adminUsersURL,
		Data:  map[string]any{"type": TypeNewUser, "userId": userID.String()},
	}
}

func newProductPayload(p ProductRef) Payload {
	return Payload{
		Title: "Nouveau produit disponible ! 🎉",
		Body:  fmt.Sprintf("%s vient d'être ajouté par %s", p.Name, p.VendorName),
		URL:   productURL(p),
		Data:  map[string]any{"type": TypeNewProduct, "productId": p.ID.String(), "vendorSlug": p.VendorSlug},
	}
}

func productReviewPayload(p ProductRef, reviewID uuid.UUID, rating int) Payload {
	return Payload{
		Title: "Nouvel avis sur votre produit ⭐",
		Body:  fmt.Sprintf("%s a reçu un avis %d/5", p.Name, rating),
		URL:   productURL(p),
		Data: map[string]any{
			"type":       TypeProductReview,
			"productId":  p.ID.String(),
			"vendorSlug": p.VendorSlug,
			"reviewId":   reviewID.String(),
		},
	}
}

func promotionalPayload(p ProductRef) Payload {
	return Payload{
		Title: "Promotion disponible ! 🎁",
		Body: fmt.Sprintf("%s : -%d%% de réduction ! Profitez-en maintenant",
			p.Name, DiscountPercent(p.Price, p.PromotionalPrice)),
		URL:  productURL(p),
		Data: map[string]any{"type": TypePromotionalReminder, "productId": p.ID.String(), "vendorSlug": p.VendorSlug},
	}
}

func trendingPayload(p ProductRef) Payload {
	return Payload{
		Title: "Produit tendance 🔥",
		Body:  p.Name + " est actuellement très populaire. Ne le manquez pas !",
		URL:   productURL(p),
		Data:  map[string]any{"type": TypeTrendingProduct, "productId": p.ID.String(), "vendorSlug": p.VendorSlug},
	}
}

func popularVendorPayload(v VendorRef) Payload {
	return Payload{
		Title: "Boutique populaire 🏆",
		Body:  v.Name + " est une boutique très appréciée. Découvrez ses produits !",
		URL:   vendorURL(v.Slug),
		Data:  map[string]any{"type": TypePopularVendor, "vendorId": v.ID.String()},
	}
}

func publishReminderPayload(v VendorRef) Payload {
	return Payload{
		Title: "Boostez votre boutique ! 📈",
		Body:  "Ajoutez plus de produits pour attirer plus de clients sur " + v.Name,
		URL:   vendorProducts,
		Data:  map[string]any{"type": TypeVendorPublishReminder, "vendorId": v.ID.String()},
	}
}

func promoteReminderPayload(v VendorRef) Payload {
	return Payload{
		Title: "Boostez vos ventes ! 💰",
		Body:  "Mettez vos produits en promotion pour attirer plus de clients",
		URL:   vendorProducts,
		Data:  map[string]any{"type": TypeVendorPromoteReminder, "vendorId": v.ID.String()},
	}
}

func adminFewProductsPayload(count int) Payload {
	return Payload{
		Title: "Boutiques nécessitant de l'attention 📊",
		Body:  fmt.Sprintf("%d boutique(s) ont peu de produits", count),
		URL:   adminVendorsURL,
		Data:  map[string]any{"type": TypeAdminFewProductsNotice, "count": count},
	}
}

func adminLowViewsPayload(count int) Payload {
	return Payload{
		Title: "Produits nécessitant de la visibilité 👁️",
		Body:  fmt.Sprintf("%d produit(s) ont peu de vues", count),
		URL:   adminProductsURL,
		Data:  map[string]any{"type": TypeAdminLowViewsNotice, "count": count},
	}
}
