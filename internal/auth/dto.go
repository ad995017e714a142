package auth

import (
	"github.com/angelmondragon/koumale-backend/internal/users"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
)

// RegisterRequest creates a shopper or a vendor account.
type RegisterRequest struct {
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required,min=6"`
	FirstName string         `json:"firstName" validate:"required"`
	LastName  string         `json:"lastName" validate:"required"`
	Role      enums.UserRole `json:"role,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterVendorRequest creates or converts an account into a pending vendor
// and stores its storefront profile.
type RegisterVendorRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	BusinessName string   `json:"businessName" validate:"required"`
	Description  string   `json:"description" validate:"required"`
	ContactPhone string   `json:"contactPhone" validate:"required"`
	WhatsappLink *string  `json:"whatsappLink,omitempty"`
	TelegramLink *string  `json:"telegramLink,omitempty"`
	Address      *string  `json:"address,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Logo         *string  `json:"logo,omitempty"`
	CoverImage   *string  `json:"coverImage,omitempty"`
	Documents    []string `json:"documents,omitempty"`
}

// VerifyEmailRequest confirms ownership of an email address.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// ResendVerificationRequest asks for a fresh verification code.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CheckBusinessNameRequest probes storefront name availability.
type CheckBusinessNameRequest struct {
	BusinessName string `json:"businessName" validate:"required"`
}

// Session is the authenticated view of an account. Token is empty when the
// account may not sign in yet.
type Session struct {
	Token                string         `json:"token,omitempty"`
	User                 *users.UserDTO `json:"user"`
	Vendor               *models.Vendor `json:"vendor,omitempty"`
	RequiresVerification bool           `json:"requiresEmailVerification,omitempty"`
	Message              string         `json:"-"`
}
