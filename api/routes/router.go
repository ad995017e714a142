package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/koumale-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/koumale-backend/api/controllers/cart"
	"github.com/angelmondragon/koumale-backend/api/middleware"
	"github.com/angelmondragon/koumale-backend/internal/auth"
	"github.com/angelmondragon/koumale-backend/internal/cart"
	"github.com/angelmondragon/koumale-backend/internal/images"
	product "github.com/angelmondragon/koumale-backend/internal/products"
	"github.com/angelmondragon/koumale-backend/internal/push"
	"github.com/angelmondragon/koumale-backend/internal/reviews"
	"github.com/angelmondragon/koumale-backend/internal/users"
	"github.com/angelmondragon/koumale-backend/internal/vendors"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

type rateStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies are the services mounted by the router. RateLimits and Google
// may be nil; Pingers maps readiness check names to their targets.
type Dependencies struct {
	Auth       auth.Service
	Google     controllers.GoogleSignIn
	Users      users.Service
	Vendors    vendors.Service
	Products   product.Service
	Reviews    reviews.Service
	Cart       cart.Service
	Push       push.Service
	Images     images.Service
	RateLimits rateStore
	Pingers    map[string]controllers.Pinger
	Now        func() time.Time
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS, cfg.App.FrontendURL),
	)

	now := deps.Now
	if now == nil {
		now = db.NowUTC
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	loginLimit := middleware.AuthRateLimit(loginPolicy, deps.RateLimits, logg)
	registerLimit := middleware.AuthRateLimit(registerPolicy, deps.RateLimits, logg)

	requireAuth := middleware.Auth(cfg.JWT, deps.Users, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, deps.Users, logg)
	adminOnly := middleware.RequireRole(logg, enums.UserRoleSuperAdmin)
	vendorOnly := middleware.RequireRole(logg, enums.UserRoleVendor)
	vendorOrAdmin := middleware.RequireRole(logg, enums.UserRoleVendor, enums.UserRoleSuperAdmin)

	r.Get("/", controllers.Banner(cfg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(registerLimit).Post("/register-vendor", controllers.AuthRegisterVendor(deps.Auth, logg))
			r.Post("/verify-email", controllers.AuthVerifyEmail(deps.Auth, logg))
			r.With(registerLimit).Post("/resend-verification", controllers.AuthResendVerification(deps.Auth, logg))
			r.Post("/check-business-name", controllers.AuthCheckBusinessName(deps.Auth, logg))
			r.Get("/google", controllers.AuthGoogle(deps.Google, logg))
			r.Get("/google/callback", controllers.AuthGoogleCallback(deps.Google, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", controllers.AuthMe(deps.Auth, logg))
				r.With(adminOnly).Put("/approve-vendor/{userId}", controllers.AuthApproveVendor(deps.Auth, logg))
				r.With(adminOnly).Put("/reject-vendor/{userId}", controllers.AuthRejectVendor(deps.Auth, logg))
			})
		})

		r.With(requireAuth, adminOnly).Get("/users", controllers.UsersList(deps.Users, logg))

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", controllers.VendorsList(deps.Vendors, logg))
			r.With(requireAuth, adminOnly).Get("/admin/pending", controllers.VendorsPending(deps.Vendors, logg))
			r.With(requireAuth, vendorOnly).Get("/stats/me", controllers.VendorStatsMine(deps.Vendors, logg))
			r.With(requireAuth, vendorOrAdmin).Put("/me", controllers.VendorUpdateMine(deps.Vendors, logg))
			r.With(requireAuth, vendorOnly).Delete("/me", controllers.VendorDeleteMine(deps.Vendors, logg))
			r.With(requireAuth, vendorOrAdmin).Put("/{vendorId}", controllers.VendorUpdate(deps.Vendors, logg))
			r.With(requireAuth, adminOnly).Delete("/{vendorId}", controllers.VendorDelete(deps.Vendors, logg))
			r.Get("/{slug}", controllers.VendorGet(deps.Vendors, logg))
			r.Get("/{slug}/products", controllers.VendorProducts(deps.Products, logg))
			r.Get("/{slug}/reviews", controllers.VendorReviewsList(deps.Reviews, logg))
			r.With(requireAuth).Post("/{slug}/reviews", controllers.VendorReviewCreate(deps.Reviews, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(deps.Products, deps.Vendors, now, logg))
			r.With(requireAuth, vendorOrAdmin).Post("/", controllers.ProductCreate(deps.Products, logg))
			r.Get("/{productId}", controllers.ProductGet(deps.Products, logg))
			r.With(requireAuth, vendorOrAdmin).Put("/{productId}", controllers.ProductUpdate(deps.Products, logg))
			r.With(requireAuth, vendorOrAdmin).Delete("/{productId}", controllers.ProductDelete(deps.Products, logg))
			r.Post("/{productId}/click", controllers.ProductClick(deps.Products, logg))
			r.Get("/{productId}/reviews", controllers.ProductReviewsList(deps.Reviews, logg))
			r.With(requireAuth).Post("/{productId}/reviews", controllers.ProductReviewCreate(deps.Reviews, logg))
		})

		r.Get("/categories", controllers.Categories(deps.Products, logg))

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", controllers.AppReviewsList(deps.Reviews, logg))
			r.With(requireAuth).Post("/", controllers.AppReviewCreate(deps.Reviews, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
			r.Post("/", cartcontrollers.CartAddItem(deps.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
			r.Put("/{itemId}", cartcontrollers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/{itemId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/push", func(r chi.Router) {
			r.Get("/vapid-key", controllers.PushVAPIDKey(deps.Push, logg))
			r.With(optionalAuth).Post("/subscribe", controllers.PushSubscribe(deps.Push, logg))
			r.Post("/unsubscribe", controllers.PushUnsubscribe(deps.Push, logg))
		})

		r.Route("/image", func(r chi.Router) {
			r.Post("/register", controllers.ImageRegister(deps.Images, publicURL(cfg), logg))
			r.Get("/{file}", controllers.ImageServe(deps.Images, logg))
		})
	})

	return r
}

func publicURL(cfg *config.Config) string {
	if cfg.App.PublicURL != "" {
		return cfg.App.PublicURL
	}
	return "http://localhost:" + cfg.App.Port
}
