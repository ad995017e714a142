package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/koumale-backend/pkg/config"
)

// Preview deployments of the storefront are served from vercel subdomains.
const vercelPreviewOrigin = "https://*.vercel.app"

// CORS returns middleware that applies the API's allowed origin policy.
func CORS(cfg config.CORSConfig, frontendURL string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg, frontendURL),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-KM-Token"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	}).Handler
}

func allowedOrigins(cfg config.CORSConfig, frontendURL string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(cfg.AllowedOrigins)+2)
	add := func(origin string) {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			return
		}
		if _, ok := seen[origin]; ok {
			return
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	for _, origin := range cfg.AllowedOrigins {
		add(origin)
	}
	add(frontendURL)
	add(vercelPreviewOrigin)
	return out
}
