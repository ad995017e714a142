package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/api/responses"
	pkgAuth "github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

// ActorResolver loads the current role of a token subject. Roles change when
// vendors are approved or rejected, so the stored role wins over the token.
type ActorResolver interface {
	ResolveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error)
}

// Auth validates a bearer token and seeds the request context with the actor.
func Auth(cfg config.JWTConfig, resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token"))
				return
			}

			ctx, err := authenticate(r.Context(), cfg, resolver, logg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the actor when a valid token is present and passes
// anonymous requests through untouched.
func OptionalAuth(cfg config.JWTConfig, resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx, err := authenticate(r.Context(), cfg, resolver, logg, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, resolver ActorResolver, logg *logger.Logger, token string) (context.Context, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return ctx, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid or expired token")
	}

	role := claims.Role
	if resolver != nil {
		current, err := resolver.ResolveRole(ctx, claims.UserID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return ctx, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
			}
			return ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve user")
		}
		role = current
	}

	ctx = context.WithValue(ctx, ctxUserID, claims.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(role))

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"user_id":    claims.UserID.String(),
			"actor_role": string(role),
		})
	}
	return ctx, nil
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
