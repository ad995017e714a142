package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
)

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "koumale", TTL: time.Hour}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT(), nil, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT(), nil, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthUsesResolvedRole(t *testing.T) {
	cfg := testJWT()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID, enums.UserRoleVendor)

	var captured struct {
		user string
		role string
	}
	resolver := stubResolver{role: enums.UserRoleClient}
	handler := Auth(cfg, resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != userID.String() {
		t.Fatalf("expected user %s got %s", userID, captured.user)
	}
	if captured.role != string(enums.UserRoleClient) {
		t.Fatalf("expected stored role client, got %s", captured.role)
	}
}

func TestAuthRejectsDeletedUser(t *testing.T) {
	cfg := testJWT()
	token := mintTestToken(t, cfg, uuid.New(), enums.UserRoleClient)
	resolver := stubResolver{err: pkgerrors.New(pkgerrors.CodeNotFound, "user not found")}
	handler := Auth(cfg, resolver, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOptionalAuthPassesAnonymousRequests(t *testing.T) {
	cfg := testJWT()
	var sawUser string
	handler := OptionalAuth(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUser = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || sawUser != "" {
		t.Fatalf("expected anonymous pass through, got %d user=%q", resp.Code, sawUser)
	}

	userID := uuid.New()
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, cfg, userID, enums.UserRoleClient))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if sawUser != userID.String() {
		t.Fatalf("expected user attached, got %q", sawUser)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.UserRoleVendor, enums.UserRoleSuperAdmin)(okHandler())

	cases := []struct {
		role string
		want int
	}{
		{role: "", want: http.StatusUnauthorized},
		{role: string(enums.UserRoleClient), want: http.StatusForbidden},
		{role: string(enums.UserRoleVendor), want: http.StatusOK},
		{role: string(enums.UserRoleSuperAdmin), want: http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.role != "" {
			req = req.WithContext(WithRole(WithUserID(req.Context(), uuid.NewString()), tc.role))
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("role %q: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}
}

func TestCORSAllowsConfiguredAndPreviewOrigins(t *testing.T) {
	handler := CORS(config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}, MaxAge: 60}, "https://koumale.com/")(okHandler())

	for origin, allowed := range map[string]bool{
		"http://localhost:3000":          true,
		"https://koumale.com":            true,
		"https://koumale-git.vercel.app": true,
		"https://evil.example.com":       false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", origin)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		got := resp.Header().Get("Access-Control-Allow-Origin") == origin
		if got != allowed {
			t.Fatalf("origin %s: expected allowed=%v, header=%q", origin, allowed, resp.Header().Get("Access-Control-Allow-Origin"))
		}
	}
}

type stubResolver struct {
	role enums.UserRole
	err  error
}

func (s stubResolver) ResolveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
	return s.role, s.err
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
