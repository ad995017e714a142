package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/internal/users"
	pkgAuth "github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/db/dbtest"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
)

type memoryStates map[string]bool

func (m memoryStates) SaveOAuthState(_ context.Context, state string, _ time.Duration) error {
	m[state] = true
	return nil
}

func (m memoryStates) ConsumeOAuthState(_ context.Context, state string) (bool, error) {
	ok := m[state]
	delete(m, state)
	return ok, nil
}

func newGoogleProvider(t *testing.T, profile GoogleProfile) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"google-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(profile))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestGoogle(t *testing.T, conn *gorm.DB, server *httptest.Server) (*Google, memoryStates, *users.Repository) {
	t.Helper()
	repo := users.NewRepository(conn)
	states := memoryStates{}
	g, err := NewGoogle(GoogleParams{
		OAuth: config.GoogleOAuthConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://api.example/api/auth/google/callback",
		},
		FrontendURL: "http://shop.example/",
		JWT:         testJWT,
		States:      states,
		Users:       repo,
		Logg:        testLogger(),
		Endpoint:    oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"},
		UserInfoURL: server.URL + "/userinfo",
	})
	require.NoError(t, err)
	return g, states, repo
}

func stateOf(t *testing.T, authURL string) string {
	t.Helper()
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	return parsed.Query().Get("state")
}

func TestGoogleCallbackCreatesVerifiedClient(t *testing.T) {
	ctx := context.Background()
	server := newGoogleProvider(t, GoogleProfile{Subject: "g-123", Email: "Awa@Gmail.com", GivenName: "Awa", FamilyName: "Kone"})
	g, states, repo := newTestGoogle(t, dbtest.Open(t).DB(), server)

	authURL, err := g.AuthURL(ctx)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(authURL, server.URL+"/auth?"))
	state := stateOf(t, authURL)
	require.True(t, states[state])

	redirect, err := g.Callback(ctx, state, "good-code")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(redirect, "http://shop.example/auth/callback?token="))

	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, parsed.Query().Get("token"))
	require.NoError(t, err)

	user, err := repo.FindByGoogleID(ctx, "g-123")
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "awa@gmail.com", user.Email)
	require.Equal(t, enums.UserRoleClient, user.Role)
	require.Equal(t, enums.UserStatusApproved, user.Status)
	require.True(t, user.EmailVerified)
	require.Nil(t, user.PasswordHash)

	_, err = g.Callback(ctx, state, "good-code")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestGoogleCallbackLinksExistingEmail(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t).DB()
	existing := dbtest.MustUser(t, conn, enums.UserRoleVendor, enums.UserStatusApproved)
	server := newGoogleProvider(t, GoogleProfile{Subject: "g-456", Email: existing.Email})
	g, states, repo := newTestGoogle(t, conn, server)

	states["s1"] = true
	_, err := g.Callback(ctx, "s1", "good-code")
	require.NoError(t, err)

	linked, err := repo.FindByGoogleID(ctx, "g-456")
	require.NoError(t, err)
	require.Equal(t, existing.ID, linked.ID)
	require.Equal(t, enums.UserRoleVendor, linked.Role)
}

func TestGoogleCallbackRejectsBadExchange(t *testing.T) {
	ctx := context.Background()
	server := newGoogleProvider(t, GoogleProfile{Subject: "g-1", Email: "a@b.c"})
	g, states, _ := newTestGoogle(t, dbtest.Open(t).DB(), server)

	_, err := g.Callback(ctx, "", "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	states["s1"] = true
	_, err = g.Callback(ctx, "s1", "bad-code")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
