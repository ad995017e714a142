package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	pkgAuth "github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type stateStore interface {
	SaveOAuthState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (bool, error)
}

// GoogleProfile is the subset of the OpenID userinfo document we keep.
type GoogleProfile struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// GoogleParams configures the Google sign-in flow. Endpoint and UserInfoURL
// default to Google's production endpoints.
type GoogleParams struct {
	OAuth       config.GoogleOAuthConfig
	FrontendURL string
	JWT         config.JWTConfig
	States      stateStore
	Users       usersRepository
	Logg        *logger.Logger
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	Now         func() time.Time
}

// Google runs the OAuth2 authorization code flow against Google accounts.
type Google struct {
	oauth       *oauth2.Config
	stateTTL    time.Duration
	frontendURL string
	userInfoURL string
	jwtCfg      config.JWTConfig
	states      stateStore
	users       usersRepository
	logg        *logger.Logger
	now         func() time.Time
}

// NewGoogle builds the Google sign-in flow.
func NewGoogle(params GoogleParams) (*Google, error) {
	if params.OAuth.ClientID == "" || params.OAuth.ClientSecret == "" {
		return nil, fmt.Errorf("google client credentials required")
	}
	if params.OAuth.RedirectURL == "" {
		return nil, fmt.Errorf("google redirect url required")
	}
	if params.States == nil {
		return nil, fmt.Errorf("state store required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	endpoint := params.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := params.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = googleUserInfoURL
	}
	ttl := params.OAuth.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	now := params.Now
	if now == nil {
		now = db.NowUTC
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     params.OAuth.ClientID,
			ClientSecret: params.OAuth.ClientSecret,
			RedirectURL:  params.OAuth.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		stateTTL:    ttl,
		frontendURL: strings.TrimRight(params.FrontendURL, "/"),
		userInfoURL: userInfoURL,
		jwtCfg:      params.JWT,
		states:      params.States,
		users:       params.Users,
		logg:        params.Logg,
		now:         now,
	}, nil
}

// AuthURL stores a fresh single-use state and returns the consent URL.
func (g *Google) AuthURL(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := g.states.SaveOAuthState(ctx, state, g.stateTTL); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store oauth state")
	}
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Callback completes the flow and returns the frontend URL carrying the token.
func (g *Google) Callback(ctx context.Context, state, code string) (string, error) {
	if state == "" || code == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "state and code are required")
	}
	valid, err := g.states.ConsumeOAuthState(ctx, state)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check oauth state")
	}
	if !valid {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid oauth state")
	}

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "google sign-in failed")
	}
	profile, err := g.fetchProfile(ctx, token)
	if err != nil {
		return "", err
	}

	user, err := g.findOrCreate(ctx, profile)
	if err != nil {
		return "", err
	}
	jwt, err := pkgAuth.MintAccessToken(g.jwtCfg, g.now(), pkgAuth.AccessTokenPayload{UserID: user.ID, Role: user.Role})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return g.frontendURL + "/auth/callback?token=" + url.QueryEscape(jwt), nil
}

func (g *Google) fetchProfile(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build userinfo request")
	}
	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch google profile")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("google userinfo status %d", resp.StatusCode))
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode google profile")
	}
	if profile.Subject == "" || profile.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "google profile missing subject or email")
	}
	return &profile, nil
}

// findOrCreate links the Google account to an existing user by subject, then
// by email. Unknown accounts become verified clients.
func (g *Google) findOrCreate(ctx context.Context, profile *GoogleProfile) (*models.User, error) {
	user, err := g.users.FindByGoogleID(ctx, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup google user")
	}

	address := normalizeEmail(profile.Email)
	user, err = g.users.FindByEmail(ctx, address)
	switch {
	case err == nil:
		subject := profile.Subject
		user.GoogleID = &subject
		user.EmailVerified = true
		user.VerificationCode = nil
		user.VerificationExpiresAt = nil
		if err := g.users.Save(ctx, user); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link google account")
		}
		g.logg.Info(g.logg.WithField(ctx, "user_id", user.ID.String()), "auth.google_linked")
		return user, nil
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	subject := profile.Subject
	user = &models.User{
		Email:         address,
		FirstName:     profile.GivenName,
		LastName:      profile.FamilyName,
		GoogleID:      &subject,
		Role:          enums.UserRoleClient,
		Status:        enums.UserStatusApproved,
		EmailVerified: true,
	}
	if err := g.users.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create google user")
	}
	g.logg.Info(g.logg.WithField(ctx, "user_id", user.ID.String()), "auth.google_registered")
	return user, nil
}
