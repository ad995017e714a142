package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/api/middleware"
	"github.com/angelmondragon/koumale-backend/internal/auth"
	"github.com/angelmondragon/koumale-backend/internal/users"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
)

type stubAuthService struct {
	session   *auth.Session
	err       error
	lastLogin auth.LoginRequest
	lastMe    uuid.UUID
	approved  uuid.UUID
	available bool
}

func (s *stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.Session, error) {
	return s.session, s.err
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.Session, error) {
	s.lastLogin = req
	return s.session, s.err
}

func (s *stubAuthService) RegisterVendor(ctx context.Context, req auth.RegisterVendorRequest) (*auth.Session, error) {
	return s.session, s.err
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, req auth.VerifyEmailRequest) (*auth.Session, error) {
	return s.session, s.err
}

func (s *stubAuthService) ResendVerification(ctx context.Context, req auth.ResendVerificationRequest) error {
	return s.err
}

func (s *stubAuthService) CheckBusinessName(ctx context.Context, name string) (bool, error) {
	return s.available, s.err
}

func (s *stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*auth.Session, error) {
	s.lastMe = userID
	return s.session, s.err
}

func (s *stubAuthService) ApproveVendor(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	s.approved = userID
	return &users.UserDTO{ID: userID, Role: enums.UserRoleVendor, Status: enums.UserStatusApproved}, s.err
}

func (s *stubAuthService) RejectVendor(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID, Role: enums.UserRoleClient, Status: enums.UserStatusApproved}, s.err
}

type stubGoogle struct {
	target string
	state  string
	code   string
}

func (g *stubGoogle) AuthURL(ctx context.Context) (string, error) { return g.target, nil }

func (g *stubGoogle) Callback(ctx context.Context, state, code string) (string, error) {
	g.state, g.code = state, code
	return g.target, nil
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func withActor(req *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	svc := &stubAuthService{session: &auth.Session{Token: "signed", User: &users.UserDTO{Email: "awa@example.com"}}}
	handler := AuthLogin(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"awa@example.com","password":"secret1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("X-KM-Token"); got != "signed" {
		t.Fatalf("expected token header, got %q", got)
	}
	if svc.lastLogin.Email != "awa@example.com" {
		t.Fatalf("unexpected login request %+v", svc.lastLogin)
	}

	var envelope struct {
		Data auth.Session `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Token != "signed" {
		t.Fatalf("expected token in body, got %+v", envelope.Data)
	}
}

func TestAuthLoginRejectsMalformedEmail(t *testing.T) {
	handler := AuthLogin(&stubAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"nope","password":"secret1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginMapsUnverifiedToForbidden(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeForbidden, "email not verified")}
	handler := AuthLogin(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"awa@example.com","password":"secret1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAuthRegisterCreatedWithoutToken(t *testing.T) {
	svc := &stubAuthService{session: &auth.Session{
		User:                 &users.UserDTO{Email: "awa@example.com"},
		RequiresVerification: true,
		Message:              auth.MessageVerifyEmail,
	}}
	handler := AuthRegister(svc, nil)

	body := `{"email":"awa@example.com","password":"secret1","firstName":"Awa","lastName":"Kone"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-KM-Token") != "" {
		t.Fatalf("unverified registration must not issue a token")
	}
	if !strings.Contains(resp.Body.String(), auth.MessageVerifyEmail) {
		t.Fatalf("expected message in body, got %s", resp.Body.String())
	}
}

func TestAuthMeRequiresUser(t *testing.T) {
	handler := AuthMe(&stubAuthService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthMeUsesContextUser(t *testing.T) {
	userID := uuid.New()
	svc := &stubAuthService{session: &auth.Session{User: &users.UserDTO{ID: userID}}}
	handler := AuthMe(svc, nil)

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), userID, enums.UserRoleClient)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastMe != userID {
		t.Fatalf("expected me lookup for %s got %s", userID, svc.lastMe)
	}
}

func TestAuthApproveVendorParsesUserID(t *testing.T) {
	userID := uuid.New()
	svc := &stubAuthService{}
	handler := AuthApproveVendor(svc, nil)

	req := withParam(httptest.NewRequest(http.MethodPut, "/api/auth/approve-vendor/"+userID.String(), nil), "userId", userID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.approved != userID {
		t.Fatalf("expected approval for %s got %s", userID, svc.approved)
	}

	req = withParam(httptest.NewRequest(http.MethodPut, "/api/auth/approve-vendor/x", nil), "userId", "x")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id got %d", resp.Code)
	}
}

func TestAuthCheckBusinessName(t *testing.T) {
	handler := AuthCheckBusinessName(&stubAuthService{available: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/check-business-name", strings.NewReader(`{"businessName":"Chez Awa"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"available":true`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAuthGoogleRedirects(t *testing.T) {
	google := &stubGoogle{target: "https://accounts.google.com/o/oauth2/auth?state=abc"}

	resp := httptest.NewRecorder()
	AuthGoogle(google, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	if resp.Code != http.StatusFound || resp.Header().Get("Location") != google.target {
		t.Fatalf("expected redirect to consent screen, got %d %q", resp.Code, resp.Header().Get("Location"))
	}

	resp = httptest.NewRecorder()
	AuthGoogleCallback(google, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=abc&code=xyz", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", resp.Code)
	}
	if google.state != "abc" || google.code != "xyz" {
		t.Fatalf("callback params not forwarded: %+v", google)
	}
}

func TestAuthGoogleDisabled(t *testing.T) {
	resp := httptest.NewRecorder()
	AuthGoogle(nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
