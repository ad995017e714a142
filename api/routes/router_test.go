package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/api/controllers"
	"github.com/angelmondragon/koumale-backend/internal/auth"
	"github.com/angelmondragon/koumale-backend/internal/cart"
	"github.com/angelmondragon/koumale-backend/internal/images"
	product "github.com/angelmondragon/koumale-backend/internal/products"
	"github.com/angelmondragon/koumale-backend/internal/push"
	"github.com/angelmondragon/koumale-backend/internal/reviews"
	"github.com/angelmondragon/koumale-backend/internal/users"
	"github.com/angelmondragon/koumale-backend/internal/vendors"
	pkgAuth "github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/db/dbtest"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/email"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/httpclient"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/slug"
	"github.com/angelmondragon/koumale-backend/pkg/tasks"
)

type memoryRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (s *memoryRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[key]++
	return s.counts[key], nil
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	cfg    *config.Config
	conn   *gorm.DB
	router http.Handler
	push   *push.Repository
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080", PublicURL: "http://api.test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "koumale", TTL: time.Hour},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginIPLimit:    2,
			LoginEmailLimit: 2,
		},
	}
}

func newTestEnv(t *testing.T, pingers map[string]controllers.Pinger) *testEnv {
	t.Helper()
	cfg := testConfig()
	client := dbtest.Open(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	userRepo := users.NewRepository(conn)
	usersSvc, err := users.NewService(userRepo)
	require.NoError(t, err)

	vendorRepo := vendors.NewRepository(conn)
	allocator, err := slug.NewAllocator(vendorRepo)
	require.NoError(t, err)
	vendorsSvc, err := vendors.NewService(vendors.ServiceParams{
		Repo:      vendorRepo,
		Owners:    userRepo,
		Allocator: allocator,
		Logg:      logg,
	})
	require.NoError(t, err)

	pushRepo := push.NewRepository(conn)
	pushSvc, err := push.NewService(push.ServiceParams{
		Store:     pushRepo,
		Sender:    push.NewSender(cfg.VAPID, nil, logg),
		PublicKey: "test-public-key",
		Logg:      logg,
	})
	require.NoError(t, err)
	notifier, err := push.NewNotifier(pushSvc, tasks.Inline{Logg: logg}, vendorRepo, logg)
	require.NoError(t, err)

	productRepo := product.NewRepository(conn)
	productsSvc, err := product.NewService(productRepo, client, vendorsSvc, notifier, logg)
	require.NoError(t, err)

	reviewsSvc, err := reviews.NewService(reviews.ServiceParams{
		Repo:      reviews.NewRepository(conn),
		Products:  productRepo,
		Vendors:   vendorsSvc,
		Announcer: notifier,
		Logg:      logg,
	})
	require.NoError(t, err)

	cartSvc, err := cart.NewService(cart.NewRepository(conn), client, productRepo)
	require.NoError(t, err)

	upstream := httpclient.New(time.Second, httpclient.DefaultBreakerConfig("image-test"), logg, nil)
	imagesSvc, err := images.NewService(images.NewRepository(conn), upstream, 1<<20, logg)
	require.NoError(t, err)

	authSvc, err := auth.NewService(auth.ServiceParams{
		Users:     userRepo,
		Vendors:   vendorsSvc,
		Announcer: notifier,
		Mailer:    email.NewSender(cfg.SMTP, logg),
		Tasks:     tasks.Inline{Logg: logg},
		JWT:       cfg.JWT,
		Password:  cfg.Password,
		Logg:      logg,
	})
	require.NoError(t, err)

	router := NewRouter(cfg, logg, Dependencies{
		Auth:       authSvc,
		Users:      usersSvc,
		Vendors:    vendorsSvc,
		Products:   productsSvc,
		Reviews:    reviewsSvc,
		Cart:       cartSvc,
		Push:       pushSvc,
		Images:     imagesSvc,
		RateLimits: &memoryRateStore{},
		Pingers:    pingers,
	})
	return &testEnv{cfg: cfg, conn: conn, router: router, push: pushRepo}
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(e.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: user.ID, Role: user.Role})
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Count      *int            `json:"count"`
	Total      *int64          `json:"total"`
	Pagination *struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t, map[string]controllers.Pinger{"db": stubPinger{}})

	resp := env.do(t, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "test", resp.Header().Get("X-KM-Env"))

	resp = env.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	env := newTestEnv(t, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("dial tcp: refused")}})

	resp := env.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestStoreFailureRendersGenericInternalError(t *testing.T) {
	env := newTestEnv(t, nil)
	sqlDB, err := env.conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp := env.do(t, http.MethodGet, "/api/vendors", "", "")
	require.Equal(t, http.StatusInternalServerError, resp.Code, resp.Body.String())

	var body struct {
		Success bool           `json:"success"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "internal server error", body.Message)
	require.Empty(t, body.Details)
}

func TestProductListingAndPromotionFilter(t *testing.T) {
	env := newTestEnv(t, nil)
	_, acme := dbtest.MustApprovedVendor(t, env.conn, "Acme Wax")
	widget := dbtest.MustProduct(t, env.conn, acme.ID, "Widget", "mode", 100)
	dbtest.MustProduct(t, env.conn, acme.ID, "Gadget", "mode", 50)
	require.NoError(t, env.conn.Model(widget).Update("promotional_price", decimal.NewFromInt(80)).Error)

	pendingOwner := dbtest.MustUser(t, env.conn, enums.UserRoleVendor, enums.UserStatusPending)
	gamma := dbtest.MustVendor(t, env.conn, pendingOwner, "Gamma Shop")
	dbtest.MustProduct(t, env.conn, gamma.ID, "Hidden", "mode", 10)

	resp := env.do(t, http.MethodGet, "/api/products?limit=1", "", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode(t, resp)
	require.True(t, page.Success)
	require.NotNil(t, page.Total)
	require.EqualValues(t, 2, *page.Total)
	require.Equal(t, 1, *page.Count)
	require.NotNil(t, page.Pagination)
	require.Equal(t, 2, page.Pagination.TotalPages)

	resp = env.do(t, http.MethodGet, "/api/products?promotion=true", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	page = decode(t, resp)
	var items []product.ProductDTO
	require.NoError(t, json.Unmarshal(page.Data, &items))
	require.Len(t, items, 1)
	require.Equal(t, "Widget", items[0].Name)
}

func TestVendorVisibilityGate(t *testing.T) {
	env := newTestEnv(t, nil)
	pendingOwner := dbtest.MustUser(t, env.conn, enums.UserRoleVendor, enums.UserStatusPending)
	dbtest.MustVendor(t, env.conn, pendingOwner, "Gamma Shop")
	dbtest.MustApprovedVendor(t, env.conn, "Acme Wax")

	require.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/vendors/gamma-shop", "", "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/vendors/nobody", "", "").Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/vendors/acme-wax", "", "").Code)
	require.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/vendors/gamma-shop/products", "", "").Code)
}

func TestProductClickAndView(t *testing.T) {
	env := newTestEnv(t, nil)
	_, acme := dbtest.MustApprovedVendor(t, env.conn, "Acme Wax")
	widget := dbtest.MustProduct(t, env.conn, acme.ID, "Widget", "mode", 100)

	resp := env.do(t, http.MethodPost, "/api/products/"+widget.ID.String()+"/click", "", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var click struct {
		Success bool  `json:"success"`
		Clicks  int64 `json:"clicks"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &click))
	require.True(t, click.Success)
	require.EqualValues(t, 1, click.Clicks)

	resp = env.do(t, http.MethodGet, "/api/products/"+widget.ID.String(), "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var dto product.ProductDTO
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &dto))
	require.EqualValues(t, 1, dto.Views)
	require.EqualValues(t, 1, dto.Clicks)

	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/products/not-a-uuid", "", "").Code)
}

func TestProductCreateRequiresVendorRole(t *testing.T) {
	env := newTestEnv(t, nil)
	owner, _ := dbtest.MustApprovedVendor(t, env.conn, "Acme Wax")
	client := dbtest.MustUser(t, env.conn, enums.UserRoleClient, enums.UserStatusApproved)
	body := `{"name":"Pagne","description":"Wax 6 yards","price":15000,"category":"mode"}`

	require.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/products", body, "").Code)
	require.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/products", body, env.token(t, client)).Code)

	resp := env.do(t, http.MethodPost, "/api/products", body, env.token(t, owner))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.do(t, http.MethodPost, "/api/products", `{"name":"Pagne","description":"x","category":"mode"}`, env.token(t, owner))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminRoutesRejectClients(t *testing.T) {
	env := newTestEnv(t, nil)
	client := dbtest.MustUser(t, env.conn, enums.UserRoleClient, enums.UserStatusApproved)
	admin := dbtest.MustUser(t, env.conn, enums.UserRoleSuperAdmin, enums.UserStatusApproved)

	require.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/users", "", env.token(t, client)).Code)
	require.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/vendors/admin/pending", "", env.token(t, client)).Code)

	resp := env.do(t, http.MethodGet, "/api/users?role=client", "", env.token(t, admin))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.EqualValues(t, 1, *decode(t, resp).Total)
}

func TestPushSubscribeAttachesOptionalUser(t *testing.T) {
	env := newTestEnv(t, nil)
	client := dbtest.MustUser(t, env.conn, enums.UserRoleClient, enums.UserStatusApproved)
	body := func(endpoint string) string {
		return `{"subscription":{"endpoint":"` + endpoint + `","keys":{"p256dh":"key","auth":"secret"}}}`
	}

	resp := env.do(t, http.MethodPost, "/api/push/subscribe", body("https://push.example/a"), env.token(t, client))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	resp = env.do(t, http.MethodPost, "/api/push/subscribe", body("https://push.example/b"), "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	ctx := context.Background()
	owned, err := env.push.FindByEndpoint(ctx, "https://push.example/a")
	require.NoError(t, err)
	require.NotNil(t, owned.UserID)
	require.Equal(t, client.ID, *owned.UserID)

	anonymous, err := env.push.FindByEndpoint(ctx, "https://push.example/b")
	require.NoError(t, err)
	require.Nil(t, anonymous.UserID)

	resp = env.do(t, http.MethodGet, "/api/push/vapid-key", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "test-public-key")
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	_, acme := dbtest.MustApprovedVendor(t, env.conn, "Acme Wax")
	widget := dbtest.MustProduct(t, env.conn, acme.ID, "Widget", "mode", 1500)
	client := dbtest.MustUser(t, env.conn, enums.UserRoleClient, enums.UserStatusApproved)
	token := env.token(t, client)

	require.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/cart", "", "").Code)

	resp := env.do(t, http.MethodPost, "/api/cart", `{"productId":"`+widget.ID.String()+`","quantity":2}`, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.do(t, http.MethodGet, "/api/cart", "", token)
	require.Equal(t, http.StatusOK, resp.Code)
	var current cart.CartDTO
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &current))
	require.Len(t, current.Items, 1)
	require.EqualValues(t, 2, current.TotalItems)
	require.InDelta(t, 3000, current.TotalPrice, 0.001)

	resp = env.do(t, http.MethodDelete, "/api/cart", "", token)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &current))
	require.Empty(t, current.Items)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"email":"nobody@example.com","password":"secret1"}`

	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodPost, "/api/auth/login", body, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())
	}
	resp := env.do(t, http.MethodPost, "/api/auth/login", body, "")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestRegisterRequiresVerification(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/auth/register", `{"email":"awa@example.com","password":"secret1","firstName":"Awa","lastName":"Kone"}`, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Empty(t, resp.Header().Get("X-KM-Token"))
	require.Contains(t, resp.Body.String(), `"requiresEmailVerification":true`)

	client := dbtest.MustUser(t, env.conn, enums.UserRoleClient, enums.UserStatusApproved)
	resp = env.do(t, http.MethodGet, "/api/auth/me", "", env.token(t, client))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestGoogleDisabledReturnsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/auth/google", "", "").Code)
}

func TestRegisterVendorRejectsTakenBusinessName(t *testing.T) {
	env := newTestEnv(t, nil)
	dbtest.MustApprovedVendor(t, env.conn, "Chez Awa")

	body := `{"email":"new@example.com","password":"secret1","firstName":"Ali","lastName":"Traore",` +
		`"businessName":"chez awa","description":"Pagnes","contactPhone":"+2250700000001"}`
	resp := env.do(t, http.MethodPost, "/api/auth/register-vendor", body, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Contains(t, resp.Body.String(), "business name already in use")
}
