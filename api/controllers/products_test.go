package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	product "github.com/angelmondragon/koumale-backend/internal/products"
	"github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/query"
)

type stubProductService struct {
	err        error
	clicks     int64
	lastActor  auth.Actor
	lastCreate product.CreateProductInput
	lastUpdate product.UpdateProductInput
	lastID     uuid.UUID
	categories []string
}

func (s *stubProductService) List(ctx context.Context, plan query.Plan) ([]product.ProductDTO, int64, error) {
	return nil, 0, s.err
}

func (s *stubProductService) ListForVendor(ctx context.Context, vendorSlug, category string, page pagination.Params) ([]product.ProductDTO, int64, error) {
	return nil, 0, s.err
}

func (s *stubProductService) Get(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error) {
	s.lastID = id
	return &product.ProductDTO{ID: id}, s.err
}

func (s *stubProductService) Click(ctx context.Context, id uuid.UUID) (int64, error) {
	s.lastID = id
	return s.clicks, s.err
}

func (s *stubProductService) Categories(ctx context.Context) ([]string, error) {
	return s.categories, s.err
}

func (s *stubProductService) CreateProduct(ctx context.Context, actor auth.Actor, input product.CreateProductInput) (*product.ProductDTO, error) {
	s.lastActor = actor
	s.lastCreate = input
	return &product.ProductDTO{ID: uuid.New(), Name: input.Name}, s.err
}

func (s *stubProductService) UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input product.UpdateProductInput) (*product.ProductDTO, error) {
	s.lastActor = actor
	s.lastID = productID
	s.lastUpdate = input
	return &product.ProductDTO{ID: productID}, s.err
}

func (s *stubProductService) DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error {
	s.lastActor = actor
	s.lastID = productID
	return s.err
}

func TestProductCreateRequiresPrice(t *testing.T) {
	svc := &stubProductService{}
	handler := ProductCreate(svc, nil)

	body := `{"name":"Pagne","description":"Wax","category":"mode"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)), uuid.New(), enums.UserRoleVendor)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "price") {
		t.Fatalf("expected price detail, got %s", resp.Body.String())
	}
	if svc.lastCreate.Name != "" {
		t.Fatalf("service should not be called")
	}
}

func TestProductCreateForwardsInput(t *testing.T) {
	userID := uuid.New()
	svc := &stubProductService{}
	handler := ProductCreate(svc, nil)

	body := `{"name":"Pagne","description":"Wax","price":15000,"promotionalPrice":12000,"category":"mode","images":["https://cdn.example/a.png"]}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)), userID, enums.UserRoleVendor)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastActor.UserID != userID || svc.lastActor.Role != enums.UserRoleVendor {
		t.Fatalf("unexpected actor %+v", svc.lastActor)
	}
	if !svc.lastCreate.Price.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("unexpected price %s", svc.lastCreate.Price)
	}
	if svc.lastCreate.PromotionalPrice == nil || !svc.lastCreate.PromotionalPrice.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("expected promotional price forwarded")
	}
	if len(svc.lastCreate.Images) != 1 {
		t.Fatalf("expected images forwarded, got %v", svc.lastCreate.Images)
	}
}

func TestProductUpdateDistinguishesClearedPromotion(t *testing.T) {
	productID := uuid.New()
	svc := &stubProductService{}
	handler := ProductUpdate(svc, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/products/"+productID.String(), strings.NewReader(`{"promotionalPrice":null}`))
	req = withParam(withActor(req, uuid.New(), enums.UserRoleVendor), "productId", productID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.lastUpdate.PromotionalPrice.Set || svc.lastUpdate.PromotionalPrice.Value != nil {
		t.Fatalf("expected explicit clear, got %+v", svc.lastUpdate.PromotionalPrice)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/products/"+productID.String(), strings.NewReader(`{"name":"Pagne"}`))
	req = withParam(withActor(req, uuid.New(), enums.UserRoleVendor), "productId", productID.String())
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if svc.lastUpdate.PromotionalPrice.Set {
		t.Fatalf("absent promotional price must not be marked set")
	}
}

func TestProductClickReturnsCount(t *testing.T) {
	productID := uuid.New()
	svc := &stubProductService{clicks: 7}
	handler := ProductClick(svc, nil)

	req := withParam(httptest.NewRequest(http.MethodPost, "/api/products/x/click", nil), "productId", productID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var body struct {
		Success bool  `json:"success"`
		Clicks  int64 `json:"clicks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Clicks != 7 || svc.lastID != productID {
		t.Fatalf("unexpected click response %+v", body)
	}
}

func TestProductGetNotFound(t *testing.T) {
	svc := &stubProductService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	handler := ProductGet(svc, nil)

	req := withParam(httptest.NewRequest(http.MethodGet, "/api/products/x", nil), "productId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestProductDeleteRequiresActor(t *testing.T) {
	handler := ProductDelete(&stubProductService{}, nil)

	req := withParam(httptest.NewRequest(http.MethodDelete, "/api/products/x", nil), "productId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCategoriesListsWithCount(t *testing.T) {
	handler := Categories(&stubProductService{categories: []string{"beauté", "mode"}}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"count":2`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}
