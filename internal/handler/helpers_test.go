package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
)

// server.Newと同じ順でValidatorとセッションを入れる
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.NewEchoValidator()
	e.Use(middleware.Session(time.Hour, false))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doAuth(t *testing.T, e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName {
			return ck
		}
	}
	t.Fatalf("session cookie not issued")
	return nil
}

// 読み取りだけの商品リポジトリ
type stubProducts struct {
	products map[int64]model.Product
	variants map[int64]model.ProductVariant
}

func (s stubProducts) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	return nil, 0, nil
}

func (s stubProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (s stubProducts) FindDetail(ctx context.Context, id int64) (model.Product, error) {
	return s.FindByID(ctx, id)
}

func (s stubProducts) FindVariant(ctx context.Context, productID int64, variantID int64) (model.ProductVariant, error) {
	v, ok := s.variants[variantID]
	if !ok || v.ProductID != productID {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	return v, nil
}

func (s stubProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	return p, nil
}

func (s stubProducts) Update(ctx context.Context, p model.Product) error { return nil }

func (s stubProducts) SoftDelete(ctx context.Context, id int64) error { return nil }

func (s stubProducts) CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error) {
	return v, nil
}

// 明細つきの注文を返すだけ
type stubOrders struct {
	orders map[int64]model.Order
}

func (s stubOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (s stubOrders) FindWithItems(ctx context.Context, id int64) (model.Order, error) {
	return s.FindByID(ctx, id)
}

func (s stubOrders) Create(ctx context.Context, o model.Order) (int64, error) { return 0, nil }

func (s stubOrders) UpdatePaymentStatus(ctx context.Context, id int64, status model.PaymentStatus) error {
	return nil
}

func (s stubOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	return nil, 0, nil
}
