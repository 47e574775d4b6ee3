package usecase

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase はセッションカートの業務ロジックです。
// カートはリクエストごとにストアから読み出し、変更したら保存し直す。
type CartUsecase struct {
	carts       repo.CartStore
	productRepo repo.ProductRepository
}

func NewCartUsecase(carts repo.CartStore, productRepo repo.ProductRepository) *CartUsecase {
	return &CartUsecase{
		carts:       carts,
		productRepo: productRepo,
	}
}

type CartItemResponse struct {
	Key       string          `json:"key"`
	ProductID int64           `json:"product_id"`
	VariantID *int64          `json:"variant_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Stock     int64           `json:"stock"`
	Image     string          `json:"image"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
	Count int                `json:"count"`
}

type AddCartInput struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
}

type UpdateCartItemOutput struct {
	LineTotal decimal.Decimal `json:"line_total"`
	NewTotal  decimal.Decimal `json:"new_total"`
}

func (u *CartUsecase) GetCart(ctx context.Context, sessionID string) (CartResponse, error) {
	if sessionID == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "session required")
	}

	cart, err := u.carts.Load(ctx, sessionID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "session store error")
	}
	return toCartResponse(cart), nil
}

// 追加してカートの行数を返す
func (u *CartUsecase) AddToCart(ctx context.Context, sessionID string, in AddCartInput) (int, error) {
	if sessionID == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "session required")
	}
	if in.ProductID <= 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return 0, toHTTPError(model.ErrInvalidQuantity)
	}

	src, err := u.resolveSource(ctx, in.ProductID, in.VariantID)
	if err != nil {
		return 0, err
	}

	//失敗時はカートに触らない（保存もしない）
	cart, err := u.carts.Update(ctx, sessionID, func(cart *model.Cart) error {
		_, err := cart.Add(src, in.Quantity)
		return toHTTPError(err)
	})
	if err != nil {
		return 0, cartStoreError(err)
	}
	return cart.Count(), nil
}

// 数量の上書き。在庫は今の値を読み直す
func (u *CartUsecase) UpdateItem(ctx context.Context, sessionID string, key string, quantity int64) (UpdateCartItemOutput, error) {
	if sessionID == "" {
		return UpdateCartItemOutput{}, NewHTTPError(http.StatusBadRequest, "session required")
	}

	var out UpdateCartItemOutput
	_, err := u.carts.Update(ctx, sessionID, func(cart *model.Cart) error {
		line, ok := cart.Line(key)
		if !ok {
			return toHTTPError(model.ErrCartLineNotFound)
		}
		if quantity < 1 {
			return toHTTPError(model.ErrInvalidQuantity)
		}

		//商品が消えていたら在庫0として扱う
		var liveStock int64
		src, err := u.resolveSource(ctx, line.ProductID, line.VariantID)
		if err == nil {
			liveStock = src.Stock
		} else if he, ok := AsHTTPError(err); !ok || he.Status != http.StatusNotFound {
			return err
		}

		lineTotal, total, err := cart.Update(key, quantity, liveStock)
		if err != nil {
			return toHTTPError(err)
		}
		out = UpdateCartItemOutput{LineTotal: lineTotal, NewTotal: total}
		return nil
	})
	if err != nil {
		return UpdateCartItemOutput{}, cartStoreError(err)
	}
	return out, nil
}

// 無いキーでも成功扱い
func (u *CartUsecase) RemoveItem(ctx context.Context, sessionID string, key string) (int, error) {
	if sessionID == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "session required")
	}

	cart, err := u.carts.Update(ctx, sessionID, func(cart *model.Cart) error {
		cart.Remove(key)
		return nil
	})
	if err != nil {
		return 0, cartStoreError(err)
	}
	return cart.Count(), nil
}

// fn内で返した業務エラーはそのまま、ストアの失敗は500
func cartStoreError(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return NewHTTPError(http.StatusInternalServerError, "session store error")
}

// 商品（variant指定ならvariant）の今の名前・価格・在庫
func (u *CartUsecase) resolveSource(ctx context.Context, productID int64, variantID *int64) (model.CartItemSource, error) {
	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItemSource{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if err != nil {
		return model.CartItemSource{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	src := model.CartItemSource{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Image:     p.Image,
	}
	if variantID == nil {
		return src, nil
	}

	//productに属さないvariantは404
	v, err := u.productRepo.FindVariant(ctx, productID, *variantID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItemSource{}, NewHTTPError(http.StatusNotFound, "Variant not found")
	}
	if err != nil {
		return model.CartItemSource{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	vid := v.ID
	src.VariantID = &vid
	src.Name = v.DisplayName(p)
	src.Price = v.EffectivePrice(p)
	src.Stock = v.Stock
	if v.Image != "" {
		src.Image = v.Image
	}
	return src, nil
}

func toCartResponse(cart model.Cart) CartResponse {
	lines := cart.SortedLines()
	items := make([]CartItemResponse, 0, len(lines))
	for _, l := range lines {
		items = append(items, CartItemResponse{
			Key:       l.Key,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Name:      l.Name,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Stock:     l.Stock,
			Image:     l.Image,
			Subtotal:  l.Subtotal(),
		})
	}
	return CartResponse{
		Items: items,
		Total: cart.Total(),
		Count: cart.Count(),
	}
}
