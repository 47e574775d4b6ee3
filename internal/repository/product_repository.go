package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	//relevance / price_low / price_high / rating
	Sort string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	//在庫ありの商品のみ
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	//variant（色つき）も一緒に取る
	FindDetail(ctx context.Context, id int64) (model.Product, error)
	//productに属するvariantだけを返す
	FindVariant(ctx context.Context, productID int64, variantID int64) (model.ProductVariant, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
	CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error)
}

// カテゴリと色（参照データ）
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	ListColors(ctx context.Context) ([]model.Color, error)
	CreateColor(ctx context.Context, c model.Color) (model.Color, error)
}
