package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫の現在値を設定
func (r *InventoryGormRepository) SetStock(ctx context.Context, productID int64, newStock int64) error {
	return r.setStock(ctx, &model.Product{}, productID, newStock)
}

func (r *InventoryGormRepository) SetVariantStock(ctx context.Context, variantID int64, newStock int64) error {
	return r.setStock(ctx, &model.ProductVariant{}, variantID, newStock)
}

func (r *InventoryGormRepository) setStock(ctx context.Context, m interface{}, id int64, newStock int64) error {
	res := r.db.WithContext(ctx).
		Model(m).
		Where("id = ?", id).
		Update("stock", newStock)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫が足りるときだけ減らす。
// UPDATEが行ロックを取り、ロック後に stock >= ? を評価し直すので同時購入でもマイナスにならない
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	return r.decrease(ctx, &model.Product{}, productID, qty)
}

func (r *InventoryGormRepository) DecreaseVariantStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error) {
	return r.decrease(ctx, &model.ProductVariant{}, variantID, qty)
}

func (r *InventoryGormRepository) decrease(ctx context.Context, m interface{}, id int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(m).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Create(&adj).Error
}
