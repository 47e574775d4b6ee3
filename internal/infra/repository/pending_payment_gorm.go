package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PendingPaymentGormRepository struct {
	db *gorm.DB
}

func NewPendingPaymentGormRepository(db *gorm.DB) *PendingPaymentGormRepository {
	return &PendingPaymentGormRepository{db: db}
}

func (r *PendingPaymentGormRepository) Create(ctx context.Context, p model.PendingPayment) (model.PendingPayment, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.PendingPayment{}, err
	}
	return p, nil
}

func (r *PendingPaymentGormRepository) FindByTxRef(ctx context.Context, txRef string) (model.PendingPayment, error) {
	return r.find(r.db.WithContext(ctx), txRef)
}

// webhookとブラウザ戻りが同時に来ても確定は1回だけ
func (r *PendingPaymentGormRepository) FindByTxRefForUpdate(ctx context.Context, txRef string) (model.PendingPayment, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), txRef)
}

func (r *PendingPaymentGormRepository) find(db *gorm.DB, txRef string) (model.PendingPayment, error) {
	var p model.PendingPayment
	err := db.Where("tx_ref = ?", txRef).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PendingPayment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PendingPayment{}, err
	}
	return p, nil
}

func (r *PendingPaymentGormRepository) UpdateStatus(ctx context.Context, id int64, status model.PendingPaymentStatus, orderID *int64) error {
	updates := map[string]interface{}{"status": status}
	if orderID != nil {
		updates["order_id"] = *orderID
	}

	res := r.db.WithContext(ctx).Model(&model.PendingPayment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
