package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// リダイレクト決済の待ち状態
type PendingPaymentRepository interface {
	Create(ctx context.Context, p model.PendingPayment) (model.PendingPayment, error)
	FindByTxRef(ctx context.Context, txRef string) (model.PendingPayment, error)
	//トランザクション内で行ロック（SELECT ... FOR UPDATE）
	FindByTxRefForUpdate(ctx context.Context, txRef string) (model.PendingPayment, error)
	UpdateStatus(ctx context.Context, id int64, status model.PendingPaymentStatus, orderID *int64) error
}
