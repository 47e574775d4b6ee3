package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PendingPaymentStatus string

const (
	PendingPaymentInitiated PendingPaymentStatus = "INITIATED"
	PendingPaymentConfirmed PendingPaymentStatus = "CONFIRMED"
	PendingPaymentFailed    PendingPaymentStatus = "FAILED"
	//支払いは済んだが確定時に在庫が足りなかった
	PendingPaymentConflict PendingPaymentStatus = "CONFLICT"
)

// リダイレクト決済の待ち状態。
// 注文はゲートウェイの確認が取れてから、このスナップショットで作る
type PendingPayment struct {
	ID            int64                `gorm:"primaryKey;autoIncrement" json:"id"`
	TxRef         string               `gorm:"type:varchar(64);not null;uniqueIndex" json:"tx_ref"`
	SessionID     string               `gorm:"type:varchar(64);not null;index" json:"-"`
	Buyer         Buyer                `gorm:"embedded" json:"buyer"`
	PaymentMethod PaymentMethod        `gorm:"type:varchar(50);not null" json:"payment_method"`
	Amount        decimal.Decimal      `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency      string               `gorm:"type:varchar(3);not null" json:"currency"`
	CartJSON      string               `gorm:"type:text;not null" json:"-"`
	Status        PendingPaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	OrderID       *int64               `json:"order_id"`
	CreatedAt     time.Time            `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time            `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
