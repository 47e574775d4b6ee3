package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
)

type PaymentMethod string

const (
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodCBE         PaymentMethod = "cbe"
	PaymentMethodAbyssinia   PaymentMethod = "abyssinia"
	PaymentMethodTelebirr    PaymentMethod = "telebirr"
	PaymentMethodMpesa       PaymentMethod = "mpesa"
	PaymentMethodTestSuccess PaymentMethod = "TEST_SUCCESS"
)

// リダイレクト型（地域決済ゲートウェイ）の支払い方法か
func (m PaymentMethod) IsRedirect() bool {
	switch m {
	case PaymentMethodCBE, PaymentMethodAbyssinia, PaymentMethodTelebirr, PaymentMethodMpesa:
		return true
	}
	return false
}

// 購入者情報（会員登録なし）
type Buyer struct {
	Name  string `gorm:"column:buyer_name;type:varchar(100);not null" json:"name"`
	Email string `gorm:"column:buyer_email;type:varchar(255);not null" json:"email"`
	Phone string `gorm:"column:buyer_phone;type:varchar(20);not null" json:"phone"`
	City  string `gorm:"column:buyer_city;type:varchar(100);not null" json:"city"`
}

// 注文。作成後に変わるのはPending→Completedだけ。
// ReceiptSignatureはINSERT時のみ書き込み可（<-:create）で、UPDATEでは絶対に上書きされない
type Order struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Buyer            Buyer           `gorm:"embedded" json:"buyer"`
	PaymentMethod    PaymentMethod   `gorm:"type:varchar(50);not null" json:"payment_method"`
	Total            decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0;check:total >= 0" json:"total"`
	PaymentStatus    PaymentStatus   `gorm:"type:varchar(20);not null;default:'Pending';index" json:"payment_status"`
	ReceiptSignature string          `gorm:"<-:create;type:varchar(32);not null;uniqueIndex" json:"receipt_signature"`
	Items            []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

// 注文を組み立てる。署名はここで一度だけ付ける
func NewOrder(buyer Buyer, method PaymentMethod, total decimal.Decimal, status PaymentStatus, signature string) (Order, error) {
	o := Order{
		Buyer:         buyer,
		PaymentMethod: method,
		Total:         total,
		PaymentStatus: status,
	}
	if err := o.AssignReceiptSignature(signature); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (o *Order) AssignReceiptSignature(signature string) error {
	if o.ReceiptSignature != "" {
		return ErrReceiptSignatureAssigned
	}
	if signature == "" {
		return errors.New("receipt signature is empty")
	}
	o.ReceiptSignature = signature
	return nil
}

// 署名なしの注文は保存させない
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ReceiptSignature == "" {
		return errors.New("order must have a receipt signature before insert")
	}
	return nil
}

// Pending→Completed以外の遷移はない
func (o Order) CanCompletePayment() bool {
	return o.PaymentStatus == PaymentStatusPending
}
