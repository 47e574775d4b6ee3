package usecase

import (
	"context"

	"github.com/shopspring/decimal"
)

// カード決済（最小通貨単位で請求）
type ChargeRequest struct {
	AmountMinor int64
	Currency    string
	Token       string
	Description string
}

type ChargeResult struct {
	ID   string
	Paid bool
}

// 拒否はmodel.ErrPaymentDeclined、通信できなければErrPaymentServiceUnavailable、
// 期限切れはErrPaymentTimeoutを包んで返す
type CardProcessor interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// リダイレクト型ゲートウェイの開始リクエスト
type InitiateRequest struct {
	TxRef       string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	CallbackURL string
	ReturnURL   string
}

type InitiateResult struct {
	CheckoutURL string
}

const VerifyStatusSuccess = "success"

type VerifyResult struct {
	TxRef    string
	Status   string
	Amount   decimal.Decimal
	Currency string
}

type RedirectGateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	//webhookの中身は信用せず、ゲートウェイに問い合わせる
	Verify(ctx context.Context, txRef string) (VerifyResult, error)
}
