package model

import "errors"

var (
	//カートが空
	ErrEmptyCart = errors.New("cart is empty")
	//追加・数量変更時の在庫不足（カートは変更しない）
	ErrInsufficientStock = errors.New("insufficient stock")
	//確定時に在庫が足りなくなっていた（ロールバック済み）
	ErrStockConflict = errors.New("stock conflict")
	//カード拒否・残高不足など、決済サービスが拒否した
	ErrPaymentDeclined = errors.New("payment declined")
	//決済サービスに繋がらない
	ErrPaymentServiceUnavailable = errors.New("payment service unavailable")
	//決済サービスの応答待ちでタイムアウト
	ErrPaymentTimeout = errors.New("payment service timeout")
	//注文保存トランザクションの想定外エラー
	ErrPersistenceFailure = errors.New("persistence failure")
	//未対応・無効な支払い方法
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	//署名は一度しか付けられない
	ErrReceiptSignatureAssigned = errors.New("receipt signature already assigned")
	//数量は1以上
	ErrInvalidQuantity = errors.New("invalid quantity")
	//カートに存在しないキー
	ErrCartLineNotFound = errors.New("cart line not found")
)

// 決済サービスから返ってきたメッセージを持つエラー。
// Causeは上のどれか（Declined / Unavailable / Timeout）。
type PaymentError struct {
	Cause   error
	Message string
}

func (e *PaymentError) Error() string {
	if e.Message == "" {
		return e.Cause.Error()
	}
	return e.Cause.Error() + ": " + e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Cause
}

func NewPaymentError(cause error, message string) error {
	return &PaymentError{Cause: cause, Message: message}
}
