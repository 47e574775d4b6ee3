package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/domain/model"
)

type HTTPError struct {
	Status  int
	Message string
	//元のドメインエラー（errors.Isで判定できるように残す）
	Err error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func wrapHTTPError(status int, message string, err error) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Err:     err,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// ドメインエラーをステータスとメッセージに変換する
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, model.ErrEmptyCart):
		return wrapHTTPError(http.StatusBadRequest, "Your cart is empty.", err)
	case errors.Is(err, model.ErrInsufficientStock):
		return wrapHTTPError(http.StatusBadRequest, "Not enough stock available", err)
	case errors.Is(err, model.ErrInvalidQuantity):
		return wrapHTTPError(http.StatusBadRequest, "Invalid quantity", err)
	case errors.Is(err, model.ErrCartLineNotFound):
		return wrapHTTPError(http.StatusNotFound, "Item not found in cart", err)
	case errors.Is(err, model.ErrInvalidPaymentMethod):
		return wrapHTTPError(http.StatusBadRequest, "Invalid payment method.", err)
	case errors.Is(err, model.ErrStockConflict):
		return wrapHTTPError(http.StatusConflict, "Some items in your cart are no longer available in the requested quantity.", err)
	case errors.Is(err, model.ErrPaymentDeclined):
		return wrapHTTPError(http.StatusPaymentRequired, paymentMessage(err, "Payment was declined."), err)
	case errors.Is(err, model.ErrPaymentServiceUnavailable):
		return wrapHTTPError(http.StatusServiceUnavailable, "Payment service is currently unavailable. Please try again later.", err)
	case errors.Is(err, model.ErrPaymentTimeout):
		return wrapHTTPError(http.StatusGatewayTimeout, "Payment service did not respond in time. Please try again.", err)
	case errors.Is(err, model.ErrPersistenceFailure):
		return wrapHTTPError(http.StatusInternalServerError, "We could not save your order. Please try again.", err)
	}

	return wrapHTTPError(http.StatusInternalServerError, "internal error", err)
}

// ゲートウェイが返したメッセージがあればそれを使う
func paymentMessage(err error, def string) string {
	var pe *model.PaymentError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return def
}
