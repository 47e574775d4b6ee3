package handler

import (
	"io"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// webhookのbody上限
const maxWebhookBody = 1 << 20

// リダイレクト決済（Chapa）の確定
type PaymentHandler struct {
	uc *usecase.PaymentConfirmUsecase
}

func NewPaymentHandler(uc *usecase.PaymentConfirmUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type WebhookResponse struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"order_id"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/payments/chapa")
	g.POST("/webhook", h.webhook)
	g.GET("/return/:tx_ref", h.returnURL)
}

func (h *PaymentHandler) webhook(c echo.Context) error {
	//署名は生のbodyで検証するのでBindしない
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	sig := c.Request().Header.Get("Chapa-Signature")
	if sig == "" {
		sig = c.Request().Header.Get("x-chapa-signature")
	}

	orderID, err := h.uc.HandleWebhook(c.Request().Context(), body, sig)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, WebhookResponse{Success: true, OrderID: orderID})
}

// 決済後にブラウザが戻ってくる先
func (h *PaymentHandler) returnURL(c echo.Context) error {
	orderID, err := h.uc.Confirm(c.Request().Context(), c.Param("tx_ref"))
	if err != nil {
		c.Logger().Warnf("payment return not confirmed: tx_ref=%s err=%v", c.Param("tx_ref"), err)
		return c.Redirect(http.StatusFound, "/cart?payment=failed")
	}

	return c.Redirect(http.StatusFound, usecase.ReceiptURL(orderID))
}
