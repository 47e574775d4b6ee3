package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
)

// echoのRendererに登録したテンプレート名
const receiptTemplateName = "receipt.html"

// PDF出力（infra/receipt.PDFRenderer）
type ReceiptPDFRenderer interface {
	Render(w io.Writer, v usecase.ReceiptView) error
}

// /checkout と /orders/:id/receipt
type OrderHandler struct {
	checkout *usecase.CheckoutUsecase
	receipts *usecase.ReceiptUsecase
	pdf      ReceiptPDFRenderer
}

func NewOrderHandler(checkout *usecase.CheckoutUsecase, receipts *usecase.ReceiptUsecase, pdf ReceiptPDFRenderer) *OrderHandler {
	return &OrderHandler{checkout: checkout, receipts: receipts, pdf: pdf}
}

type CheckoutRequest struct {
	Name          string `json:"name" form:"name" validate:"required,max=100"`
	Email         string `json:"email" form:"email" validate:"required,email"`
	Phone         string `json:"phone" form:"phone" validate:"required,max=20"`
	City          string `json:"city" form:"city" validate:"required"`
	OtherCity     string `json:"other_city" form:"other_city" validate:"required_if=City other"`
	PaymentMethod string `json:"payment_method" form:"payment_method" validate:"required"`
	CardToken     string `json:"card_token" form:"card_token"`
}

type CheckoutResponse struct {
	Success     bool   `json:"success"`
	OrderID     int64  `json:"order_id,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/checkout", h.placeOrder)

	g := e.Group("/orders")
	g.GET("/:id/receipt", h.receipt)
	g.GET("/:id/receipt/pdf", h.receiptPDF)
}

// checkoutは画面側がmessageを出すので {success:false, message} で返す
func writeCheckoutError(c echo.Context, err error) error {
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, CheckoutResponse{Success: false, Message: he.Message})
	}
	return c.JSON(http.StatusInternalServerError, CheckoutResponse{Success: false, Message: "internal error"})
}

func (h *OrderHandler) placeOrder(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, CheckoutResponse{Success: false, Message: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		msg := "Please fill in all required fields."
		if validator.FirstInvalidField(err) == "Email" && req.Email != "" {
			msg = "Please enter a valid email address."
		}
		return c.JSON(http.StatusBadRequest, CheckoutResponse{Success: false, Message: msg})
	}

	out, err := h.checkout.Checkout(c.Request().Context(), middleware.SessionID(c), usecase.CheckoutInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		City:          req.City,
		OtherCity:     req.OtherCity,
		PaymentMethod: req.PaymentMethod,
		CardToken:     req.CardToken,
	})
	if err != nil {
		return writeCheckoutError(c, err)
	}

	return c.JSON(http.StatusOK, CheckoutResponse{
		Success:     true,
		OrderID:     out.OrderID,
		RedirectURL: out.RedirectURL,
	})
}

func (h *OrderHandler) receipt(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	view, err := h.receipts.GetReceipt(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.Render(http.StatusOK, receiptTemplateName, view)
}

func (h *OrderHandler) receiptPDF(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	view, err := h.receipts.GetReceipt(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	//途中で失敗したら500を返せるように一度バッファに書く
	var buf bytes.Buffer
	if err := h.pdf.Render(&buf, view); err != nil {
		c.Logger().Errorf("receipt pdf render failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"receipt-%d.pdf\"", id))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
