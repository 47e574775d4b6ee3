package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP（ログイン不要、セッションcookie単位）
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID int64  `json:"product_id" form:"product_id" validate:"required,gt=0"`
	VariantID *int64 `json:"variant_id" form:"variant_id"`
	Quantity  int64  `json:"quantity" form:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity" form:"quantity"`
}

type CartCountResponse struct {
	Success   bool `json:"success"`
	CartCount int  `json:"cart_count"`
}

type CartUpdateResponse struct {
	Success   bool   `json:"success"`
	NewTotal  string `json:"new_total"`
	LineTotal string `json:"line_total"`
}

// /cart, /cart/items/:key を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/cart")

	g.GET("", h.getCart)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:key", h.patchItem)
	g.DELETE("/items/:key", h.deleteItem)
}

func sessionIDFrom(c echo.Context) (string, bool) {
	sid := middleware.SessionID(c)
	return sid, sid != ""
}

func (h *CartHandler) getCart(c echo.Context) error {
	sid, ok := sessionIDFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	out, err := h.uc.GetCart(c.Request().Context(), sid)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	sid, ok := sessionIDFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	//省略時は1個
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	count, err := h.uc.AddToCart(c.Request().Context(), sid, usecase.AddCartInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, CartCountResponse{Success: true, CartCount: count})
}

func (h *CartHandler) patchItem(c echo.Context) error {
	sid, ok := sessionIDFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), sid, c.Param("key"), req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, CartUpdateResponse{
		Success:   true,
		NewTotal:  out.NewTotal.StringFixed(2),
		LineTotal: out.LineTotal.StringFixed(2),
	})
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	sid, ok := sessionIDFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	count, err := h.uc.RemoveItem(c.Request().Context(), sid, c.Param("key"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, CartCountResponse{Success: true, CartCount: count})
}
