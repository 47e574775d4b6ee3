package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// 注文一覧のファイル出力（infra/export.OrderXLSXExporter）
type OrderExporter interface {
	Write(w io.Writer, orders []model.Order) error
}

type AdminOrderHandler struct {
	uc       *usecase.AdminOrderUsecase
	exporter OrderExporter
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase, exporter OrderExporter) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, exporter: exporter}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := adminGroup(e, cfg, userRepo)

	admin.GET("/orders", h.list)
	admin.GET("/orders/export", h.export)
	admin.GET("/orders/:id", h.detail)
	admin.PUT("/orders/:id/complete", h.complete)
	admin.GET("/audit-logs", h.auditLogs)
}

// page/limit/status/from/to を読む
func parseOrderFilter(c echo.Context, defaultLimit int) (repository.AdminOrderListFilter, string) {
	f := repository.AdminOrderListFilter{Page: 1, Limit: defaultLimit}

	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return f, "invalid page"
		}
		f.Page = p
	}

	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return f, "invalid limit"
		}
		f.Limit = l
	}

	f.PaymentStatus = c.QueryParam("status")

	from, ok := usecase.ParseDateTimeRFC3339(c.QueryParam("from"))
	if !ok {
		return f, "invalid from"
	}
	to, ok := usecase.ParseDateTimeRFC3339(c.QueryParam("to"))
	if !ok {
		return f, "invalid to"
	}
	f.From = from
	f.To = to

	return f, ""
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	f, msg := parseOrderFilter(c, 50)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) complete(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	// ★操作した管理者IDを取得（監査ログ用）
	adminID, ok := middleware.AdminID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.CompletePayment(c.Request().Context(), adminID, orderID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminOrderHandler) export(c echo.Context) error {
	f, msg := parseOrderFilter(c, 100)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
	}

	orders, err := h.uc.ListForExport(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, orders); err != nil {
		c.Logger().Errorf("order export failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	name := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"%s\"", name))
	return c.Blob(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	in := usecase.AuditLogListInput{
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		Limit:        50,
	}

	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource_id"})
		}
		in.ResourceID = &id
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		in.Limit = l
	}
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		}
		in.Offset = o
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, logs)
}
