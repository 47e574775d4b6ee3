package handler

import (
	"errors"
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理者のログイン・ログアウト
type AdminUserHandler struct {
	cfg      config.Config
	userRepo repository.UserRepository
	uc       *usecase.AuthUsecase
}

func NewAdminUserHandler(cfg config.Config, userRepo repository.UserRepository, uc *usecase.AuthUsecase) *AdminUserHandler {
	return &AdminUserHandler{cfg: cfg, userRepo: userRepo, uc: uc}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo) {
	//loginだけはJWT不要
	e.POST("/admin/login", h.Login)

	admin := adminGroup(e, h.cfg, h.userRepo)
	admin.GET("/me", h.Me)
	admin.POST("/logout", h.Logout)
}

// auth系のsentinelをHTTPに変換
func writeAuthError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorJSON("invalid input"))
	case errors.Is(err, usecase.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
	case errors.Is(err, usecase.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
	default:
		return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
	}
}

func errorJSON(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

func (h *AdminUserHandler) Login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid body"))
	}

	res, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return writeAuthError(c, err)
	}

	//ADMIN以外はトークンを渡さない
	if res.User.Role != "ADMIN" {
		return c.JSON(http.StatusForbidden, errorJSON("admin only"))
	}

	return c.JSON(http.StatusOK, res)
}

func (h *AdminUserHandler) Me(c echo.Context) error {
	userID, ok := middleware.AdminID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
	}

	me, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeAuthError(c, err)
	}

	return c.JSON(http.StatusOK, me)
}

// token_versionを上げるので発行済みのtokenは全部401になる
func (h *AdminUserHandler) Logout(c echo.Context) error {
	userID, ok := middleware.AdminID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
	}

	if err := h.uc.Logout(c.Request().Context(), userID); err != nil {
		return writeAuthError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "logged out"})
}
