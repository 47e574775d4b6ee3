package middleware

import (
	"net/http"
	"strings"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const CtxAdminIDKey = "admin_id" // int64

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// AdminAuth は/admin配下の入口。
// Bearerトークン(HS256)を検証し、DBのtoken_versionと一致するADMINだけ通す。
// ログアウトでtoken_versionが上がると、発行済みのトークンは全部401になる
func AdminAuth(cfg config.Config, users repository.UserRepository) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			var claims usecase.AccessClaims
			token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			adminID, err := claims.AdminID()
			if err != nil || adminID <= 0 || claims.TokenVersion < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//DBの最新状態と突き合わせる
			user, err := users.FindByID(c.Request().Context(), adminID)
			if err != nil || user == nil || !user.IsActive || user.TokenVersion != claims.TokenVersion {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if claims.Role != model.RoleAdmin || user.Role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}

			c.Set(CtxAdminIDKey, adminID)
			return next(c)
		}
	}
}

func bearerToken(authz string) (string, bool) {
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AdminAuthを通ったリクエストの管理者id
func AdminID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxAdminIDKey).(int64)
	return id, ok && id > 0
}
