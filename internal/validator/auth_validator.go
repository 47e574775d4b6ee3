package validator

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/usecase"

	"github.com/go-playground/validator/v10"
)

var (
	// 入力が不正（usecase.ErrValidationとして扱われる）
	ErrInvalidInput = fmt.Errorf("invalid input: %w", usecase.ErrValidation)
)

type authValidator struct {
	v *validator.Validate
}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{v: validator.New()}
}

// ログインの入力を検証
func (a *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック + email形式
	if err := a.v.VarCtx(ctx, email, "required,email"); err != nil {
		return ErrInvalidInput
	}
	if password == "" {
		return ErrInvalidInput
	}

	return nil
}

// 起動時に作る管理者の入力を検証
func (a *authValidator) ValidateBootstrap(ctx context.Context, email string, password string) error {
	if err := a.v.VarCtx(ctx, strings.TrimSpace(email), "required,email"); err != nil {
		return ErrInvalidInput
	}

	// パスワード最低文字数（8）
	if err := a.v.VarCtx(ctx, password, "required,min=8"); err != nil {
		return ErrInvalidInput
	}

	return nil
}
