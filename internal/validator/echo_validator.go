package validator

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// echoのc.Validate()から呼ばれる
type EchoValidator struct {
	v *validator.Validate
}

func NewEchoValidator() *EchoValidator {
	return &EchoValidator{v: validator.New()}
}

func (ev *EchoValidator) Validate(i interface{}) error {
	return ev.v.Struct(i)
}

// 最初に失敗した項目名（エラーメッセージ用）
func FirstInvalidField(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field()
	}
	return ""
}
