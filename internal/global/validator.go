package global

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	initOnce      sync.Once
	periodPattern = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)
)

// InitValidator khởi tạo và đăng ký các custom validator
func InitValidator() {
	initOnce.Do(func() {
		Validate = validator.New()

		_ = Validate.RegisterValidation("no_blank", validateNoBlank)
		_ = Validate.RegisterValidation("period", validatePeriod)
	})
}

// Struct validate một struct bằng validator toàn cục (tự khởi tạo nếu chưa có)
func Struct(s interface{}) error {
	InitValidator()
	return Validate.Struct(s)
}

// validateNoBlank: chuỗi không được chỉ gồm khoảng trắng
func validateNoBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validatePeriod: YYYY, YYYY-MM hoặc YYYY-MM-DD (so khớp tiền tố với timestamp RFC3339)
func validatePeriod(fl validator.FieldLevel) bool {
	return periodPattern.MatchString(fl.Field().String())
}
