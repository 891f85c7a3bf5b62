package config

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Validator 配置验证器
type Validator struct {
	validate *validator.Validate
}

// NewValidator 创建验证器
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// Validate 验证配置结构体
// 支持标准的 validator tag，如 required、min/max、oneof、url
func (v *Validator) Validate(cfg any) error {
	if cfg == nil {
		return ErrNilConfig
	}

	if err := v.validate.Struct(cfg); err != nil {
		return errors.Wrap(ErrValidationFailed, formatValidationErrors(err))
	}
	return nil
}

// RegisterValidation 注册自定义验证规则
func (v *Validator) RegisterValidation(tag string, fn validator.Func) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return errors.Wrapf(err, "failed to register custom validation %s", tag)
	}
	return nil
}

func formatValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		field := fieldErr.Namespace()
		param := fieldErr.Param()

		switch fieldErr.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field '%s' is required", field))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be at least %s", field, param))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be at most %s", field, param))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be one of [%s]", field, param))
		case "url":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be a valid URL", field))
		default:
			msgs = append(msgs, fmt.Sprintf("field '%s' failed validation '%s'", field, fieldErr.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
