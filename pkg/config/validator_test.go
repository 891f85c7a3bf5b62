package config

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// TestValidatorValidate 测试基本验证
func TestValidatorValidate(t *testing.T) {
	type Storage struct {
		BucketName string `validate:"required"`
		PublicURL  string `validate:"required,url"`
	}
	type Config struct {
		Storage Storage
		Driver  string `validate:"oneof=d1 postgres"`
		Port    int    `validate:"min=1,max=65535"`
	}

	v := NewValidator()

	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid config",
			config: Config{Storage: Storage{BucketName: "b", PublicURL: "https://cdn.example.com"}, Driver: "d1", Port: 8080},
		},
		{
			name:    "missing bucket",
			config:  Config{Storage: Storage{PublicURL: "https://cdn.example.com"}, Driver: "d1", Port: 8080},
			wantErr: "Config.Storage.BucketName' is required",
		},
		{
			name:    "bad url",
			config:  Config{Storage: Storage{BucketName: "b", PublicURL: "cdn"}, Driver: "d1", Port: 8080},
			wantErr: "must be a valid URL",
		},
		{
			name:    "unknown driver",
			config:  Config{Storage: Storage{BucketName: "b", PublicURL: "https://cdn.example.com"}, Driver: "mysql", Port: 8080},
			wantErr: "must be one of [d1 postgres]",
		},
		{
			name:    "port out of range",
			config:  Config{Storage: Storage{BucketName: "b", PublicURL: "https://cdn.example.com"}, Driver: "d1", Port: 70000},
			wantErr: "must be at most 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.config)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("Expected ErrValidationFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

// TestValidatorNil 测试 nil 配置
func TestValidatorNil(t *testing.T) {
	if err := NewValidator().Validate(nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("Expected ErrNilConfig, got %v", err)
	}
}

// TestValidatorCustomRule 测试自定义规则
func TestValidatorCustomRule(t *testing.T) {
	type Config struct {
		Algorithm string `validate:"hashalg"`
	}

	v := NewValidator()
	err := v.RegisterValidation("hashalg", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "md5"
	})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	if err := v.Validate(&Config{Algorithm: "md5"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := v.Validate(&Config{Algorithm: "crc"}); err == nil {
		t.Error("Expected validation failure")
	}
}
