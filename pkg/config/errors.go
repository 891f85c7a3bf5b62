package config

import "github.com/cockroachdb/errors"

var (
	// ErrConfigFileNotFound 配置文件未找到
	ErrConfigFileNotFound = errors.New("config file not found")

	// ErrValidationFailed 配置验证失败
	ErrValidationFailed = errors.New("config validation failed")

	// ErrNilConfig 配置为 nil
	ErrNilConfig = errors.New("config cannot be nil")

	// ErrInvalidByteSize 无法解析的容量字符串
	ErrInvalidByteSize = errors.New("invalid byte size")
)
