package client

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotImage 文件内容不是图片
	ErrNotImage = errors.New("not an image")
	// ErrInvalidConfig 客户端配置错误
	ErrInvalidConfig = errors.New("uploader: invalid config")
)

// APIError 服务端返回的错误响应
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// OrphanError 对象已上传但元数据写入失败，对象不会被清理
type OrphanError struct {
	Key string
	URL string
	Err error
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("object %s uploaded but not recorded: %v", e.Key, e.Err)
}

func (e *OrphanError) Unwrap() error {
	return e.Err
}
