package objectstore

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidConfig 配置缺失或无效
	ErrInvalidConfig = errors.New("objectstore: invalid config")

	// ErrEmptyKey 对象键为空
	ErrEmptyKey = errors.New("objectstore: empty key")

	// ErrPutFailed 上传对象失败
	ErrPutFailed = errors.New("objectstore: put object failed")

	// ErrHeadFailed 查询对象失败
	ErrHeadFailed = errors.New("objectstore: head object failed")
)
