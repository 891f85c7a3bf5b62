package service

import "github.com/cockroachdb/errors"

var (
	// ErrMissingFile 缺少文件或摘要
	ErrMissingFile = errors.New("missing file or md5")
	// ErrMissingFields 缺少必填字段
	ErrMissingFields = errors.New("missing required fields")
	// ErrFileTooLarge 超过上传大小限制
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType 文件类型不在允许列表中
	ErrUnsupportedType = errors.New("unsupported content type")
	// ErrInvalidDigest 摘要格式错误
	ErrInvalidDigest = errors.New("invalid digest")
	// ErrDigestMismatch 服务端重新计算的摘要与客户端不一致
	ErrDigestMismatch = errors.New("digest mismatch")
	// ErrUploadFailed 写入对象存储失败
	ErrUploadFailed = errors.New("upload failed")
	// ErrSaveFailed 写入元数据失败
	ErrSaveFailed = errors.New("save failed")
)
