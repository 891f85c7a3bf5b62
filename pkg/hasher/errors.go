package hasher

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidInput 参数无效（窗口大小非正、数据源为空、读取区间越界）
	ErrInvalidInput = errors.New("hasher: invalid input")

	// ErrRead 分块读取失败
	ErrRead = errors.New("hasher: read failed")

	// ErrShortRead 数据源返回的字节数与请求区间不一致
	ErrShortRead = errors.New("hasher: short read")

	// ErrUnsupportedAlgorithm 未注册的哈希算法
	ErrUnsupportedAlgorithm = errors.New("hasher: unsupported algorithm")

	// ErrInvalidDigest 摘要字符串格式错误
	ErrInvalidDigest = errors.New("hasher: invalid digest")
)

// ReadError 某个分块读取失败
// Err 保留底层错误，errors.Is(err, ErrRead) 与 errors.Is(err, cause) 均成立
type ReadError struct {
	Chunk int64
	Start int64
	End   int64
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("hasher: read chunk %d [%d, %d): %v", e.Chunk, e.Start, e.End, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is 使 ReadError 匹配 ErrRead
func (e *ReadError) Is(target error) bool {
	return target == ErrRead
}
