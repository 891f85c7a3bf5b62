package hasher

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Source 可按区间读取的只读数据源
type Source interface {
	// Size 数据总长度
	Size() int64
	// ReadRange 读取 [start, end) 区间
	// 返回的切片只保证在下一次调用前有效
	ReadRange(ctx context.Context, start, end int64) ([]byte, error)
}

func checkRange(start, end, size int64) error {
	if start < 0 || end < start || end > size {
		return errors.Wrapf(ErrInvalidInput, "range [%d, %d) outside [0, %d)", start, end, size)
	}
	return nil
}

// readerAtSource 基于 io.ReaderAt 的数据源，复用同一块窗口缓冲区
type readerAtSource struct {
	r    io.ReaderAt
	size int64
	buf  []byte
}

// NewReaderAtSource 创建基于 io.ReaderAt 的数据源
// 不支持并发读取，每次计算应使用独立实例
func NewReaderAtSource(r io.ReaderAt, size int64) Source {
	return &readerAtSource{r: r, size: size}
}

func (s *readerAtSource) Size() int64 {
	return s.size
}

func (s *readerAtSource) ReadRange(ctx context.Context, start, end int64) ([]byte, error) {
	if err := checkRange(start, end, s.size); err != nil {
		return nil, err
	}

	n := int(end - start)
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	p := s.buf[:n]

	read, err := s.r.ReadAt(p, start)
	if read == n {
		// ReadAt 读满时允许同时返回 io.EOF
		return p, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

// bytesSource 内存数据源，直接返回子切片
type bytesSource []byte

// NewBytesSource 创建内存数据源
func NewBytesSource(data []byte) Source {
	return bytesSource(data)
}

func (s bytesSource) Size() int64 {
	return int64(len(s))
}

func (s bytesSource) ReadRange(_ context.Context, start, end int64) ([]byte, error) {
	if err := checkRange(start, end, int64(len(s))); err != nil {
		return nil, err
	}
	return s[start:end], nil
}

// FileSource 本地文件数据源
type FileSource struct {
	Source
	file *os.File
}

// OpenFile 打开本地文件作为数据源
func OpenFile(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to stat file")
	}
	if info.IsDir() {
		file.Close()
		return nil, errors.Wrapf(ErrInvalidInput, "%s is a directory", path)
	}

	return &FileSource{
		Source: NewReaderAtSource(file, info.Size()),
		file:   file,
	}, nil
}

// Name 文件路径
func (f *FileSource) Name() string {
	return f.file.Name()
}

// Close 关闭文件
func (f *FileSource) Close() error {
	return f.file.Close()
}
