// Package hasher 分块增量计算内容摘要
//
// 文件按固定窗口顺序读取并喂入同一个累加器，任意时刻只持有一个窗口的数据，
// 因此可以处理远大于内存的文件。结果与一次性对整段数据求哈希完全相同。
package hasher

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ChunkCount 返回 ceil(size / windowSize)，windowSize 接近 MaxInt64 时不会溢出
func ChunkCount(size, windowSize int64) int64 {
	if size <= 0 || windowSize <= 0 {
		return 0
	}
	n := size / windowSize
	if size%windowSize != 0 {
		n++
	}
	return n
}

// ComputeDigest 分块计算数据源的摘要
//
// 分块严格按升序串行读取，第 i 块喂入累加器之后才会读取第 i+1 块。
// 任意分块读取失败或 ctx 结束都会放弃整个计算，不返回部分结果。
func ComputeDigest(ctx context.Context, src Source, opts ...Option) (Digest, error) {
	o := newOptions(opts...)

	if o.WindowSize <= 0 {
		return Digest{}, errors.Wrapf(ErrInvalidInput, "window size must be positive, got %d", o.WindowSize)
	}
	if src == nil {
		return Digest{}, errors.Wrap(ErrInvalidInput, "nil source")
	}

	size := src.Size()
	if size < 0 {
		return Digest{}, errors.Wrapf(ErrInvalidInput, "negative source size %d", size)
	}

	acc, err := New(o.Algorithm)
	if err != nil {
		return Digest{}, err
	}

	chunks := ChunkCount(size, o.WindowSize)
	for i := int64(0); i < chunks; i++ {
		if err := ctx.Err(); err != nil {
			return Digest{}, errors.Wrapf(err, "hasher: aborted before chunk %d", i)
		}

		start := i * o.WindowSize
		end := start + min(o.WindowSize, size-start)

		chunk, err := src.ReadRange(ctx, start, end)
		if err != nil {
			return Digest{}, &ReadError{Chunk: i, Start: start, End: end, Err: err}
		}
		if int64(len(chunk)) != end-start {
			return Digest{}, &ReadError{Chunk: i, Start: start, End: end, Err: ErrShortRead}
		}

		// hash.Hash 的 Write 不会返回错误
		acc.Write(chunk)

		if o.Progress != nil {
			o.Progress(end, size)
		}
	}

	return Digest{Algorithm: o.Algorithm, Sum: acc.Sum(nil)}, nil
}

// HashBytes 计算内存数据的摘要
func HashBytes(data []byte, opts ...Option) (Digest, error) {
	return ComputeDigest(context.Background(), NewBytesSource(data), opts...)
}

// HashFile 计算本地文件的摘要
func HashFile(ctx context.Context, path string, opts ...Option) (Digest, error) {
	src, err := OpenFile(path)
	if err != nil {
		return Digest{}, err
	}
	defer src.Close()

	return ComputeDigest(ctx, src, opts...)
}
