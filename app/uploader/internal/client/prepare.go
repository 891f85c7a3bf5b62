package client

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/lk2023060901/imgsync/pkg/hasher"
	"golang.org/x/sync/errgroup"
)

// sniffLen 判断文件类型读取的字节数，与 mimetype 默认上限一致
const sniffLen = 3072

// File 已计算摘要的本地文件
type File struct {
	Path        string
	Size        int64
	ContentType string
	Digest      hasher.Digest
}

// Prepare 检查文件类型并计算摘要
func (c *Client) Prepare(ctx context.Context, path string) (*File, error) {
	src, err := hasher.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	head, err := src.ReadRange(ctx, 0, min(src.Size(), sniffLen))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	contentType := mimetype.Detect(head).String()
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.Wrapf(ErrNotImage, "%s is %s", path, contentType)
	}

	digest, err := hasher.ComputeDigest(ctx, src,
		hasher.WithAlgorithm(c.cfg.Algorithm),
		hasher.WithWindowSize(c.cfg.WindowSize),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "hash %s", path)
	}

	c.logger.DebugContext(ctx, "file hashed", "path", path, "digest", digest.Hex(), "size", src.Size())
	return &File{
		Path:        path,
		Size:        src.Size(),
		ContentType: contentType,
		Digest:      digest,
	}, nil
}

// PrepareAll 并发处理多个文件，每个文件是独立的一次计算
// 结果与 paths 顺序一致；任一文件失败时取消其余计算
func (c *Client) PrepareAll(ctx context.Context, paths []string) ([]*File, error) {
	files := make([]*File, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Jobs)
	for i, path := range paths {
		g.Go(func() error {
			f, err := c.Prepare(ctx, path)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
