package service

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/metrics"
	"github.com/lk2023060901/imgsync/pkg/hasher"
	"github.com/lk2023060901/imgsync/pkg/otel"
)

// sniffLen 推断类型时读取的文件头字节数
const sniffLen = 3072

// File 上传文件，multipart.File 满足该接口
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// UploadInput 上传请求
type UploadInput struct {
	File        File
	Size        int64
	ContentType string
	// Digest 客户端计算的十六进制摘要，同时作为对象 key
	Digest string
}

// UploadResult 上传结果
type UploadResult struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
	Deduplicated bool   `json:"deduplicated"`
}

// Upload 校验并写入对象存储
func (s *PictureService) Upload(ctx context.Context, in *UploadInput) (res *UploadResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordRequest(metrics.EndpointUpload, uploadResult(res, err), time.Since(start))
	}()

	if in == nil || in.File == nil || in.Digest == "" {
		return nil, ErrMissingFile
	}

	policy := s.policy.Load()
	if in.Size > policy.MaxSize {
		return nil, errors.Wrapf(ErrFileTooLarge, "%d bytes exceeds limit of %d", in.Size, policy.MaxSize)
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniff(in.File, in.Size)
	}
	if !policy.AllowsType(contentType) {
		return nil, errors.Wrapf(ErrUnsupportedType, "%q", contentType)
	}

	digest, err := hasher.ParseDigest(s.algorithm, in.Digest)
	if err != nil {
		return nil, errors.Mark(err, ErrInvalidDigest)
	}
	key := digest.Hex()

	if policy.VerifyDigest {
		if err := s.verify(ctx, in, digest); err != nil {
			return nil, err
		}
	}

	res = &UploadResult{
		Key:         key,
		URL:         s.store.URL(key),
		Size:        in.Size,
		ContentType: contentType,
	}

	if policy.SkipExisting {
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "existence check failed, uploading anyway", "key", key, "error", err)
		} else if exists {
			res.Deduplicated = true
			s.logger.InfoContext(ctx, "object already stored", "key", key)
			return res, nil
		}
	}

	if err := s.put(ctx, in, key, contentType); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "object uploaded", "key", key, "size", in.Size, "content_type", contentType)
	return res, nil
}

func (s *PictureService) verify(ctx context.Context, in *UploadInput, want hasher.Digest) (err error) {
	ctx, span := otel.StartSpan(ctx, tracerName, "hash",
		otel.String(otel.HashAlgorithmKey, string(s.algorithm)),
		otel.Int64(otel.HashWindowSizeKey, s.windowSize),
		otel.Int64(otel.HashChunksKey, hasher.ChunkCount(in.Size, s.windowSize)),
	)
	defer func() { otel.EndSpan(span, err) }()

	got, err := hasher.ComputeDigest(ctx, hasher.NewReaderAtSource(in.File, in.Size),
		hasher.WithAlgorithm(s.algorithm),
		hasher.WithWindowSize(s.windowSize),
	)
	if err != nil {
		return errors.Wrap(err, "failed to hash upload")
	}
	s.metrics.AddHashBytes(in.Size)

	if !got.Equal(want) {
		return errors.Wrapf(ErrDigestMismatch, "client sent %s, content is %s", want.Hex(), got.Hex())
	}
	return nil
}

func (s *PictureService) put(ctx context.Context, in *UploadInput, key, contentType string) (err error) {
	ctx, span := otel.StartSpan(ctx, tracerName, "put",
		otel.String(otel.ObjectKeyKey, key),
		otel.Int64(otel.ObjectSizeKey, in.Size),
		otel.String(otel.ObjectBucketKey, s.store.Bucket()),
	)
	defer func() { otel.EndSpan(span, err) }()

	if _, err := in.File.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "failed to rewind upload")
	}

	if err := s.store.Put(ctx, key, in.File, in.Size, contentType); err != nil {
		s.report(ctx, err, "put")
		return errors.Mark(err, ErrUploadFailed)
	}
	s.metrics.AddUploadBytes(in.Size)
	return nil
}

// sniff 根据文件头推断类型
func sniff(r io.ReaderAt, size int64) string {
	buf := make([]byte, min(size, sniffLen))
	n, _ := r.ReadAt(buf, 0)
	return mimetype.Detect(buf[:n]).String()
}

func uploadResult(res *UploadResult, err error) string {
	switch {
	case err == nil && res != nil && res.Deduplicated:
		return metrics.ResultSkipped
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrUploadFailed):
		return metrics.ResultFailed
	default:
		return metrics.ResultRejected
	}
}
