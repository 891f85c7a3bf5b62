package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/metrics"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/model"
	"github.com/lk2023060901/imgsync/pkg/otel"
)

// Save 记录图片元数据
// 对象此前已经写入，失败时不做补偿，对象成为孤儿
func (s *PictureService) Save(ctx context.Context, p *model.Picture) (meta *model.Meta, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		switch {
		case errors.Is(err, ErrSaveFailed):
			result = metrics.ResultFailed
		case err != nil:
			result = metrics.ResultRejected
		}
		s.metrics.RecordRequest(metrics.EndpointSave, result, time.Since(start))
	}()

	if p == nil || p.UID == "" || p.Name == "" || p.Link == "" || p.OrderID == "" {
		return nil, ErrMissingFields
	}

	ctx, span := otel.StartSpan(ctx, tracerName, "insert",
		otel.String(otel.RecordTableKey, s.table),
		otel.String(otel.RecordBackendKey, s.recorder.Driver()),
		otel.String(otel.ObjectKeyKey, p.Link),
	)
	defer func() { otel.EndSpan(span, err) }()

	meta, err = s.recorder.Insert(ctx, p)
	if err != nil {
		s.metrics.IncOrphaned()
		s.logger.ErrorContext(ctx, "metadata not recorded, object is orphaned",
			"link", p.Link,
			"uid", p.UID,
			"error", err,
		)
		s.report(ctx, err, "save")
		return nil, errors.Mark(err, ErrSaveFailed)
	}

	s.logger.InfoContext(ctx, "picture recorded", "link", p.Link, "uid", p.UID, "order_id", p.OrderID)
	return meta, nil
}
