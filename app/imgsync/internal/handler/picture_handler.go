package handler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/model"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/service"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/lk2023060901/imgsync/pkg/web"
	weberrors "github.com/lk2023060901/imgsync/pkg/web/errors"
	"github.com/lk2023060901/imgsync/pkg/web/middleware"
)

// multipartOverhead 表单边界与其它字段预留的字节数
const multipartOverhead = 1 << 20

// PictureHandler 图片上传与记录处理器
type PictureHandler struct {
	svc    *service.PictureService
	logger logger.Logger
}

// NewPictureHandler 创建处理器
func NewPictureHandler(svc *service.PictureService, l logger.Logger) *PictureHandler {
	return &PictureHandler{
		svc:    svc,
		logger: l.Named("handler.picture"),
	}
}

// SaveRequest 元数据记录请求
type SaveRequest struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Desc    string `json:"desc"`
	Link    string `json:"link"`
	OrderID string `json:"orderId"`
}

// SaveResponse 记录结果
type SaveResponse struct {
	Meta *model.Meta `json:"meta"`
}

// Register 注册路由，mws 作用于 /api 分组
func (h *PictureHandler) Register(r *gin.Engine, mws ...gin.HandlerFunc) {
	api := r.Group("/api", mws...)
	{
		api.POST("/upload", h.Upload)
		api.POST("/save", h.Save)
	}
}

// Upload 上传图片
// @Summary 上传图片到对象存储
// @Accept multipart/form-data
// @Param file formData file true "图片文件"
// @Param md5 formData string true "客户端计算的摘要"
// @Success 200 {object} web.Response{data=service.UploadResult}
// @Router /api/upload [post]
func (h *PictureHandler) Upload(c *gin.Context) {
	limit := h.svc.Policy().MaxSize + multipartOverhead
	if c.Request.ContentLength > limit {
		h.writeError(c, errors.Wrapf(service.ErrFileTooLarge, "request body of %d bytes", c.Request.ContentLength))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(c, errors.Wrapf(service.ErrFileTooLarge, "request body exceeds %d bytes", maxErr.Limit))
			return
		}
		h.writeError(c, service.ErrMissingFile)
		return
	}

	digest := c.PostForm("md5")
	if digest == "" {
		digest = c.PostForm("digest")
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to open multipart file", "error", err)
		h.writeError(c, err)
		return
	}
	defer f.Close()

	res, err := h.svc.Upload(c.Request.Context(), &service.UploadInput{
		File:        f,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Digest:      digest,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	web.Success(c, res)
}

// Save 记录图片元数据
// @Summary 写入图片元数据
// @Accept json
// @Param request body SaveRequest true "元数据"
// @Success 200 {object} web.Response{data=SaveResponse}
// @Router /api/save [post]
func (h *PictureHandler) Save(c *gin.Context) {
	var req SaveRequest
	if !web.BindJSON(c, &req) {
		return
	}
	// 携带令牌时只能登记令牌主体自己的记录
	if _, ok := middleware.GetClaims(c); ok && req.UID != middleware.GetUserID(c) {
		web.Error(c, http.StatusForbidden, weberrors.CodeForbidden, "uid does not match token subject")
		return
	}

	meta, err := h.svc.Save(c.Request.Context(), &model.Picture{
		UID:     req.UID,
		Name:    req.Name,
		Desc:    req.Desc,
		Link:    req.Link,
		OrderID: req.OrderID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	web.Success(c, SaveResponse{Meta: meta})
}

// writeError 将业务错误映射为响应
func (h *PictureHandler) writeError(c *gin.Context, err error) {
	code, message := weberrors.CodeInternalError, "internal server error"

	switch {
	case errors.Is(err, service.ErrMissingFile):
		code, message = weberrors.CodeInvalidParams, service.ErrMissingFile.Error()
	case errors.Is(err, service.ErrMissingFields):
		code, message = weberrors.CodeInvalidParams, service.ErrMissingFields.Error()
	case errors.Is(err, service.ErrInvalidDigest):
		code, message = weberrors.CodeInvalidParams, err.Error()
	case errors.Is(err, service.ErrFileTooLarge):
		code, message = weberrors.CodePayloadTooLarge, err.Error()
	case errors.Is(err, service.ErrUnsupportedType):
		code, message = weberrors.CodeUnsupportedMedia, err.Error()
	case errors.Is(err, service.ErrDigestMismatch):
		code, message = weberrors.CodeDigestMismatch, err.Error()
	case errors.Is(err, service.ErrUploadFailed):
		code, message = weberrors.CodeExternalError, "upload failed: "+err.Error()
	case errors.Is(err, service.ErrSaveFailed):
		code, message = weberrors.CodeExternalError, "save failed: "+err.Error()
	default:
		h.logger.ErrorContext(c.Request.Context(), "unhandled error", "path", c.FullPath(), "error", err)
	}

	web.Error(c, weberrors.CodeToStatus(code), code, message)
}
