package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/metrics"
	"github.com/lk2023060901/imgsync/pkg/app"
	"github.com/lk2023060901/imgsync/pkg/web"
)

// SystemHandler 健康检查、版本与指标
type SystemHandler struct {
	metrics *metrics.Metrics
	driver  string
	prom    http.Handler
}

// NewSystemHandler 创建处理器，prom 为 nil 时不挂载 /metrics
func NewSystemHandler(m *metrics.Metrics, driver string, prom http.Handler) *SystemHandler {
	return &SystemHandler{metrics: m, driver: driver, prom: prom}
}

// HealthResponse 健康检查结果
type HealthResponse struct {
	Status   string        `json:"status"`
	Recorder string        `json:"recorder"`
	Stats    metrics.Stats `json:"stats"`
}

// Register 注册路由
func (h *SystemHandler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/version", h.Version)
	if h.prom != nil {
		r.GET("/metrics", gin.WrapH(h.prom))
	}
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	web.Success(c, HealthResponse{
		Status:   "ok",
		Recorder: h.driver,
		Stats:    h.metrics.GetStats(),
	})
}

// Version 版本信息
func (h *SystemHandler) Version(c *gin.Context) {
	web.Success(c, app.GetInfo())
}
