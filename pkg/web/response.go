package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`    // 业务错误码，0 表示成功
	Message string `json:"message"` // 提示信息
	Data    any    `json:"data"`    // 数据载体
	TraceID string `json:"trace_id,omitempty"`
}

func traceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
		TraceID: traceID(c),
	})
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

