package web

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	weberrors "github.com/lk2023060901/imgsync/pkg/web/errors"
)

// BindAndValidate 绑定请求参数并进行校验，按 Content-Type 选择绑定方式
// 失败时已写入 400 响应，调用方直接返回即可
func BindAndValidate(c *gin.Context, obj any) bool {
	return bindWith(c, obj, binding.Default(c.Request.Method, c.ContentType()))
}

// BindJSON 忽略 Content-Type，始终按 JSON 解析请求体
func BindJSON(c *gin.Context, obj any) bool {
	return bindWith(c, obj, binding.JSON)
}

func bindWith(c *gin.Context, obj any, b binding.Binding) bool {
	err := c.ShouldBindWith(obj, b)
	if err == nil {
		return true
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "invalid request: "+errs.Error())
		return false
	}
	Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "invalid request: "+err.Error())
	return false
}
