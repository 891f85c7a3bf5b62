package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/imgsync/pkg/logger"
	weberrors "github.com/lk2023060901/imgsync/pkg/web/errors"
)

// PanicReporter panic 上报函数（如 Sentry）
type PanicReporter func(c *gin.Context, recovered any)

// Recovery 适配 pkg/logger 的异常恢复中间件
func Recovery(l logger.Logger, reporter PanicReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			httpRequest, _ := httputil.DumpRequest(c.Request, false)
			if isBrokenPipe(rec) {
				l.WarnContext(c.Request.Context(), "http broken pipe",
					"error", rec,
					"request", string(httpRequest),
				)
				_ = c.Error(toError(rec))
				c.Abort()
				return
			}

			l.ErrorContext(c.Request.Context(), "http recovery from panic",
				"error", rec,
				"request", string(httpRequest),
				"stack", string(debug.Stack()),
			)
			if reporter != nil {
				reporter(c, rec)
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    weberrors.CodeInternalError,
				"message": "internal server error",
				"data":    nil,
			})
		}()
		c.Next()
	}
}

// isBrokenPipe 连接已被客户端断开
func isBrokenPipe(rec any) bool {
	ne, ok := rec.(*net.OpError)
	if !ok {
		return false
	}
	se, ok := ne.Err.(*os.SyscallError)
	if !ok {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}

func toError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return errors.New(fmt.Sprint(rec))
}
