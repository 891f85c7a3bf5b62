package d1

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidConfig 配置缺失或无效
	ErrInvalidConfig = errors.New("d1: invalid config")

	// ErrEmptyResult 响应中没有语句结果
	ErrEmptyResult = errors.New("d1: empty result")
)

// APIError D1 HTTP API 返回的错误
// 非 2xx 时 Body 为原始响应体；success=false 时 Errors 为信封中的错误列表
type APIError struct {
	StatusCode int
	Body       string
	Errors     []Message
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		msgs := make([]string, 0, len(e.Errors))
		for _, m := range e.Errors {
			msgs = append(msgs, m.String())
		}
		return fmt.Sprintf("D1 query failed: %s", strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("D1 API error: %d %s", e.StatusCode, e.Body)
}
