package d1

import (
	"fmt"

	"github.com/goccy/go-json"
)

// request 查询请求体
type request struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// envelope Cloudflare API 通用响应信封
type envelope struct {
	Result   []Result  `json:"result"`
	Success  bool      `json:"success"`
	Errors   []Message `json:"errors"`
	Messages []Message `json:"messages"`
}

// Message 信封中的错误或提示
type Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (m Message) String() string {
	return fmt.Sprintf("%d: %s", m.Code, m.Message)
}

// Result 单条语句的执行结果
type Result struct {
	Results []json.RawMessage `json:"results"`
	Success bool              `json:"success"`
	Meta    Meta              `json:"meta"`
}

// Meta 语句执行元信息，原样回传给调用方
type Meta struct {
	ChangedDB   bool    `json:"changed_db"`
	Changes     int64   `json:"changes"`
	Duration    float64 `json:"duration"`
	LastRowID   int64   `json:"last_row_id"`
	RowsRead    int64   `json:"rows_read"`
	RowsWritten int64   `json:"rows_written"`
	SizeAfter   int64   `json:"size_after"`
}

// Decode 将 results 解码为目标切片
func (r *Result) Decode(dest any) error {
	raw, err := json.Marshal(r.Results)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
