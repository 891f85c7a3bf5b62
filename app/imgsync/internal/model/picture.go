package model

// Picture 图片元数据，对应 linsv_picture 表
type Picture struct {
	UID     string `json:"uid" db:"uid"`
	Name    string `json:"name" db:"name"`
	Desc    string `json:"desc" db:"desc"`
	Link    string `json:"link" db:"link"`
	OrderID string `json:"order_id" db:"order_id"`
}

// Meta 写入结果，字段与 D1 返回的 meta 一致
type Meta struct {
	ChangedDB   bool    `json:"changed_db"`
	Changes     int64   `json:"changes"`
	Duration    float64 `json:"duration"`
	LastRowID   int64   `json:"last_row_id"`
	RowsRead    int64   `json:"rows_read"`
	RowsWritten int64   `json:"rows_written"`
	SizeAfter   int64   `json:"size_after"`
}
