package web

import "github.com/cockroachdb/errors"

var (
	// ErrServerAlreadyStarted Server 已启动
	ErrServerAlreadyStarted = errors.New("web: server already started")

	// ErrServerNotStarted Server 未启动
	ErrServerNotStarted = errors.New("web: server not started")
)
