package service

import (
	"mime"
	"strings"

	"github.com/lk2023060901/imgsync/app/imgsync/internal/conf"
)

// Policy 上传策略
type Policy struct {
	MaxSize      int64
	AllowedTypes []string
	VerifyDigest bool
	SkipExisting bool
}

// NewPolicy 由配置生成上传策略
func NewPolicy(cfg conf.UploadConfig) *Policy {
	types := make([]string, 0, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			types = append(types, t)
		}
	}
	return &Policy{
		MaxSize:      cfg.MaxSize.Int64(),
		AllowedTypes: types,
		VerifyDigest: cfg.VerifyDigest,
		SkipExisting: cfg.SkipExisting,
	}
}

// AllowsType 判断内容类型是否允许，支持 "image/*" 形式的通配
func (p *Policy) AllowsType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, allowed := range p.AllowedTypes {
		if allowed == "*/*" || allowed == mediaType {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok && strings.HasPrefix(mediaType, prefix+"/") {
			return true
		}
	}
	return false
}
