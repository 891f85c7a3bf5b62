package middleware

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/imgsync/pkg/security"
	weberrors "github.com/lk2023060901/imgsync/pkg/web/errors"
)

// ClaimsKey Context 中存储 Claims 的 key
const ClaimsKey = "jwt_claims"

// AuthConfig 认证配置
type AuthConfig struct {
	// JWTManager JWT 管理器
	JWTManager *security.JWTManager
	// SkipPaths 跳过验证的路径
	SkipPaths []string
	// SkipPrefixes 跳过验证的路径前缀
	SkipPrefixes []string
	// ErrorHandler 自定义错误处理
	ErrorHandler func(*gin.Context, error)
}

// Auth JWT 认证中间件
func Auth(cfg *AuthConfig) gin.HandlerFunc {
	skipPaths := make(map[string]struct{})
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if _, skip := skipPaths[path]; skip {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token := extractToken(c, cfg.JWTManager.GetConfig())
		if token == "" {
			handleAuthError(c, cfg, security.ErrTokenMissing)
			return
		}

		claims, err := cfg.JWTManager.ValidateToken(token)
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireScope 要求 Token 包含指定 scope，未启用认证时直接放行
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.Next()
			return
		}
		if !claims.Allows(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    weberrors.CodeForbidden,
				"message": "forbidden: scope " + scope + " not granted",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}

// extractToken 从请求中提取 Token
func extractToken(c *gin.Context, cfg *security.JWTConfig) string {
	header := c.GetHeader(cfg.HeaderName)
	if header == "" {
		return ""
	}
	if cfg.TokenPrefix != "" {
		return strings.TrimPrefix(header, cfg.TokenPrefix)
	}
	return header
}

// handleAuthError 处理认证错误
func handleAuthError(c *gin.Context, cfg *AuthConfig, err error) {
	if cfg.ErrorHandler != nil {
		cfg.ErrorHandler(c, err)
		return
	}

	message := "unauthorized"
	switch {
	case errors.Is(err, security.ErrTokenMissing):
		message = "token is missing"
	case errors.Is(err, security.ErrTokenExpired):
		message = "token has expired"
	case errors.Is(err, security.ErrTokenInvalid), errors.Is(err, security.ErrTokenMalformed),
		errors.Is(err, security.ErrSignatureInvalid), errors.Is(err, security.ErrAlgorithmMismatch):
		message = "token is invalid"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    weberrors.CodeUnAuthorized,
		"message": message,
		"data":    nil,
	})
}

// GetClaims 从 Context 获取 Claims
func GetClaims(c *gin.Context) (*security.Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*security.Claims)
	return claims, ok
}

// GetUserID 从 Context 获取 Token 中的 uid
func GetUserID(c *gin.Context) string {
	if claims, ok := GetClaims(c); ok {
		return claims.Subject
	}
	return ""
}
