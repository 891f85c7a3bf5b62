package security

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lk2023060901/imgsync/pkg/config"
)

// JWTConfig JWT 配置
// 仅支持 HMAC 系列算法，服务端与上传端共享同一个密钥
type JWTConfig struct {
	// Secret 签名密钥，为空表示不启用认证
	Secret string `mapstructure:"secret" json:"secret"`

	// Algorithm 签名算法：HS256、HS384、HS512（默认 HS256）
	Algorithm string `mapstructure:"algorithm" json:"algorithm" validate:"omitempty,oneof=HS256 HS384 HS512"`

	// ExpiresIn 签发 Token 的有效期（默认 24 小时）
	ExpiresIn time.Duration `mapstructure:"expires_in" json:"expires_in"`

	// Issuer 签发者
	Issuer string `mapstructure:"issuer" json:"issuer"`

	// TokenPrefix Authorization 头前缀（默认 "Bearer "）
	TokenPrefix string `mapstructure:"token_prefix" json:"token_prefix"`

	// HeaderName 读取 Token 的请求头（默认 "Authorization"）
	HeaderName string `mapstructure:"header_name" json:"header_name"`
}

// Claims 上传方身份
// Subject 为上传者 uid，Scope 限定可调用的接口（空表示全部）
type Claims struct {
	jwt.RegisteredClaims

	Scope []string `json:"scope,omitempty"`
}

// Allows 是否允许访问某个 scope
func (c *Claims) Allows(scope string) bool {
	if len(c.Scope) == 0 {
		return true
	}
	for _, s := range c.Scope {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// DefaultJWTConfig 返回默认 JWT 配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		Algorithm:   "HS256",
		ExpiresIn:   24 * time.Hour,
		TokenPrefix: "Bearer ",
		HeaderName:  "Authorization",
	}
}

// JWTManager JWT 管理器
type JWTManager struct {
	config *JWTConfig
	method jwt.SigningMethod
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(cfg *JWTConfig) (*JWTManager, error) {
	merged, err := config.MergeConfig(DefaultJWTConfig(), cfg)
	if err != nil {
		return nil, err
	}

	if merged.Secret == "" {
		return nil, ErrSecretKeyEmpty
	}

	var method jwt.SigningMethod
	switch strings.ToUpper(merged.Algorithm) {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.Wrapf(ErrAlgorithmInvalid, "%q", merged.Algorithm)
	}

	return &JWTManager{config: merged, method: method}, nil
}

// GenerateToken 为上传者签发 Token
func (m *JWTManager) GenerateToken(subject string, scope ...string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.ExpiresIn)),
		},
		Scope: scope,
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken 验证 Token，允许带前缀
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, m.config.TokenPrefix))
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != m.method.Alg() {
			return nil, ErrAlgorithmMismatch
		}
		return []byte(m.config.Secret), nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GetConfig 获取配置
func (m *JWTManager) GetConfig() *JWTConfig {
	return m.config
}

func wrapError(err error) error {
	switch {
	case errors.Is(err, ErrAlgorithmMismatch):
		return ErrAlgorithmMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotValidYet
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrSignatureInvalid
	default:
		return errors.Wrap(ErrTokenInvalid, err.Error())
	}
}
