package hasher

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
)

// Digest 内容指纹
// 仅由内容决定，与分块窗口大小无关
type Digest struct {
	Algorithm Algorithm
	Sum       []byte
}

// Hex 返回小写十六进制表示，用作对象存储的 key
func (d Digest) Hex() string {
	return hex.EncodeToString(d.Sum)
}

func (d Digest) String() string {
	return d.Hex()
}

// IsZero 是否为空摘要（计算失败时返回）
func (d Digest) IsZero() bool {
	return len(d.Sum) == 0
}

// Equal 比较两个摘要
func (d Digest) Equal(other Digest) bool {
	return d.Algorithm == other.Algorithm && bytes.Equal(d.Sum, other.Sum)
}

// ParseDigest 解析十六进制摘要并校验长度
func ParseDigest(alg Algorithm, s string) (Digest, error) {
	size, err := DigestSize(alg)
	if err != nil {
		return Digest{}, err
	}

	sum, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return Digest{}, errors.Wrapf(ErrInvalidDigest, "%s: %v", alg, err)
	}
	if len(sum) != size {
		return Digest{}, errors.Wrapf(ErrInvalidDigest, "%s digest is %d bytes, want %d", alg, len(sum), size)
	}

	return Digest{Algorithm: alg, Sum: sum}, nil
}
