package hasher

import (
	"crypto/md5"
	"crypto/sha256"
	"hash"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/zeebo/blake3"
)

// Algorithm 哈希算法名称
type Algorithm string

const (
	// MD5 默认算法，与浏览器端 SparkMD5 计算结果一致
	MD5 Algorithm = "md5"
	// SHA256 SHA-256
	SHA256 Algorithm = "sha256"
	// BLAKE3 BLAKE3-256
	BLAKE3 Algorithm = "blake3"
	// XXHash XXH64（非加密，仅用于快速去重）
	XXHash Algorithm = "xxhash"
)

// DefaultAlgorithm 默认算法
const DefaultAlgorithm = MD5

// Factory 创建一个全新的累加器
// 每次调用必须返回独立实例，累加器不可在多次计算之间复用
type Factory func() hash.Hash

var (
	mu        sync.RWMutex
	factories = make(map[Algorithm]Factory)
)

func init() {
	Register(MD5, md5.New)
	Register(SHA256, sha256.New)
	Register(BLAKE3, func() hash.Hash {
		return blake3.New()
	})
	Register(XXHash, func() hash.Hash {
		return xxhash.New()
	})
}

// Register 注册哈希算法
func Register(alg Algorithm, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[alg] = factory
}

// Unregister 注销哈希算法
func Unregister(alg Algorithm) {
	mu.Lock()
	defer mu.Unlock()
	delete(factories, alg)
}

// New 创建指定算法的累加器
func New(alg Algorithm) (hash.Hash, error) {
	mu.RLock()
	factory, ok := factories[alg]
	mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "%q", string(alg))
	}
	return factory(), nil
}

// IsRegistered 检查算法是否已注册
func IsRegistered(alg Algorithm) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[alg]
	return ok
}

// List 返回所有已注册的算法（按名称排序）
func List() []Algorithm {
	mu.RLock()
	defer mu.RUnlock()

	algs := make([]Algorithm, 0, len(factories))
	for alg := range factories {
		algs = append(algs, alg)
	}
	sort.Slice(algs, func(i, j int) bool { return algs[i] < algs[j] })
	return algs
}

// ParseAlgorithm 解析算法名称（忽略大小写），空字符串返回默认算法
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultAlgorithm, nil
	}
	alg := Algorithm(s)
	if !IsRegistered(alg) {
		return "", errors.Wrapf(ErrUnsupportedAlgorithm, "%q", s)
	}
	return alg, nil
}

// DigestSize 返回算法摘要长度（字节）
func DigestSize(alg Algorithm) (int, error) {
	h, err := New(alg)
	if err != nil {
		return 0, err
	}
	return h.Size(), nil
}
