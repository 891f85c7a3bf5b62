package config

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
)

// ByteSize 字节数，配置中可写作 "2MiB"、"20MB" 或纯数字
type ByteSize int64

// ParseByteSize 解析容量字符串
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Wrap(ErrInvalidByteSize, "empty string")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, errors.Wrapf(ErrInvalidByteSize, "negative value %q", s)
		}
		return ByteSize(n), nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidByteSize, "%q: %v", s, err)
	}
	if n > math.MaxInt64 {
		return 0, errors.Wrapf(ErrInvalidByteSize, "%q exceeds %d bytes", s, int64(math.MaxInt64))
	}
	return ByteSize(n), nil
}

// Int64 返回字节数
func (b ByteSize) Int64() int64 {
	return int64(b)
}

// String 返回 IEC 格式，如 "2.0 MiB"
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// UnmarshalText 支持从 JSON/YAML 字符串解析
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// StringToByteSizeHookFunc 将字符串解码为 ByteSize 的 mapstructure 钩子
func StringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(ByteSize(0)) || f.Kind() != reflect.String {
			return data, nil
		}
		return ParseByteSize(data.(string))
	}
}
