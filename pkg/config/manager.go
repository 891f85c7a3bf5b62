package config

import (
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Manager 配置管理器接口
type Manager interface {
	// LoadFile 加载配置文件
	LoadFile(path string) error
	// BindEnv 绑定环境变量（自动映射 PREFIX_SECTION_KEY）
	BindEnv(prefix string)
	// BindEnvAliases 为 key 额外绑定若干环境变量名，按顺序取第一个非空值
	BindEnvAliases(key string, envs ...string) error
	// Unmarshal 解析整个配置到结构体
	Unmarshal(v any) error
	// UnmarshalKey 解析指定路径的配置到结构体或基本类型
	UnmarshalKey(key string, v any) error
	// Set 覆盖配置值（最高优先级）
	Set(key string, value any)
	// GetString 获取字符串配置
	GetString(key string) string
	// IsSet 检查配置项是否存在
	IsSet(key string) bool
	// ConfigFileUsed 当前加载的配置文件
	ConfigFileUsed() string
	// Watch 监听配置文件变化
	Watch(callback func()) error
}

type manager struct {
	v          *viper.Viper
	mu         sync.RWMutex
	hooks      []mapstructure.DecodeHookFunc
	keyAliases map[string]string // 旧键名 -> 新键名
	callbacks  []func()
	watching   bool
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{
		v: viper.New(),
		hooks: []mapstructure.DecodeHookFunc{
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			StringToByteSizeHookFunc(),
		},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// LoadFile 加载配置文件（YAML、JSON 等由扩展名推断）
func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrConfigFileNotFound, "%s", path)
		}
		return errors.Wrapf(err, "failed to stat config file %s", path)
	}

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	return m.applyKeyAliases()
}

// applyKeyAliases 把配置文件中的旧键名合并到新键名下
func (m *manager) applyKeyAliases() error {
	merged := make(map[string]any)
	for legacy, key := range m.keyAliases {
		if !m.v.InConfig(legacy) || m.v.InConfig(key) {
			continue
		}
		setNested(merged, strings.Split(key, "."), m.v.Get(legacy))
	}
	if len(merged) == 0 {
		return nil
	}
	if err := m.v.MergeConfigMap(merged); err != nil {
		return errors.Wrap(err, "failed to merge legacy config keys")
	}
	return nil
}

func setNested(dst map[string]any, path []string, value any) {
	for _, p := range path[:len(path)-1] {
		next, ok := dst[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			dst[p] = next
		}
		dst = next
	}
	dst[path[len(path)-1]] = value
}

// BindEnv 绑定环境变量
// prefix: 环境变量前缀，如 "IMGSYNC" 会匹配 IMGSYNC_STORAGE_BUCKET_NAME
func (m *manager) BindEnv(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindEnv(prefix)
}

func (m *manager) bindEnv(prefix string) {
	if prefix != "" {
		m.v.SetEnvPrefix(prefix)
	}
	m.v.AutomaticEnv()
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// BindEnvAliases 绑定不带前缀的环境变量名
func (m *manager) BindEnvAliases(key string, envs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.v.BindEnv(append([]string{key}, envs...)...); err != nil {
		return errors.Wrapf(err, "failed to bind env for %s", key)
	}
	return nil
}

func (m *manager) decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(m.hooks...))
}

// Unmarshal 解析整个配置到结构体
func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v, m.decodeHook()); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}
	return nil
}

// UnmarshalKey 解析指定路径的配置
func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v, m.decodeHook()); err != nil {
		return errors.Wrapf(err, "failed to unmarshal key %s", key)
	}
	return nil
}

// Set 覆盖配置值
func (m *manager) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Set(key, value)
}

// GetString 获取字符串配置
func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

// IsSet 检查配置项是否存在
func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

// ConfigFileUsed 返回已加载的配置文件路径，未加载时为空
func (m *manager) ConfigFileUsed() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.ConfigFileUsed()
}

// Watch 监听配置文件变化
// 未加载配置文件时直接返回，回调不会触发
func (m *manager) Watch(callback func()) error {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, callback)
	start := !m.watching && m.v.ConfigFileUsed() != ""
	if start {
		m.watching = true
	}
	m.mu.Unlock()

	if !start {
		return nil
	}

	m.v.OnConfigChange(func(e fsnotify.Event) {
		m.mu.Lock()
		// 重新读取后旧键名需要再合并一次
		_ = m.applyKeyAliases()
		callbacks := append([]func(){}, m.callbacks...)
		m.mu.Unlock()

		for _, cb := range callbacks {
			cb()
		}
	})
	m.v.WatchConfig()

	return nil
}
