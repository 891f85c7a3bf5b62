package config

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Option 配置选项函数
type Option func(*manager)

// WithDefaults 设置默认配置值
// 只有设置过默认值（或显式绑定）的 key 才会在 Unmarshal 时读取环境变量
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithConfigType 设置配置文件类型（yaml、json 等）
func WithConfigType(configType string) Option {
	return func(m *manager) {
		m.v.SetConfigType(configType)
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(m *manager) {
		m.bindEnv(prefix)
	}
}

// WithDecodeHook 追加 Unmarshal 使用的 mapstructure 解码钩子
func WithDecodeHook(hooks ...mapstructure.DecodeHookFunc) Option {
	return func(m *manager) {
		m.hooks = append(m.hooks, hooks...)
	}
}

// WithViper 使用自定义的 Viper 实例
func WithViper(v *viper.Viper) Option {
	return func(m *manager) {
		m.v = v
	}
}

// WithEnvAliases 为若干 key 绑定额外的环境变量名（不带前缀）
func WithEnvAliases(aliases map[string][]string) Option {
	return func(m *manager) {
		for key, envs := range aliases {
			_ = m.v.BindEnv(append([]string{key}, envs...)...)
		}
	}
}

// WithKeyAliases 兼容旧版配置文件的键名，旧键 -> 新键
// 仅在配置文件没有新键时生效，优先级与配置文件相同
func WithKeyAliases(aliases map[string]string) Option {
	return func(m *manager) {
		if m.keyAliases == nil {
			m.keyAliases = make(map[string]string, len(aliases))
		}
		for legacy, key := range aliases {
			m.keyAliases[legacy] = key
		}
	}
}
