package hasher

// DefaultWindowSize 默认分块大小 2MiB
// 只影响内存占用与读取次数，不影响摘要结果
const DefaultWindowSize int64 = 2 * 1024 * 1024

// ProgressFunc 每个分块喂入累加器后回调
type ProgressFunc func(done, total int64)

// Options 计算选项
type Options struct {
	WindowSize int64
	Algorithm  Algorithm
	Progress   ProgressFunc
}

// Option 选项函数
type Option func(*Options)

// WithWindowSize 设置分块大小
func WithWindowSize(n int64) Option {
	return func(o *Options) {
		o.WindowSize = n
	}
}

// WithAlgorithm 设置哈希算法
func WithAlgorithm(alg Algorithm) Option {
	return func(o *Options) {
		if alg != "" {
			o.Algorithm = alg
		}
	}
}

// WithProgress 设置进度回调
func WithProgress(fn ProgressFunc) Option {
	return func(o *Options) {
		o.Progress = fn
	}
}

func newOptions(opts ...Option) *Options {
	o := &Options{
		WindowSize: DefaultWindowSize,
		Algorithm:  DefaultAlgorithm,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
