package app

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，如 IMGSYNC_STORAGE_BUCKET_NAME
const EnvPrefix = "IMGSYNC"

var (
	configPath  string
	logPath     string
	showVersion bool
)

// LoadConfig 集成 pkg/config 提供统一加载能力
// 优先级：1. 命令行显式参数 > 2. 环境变量 > 3. 配置文件 > 4. 默认值
// 配置文件可选：环境变量提供全部必填项时可以不存在
func LoadConfig(target any, opts ...config.Option) (config.Manager, error) {
	return loadConfig(pflag.CommandLine, os.Args[1:], target, opts...)
}

func loadConfig(fs *pflag.FlagSet, args []string, target any, opts ...config.Option) (config.Manager, error) {
	execDir, err := GetExecDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get executable directory")
	}

	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "imgsync.log")

	if fs.Lookup("config") == nil {
		fs.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file (yaml or json)")
	}
	if fs.Lookup("log.path") == nil {
		fs.StringVar(&logPath, "log.path", defaultLog, "output path for logs")
	}
	if fs.Lookup("version") == nil {
		fs.BoolVar(&showVersion, "version", false, "print version and exit")
	}

	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return nil, errors.Wrap(err, "failed to parse flags")
		}
	}

	path, err := resolveConfigPath(fs, defaultConfig)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	mgr := config.NewManager(append([]config.Option{
		config.WithViper(v),
		config.WithEnvPrefix(EnvPrefix),
	}, opts...)...)
	mgr.BindEnv(EnvPrefix)
	// 晚于 WithDefaults，日志路径默认跟随可执行文件目录
	v.SetDefault("log.output_path", defaultLog)

	if fs.Changed("log.path") {
		mgr.Set("log.output_path", logPath)
	}

	if path != "" {
		if err := mgr.LoadFile(path); err != nil {
			return nil, err
		}
	}
	configPath = path

	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}

	logPath = mgr.GetString("log.output_path")
	return mgr, nil
}

// resolveConfigPath 确定配置文件路径
// 显式指定（--config 或 IMGSYNC_CONFIG）时文件必须存在，
// 否则依次尝试可执行文件目录下的 config.yaml 与工作目录下的 config.yaml、config.json
func resolveConfigPath(fs *pflag.FlagSet, defaultConfig string) (string, error) {
	explicit := ""
	if fs.Changed("config") {
		explicit = configPath
	} else if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
		explicit = env
	}

	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrapf(config.ErrConfigFileNotFound, "%s", explicit)
		}
		return explicit, nil
	}

	for _, candidate := range []string{defaultConfig, "config.yaml", "config.json"} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 返回最终使用的配置文件路径，未使用配置文件时为空
func GetConfigPath() string {
	return configPath
}

// GetLogPath 返回最终生效的日志文件路径
func GetLogPath() string {
	return logPath
}

// VersionRequested 命令行是否指定了 --version
func VersionRequested() bool {
	return showVersion
}
