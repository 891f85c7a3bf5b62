package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lk2023060901/imgsync/app/imgsync/internal/conf"
	"github.com/lk2023060901/imgsync/pkg/app"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/lk2023060901/imgsync/pkg/security"
	"github.com/spf13/pflag"
)

// uploadScope 上传端 Token 需要的 scope
const uploadScope = "upload"

var issueToken = pflag.String("issue-token", "", "issue an upload token for the given uid and exit")

func main() {
	var cfg conf.Config

	// 1. 加载配置：命令行 > 环境变量 > 配置文件 > 默认值
	mgr, err := app.LoadConfig(&cfg,
		config.WithDefaults(conf.Defaults()),
		config.WithEnvAliases(conf.EnvAliases()),
		config.WithKeyAliases(conf.LegacyKeys()),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	if app.VersionRequested() {
		fmt.Println(app.GetInfo().String())
		return
	}

	if *issueToken != "" {
		if err := printToken(&cfg.Auth, *issueToken); err != nil {
			fmt.Fprintln(os.Stderr, "issue token:", err)
			os.Exit(1)
		}
		return
	}

	if err := conf.Validate(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 2. 初始化 Logger，凭据字段脱敏
	l, err := logger.New(&cfg.Log,
		logger.WithName("imgsync"),
		logger.WithHooks(logger.RedactHook("secret_access_key", "api_token", "password", "token")),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	logger.SetDefault(l)

	base := app.NewBaseApp(
		app.WithName("app"),
		app.WithLogger(l),
		app.WithStopTimeout(cfg.Web.ShutdownTimeout),
	)

	// 3. 组装依赖
	srv, err := newServer(context.Background(), base, mgr, &cfg, l)
	if err != nil {
		l.Error("failed to build server", "error", err)
		_ = base.Shutdown()
		os.Exit(1)
	}
	base.AppendServer(srv)

	l.Info("imgsync configured",
		"config", app.GetConfigPath(),
		"log", app.GetLogPath(),
		"addr", srv.Addr(),
		"bucket", cfg.Storage.BucketName,
		"recorder", cfg.Recorder.Driver,
		"table", cfg.Recorder.Table,
		"algorithm", cfg.Hasher.Algorithm,
	)

	// 4. 运行直到收到退出信号
	if err := base.Run(); err != nil {
		l.Error("imgsync exited with error", "error", err)
		os.Exit(1)
	}
}

func printToken(cfg *security.JWTConfig, uid string) error {
	m, err := security.NewJWTManager(cfg)
	if err != nil {
		return err
	}
	token, err := m.GenerateToken(uid, uploadScope)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
