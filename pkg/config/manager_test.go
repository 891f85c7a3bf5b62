package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
)

// ManagerTestConfig 测试配置结构
type ManagerTestConfig struct {
	Storage struct {
		BucketName string `mapstructure:"bucket_name"`
		PublicURL  string `mapstructure:"public_url"`
	} `mapstructure:"storage"`
	Upload struct {
		MaxSize      ByteSize      `mapstructure:"max_size"`
		AllowedTypes []string      `mapstructure:"allowed_types"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"upload"`
}

// createTestConfigFile 创建测试配置文件
func createTestConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), name)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

// TestManagerLoadFile 测试加载 YAML 配置文件
func TestManagerLoadFile(t *testing.T) {
	configPath := createTestConfigFile(t, "config.yaml", `
storage:
  bucket_name: "pictures"
  public_url: "https://cdn.example.com"
upload:
  max_size: "20MiB"
  allowed_types: "image/png,image/jpeg"
  timeout: 30s
`)

	mgr := NewManager()
	if err := mgr.LoadFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	var cfg ManagerTestConfig
	if err := mgr.Unmarshal(&cfg); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}

	if cfg.Storage.BucketName != "pictures" {
		t.Errorf("Expected bucket pictures, got %s", cfg.Storage.BucketName)
	}
	if cfg.Upload.MaxSize != 20*1024*1024 {
		t.Errorf("Expected max_size 20MiB, got %d", cfg.Upload.MaxSize)
	}
	if len(cfg.Upload.AllowedTypes) != 2 || cfg.Upload.AllowedTypes[1] != "image/jpeg" {
		t.Errorf("Unexpected allowed_types %v", cfg.Upload.AllowedTypes)
	}
	if cfg.Upload.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", cfg.Upload.Timeout)
	}
	if mgr.ConfigFileUsed() != configPath {
		t.Errorf("Expected ConfigFileUsed %s, got %s", configPath, mgr.ConfigFileUsed())
	}
}

// TestManagerLoadJSON 测试加载 JSON 配置文件
func TestManagerLoadJSON(t *testing.T) {
	configPath := createTestConfigFile(t, "config.json", `{
  "storage": {"bucket_name": "from-json"},
  "upload": {"max_size": 1048576}
}`)

	mgr := NewManager()
	if err := mgr.LoadFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	var cfg ManagerTestConfig
	if err := mgr.Unmarshal(&cfg); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}
	if cfg.Storage.BucketName != "from-json" {
		t.Errorf("Expected bucket from-json, got %s", cfg.Storage.BucketName)
	}
	if cfg.Upload.MaxSize != 1<<20 {
		t.Errorf("Expected max_size 1MiB, got %d", cfg.Upload.MaxSize)
	}
}

// TestManagerLoadFileMissing 测试配置文件不存在
func TestManagerLoadFileMissing(t *testing.T) {
	mgr := NewManager()
	err := mgr.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigFileNotFound) {
		t.Fatalf("Expected ErrConfigFileNotFound, got %v", err)
	}
}

// TestManagerUnmarshalKey 测试解析指定 key
func TestManagerUnmarshalKey(t *testing.T) {
	configPath := createTestConfigFile(t, "config.yaml", `
upload:
  max_size: "5MB"
`)

	mgr := NewManager()
	if err := mgr.LoadFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	var size ByteSize
	if err := mgr.UnmarshalKey("upload.max_size", &size); err != nil {
		t.Fatalf("Failed to unmarshal upload.max_size: %v", err)
	}
	if size != 5_000_000 {
		t.Errorf("Expected 5000000, got %d", size)
	}
}

// TestManagerBindEnv 测试环境变量覆盖配置文件
func TestManagerBindEnv(t *testing.T) {
	t.Setenv("TEST_STORAGE_BUCKET_NAME", "from-env")

	configPath := createTestConfigFile(t, "config.yaml", `
storage:
  bucket_name: "from-file"
`)

	mgr := NewManager()
	mgr.BindEnv("TEST")
	if err := mgr.LoadFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	var cfg ManagerTestConfig
	if err := mgr.Unmarshal(&cfg); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}
	if cfg.Storage.BucketName != "from-env" {
		t.Errorf("Expected bucket from env, got %s", cfg.Storage.BucketName)
	}
}

// TestManagerBindEnvAliases 测试无前缀环境变量别名
func TestManagerBindEnvAliases(t *testing.T) {
	t.Setenv("R2_PUBLIC_URL", "https://alias.example.com")

	mgr := NewManager(WithEnvPrefix("TEST"))
	if err := mgr.BindEnvAliases("storage.public_url", "R2_PUBLIC_URL"); err != nil {
		t.Fatalf("Failed to bind alias: %v", err)
	}

	var cfg ManagerTestConfig
	if err := mgr.Unmarshal(&cfg); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}
	if cfg.Storage.PublicURL != "https://alias.example.com" {
		t.Errorf("Expected alias value, got %s", cfg.Storage.PublicURL)
	}
}

// TestManagerKeyAliases 测试旧版配置文件键名
func TestManagerKeyAliases(t *testing.T) {
	path := createTestConfigFile(t, "config.json", `{
		"r2": {"bucketName": "legacy-bucket", "publicUrl": "https://legacy.example.com"},
		"storage": {"public_url": "https://new.example.com"}
	}`)

	mgr := NewManager(WithKeyAliases(map[string]string{
		"r2.bucketName": "storage.bucket_name",
		"r2.publicUrl":  "storage.public_url",
	}))
	if err := mgr.LoadFile(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	var cfg ManagerTestConfig
	if err := mgr.Unmarshal(&cfg); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}
	if cfg.Storage.BucketName != "legacy-bucket" {
		t.Errorf("Expected legacy bucket, got %s", cfg.Storage.BucketName)
	}
	// 新键名优先
	if cfg.Storage.PublicURL != "https://new.example.com" {
		t.Errorf("Expected new public url, got %s", cfg.Storage.PublicURL)
	}
}

// TestManagerKeyAliasesEnvWins 环境变量仍然高于旧键名
func TestManagerKeyAliasesEnvWins(t *testing.T) {
	t.Setenv("TEST_STORAGE_BUCKET_NAME", "from-env")
	path := createTestConfigFile(t, "config.json", `{"r2": {"bucketName": "legacy-bucket"}}`)

	mgr := NewManager(
		WithDefaults(map[string]any{"storage.bucket_name": ""}),
		WithEnvPrefix("TEST"),
		WithKeyAliases(map[string]string{"r2.bucketName": "storage.bucket_name"}),
	)
	if err := mgr.LoadFile(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if got := mgr.GetString("storage.bucket_name"); got != "from-env" {
		t.Errorf("Expected env value, got %s", got)
	}
}

// TestManagerWithDefaults 测试默认值与 Set 覆盖
func TestManagerWithDefaults(t *testing.T) {
	mgr := NewManager(WithDefaults(map[string]any{
		"storage.bucket_name": "default-bucket",
		"upload.max_size":     "2MiB",
	}))

	if got := mgr.GetString("storage.bucket_name"); got != "default-bucket" {
		t.Errorf("Expected default bucket, got %s", got)
	}

	mgr.Set("storage.bucket_name", "override")
	if got := mgr.GetString("storage.bucket_name"); got != "override" {
		t.Errorf("Expected override, got %s", got)
	}

	var cfg ManagerTestConfig
	if err := mgr.Unmarshal(&cfg); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}
	if cfg.Upload.MaxSize != 2<<20 {
		t.Errorf("Expected 2MiB, got %d", cfg.Upload.MaxSize)
	}
	if mgr.IsSet("nonexistent.key") {
		t.Error("Expected nonexistent.key to not be set")
	}
}

// TestManagerWatch 测试配置文件变化回调
func TestManagerWatch(t *testing.T) {
	configPath := createTestConfigFile(t, "config.yaml", "upload:\n  max_size: 1MiB\n")

	mgr := NewManager()
	if err := mgr.LoadFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	changed := make(chan struct{}, 4)
	if err := mgr.Watch(func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Failed to watch: %v", err)
	}

	// 等待 watcher 启动
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(configPath, []byte("upload:\n  max_size: 3MiB\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected change callback")
	}

	var size ByteSize
	if err := mgr.UnmarshalKey("upload.max_size", &size); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if size != 3<<20 {
		t.Errorf("Expected reloaded 3MiB, got %d", size)
	}
}

// TestManagerWatchWithoutFile 未加载文件时 Watch 不报错
func TestManagerWatchWithoutFile(t *testing.T) {
	mgr := NewManager()
	if err := mgr.Watch(func() {}); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
}

// TestManagerConfigTypeAndDecodeHook 无扩展名文件按指定类型解析，并应用自定义解码钩子
func TestManagerConfigTypeAndDecodeHook(t *testing.T) {
	configPath := createTestConfigFile(t, "imgsync", `{"storage":{"bucket_name":"${BUCKET}","public_url":"https://pub.example.com"}}`)

	expand := mapstructure.DecodeHookFuncKind(func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.String || to != reflect.String {
			return data, nil
		}
		return strings.ReplaceAll(data.(string), "${BUCKET}", "pictures"), nil
	})

	mgr := NewManager(WithConfigType("json"), WithDecodeHook(expand))
	if err := mgr.LoadFile(configPath); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	var cfg ManagerTestConfig
	if err := mgr.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.Storage.BucketName != "pictures" {
		t.Errorf("Expected bucket_name=pictures, got %s", cfg.Storage.BucketName)
	}
	if cfg.Storage.PublicURL != "https://pub.example.com" {
		t.Errorf("Expected public_url unchanged, got %s", cfg.Storage.PublicURL)
	}
}
