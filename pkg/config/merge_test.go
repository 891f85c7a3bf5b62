package config

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

type mergeStorage struct {
	Endpoint   string
	BucketName string
	PathStyle  bool
}

type mergeUpload struct {
	MaxSize      ByteSize
	AllowedTypes []string
	Timeout      time.Duration
}

type mergeConfig struct {
	Storage mergeStorage
	Upload  mergeUpload
	Labels  map[string]string
	Extra   *mergeUpload
}

// TestMergeConfig_Override 测试非零值覆盖，零值保留默认
func TestMergeConfig_Override(t *testing.T) {
	dst := &mergeConfig{
		Storage: mergeStorage{Endpoint: "https://default", BucketName: "default"},
		Upload:  mergeUpload{MaxSize: 20 << 20, AllowedTypes: []string{"image/*"}, Timeout: time.Minute},
	}
	src := &mergeConfig{
		Storage: mergeStorage{BucketName: "pictures", PathStyle: true},
		Upload:  mergeUpload{AllowedTypes: []string{"image/png"}},
	}

	result, err := MergeConfig(dst, src)
	if err != nil {
		t.Fatalf("MergeConfig failed: %v", err)
	}

	if result.Storage.Endpoint != "https://default" {
		t.Errorf("Expected endpoint kept, got %s", result.Storage.Endpoint)
	}
	if result.Storage.BucketName != "pictures" || !result.Storage.PathStyle {
		t.Errorf("Expected storage overridden, got %+v", result.Storage)
	}
	if result.Upload.MaxSize != 20<<20 || result.Upload.Timeout != time.Minute {
		t.Errorf("Expected upload defaults kept, got %+v", result.Upload)
	}
	if len(result.Upload.AllowedTypes) != 1 || result.Upload.AllowedTypes[0] != "image/png" {
		t.Errorf("Expected slice replaced, got %v", result.Upload.AllowedTypes)
	}
}

// TestMergeConfig_Map 测试 map 按 key 合并
func TestMergeConfig_Map(t *testing.T) {
	dst := &mergeConfig{Labels: map[string]string{"env": "dev", "team": "img"}}
	src := &mergeConfig{Labels: map[string]string{"env": "prod", "region": "auto"}}

	result, err := MergeConfig(dst, src)
	if err != nil {
		t.Fatalf("MergeConfig failed: %v", err)
	}

	want := map[string]string{"env": "prod", "team": "img", "region": "auto"}
	for k, v := range want {
		if result.Labels[k] != v {
			t.Errorf("Expected %s=%s, got %s", k, v, result.Labels[k])
		}
	}
}

// TestMergeConfig_Pointer 测试指针递归合并
func TestMergeConfig_Pointer(t *testing.T) {
	dst := &mergeConfig{}
	src := &mergeConfig{Extra: &mergeUpload{MaxSize: 1024}}

	result, err := MergeConfig(dst, src)
	if err != nil {
		t.Fatalf("MergeConfig failed: %v", err)
	}
	if result.Extra == nil || result.Extra.MaxSize != 1024 {
		t.Fatalf("Expected pointer merged, got %+v", result.Extra)
	}
	if result.Extra == src.Extra {
		t.Error("Expected a fresh pointer in dst")
	}
}

// TestMergeConfig_Nil 测试 nil 参数
func TestMergeConfig_Nil(t *testing.T) {
	cfg := &mergeConfig{Storage: mergeStorage{BucketName: "x"}}

	if got, err := MergeConfig(cfg, nil); err != nil || got != cfg {
		t.Errorf("Expected dst returned for nil src, got %v %v", got, err)
	}
	if got, err := MergeConfig(nil, cfg); err != nil || got != cfg {
		t.Errorf("Expected src returned for nil dst, got %v %v", got, err)
	}
	if _, err := MergeConfig[mergeConfig](nil, nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("Expected ErrNilConfig, got %v", err)
	}
}
