package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
)

// 构建时注入，例如：
//
//	go build -ldflags "-X 'github.com/lk2023060901/imgsync/pkg/app.Version=v1.0.0'" ./app/imgsync/cmd
var (
	Version   = "unknown"
	GitCommit = "unknown"
	BuildDate = "unknown"
	AppName   = ""
)

func init() {
	if AppName == "" {
		AppName = "imgsync"
		if execPath, err := os.Executable(); err == nil {
			AppName = strings.TrimSuffix(filepath.Base(execPath), ".exe")
		}
	}
	// 未注入时回退到 go install 记录的模块版本与 vcs 信息
	if bi, ok := debug.ReadBuildInfo(); ok {
		if Version == "unknown" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && GitCommit == "unknown":
				GitCommit = s.Value
			case s.Key == "vcs.time" && BuildDate == "unknown":
				BuildDate = s.Value
			}
		}
	}
}

// Info 构建信息，/version 接口与 --version 输出
type Info struct {
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo 获取当前构建信息
func GetInfo() Info {
	return Info{
		AppName:   AppName,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit: %s, build: %s, go: %s, plat: %s)",
		i.AppName, i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}
