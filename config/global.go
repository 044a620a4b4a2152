// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	cfg "github.com/cnotch/loader"
	"github.com/cnotch/xlog"
)

// 服务名
const (
	Vendor  = "CAOHONGJU"
	Name    = "omafpack"
	Version = "V1.0.0"
)

var (
	globalC *config
)

// InitConfig 初始化 Config
func InitConfig() {
	exe, err := os.Executable()
	if err != nil {
		xlog.Panic(err.Error())
	}

	configPath := filepath.Join(filepath.Dir(exe), Name+".conf")

	globalC = new(config)
	globalC.initFlags()

	// 创建或加载配置文件
	if err := cfg.Load(globalC,
		&cfg.JSONLoader{Path: configPath, CreatedIfNonExsit: true},
		&cfg.EnvLoader{Prefix: strings.ToUpper(Name)},
		&cfg.FlagLoader{}); err != nil {
		// 异常，直接退出
		xlog.Panic(err.Error())
	}

	// 初始化日志
	globalC.Log.initLogger()
}

// Addr Listen addr
func Addr() string {
	if globalC == nil {
		return ":8090"
	}
	return globalC.ListenAddr
}

// Profile 是否启动 Http Profile
func Profile() bool {
	if globalC == nil {
		return false
	}
	return globalC.Profile
}

// LocalOnly 修改类 API 是否只允许本机访问
func LocalOnly() bool {
	if globalC == nil {
		return true
	}
	return globalC.LocalOnly
}

// QueueSize 帧事件队列长度
func QueueSize() int {
	if globalC == nil || globalC.QueueSize <= 0 {
		return 256
	}
	return globalC.QueueSize
}

// StatsInterval 统计日志间隔，0 表示不输出
func StatsInterval() time.Duration {
	if globalC == nil {
		return time.Minute
	}
	if globalC.StatsInterval <= 0 {
		return 0
	}
	return time.Duration(globalC.StatsInterval) * time.Second
}

// MaxFrameSize 单帧请求体上限（字节）
func MaxFrameSize() int64 {
	if globalC == nil || globalC.MaxFrameSize <= 0 {
		return 8 * 1024 * 1024
	}
	return int64(globalC.MaxFrameSize) * 1024
}

// GetTLSConfig 获取TLSConfig
func GetTLSConfig() *TLSConfig {
	if globalC == nil {
		return nil
	}
	return globalC.TLS
}

// LoadLayoutProvider 加载打包计划提供者
func LoadLayoutProvider(providers ...Provider) Provider {
	if globalC == nil {
		return LoadProvider(nil, providers...)
	}
	return LoadProvider(globalC.Layout, providers...)
}
