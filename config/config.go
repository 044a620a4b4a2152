// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
)

// config 服务配置
type config struct {
	ListenAddr    string          `json:"listen"`           // 服务侦听地址和端口
	Profile       bool            `json:"profile"`          // 是否启动Profile
	LocalOnly     bool            `json:"local_only"`       // 修改类 API 只允许本机访问
	QueueSize     int             `json:"queue_size"`       // 帧事件队列长度
	StatsInterval int             `json:"stats_interval"`   // 统计日志间隔（s），0 不输出
	MaxFrameSize  int             `json:"max_frame_size"`   // 单帧请求体上限（KB）
	TLS           *TLSConfig      `json:"tls,omitempty"`    // https安全端口交互
	Layout        *ProviderConfig `json:"layout,omitempty"` // 打包计划
	Log           LogConfig       `json:"log"`              // 日志配置
}

func (c *config) initFlags() {
	// 服务的端口
	flag.StringVar(&c.ListenAddr, "listen", ":8090", "Set server listen address")
	flag.BoolVar(&c.Profile, "pprof", false,
		"Determines if profile enabled")
	flag.BoolVar(&c.LocalOnly, "local-only", true,
		"Determines if modifying apis are restricted to local clients")
	flag.IntVar(&c.QueueSize, "queue-size", 256,
		"Set the maximum number of pending frames")
	flag.IntVar(&c.StatsInterval, "stats-interval", 60,
		"Set the interval in seconds of packing statistics logs")
	flag.IntVar(&c.MaxFrameSize, "max-frame-size", 8*1024,
		"Set the maximum size in kilobytes of a posted frame")

	// 初始化日志配置
	c.Log.initFlags()
}
