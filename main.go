// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"

	"github.com/cnotch/omafpack/config"
	"github.com/cnotch/omafpack/provider/layout"
	"github.com/cnotch/omafpack/service"
	"github.com/cnotch/scheduler"
	"github.com/cnotch/xlog"
)

func main() {
	// 初始化配置
	config.InitConfig()
	// 初始化全局计划任务
	scheduler.SetPanicHandler(func(job *scheduler.ManagedJob, r interface{}) {
		xlog.Errorf("scheduler task panic. tag: %v, recover: %v", job.Tag, r)
	})

	// 打包计划提供者
	layoutProvider := config.LoadLayoutProvider(layout.JSON, layout.Memory)
	if err := layout.Reset(layoutProvider.(layout.Provider)); err != nil {
		xlog.L().Panic(err.Error())
	}

	// Start new service
	svc, err := service.NewService(context.Background(), xlog.L())
	if err != nil {
		xlog.L().Panic(err.Error())
	}

	// Listen and serve
	if err := svc.Listen(); err != nil {
		xlog.L().Error(err.Error())
	}
}
