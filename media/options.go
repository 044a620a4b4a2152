// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/scvp"
	"github.com/cnotch/omafpack/stats"
)

// Option 配置 VideoStream 的选项接口
type Option interface {
	apply(*VideoStream)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*VideoStream)

func (f optionFunc) apply(s *VideoStream) {
	f(s)
}

// Projection 投影格式选项
func Projection(pf omaf.ProjectionFormat) Option {
	return optionFunc(func(s *VideoStream) {
		s.projFormat = pf
	})
}

// CodecHandle 生成器句柄选项
func CodecHandle(h scvp.Handle) Option {
	return optionFunc(func(s *VideoStream) {
		s.handle = h
	})
}

// Flow 流量统计选项
func Flow(flow stats.Flow) Option {
	return optionFunc(func(s *VideoStream) {
		s.flow = flow
	})
}
