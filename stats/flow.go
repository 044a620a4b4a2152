// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync/atomic"
)

// Total 全部源流的汇总统计
var Total = NewFlow()

// FlowSample 打包统计采样
type FlowSample struct {
	Frames   int64 `json:"frames"`   // 接收的帧数
	InBytes  int64 `json:"inbytes"`  // 接收的 tile 编码数据
	OutBytes int64 `json:"outbytes"` // 生成的内联构造器数据
	Failures int64 `json:"failures"` // 构造失败次数
}

// Flow 打包统计接口
type Flow interface {
	AddIn(frames, size int64) // 增加输入
	AddOut(size int64)        // 增加输出
	AddFailure()              // 增加失败计数
	GetSample() FlowSample    // 获取当前时点采样
}

func (fs *FlowSample) clone() FlowSample {
	return FlowSample{
		Frames:   atomic.LoadInt64(&fs.Frames),
		InBytes:  atomic.LoadInt64(&fs.InBytes),
		OutBytes: atomic.LoadInt64(&fs.OutBytes),
		Failures: atomic.LoadInt64(&fs.Failures),
	}
}

// Add 采样累加
func (fs *FlowSample) Add(f FlowSample) {
	fs.Frames += f.Frames
	fs.InBytes += f.InBytes
	fs.OutBytes += f.OutBytes
	fs.Failures += f.Failures
}

// Sub 采样相减，用于计算周期增量
func (fs FlowSample) Sub(prev FlowSample) FlowSample {
	return FlowSample{
		Frames:   fs.Frames - prev.Frames,
		InBytes:  fs.InBytes - prev.InBytes,
		OutBytes: fs.OutBytes - prev.OutBytes,
		Failures: fs.Failures - prev.Failures,
	}
}

type flow struct {
	sample FlowSample
}

// NewFlow 创建打包统计
func NewFlow() Flow {
	return &flow{}
}

func (r *flow) AddIn(frames, size int64) {
	atomic.AddInt64(&r.sample.Frames, frames)
	atomic.AddInt64(&r.sample.InBytes, size)
}

func (r *flow) AddOut(size int64) {
	atomic.AddInt64(&r.sample.OutBytes, size)
}

func (r *flow) AddFailure() {
	atomic.AddInt64(&r.sample.Failures, 1)
}

func (r *flow) GetSample() FlowSample {
	return r.sample.clone()
}

type childFlow struct {
	parent Flow
	sample FlowSample
}

// NewChildFlow 创建子统计，它会把自己的计数Add到parent上
func NewChildFlow(parent Flow) Flow {
	return &childFlow{
		parent: parent,
	}
}

func (r *childFlow) AddIn(frames, size int64) {
	atomic.AddInt64(&r.sample.Frames, frames)
	atomic.AddInt64(&r.sample.InBytes, size)
	r.parent.AddIn(frames, size)
}

func (r *childFlow) AddOut(size int64) {
	atomic.AddInt64(&r.sample.OutBytes, size)
	r.parent.AddOut(size)
}

func (r *childFlow) AddFailure() {
	atomic.AddInt64(&r.sample.Failures, 1)
	r.parent.AddFailure()
}

func (r *childFlow) GetSample() FlowSample {
	return r.sample.clone()
}
