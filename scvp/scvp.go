// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scvp 定义视口相关 tile 合并所需的码流生成接口：
// 目标图像片头重写、投影 SEI 与区域打包 SEI 生成.
package scvp

import (
	"errors"

	"github.com/cnotch/omafpack/omaf"
)

// 错误定义
var (
	ErrInvalidHandle  = errors.New("scvp: invalid or destroyed handle")
	ErrBufferTooSmall = errors.New("scvp: output buffer is too small")
	ErrMalformedSlice = errors.New("scvp: malformed slice segment")
	ErrUnknownKind    = errors.New("scvp: unknown projection kind")
	ErrTooManyRegions = errors.New("scvp: too many packed regions")
)

// Handle 生成器上下文句柄，对调用方不透明
type Handle interface{}

// ProjectionKind 投影 SEI 的类型
type ProjectionKind int

// 投影 SEI 类型
const (
	EquirectProjection ProjectionKind = iota
	CubemapProjection
)

// Params 单次生成调用的参数.
// 它是值类型，每次调用单独构造，不在 tile 之间共享.
type Params struct {
	SrcWidth               uint32 `json:"src_width"`
	SrcHeight              uint32 `json:"src_height"`
	DestWidth              uint32 `json:"dest_width"`
	DestHeight             uint32 `json:"dest_height"`
	CTUSize                uint32 `json:"ctu_size"`
	DependentSliceSegments bool   `json:"dependent_slice_segments,omitempty"`

	InputBitstream      []byte `json:"-"` // 以 00 00 00 01 开头的图像片 NALU
	InputSliceHeaderLen uint32 `json:"-"` // 输入图像片头的字节长度
}

// Generator 码流生成器
type Generator interface {
	// New 基于流的句柄创建独立的上下文
	New(parent Handle) (Handle, error)
	// GenerateSliceHeader 生成目标位置 ctuAddr 的 NALU 头（起始码 + NAL 头 + 图像片头），写入 out，返回长度
	GenerateSliceHeader(params Params, ctuAddr uint16, h Handle, out []byte) (int, error)
	// GenerateProjection 生成投影 SEI NALU，写入 out，返回长度
	GenerateProjection(h Handle, kind ProjectionKind, out []byte) (int, error)
	// GenerateRwpk 生成区域打包 SEI NALU，写入 out，返回长度
	GenerateRwpk(h Handle, rwpk *omaf.RegionWisePacking, out []byte) (int, error)
	// Destroy 释放句柄
	Destroy(h Handle) error
}
