// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package packing

import (
	"github.com/cnotch/omafpack/av/codec/hevc"
)

// SetNalu 把 src 深拷贝到未填充的 dst.
// src 为空或 dst 已有数据时返回 ErrInvalidData，dst 保持不变.
func SetNalu(src, dst *hevc.Nalu) error {
	if src == nil || dst == nil {
		return ErrNullPointer
	}
	if src.Empty() || !dst.Empty() {
		return ErrInvalidData
	}

	data := make([]byte, len(src.Data))
	copy(data, src.Data)
	*dst = *src
	dst.Data = data
	return nil
}

// SetVPS 只能设置一次
func (t *ExtractorTrack) SetVPS(vps *hevc.Nalu) error {
	t.l.Lock()
	defer t.l.Unlock()
	return SetNalu(vps, t.vps)
}

// SetSPS 只能设置一次
func (t *ExtractorTrack) SetSPS(sps *hevc.Nalu) error {
	t.l.Lock()
	defer t.l.Unlock()
	return SetNalu(sps, t.sps)
}

// SetPPS 只能设置一次
func (t *ExtractorTrack) SetPPS(pps *hevc.Nalu) error {
	t.l.Lock()
	defer t.l.Unlock()
	return SetNalu(pps, t.pps)
}

// VPS 返回拷贝，未设置时为空 NALU
func (t *ExtractorTrack) VPS() *hevc.Nalu {
	t.l.Lock()
	defer t.l.Unlock()
	return t.vps.Clone()
}

// SPS 返回拷贝，未设置时为空 NALU
func (t *ExtractorTrack) SPS() *hevc.Nalu {
	t.l.Lock()
	defer t.l.Unlock()
	return t.sps.Clone()
}

// PPS 返回拷贝，未设置时为空 NALU
func (t *ExtractorTrack) PPS() *hevc.Nalu {
	t.l.Lock()
	defer t.l.Unlock()
	return t.pps.Clone()
}

// ParameterSetsReady VPS/SPS/PPS 是否都已设置
func (t *ExtractorTrack) ParameterSetsReady() bool {
	t.l.Lock()
	defer t.l.Unlock()
	return !t.vps.Empty() && !t.sps.Empty() && !t.pps.Empty()
}
