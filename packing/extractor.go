// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package packing

import (
	"fmt"

	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/utils"
)

// InlineCapacity 内联构造器缓冲的固定容量
const InlineCapacity = 256

// lengthPlaceholder 样本长度占位，由封装器替换为真实长度
var lengthPlaceholder = []byte{0xff, 0xff, 0xff, 0xff}

// InlineConstructor 内联构造器：原样输出到样本中的字节.
// Data 以 4 字节长度占位 FF FF FF FF 开头，随后是去掉起始码的 NAL 头和图像片头.
type InlineConstructor struct {
	Data   []byte `json:"data"`
	Length uint32 `json:"length"`
}

func newInlineConstructor() *InlineConstructor {
	c := &InlineConstructor{Data: make([]byte, 0, InlineCapacity)}
	c.Data = append(c.Data, lengthPlaceholder...)
	c.Length = uint32(len(c.Data))
	return c
}

// fill 用生成的 NALU 头刷新内容，不重新分配缓冲.
func (c *InlineConstructor) fill(header []byte) error {
	scLen := utils.NaluSeparatorLen(header)
	if scLen == 0 {
		return fmt.Errorf("%w: generated header has no start code", ErrScvpProcessFailed)
	}

	length := hevc.SampleLenFieldSize + len(header) - scLen
	if length > cap(c.Data) {
		return fmt.Errorf("%w: inline constructor overflow, %d bytes", ErrInvalidData, length)
	}

	c.Data = append(c.Data[:0], lengthPlaceholder...)
	c.Data = append(c.Data, header[scLen:]...)
	c.Length = uint32(length)
	return nil
}

func (c *InlineConstructor) clone() *InlineConstructor {
	data := make([]byte, len(c.Data), InlineCapacity)
	copy(data, c.Data)
	return &InlineConstructor{Data: data, Length: c.Length}
}

// SampleConstructor 样本构造器：从被引用轨道的样本中拷贝的字节范围.
type SampleConstructor struct {
	StreamIdx     uint8  `json:"stream"`
	TrackRefIndex uint16 `json:"track_ref_index"` // 初始为源 tile 序号，由封装器改写为真实轨道
	SampleOffset  int8   `json:"sample_offset"`
	DataOffset    uint32 `json:"data_offset"`
	DataLength    uint32 `json:"data_length"`
}

func newSampleConstructor(tile omaf.Tile) *SampleConstructor {
	return &SampleConstructor{
		StreamIdx:     tile.StreamIdx,
		TrackRefIndex: tile.OrigTileIdx,
	}
}

// fill 跳过长度字段、NAL 头和图像片头，指向图像片数据.
func (c *SampleConstructor) fill(nalu *hevc.Nalu) error {
	skip := uint64(nalu.StartCodesSize) + hevc.NaluHeaderLen + uint64(nalu.SliceHeaderLen)
	if uint64(nalu.Size()) < skip {
		return fmt.Errorf("%w: tile nalu size %d < %d", ErrInvalidData, nalu.Size(), skip)
	}

	c.SampleOffset = 0
	c.DataOffset = hevc.SampleLenFieldSize + hevc.NaluHeaderLen + nalu.SliceHeaderLen
	c.DataLength = nalu.Size() - uint32(skip)
	return nil
}

// Extractor 一个目标 tile 的构造器对
type Extractor struct {
	TileIdx uint16             `json:"tile_idx"`
	Inline  *InlineConstructor `json:"inline"`
	Sample  *SampleConstructor `json:"sample"`
}

// Clone 深拷贝
func (e *Extractor) Clone() *Extractor {
	sample := *e.Sample
	return &Extractor{
		TileIdx: e.TileIdx,
		Inline:  e.Inline.clone(),
		Sample:  &sample,
	}
}
