// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/scvp"
	"github.com/cnotch/omafpack/stats"
	"github.com/cnotch/xlog"
)

// 流状态
const (
	StreamOK       int32 = iota
	StreamClosed         // 源关闭
	StreamReplaced       // 流被替换
)

// 错误定义
var (
	// ErrStreamClosed 流被关闭
	ErrStreamClosed = errors.New("stream is closed")
	// ErrStreamReplaced 流被替换
	ErrStreamReplaced = errors.New("stream is replaced")
	// ErrTileCountChanged 帧的 tile 数与首帧不一致
	ErrTileCountChanged = errors.New("tile count of the frame is changed")
	// ErrEmptyTile tile 没有编码数据
	ErrEmptyTile = errors.New("tile has no coded data")
	statusErrors = []error{nil, ErrStreamClosed, ErrStreamReplaced}
)

// TileInfo 一帧中单个 tile 的编码数据与位置
type TileInfo struct {
	Nalu   *hevc.Nalu // 图像片 NALU，含起始码与图像片头长度
	Left   uint32     `json:"left"`
	Top    uint32     `json:"top"`
	Width  uint32     `json:"width"`
	Height uint32     `json:"height"`
}

// Source 打包引擎读取的源流视图
type Source interface {
	Tiles() []TileInfo
	CodecHandle() scvp.Handle
	CodecParams() scvp.Params
	ProjectionFormat() omaf.ProjectionFormat
}

// VideoStream tile 编码的全景视频流
type VideoStream struct {
	startOn    time.Time
	id         uint8
	projFormat omaf.ProjectionFormat
	handle     scvp.Handle
	status     int32
	frames     uint64 // 已接收帧数
	size       uint64 // 已接收字节
	flow       stats.Flow
	logger     *xlog.Logger

	l         sync.RWMutex
	params    scvp.Params
	tiles     []TileInfo
	tileCount int
	vps       *hevc.Nalu
	sps       *hevc.Nalu
	pps       *hevc.Nalu
}

var _ Source = (*VideoStream)(nil)

// NewVideoStream 创建新的视频流
func NewVideoStream(id uint8, params scvp.Params, options ...Option) *VideoStream {
	s := &VideoStream{
		startOn:    time.Now(),
		id:         id,
		projFormat: omaf.ProjectionERP,
		status:     StreamOK,
		params:     params,
		tileCount:  -1,
		logger:     xlog.L().With(xlog.Fields(xlog.F("stream", id))),
	}

	for _, option := range options {
		option.apply(s)
	}

	if s.flow == nil {
		s.flow = stats.NewFlow()
	}
	return s
}

// ID 流标识
func (s *VideoStream) ID() uint8 {
	return s.id
}

// Close 关闭流
func (s *VideoStream) Close() error {
	return s.close(StreamClosed)
}

func (s *VideoStream) close(status int32) error {
	if !atomic.CompareAndSwapInt32(&s.status, StreamOK, status) {
		return nil
	}

	s.l.Lock()
	s.tiles = nil
	s.l.Unlock()
	s.logger.Infof("stream closed, %d frames received", atomic.LoadUint64(&s.frames))
	return nil
}

// WriteFrame 写入一帧的全部 tile，替换上一帧.
// 首帧确定 tile 数，之后每帧必须相同.
func (s *VideoStream) WriteFrame(tiles []TileInfo) error {
	status := atomic.LoadInt32(&s.status)
	if status != StreamOK {
		return statusErrors[status]
	}

	var size uint64
	for i := range tiles {
		if tiles[i].Nalu.Empty() {
			return fmt.Errorf("%w: tile %d", ErrEmptyTile, i)
		}
		size += uint64(tiles[i].Nalu.Size())
	}

	frame := make([]TileInfo, len(tiles))
	copy(frame, tiles)

	s.l.Lock()
	if s.tileCount >= 0 && s.tileCount != len(frame) {
		s.l.Unlock()
		return fmt.Errorf("%w: want %d, got %d", ErrTileCountChanged, s.tileCount, len(frame))
	}
	s.tileCount = len(frame)
	s.tiles = frame
	s.l.Unlock()

	atomic.AddUint64(&s.frames, 1)
	atomic.AddUint64(&s.size, size)
	s.flow.AddIn(1, int64(size))
	return nil
}

// SetParameterSets 设置码流的 VPS/SPS/PPS，nil 保持原值
func (s *VideoStream) SetParameterSets(vps, sps, pps *hevc.Nalu) {
	s.l.Lock()
	defer s.l.Unlock()
	if vps != nil {
		s.vps = vps.Clone()
	}
	if sps != nil {
		s.sps = sps.Clone()
	}
	if pps != nil {
		s.pps = pps.Clone()
	}
}

// ParameterSets 获取码流的 VPS/SPS/PPS，未设置的返回 nil
func (s *VideoStream) ParameterSets() (vps, sps, pps *hevc.Nalu) {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.vps, s.sps, s.pps
}

// Tiles 当前帧的 tile 描述，调用方不可修改
func (s *VideoStream) Tiles() []TileInfo {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.tiles
}

// CodecHandle 流的生成器句柄
func (s *VideoStream) CodecHandle() scvp.Handle {
	return s.handle
}

// CodecParams 编码参数快照
func (s *VideoStream) CodecParams() scvp.Params {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.params
}

// SetCodecParams 更新编码参数
func (s *VideoStream) SetCodecParams(params scvp.Params) {
	s.l.Lock()
	s.params = params
	s.l.Unlock()
}

// ProjectionFormat 投影格式
func (s *VideoStream) ProjectionFormat() omaf.ProjectionFormat {
	return s.projFormat
}

// StreamInfo 流信息
type StreamInfo struct {
	StartOn    string                `json:"start_on"`
	ID         uint8                 `json:"id"`
	Projection omaf.ProjectionFormat `json:"projection"`
	Width      uint32                `json:"width"`
	Height     uint32                `json:"height"`
	Tiles      int                   `json:"tiles"`
	Frames     uint64                `json:"frames"`
	Size       int                   `json:"size"` // KB
	Closed     bool                  `json:"closed,omitempty"`
}

// Info 获取流信息
func (s *VideoStream) Info() *StreamInfo {
	s.l.RLock()
	tiles := s.tileCount
	params := s.params
	s.l.RUnlock()
	if tiles < 0 {
		tiles = 0
	}

	return &StreamInfo{
		StartOn:    s.startOn.Format(time.RFC3339Nano),
		ID:         s.id,
		Projection: s.projFormat,
		Width:      params.SrcWidth,
		Height:     params.SrcHeight,
		Tiles:      tiles,
		Frames:     atomic.LoadUint64(&s.frames),
		Size:       int(atomic.LoadUint64(&s.size) / 1024),
		Closed:     atomic.LoadInt32(&s.status) != StreamOK,
	}
}
