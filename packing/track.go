// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package packing 构建 OMAF 视口提取器轨道：
// 按 tile 合并布局把源流的 tile 映射到目标画面，生成每个 tile 的构造器对.
package packing

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/media"
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/scvp"
	"github.com/cnotch/omafpack/stats"
	"github.com/cnotch/xlog"
)

// StreamSource 以流标识为键的源流集合
type StreamSource interface {
	Source(id uint8) (media.Source, bool)
	Ids() []uint8
}

var scratches = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 4*1024)
		return &b
	},
}

// ExtractorTrack 一个视口的提取器轨道.
// 所有公开方法都持有同一把锁，调用串行执行.
type ExtractorTrack struct {
	l           sync.Mutex
	startOn     time.Time
	viewportIdx uint8
	projType    omaf.ProjectionFormat
	streams     StreamSource
	gen         scvp.Generator

	layout     *omaf.TileLayout
	extractors map[uint16]*Extractor
	handles    map[uint8]scvp.Handle
	dstWidth   uint32
	dstHeight  uint32

	vps     *hevc.Nalu
	sps     *hevc.Nalu
	pps     *hevc.Nalu
	projSEI *hevc.Nalu
	rwpkSEI *hevc.Nalu

	dstRwpk *omaf.RegionWisePacking
	dstCovi *omaf.ContentCoverage

	processedFrames uint64
	framesReady     bool
	flow            stats.Flow
	logger          *xlog.Logger
}

// NewExtractorTrack 创建视口 viewportIdx 的提取器轨道
func NewExtractorTrack(viewportIdx uint8, streams StreamSource, projType omaf.ProjectionFormat,
	gen scvp.Generator, options ...Option) *ExtractorTrack {
	t := &ExtractorTrack{
		startOn:     time.Now(),
		viewportIdx: viewportIdx,
		projType:    projType,
		streams:     streams,
		gen:         gen,
		extractors:  make(map[uint16]*Extractor),
		handles:     make(map[uint8]scvp.Handle),
		vps:         emptyNalu(),
		sps:         emptyNalu(),
		pps:         emptyNalu(),
		projSEI:     emptyNalu(),
		rwpkSEI:     emptyNalu(),
		logger:      xlog.L().With(xlog.Fields(xlog.F("viewport", viewportIdx))),
	}

	for _, option := range options {
		option.apply(t)
	}

	if t.flow == nil {
		t.flow = stats.NewFlow()
	}
	return t
}

func emptyNalu() *hevc.Nalu {
	return &hevc.Nalu{SeiPayloadType: -1}
}

// ViewportIdx 视口序号
func (t *ExtractorTrack) ViewportIdx() uint8 {
	return t.viewportIdx
}

// SetTileLayout 设置 tile 合并布局.
// 已有提取器时布局的列数与每列 tile 数必须不变，否则先调用 DestroyExtractors.
// 同形状替换可以引入新的流，下一次更新时为该流创建句柄.
func (t *ExtractorTrack) SetTileLayout(layout *omaf.TileLayout) error {
	if layout == nil {
		return ErrNullPointer
	}
	if err := layout.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	t.l.Lock()
	defer t.l.Unlock()
	if len(t.extractors) > 0 && !t.layout.SameShape(layout) {
		return fmt.Errorf("%w: tile layout shape changed, destroy extractors first", ErrInvalidData)
	}
	t.layout = layout.Clone()
	return nil
}

// TileLayout 当前布局的拷贝
func (t *ExtractorTrack) TileLayout() *omaf.TileLayout {
	t.l.Lock()
	defer t.l.Unlock()
	if t.layout == nil {
		return nil
	}
	return t.layout.Clone()
}

// ConstructExtractors 每帧调用：没有提取器时按布局生成，否则原地更新.
func (t *ExtractorTrack) ConstructExtractors() (err error) {
	t.l.Lock()
	defer t.l.Unlock()

	if len(t.extractors) == 0 {
		err = t.generate()
	} else {
		err = t.update()
	}

	if err != nil {
		t.flow.AddFailure()
		return
	}
	t.processedFrames++
	t.framesReady = false
	return
}

// 按列优先顺序遍历布局，为每个 tile 生成提取器.
// 单个 tile 失败时只丢弃该 tile 的中间结果，之前已提交的 tile 保留.
func (t *ExtractorTrack) generate() error {
	if t.layout == nil {
		return ErrNullPointer
	}

	var out int64
	err := t.layout.Each(func(idx uint16, tile omaf.Tile) error {
		src, nalu, err := t.resolve(tile)
		if err != nil {
			return err
		}

		handle, err := t.handle(tile.StreamIdx, src)
		if err != nil {
			return err
		}

		params := src.CodecParams()
		if idx == 0 && (t.dstWidth == 0 || t.dstHeight == 0) {
			t.dstWidth, t.dstHeight = params.DestWidth, params.DestHeight
		}
		if t.dstWidth == 0 || t.dstHeight == 0 {
			return fmt.Errorf("%w: destination size is %dx%d", ErrInvalidData, t.dstWidth, t.dstHeight)
		}

		inline := newInlineConstructor()
		sample := newSampleConstructor(tile)
		if err = t.refresh(inline, sample, &params, tile, nalu, handle); err != nil {
			return fmt.Errorf("tile %d: %w", idx, err)
		}

		t.extractors[idx] = &Extractor{TileIdx: idx, Inline: inline, Sample: sample}
		out += int64(inline.Length)
		return nil
	})

	if err != nil {
		t.logger.Errorf("generate extractors failed, %d committed; %v", len(t.extractors), err)
		return err
	}

	t.flow.AddOut(out)
	if t.logger.LevelEnabled(xlog.DebugLevel) {
		t.logger.Debugf("generate %d extractors, dst %dx%d", len(t.extractors), t.dstWidth, t.dstHeight)
	}
	return nil
}

// 布局的 tile 数与已有提取器必须一致，检查通过后才开始刷新.
func (t *ExtractorTrack) update() error {
	if t.layout == nil {
		return ErrNullPointer
	}

	count := t.layout.Count()
	if count != len(t.extractors) {
		return fmt.Errorf("%w: layout has %d tiles, track has %d extractors",
			ErrExtractorNotFound, count, len(t.extractors))
	}
	for idx := 0; idx < count; idx++ {
		if _, ok := t.extractors[uint16(idx)]; !ok {
			return fmt.Errorf("%w: tile %d", ErrExtractorNotFound, idx)
		}
	}

	var out int64
	err := t.layout.Each(func(idx uint16, tile omaf.Tile) error {
		extractor := t.extractors[idx]
		src, nalu, err := t.resolve(tile)
		if err != nil {
			return err
		}

		handle, err := t.handle(tile.StreamIdx, src)
		if err != nil {
			return err
		}

		params := src.CodecParams()
		if err = t.refresh(extractor.Inline, extractor.Sample, &params, tile, nalu, handle); err != nil {
			return fmt.Errorf("tile %d: %w", idx, err)
		}
		out += int64(extractor.Inline.Length)
		return nil
	})

	if err != nil {
		t.logger.Errorf("update extractors failed; %v", err)
		return err
	}
	t.flow.AddOut(out)
	return nil
}

// 找到 tile 所在的流和当前帧中对应的编码数据
func (t *ExtractorTrack) resolve(tile omaf.Tile) (media.Source, *hevc.Nalu, error) {
	src, ok := t.streams.Source(tile.StreamIdx)
	if !ok || src == nil {
		return nil, nil, fmt.Errorf("%w: stream %d", ErrStreamNotFound, tile.StreamIdx)
	}

	tiles := src.Tiles()
	if int(tile.OrigTileIdx) >= len(tiles) {
		return nil, nil, fmt.Errorf("%w: stream %d has %d tiles, want tile %d",
			ErrInvalidData, tile.StreamIdx, len(tiles), tile.OrigTileIdx)
	}

	nalu := tiles[tile.OrigTileIdx].Nalu
	if nalu.Empty() || nalu.StartCodesSize == 0 || nalu.Size() < hevc.StartCodesLen {
		return nil, nil, fmt.Errorf("%w: stream %d tile %d has no coded data",
			ErrInvalidData, tile.StreamIdx, tile.OrigTileIdx)
	}
	return src, nalu, nil
}

// 每个流至多一个句柄，首次遇到时基于流的句柄创建，之后一直复用
func (t *ExtractorTrack) handle(streamIdx uint8, src media.Source) (scvp.Handle, error) {
	if h, ok := t.handles[streamIdx]; ok {
		return h, nil
	}

	parent := src.CodecHandle()
	if parent == nil {
		return nil, fmt.Errorf("%w: stream %d has no codec handle", ErrNullPointer, streamIdx)
	}
	h, err := t.gen.New(parent)
	if err != nil {
		return nil, fmt.Errorf("%w: new handle for stream %d; %v", ErrScvpProcessFailed, streamIdx, err)
	}
	t.handles[streamIdx] = h
	return h, nil
}

// refresh 生成目标图像片头并写入构造器对，失败时构造器保持原样.
func (t *ExtractorTrack) refresh(inline *InlineConstructor, sample *SampleConstructor,
	params *scvp.Params, tile omaf.Tile, nalu *hevc.Nalu, handle scvp.Handle) error {
	params.DestWidth = t.dstWidth
	params.DestHeight = t.dstHeight

	// 拷贝到临时缓冲，并统一为 4 字节起始码；3 字节起始码的拷贝因此多出一个字节
	bp := scratches.Get().(*[]byte)
	defer scratches.Put(bp)
	scratch := append((*bp)[:0], 0, 0, 0, 1)
	scratch = append(scratch, nalu.Data[nalu.StartCodesSize:]...)
	*bp = scratch

	params.InputBitstream = scratch
	params.InputSliceHeaderLen = nalu.SliceHeaderLen

	var header [InlineCapacity]byte
	n, err := t.gen.GenerateSliceHeader(*params, tile.DstCTUIndex, handle, header[:])
	params.InputBitstream = nil
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScvpOperationFailed, err)
	}
	if n <= 0 || n > len(header) {
		return fmt.Errorf("%w: generated header length %d", ErrScvpProcessFailed, n)
	}

	next := *sample
	next.StreamIdx = tile.StreamIdx
	next.TrackRefIndex = tile.OrigTileIdx
	if err = next.fill(nalu); err != nil {
		return err
	}
	if err = inline.fill(header[:n]); err != nil {
		return err
	}
	*sample = next
	return nil
}

// DestroyExtractors 释放全部提取器，保留目标画面尺寸和生成器句柄.
func (t *ExtractorTrack) DestroyExtractors() error {
	t.l.Lock()
	defer t.l.Unlock()

	for idx := range t.extractors {
		delete(t.extractors, idx)
	}
	t.framesReady = false
	return nil
}

// Extractors 按 tile 序号排序的提取器深拷贝
func (t *ExtractorTrack) Extractors() []*Extractor {
	t.l.Lock()
	defer t.l.Unlock()

	list := make([]*Extractor, 0, len(t.extractors))
	for _, e := range t.extractors {
		list = append(list, e.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].TileIdx < list[j].TileIdx
	})
	return list
}

// ExtractorCount 提取器数量
func (t *ExtractorTrack) ExtractorCount() int {
	t.l.Lock()
	defer t.l.Unlock()
	return len(t.extractors)
}

// HandleCount 已创建的生成器句柄数
func (t *ExtractorTrack) HandleCount() int {
	t.l.Lock()
	defer t.l.Unlock()
	return len(t.handles)
}

// DstSize 锁定的目标画面尺寸，0 表示尚未确定
func (t *ExtractorTrack) DstSize() (width, height uint32) {
	t.l.Lock()
	defer t.l.Unlock()
	return t.dstWidth, t.dstHeight
}

// ProcessedFrames 成功构造的帧数
func (t *ExtractorTrack) ProcessedFrames() uint64 {
	t.l.Lock()
	defer t.l.Unlock()
	return t.processedFrames
}

// MarkFramesReady 由封装器在取走当前帧的构造器后调用
func (t *ExtractorTrack) MarkFramesReady() {
	t.l.Lock()
	t.framesReady = true
	t.l.Unlock()
}

// FramesReady 当前帧是否已被取走
func (t *ExtractorTrack) FramesReady() bool {
	t.l.Lock()
	defer t.l.Unlock()
	return t.framesReady
}

// SetDstRwpk 设置目标区域打包描述，已生成的 RWPK SEI 不受影响
func (t *ExtractorTrack) SetDstRwpk(rwpk *omaf.RegionWisePacking) {
	t.l.Lock()
	defer t.l.Unlock()
	t.dstRwpk = rwpk.Clone()
}

// SetDstCovi 设置目标内容覆盖描述
func (t *ExtractorTrack) SetDstCovi(covi *omaf.ContentCoverage) {
	t.l.Lock()
	defer t.l.Unlock()
	t.dstCovi = covi.Clone()
}

// DstCovi 目标内容覆盖描述的拷贝
func (t *ExtractorTrack) DstCovi() *omaf.ContentCoverage {
	t.l.Lock()
	defer t.l.Unlock()
	return t.dstCovi.Clone()
}

// Close 释放全部生成器句柄.
// 某个句柄释放失败时记录日志并继续，最后返回第一个错误.
func (t *ExtractorTrack) Close() error {
	t.l.Lock()
	defer t.l.Unlock()

	var first error
	for streamIdx, h := range t.handles {
		if err := t.gen.Destroy(h); err != nil {
			t.logger.Errorf("destroy codec handle of stream %d failed; %v", streamIdx, err)
			if first == nil {
				first = fmt.Errorf("%w: stream %d; %v", ErrScvpProcessFailed, streamIdx, err)
			}
		}
		delete(t.handles, streamIdx)
	}

	for idx := range t.extractors {
		delete(t.extractors, idx)
	}
	t.framesReady = false
	return first
}

// TrackInfo 提取器轨道信息
type TrackInfo struct {
	StartOn         string                `json:"start_on"`
	ViewportIdx     uint8                 `json:"viewport"`
	Projection      omaf.ProjectionFormat `json:"projection"`
	Width           uint32                `json:"width"`
	Height          uint32                `json:"height"`
	Tiles           int                   `json:"tiles"`
	Extractors      int                   `json:"extractors"`
	Handles         int                   `json:"handles"`
	Streams         []uint8               `json:"streams,omitempty"`
	ProcessedFrames uint64                `json:"processed_frames"`
	FramesReady     bool                  `json:"frames_ready"`
	Flow            stats.FlowSample      `json:"flow"`
}

// Info 获取轨道信息
func (t *ExtractorTrack) Info() *TrackInfo {
	t.l.Lock()
	defer t.l.Unlock()

	return &TrackInfo{
		StartOn:         t.startOn.Format(time.RFC3339Nano),
		ViewportIdx:     t.viewportIdx,
		Projection:      t.projType,
		Width:           t.dstWidth,
		Height:          t.dstHeight,
		Tiles:           t.layout.Count(),
		Extractors:      len(t.extractors),
		Handles:         len(t.handles),
		Streams:         t.layout.Streams(),
		ProcessedFrames: t.processedFrames,
		FramesReady:     t.framesReady,
		Flow:            t.flow.GetSample(),
	}
}
