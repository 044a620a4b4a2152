// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"

	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/media"
	"github.com/cnotch/omafpack/packing"
)

// ErrQueueFull 帧事件队列已满
var ErrQueueFull = errors.New("frame queue is full")

// frameEvent 源流的一帧，由处理例程写入流并驱动提取器构造
type frameEvent struct {
	streamID uint8
	tiles    []media.TileInfo
	vps      *hevc.Nalu
	sps      *hevc.Nalu
	pps      *hevc.Nalu
}

// Pending 等待处理的帧事件数
func (s *Service) Pending() int {
	return int(atomic.LoadInt32(&s.pending))
}

// enqueue 把帧事件放入队列，超过队列长度时拒绝
func (s *Service) enqueue(ev *frameEvent) error {
	if atomic.AddInt32(&s.pending, 1) > s.queueSize {
		atomic.AddInt32(&s.pending, -1)
		return ErrQueueFull
	}
	s.frames.Push(ev)
	return nil
}

func (s *Service) process(ctx context.Context) {
	defer func() {
		defer func() { // 避免 handler 再 panic
			recover()
		}()

		if r := recover(); r != nil {
			s.logger.Errorf("packing routine panic；r = %v \n %s", r, debug.Stack())
		}

		// 尽早通知GC，回收内存
		s.frames.Reset()
	}()

	for ctx.Err() == nil {
		e := s.frames.Pop()
		if e == nil {
			continue
		}
		ev, ok := e.(*frameEvent)
		if !ok || ev == nil {
			continue
		}

		atomic.AddInt32(&s.pending, -1)
		s.handleFrame(ev)
	}
}

// handleFrame 写入源流，再为引用该流的每个轨道构造提取器
func (s *Service) handleFrame(ev *frameEvent) {
	stream := s.streams.Get(ev.streamID)
	if stream == nil {
		s.warnf("stream %d not found, frame dropped", ev.streamID)
		return
	}

	stream.SetParameterSets(ev.vps, ev.sps, ev.pps)
	if err := stream.WriteFrame(ev.tiles); err != nil {
		s.warnf("write frame to stream %d failed; %v", ev.streamID, err)
		return
	}

	s.packL.Lock()
	defer s.packL.Unlock()

	vps, sps, pps := stream.ParameterSets()
	for idx, t := range s.tracks {
		if !references(t, ev.streamID) {
			continue
		}

		if !t.ParameterSetsReady() {
			setParameterSet(t.SetVPS, vps)
			setParameterSet(t.SetSPS, sps)
			setParameterSet(t.SetPPS, pps)
		}

		// 引用的每个流都送达当前帧后只构造一次
		got := s.arrived[idx]
		got[ev.streamID] = true
		if !allArrived(t, got) {
			s.logger.Debugf("track %d waits for frames of all its streams", idx)
			continue
		}
		s.resetArrived(idx)

		if err := t.ConstructExtractors(); err != nil {
			s.warnf("construct extractors of track %d failed; %v", idx, err)
		}
	}
}

// 参数集只在轨道首次获得时设置，已设置时忽略
func setParameterSet(set func(*hevc.Nalu) error, nalu *hevc.Nalu) {
	if nalu.Empty() {
		return
	}
	set(nalu)
}

func references(t *packing.ExtractorTrack, streamID uint8) bool {
	for _, id := range t.TileLayout().Streams() {
		if id == streamID {
			return true
		}
	}
	return false
}

// allArrived 轨道布局引用的流是否都已送达当前帧
func allArrived(t *packing.ExtractorTrack, got map[uint8]bool) bool {
	for _, id := range t.TileLayout().Streams() {
		if !got[id] {
			return false
		}
	}
	return true
}

// resetArrived 清空轨道的到达记录，调用方持有 packL
func (s *Service) resetArrived(idx uint8) {
	got := s.arrived[idx]
	for id := range got {
		delete(got, id)
	}
}

func (s *Service) warnf(format string, args ...interface{}) {
	if s.warns.Limit() {
		return
	}
	s.logger.Warnf(format, args...)
}
