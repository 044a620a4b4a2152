// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scvp

import (
	"sync"

	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/omaf"
)

type softHandle struct {
	id     uint64
	parent *softHandle
}

// Software 纯 Go 实现的生成器.
// 图像片头只重写地址相关的语法元素，其余比特原样保留.
type Software struct {
	l    sync.Mutex
	seq  uint64
	live map[*softHandle]struct{}
}

var _ Generator = (*Software)(nil)

// NewSoftware 创建软件生成器
func NewSoftware() *Software {
	return &Software{
		live: make(map[*softHandle]struct{}),
	}
}

// Open 为源流创建根句柄
func (s *Software) Open() Handle {
	return s.add(nil)
}

// Live 当前存活的句柄数
func (s *Software) Live() int {
	s.l.Lock()
	defer s.l.Unlock()
	return len(s.live)
}

func (s *Software) add(parent *softHandle) *softHandle {
	s.l.Lock()
	defer s.l.Unlock()
	s.seq++
	h := &softHandle{id: s.seq, parent: parent}
	s.live[h] = struct{}{}
	return h
}

func (s *Software) lookup(h Handle) (*softHandle, error) {
	sh, ok := h.(*softHandle)
	if !ok || sh == nil {
		return nil, ErrInvalidHandle
	}

	s.l.Lock()
	defer s.l.Unlock()
	if _, ok := s.live[sh]; !ok {
		return nil, ErrInvalidHandle
	}
	return sh, nil
}

// New 基于 parent 创建新的句柄
func (s *Software) New(parent Handle) (Handle, error) {
	p, err := s.lookup(parent)
	if err != nil {
		return nil, err
	}
	return s.add(p), nil
}

// Destroy 释放句柄
func (s *Software) Destroy(h Handle) error {
	sh, err := s.lookup(h)
	if err != nil {
		return err
	}

	s.l.Lock()
	delete(s.live, sh)
	s.l.Unlock()
	return nil
}

// GenerateSliceHeader 重写图像片头
func (s *Software) GenerateSliceHeader(params Params, ctuAddr uint16, h Handle, out []byte) (int, error) {
	if _, err := s.lookup(h); err != nil {
		return 0, err
	}
	return rewriteSliceHeader(&params, ctuAddr, out)
}

// GenerateProjection 生成投影 SEI
func (s *Software) GenerateProjection(h Handle, kind ProjectionKind, out []byte) (int, error) {
	if _, err := s.lookup(h); err != nil {
		return 0, err
	}

	switch kind {
	case EquirectProjection:
		return writeSei(hevc.SeiEquirectProjection, equirectPayload(), out)
	case CubemapProjection:
		return writeSei(hevc.SeiCubemapProjection, cubemapPayload(), out)
	default:
		return 0, ErrUnknownKind
	}
}

// GenerateRwpk 生成区域打包 SEI，rwpk 为 nil 时按空描述生成
func (s *Software) GenerateRwpk(h Handle, rwpk *omaf.RegionWisePacking, out []byte) (int, error) {
	if _, err := s.lookup(h); err != nil {
		return 0, err
	}
	if rwpk == nil {
		rwpk = &omaf.RegionWisePacking{}
	}
	if len(rwpk.Regions) > 255 {
		return 0, ErrTooManyRegions
	}
	return writeSei(hevc.SeiRegionWisePacking, rwpkPayload(rwpk), out)
}
