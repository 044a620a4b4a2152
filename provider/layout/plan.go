// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package layout

import (
	"errors"
	"fmt"

	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/scvp"
)

// 错误定义
var (
	ErrDuplicateStream   = errors.New("layout: duplicate stream id")
	ErrDuplicateViewport = errors.New("layout: duplicate viewport index")
	ErrUnknownStream     = errors.New("layout: viewport references unknown stream")
)

// StreamDef 源流定义
type StreamDef struct {
	ID         uint8                 `json:"id"`
	Projection omaf.ProjectionFormat `json:"projection"`
	Params     scvp.Params           `json:"params"`
}

// ViewportDef 视口提取器轨道定义
type ViewportDef struct {
	Index      uint8                   `json:"index"`
	Projection omaf.ProjectionFormat   `json:"projection"`
	Layout     *omaf.TileLayout        `json:"layout"`
	Rwpk       *omaf.RegionWisePacking `json:"rwpk,omitempty"`
	Covi       *omaf.ContentCoverage   `json:"covi,omitempty"`
}

// Clone 深拷贝
func (v *ViewportDef) Clone() *ViewportDef {
	c := *v
	c.Layout = v.Layout.Clone()
	c.Rwpk = v.Rwpk.Clone()
	c.Covi = v.Covi.Clone()
	return &c
}

// Plan 打包计划：源流与视口
type Plan struct {
	Streams   []*StreamDef   `json:"streams"`
	Viewports []*ViewportDef `json:"viewports"`
}

// Clone 深拷贝
func (p *Plan) Clone() *Plan {
	c := &Plan{
		Streams:   make([]*StreamDef, len(p.Streams)),
		Viewports: make([]*ViewportDef, len(p.Viewports)),
	}
	for i, s := range p.Streams {
		sc := *s
		c.Streams[i] = &sc
	}
	for i, v := range p.Viewports {
		c.Viewports[i] = v.Clone()
	}
	return c
}

// Stream 获取指定标识的源流定义
func (p *Plan) Stream(id uint8) *StreamDef {
	for _, s := range p.Streams {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Viewport 获取指定序号的视口定义
func (p *Plan) Viewport(index uint8) *ViewportDef {
	for _, v := range p.Viewports {
		if v.Index == index {
			return v
		}
	}
	return nil
}

// Validate 校验标识唯一以及布局只引用已定义的流
func (p *Plan) Validate() error {
	streams := make(map[uint8]bool, len(p.Streams))
	for _, s := range p.Streams {
		if streams[s.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateStream, s.ID)
		}
		streams[s.ID] = true
	}

	viewports := make(map[uint8]bool, len(p.Viewports))
	for _, v := range p.Viewports {
		if viewports[v.Index] {
			return fmt.Errorf("%w: %d", ErrDuplicateViewport, v.Index)
		}
		viewports[v.Index] = true

		if err := p.validateViewport(v, streams); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plan) validateViewport(v *ViewportDef, streams map[uint8]bool) error {
	if err := v.Layout.Validate(); err != nil {
		return fmt.Errorf("viewport %d: %w", v.Index, err)
	}
	for _, id := range v.Layout.Streams() {
		if !streams[id] {
			return fmt.Errorf("%w: viewport %d, stream %d", ErrUnknownStream, v.Index, id)
		}
	}
	return nil
}

// Provider 打包计划提供者
type Provider interface {
	Load() (*Plan, error)
	Save(plan *Plan) error
}
