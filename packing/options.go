// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package packing

import (
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/stats"
)

// Option 配置 ExtractorTrack 的选项接口
type Option interface {
	apply(*ExtractorTrack)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*ExtractorTrack)

func (f optionFunc) apply(t *ExtractorTrack) {
	f(t)
}

// Layout tile 合并布局选项
func Layout(layout *omaf.TileLayout) Option {
	return optionFunc(func(t *ExtractorTrack) {
		t.layout = layout.Clone()
	})
}

// DstRwpk 目标区域打包选项
func DstRwpk(rwpk *omaf.RegionWisePacking) Option {
	return optionFunc(func(t *ExtractorTrack) {
		t.dstRwpk = rwpk.Clone()
	})
}

// DstCovi 目标内容覆盖选项
func DstCovi(covi *omaf.ContentCoverage) Option {
	return optionFunc(func(t *ExtractorTrack) {
		t.dstCovi = covi.Clone()
	})
}

// Flow 统计选项
func Flow(flow stats.Flow) Option {
	return optionFunc(func(t *ExtractorTrack) {
		t.flow = flow
	})
}
