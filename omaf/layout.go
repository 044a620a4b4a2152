// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package omaf

import (
	"errors"
	"sort"
)

// ErrEmptyLayout 布局中没有任何 tile
var ErrEmptyLayout = errors.New("omaf: tile layout is empty")

// Tile 目标轨道中的一个 tile，指向某个源流的某个 tile
type Tile struct {
	StreamIdx   uint8  `json:"stream"`  // 源流编号
	OrigTileIdx uint16 `json:"tile"`    // 源流中的 tile 序号
	DstCTUIndex uint16 `json:"dst_ctu"` // 目标图像中的 CTU 地址
}

// TileColumn 一列 tile，自上而下
type TileColumn []Tile

// TileLayout 一个视口轨道的 tile 合并布局，列自左向右.
// 按列优先顺序为每个 tile 分配从 0 开始的连续序号.
type TileLayout struct {
	Columns []TileColumn `json:"columns"`
}

// Count tile 总数
func (l *TileLayout) Count() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, col := range l.Columns {
		n += len(col)
	}
	return n
}

// Each 按列优先顺序遍历 tile，fn 返回错误时终止遍历
func (l *TileLayout) Each(fn func(idx uint16, tile Tile) error) error {
	if l == nil {
		return nil
	}
	idx := uint16(0)
	for _, col := range l.Columns {
		for _, tile := range col {
			if err := fn(idx, tile); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}

// SameShape 两个布局的列数及每列 tile 数是否一致，即 tile 序号集合相同
func (l *TileLayout) SameShape(other *TileLayout) bool {
	if l == nil || other == nil {
		return l.Count() == other.Count()
	}
	if len(l.Columns) != len(other.Columns) {
		return false
	}
	for i, col := range l.Columns {
		if len(col) != len(other.Columns[i]) {
			return false
		}
	}
	return true
}

// Equal 两个布局是否完全一致
func (l *TileLayout) Equal(other *TileLayout) bool {
	if !l.SameShape(other) {
		return false
	}
	if l == nil || other == nil {
		return true
	}
	for i, col := range l.Columns {
		for j := range col {
			if col[j] != other.Columns[i][j] {
				return false
			}
		}
	}
	return true
}

// Streams 布局引用的源流编号，升序
func (l *TileLayout) Streams() []uint8 {
	seen := make(map[uint8]bool)
	var ids []uint8
	l.Each(func(_ uint16, tile Tile) error {
		if !seen[tile.StreamIdx] {
			seen[tile.StreamIdx] = true
			ids = append(ids, tile.StreamIdx)
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate 校验布局
func (l *TileLayout) Validate() error {
	if l.Count() == 0 {
		return ErrEmptyLayout
	}
	if l.Count() > 1<<16 {
		return errors.New("omaf: too many tiles in layout")
	}
	return nil
}

// Clone 深拷贝
func (l *TileLayout) Clone() *TileLayout {
	if l == nil {
		return nil
	}
	c := &TileLayout{Columns: make([]TileColumn, len(l.Columns))}
	for i, col := range l.Columns {
		c.Columns[i] = append(TileColumn(nil), col...)
	}
	return c
}
