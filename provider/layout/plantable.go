// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package layout

import (
	"sort"
	"sync"

	"github.com/cnotch/xlog"
)

var globalT = &plantable{plan: &Plan{}}

func init() {
	// 默认为内存提供者，避免没有初始化全局函数调用问题
	globalT.Reset(&memProvider{})
}

// Reset 重置打包计划提供者
func Reset(provider Provider) error {
	return globalT.Reset(provider)
}

// Current 当前打包计划的拷贝
func Current() *Plan {
	return globalT.Current()
}

// Viewport 获取指定序号的视口定义
func Viewport(index uint8) *ViewportDef {
	return globalT.Viewport(index)
}

// SaveViewport 新增或替换视口定义
func SaveViewport(v *ViewportDef) error {
	return globalT.SaveViewport(v)
}

// Flush 把修改写回提供者
func Flush() error {
	return globalT.Flush()
}

type plantable struct {
	lock     sync.RWMutex
	plan     *Plan
	dirty    bool
	provider Provider
}

func (t *plantable) Reset(provider Provider) error {
	plan, err := provider.Load()
	if err != nil {
		return err
	}
	if plan == nil {
		plan = &Plan{}
	}
	if err := plan.Validate(); err != nil {
		xlog.Warnf("packing plan init failed: `%v`", err)
		return err
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	t.plan = plan
	t.dirty = false
	t.provider = provider
	return nil
}

func (t *plantable) Current() *Plan {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.plan.Clone()
}

func (t *plantable) Viewport(index uint8) *ViewportDef {
	t.lock.RLock()
	defer t.lock.RUnlock()

	v := t.plan.Viewport(index)
	if v == nil {
		return nil
	}
	return v.Clone()
}

func (t *plantable) SaveViewport(newv *ViewportDef) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	streams := make(map[uint8]bool, len(t.plan.Streams))
	for _, s := range t.plan.Streams {
		streams[s.ID] = true
	}
	if err := t.plan.validateViewport(newv, streams); err != nil {
		return err
	}

	newv = newv.Clone()
	for i, v := range t.plan.Viewports {
		if v.Index == newv.Index { // 更新
			t.plan.Viewports[i] = newv
			t.dirty = true
			return nil
		}
	}

	t.plan.Viewports = append(t.plan.Viewports, newv)
	sort.Slice(t.plan.Viewports, func(i, j int) bool {
		return t.plan.Viewports[i].Index < t.plan.Viewports[j].Index
	})
	t.dirty = true
	return nil
}

func (t *plantable) Flush() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.dirty {
		return nil
	}
	if err := t.provider.Save(t.plan); err != nil {
		return err
	}
	t.dirty = false
	return nil
}
