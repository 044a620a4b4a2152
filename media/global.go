// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"sort"
	"sync"
)

// Streams 以流标识为键的流集合
type Streams struct {
	l sync.RWMutex
	m map[uint8]*VideoStream
}

// NewStreams 创建流集合
func NewStreams() *Streams {
	return &Streams{m: make(map[uint8]*VideoStream)}
}

// Add 注册流，同标识的旧流被替换并关闭
func (ss *Streams) Add(s *VideoStream) {
	ss.l.Lock()
	old, ok := ss.m[s.id]
	ss.m[s.id] = s
	ss.l.Unlock()

	if ok && old != s {
		old.close(StreamReplaced)
	}
}

// Remove 取消注册并关闭流
func (ss *Streams) Remove(id uint8) {
	ss.l.Lock()
	s, ok := ss.m[id]
	delete(ss.m, id)
	ss.l.Unlock()

	if ok {
		s.Close()
	}
}

// Get 获取指定标识的流，不存在返回 nil
func (ss *Streams) Get(id uint8) *VideoStream {
	ss.l.RLock()
	defer ss.l.RUnlock()
	return ss.m[id]
}

// Source 获取指定标识的流
func (ss *Streams) Source(id uint8) (Source, bool) {
	s := ss.Get(id)
	if s == nil {
		return nil, false
	}
	return s, true
}

// Ids 升序排列的流标识
func (ss *Streams) Ids() []uint8 {
	ss.l.RLock()
	ids := make([]uint8, 0, len(ss.m))
	for id := range ss.m {
		ids = append(ids, id)
	}
	ss.l.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count 流数量
func (ss *Streams) Count() int {
	ss.l.RLock()
	defer ss.l.RUnlock()
	return len(ss.m)
}

// Infos 返回所有的流信息，按标识排序
func (ss *Streams) Infos() []*StreamInfo {
	ids := ss.Ids()
	infos := make([]*StreamInfo, 0, len(ids))
	for _, id := range ids {
		if s := ss.Get(id); s != nil {
			infos = append(infos, s.Info())
		}
	}
	return infos
}

// Close 取消全部注册的流
func (ss *Streams) Close() error {
	ss.l.Lock()
	m := ss.m
	ss.m = make(map[uint8]*VideoStream)
	ss.l.Unlock()

	for _, s := range m {
		s.Close()
	}
	return nil
}
