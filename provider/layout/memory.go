// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package layout

import "sync"

// Memory 内存提供者
var Memory = &memProvider{}

type memProvider struct {
	l    sync.Mutex
	plan *Plan
}

// NewMemory 创建持有 plan 的内存提供者
func NewMemory(plan *Plan) Provider {
	return &memProvider{plan: plan}
}

func (p *memProvider) Name() string {
	return "memory"
}

func (p *memProvider) Configure(config map[string]interface{}) error {
	return nil
}

func (p *memProvider) Load() (*Plan, error) {
	p.l.Lock()
	defer p.l.Unlock()
	if p.plan == nil {
		return &Plan{}, nil
	}
	return p.plan.Clone(), nil
}

func (p *memProvider) Save(plan *Plan) error {
	p.l.Lock()
	defer p.l.Unlock()
	p.plan = plan.Clone()
	return nil
}
