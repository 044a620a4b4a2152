// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProvider struct {
	name string
	file string
	err  error
}

func (p *testProvider) Name() string { return p.name }

func (p *testProvider) Configure(config map[string]interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.file, _ = config["file"].(string)
	return nil
}

func TestProviderConfig_Load(t *testing.T) {
	jsonP := &testProvider{name: "json"}
	memP := &testProvider{name: "memory"}

	c := &ProviderConfig{Provider: "JSON", Config: map[string]interface{}{"file": "a.json"}}
	p, err := c.Load(memP, jsonP)
	require.NoError(t, err)
	assert.Equal(t, jsonP, p)
	assert.Equal(t, "a.json", jsonP.file)

	_, err = (&ProviderConfig{Provider: "redis"}).Load(memP, jsonP)
	assert.Error(t, err)

	bad := &testProvider{name: "bad", err: errors.New("boom")}
	assert.Panics(t, func() { (&ProviderConfig{Provider: "bad"}).LoadOrPanic(bad) })

	assert.Equal(t, memP, LoadProvider(nil, memP, jsonP))
	assert.Equal(t, memP, LoadLayoutProvider(memP, jsonP))
}

func TestDefaults(t *testing.T) {
	saved := globalC
	defer func() { globalC = saved }()

	globalC = nil
	assert.Equal(t, ":8090", Addr())
	assert.True(t, LocalOnly())
	assert.Equal(t, 256, QueueSize())
	assert.Equal(t, time.Minute, StatsInterval())
	assert.Equal(t, int64(8*1024*1024), MaxFrameSize())
	assert.Nil(t, GetTLSConfig())

	globalC = &config{QueueSize: 16, StatsInterval: 0, MaxFrameSize: 1, TLS: &TLSConfig{ListenAddr: ":443"}}
	assert.Equal(t, 16, QueueSize())
	assert.Equal(t, time.Duration(0), StatsInterval())
	assert.Equal(t, int64(1024), MaxFrameSize())
	assert.False(t, LocalOnly())
	assert.True(t, GetTLSConfig().Enabled())
	assert.False(t, (*TLSConfig)(nil).Enabled())
}

func TestLogConfig_NewLogger(t *testing.T) {
	for _, c := range []LogConfig{{}, {JSON: true}} {
		assert.NotNil(t, c.newLogger())
	}
}
