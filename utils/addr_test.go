// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package utils

import (
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteIP(t *testing.T) {
	tests := []struct {
		addr string
		want net.IP
	}{
		{"127.0.0.1:8080", net.ParseIP("127.0.0.1")},
		{"[::1]:443", net.ParseIP("::1")},
		{"10.1.2.3", net.ParseIP("10.1.2.3")},
		{"bad", nil},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.True(t, tt.want.Equal(RemoteIP(tt.addr)))
		})
	}
}

func TestIsLocalhostIP(t *testing.T) {
	assert.True(t, IsLocalhostIP(net.ParseIP("127.0.0.1")))
	assert.True(t, IsLocalhostIP(net.ParseIP("::1")))
	assert.False(t, IsLocalhostIP(net.ParseIP("8.8.8.8")))
	assert.False(t, IsLocalhostIP(nil))
}

func TestJSONFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "utils")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "obj.json")

	var got map[string]int
	ok, err := DecodeJSONFile(path, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, EncodeJSONFile(path, map[string]int{"a": 1}))
	ok, err = DecodeJSONFile(path, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1}, got)
}
