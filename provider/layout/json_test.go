// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package layout

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONProvider(t *testing.T) {
	dir, err := ioutil.TempDir("", "layout")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	p := &jsonProvider{}
	assert.Error(t, p.Configure(map[string]interface{}{"file": 1}))

	path := filepath.Join(dir, "packing.json")
	require.NoError(t, p.Configure(map[string]interface{}{"file": path}))
	assert.Equal(t, "json", p.Name())

	plan, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, plan.Streams)

	require.NoError(t, p.Save(testPlan(t)))
	plan, err = p.Load()
	require.NoError(t, err)
	assert.Len(t, plan.Streams, 2)
	assert.Equal(t, 3, plan.Viewport(0).Layout.Count())
}
