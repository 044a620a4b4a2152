// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cnotch/omafpack/utils"
)

// JSON json 提供者
var JSON = &jsonProvider{}

type jsonProvider struct {
	filePath string
}

func (p *jsonProvider) Name() string {
	return "json"
}

func (p *jsonProvider) Configure(config map[string]interface{}) error {
	path, ok := config["file"]
	if ok {
		switch v := path.(type) {
		case string:
			p.filePath = v
		default:
			return fmt.Errorf("invalid packing plan config, file attr: %v", path)
		}
	} else {
		p.filePath = "packing.json"
	}

	if !filepath.IsAbs(p.filePath) {
		exe, err := os.Executable()
		if err != nil {
			return err
		}
		p.filePath = filepath.Join(filepath.Dir(exe), p.filePath)
	}

	return nil
}

func (p *jsonProvider) Load() (*Plan, error) {
	plan := &Plan{}
	if _, err := utils.DecodeJSONFile(p.filePath, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *jsonProvider) Save(plan *Plan) error {
	return utils.EncodeJSONFile(p.filePath, plan)
}
