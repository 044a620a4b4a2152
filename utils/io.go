// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package utils

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
)

// EncodeJSONFile 编码 JSON 文件
func EncodeJSONFile(path string, obj interface{}) error {
	body, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	var formatted bytes.Buffer
	if err := json.Indent(&formatted, body, "", "\t"); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(formatted.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}

// DecodeJSONFile 解码 JSON 文件，文件不存在时返回 false
func DecodeJSONFile(path string, obj interface{}) (bool, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(b, obj); err != nil {
		return false, err
	}
	return true, nil
}
