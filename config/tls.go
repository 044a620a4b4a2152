// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"crypto/tls"
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
)

// TLSConfig TLS listen 配置.
type TLSConfig struct {
	ListenAddr  string `json:"listen"`
	Certificate string `json:"cert"`
	PrivateKey  string `json:"key"`
}

// Enabled 是否配置了 https 侦听
func (c *TLSConfig) Enabled() bool {
	return c != nil && c.ListenAddr != ""
}

// Load loads the certificates from the cache or the configuration.
func (c *TLSConfig) Load() (*tls.Config, error) {
	if c.PrivateKey == "" || c.Certificate == "" {
		return &tls.Config{}, errors.New("No certificate or private key configured")
	}

	// 证书或私钥直接以 PEM 文本配置时，先写入文件
	c.Certificate = materialize(c.Certificate, Name+".crt")
	c.PrivateKey = materialize(c.PrivateKey, Name+".key")

	// Load the certificate from the cert/key files.
	cer, err := tls.LoadX509KeyPair(c.Certificate, c.PrivateKey)
	return &tls.Config{
		Certificates: []tls.Certificate{cer},
	}, err
}

func materialize(value, filename string) string {
	if strings.HasPrefix(value, "---") {
		if err := ioutil.WriteFile(filename, []byte(value), 0600); err == nil {
			value = filename
		}
	}

	// Make sure the path is absolute
	path, _ := filepath.Abs(value)
	return path
}
