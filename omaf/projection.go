// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package omaf

import (
	"fmt"
	"strings"
)

// ProjectionFormat 全景投影格式
type ProjectionFormat int

// 投影格式常量, 见 ISO/IEC 23090-2 7.5.1.2
const (
	ProjectionERP     ProjectionFormat = iota // 等距柱状投影
	ProjectionCubemap                         // 立方体投影
	ProjectionPlanar                          // 非全景平面
)

// String returns a lower-case ASCII representation of the projection format.
func (pf ProjectionFormat) String() string {
	switch pf {
	case ProjectionERP:
		return "erp"
	case ProjectionCubemap:
		return "cubemap"
	case ProjectionPlanar:
		return "planar"
	default:
		return ""
	}
}

// MarshalText marshals the ProjectionFormat to text.
func (pf ProjectionFormat) MarshalText() ([]byte, error) {
	return []byte(pf.String()), nil
}

// UnmarshalText unmarshals text to a ProjectionFormat.
func (pf *ProjectionFormat) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "erp", "equirect":
		*pf = ProjectionERP
	case "cubemap", "cmp":
		*pf = ProjectionCubemap
	case "planar":
		*pf = ProjectionPlanar
	default:
		return fmt.Errorf("unrecognized projection format: %q", text)
	}
	return nil
}
