// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package omaf

// GuardBand 打包区域的保护带
type GuardBand struct {
	LeftWidth          uint8    `json:"left"`
	RightWidth         uint8    `json:"right"`
	TopHeight          uint8    `json:"top"`
	BottomHeight       uint8    `json:"bottom"`
	NotUsedForPredFlag bool     `json:"not_used_for_pred,omitempty"`
	Type               [4]uint8 `json:"type"` // 0: left, 1: right, 2: top, 3: bottom
}

// RectRegionPacking 矩形区域打包，描述投影图像区域到打包图像区域的映射
type RectRegionPacking struct {
	TransformType uint8 `json:"transform,omitempty"` // 0~7, 旋转与镜像

	ProjRegWidth  uint32 `json:"proj_width"`
	ProjRegHeight uint32 `json:"proj_height"`
	ProjRegTop    uint32 `json:"proj_top"`
	ProjRegLeft   uint32 `json:"proj_left"`

	PackedRegWidth  uint16 `json:"packed_width"`
	PackedRegHeight uint16 `json:"packed_height"`
	PackedRegTop    uint16 `json:"packed_top"`
	PackedRegLeft   uint16 `json:"packed_left"`

	GuardBand *GuardBand `json:"guard_band,omitempty"`
}

// RegionWisePacking 区域打包信息
type RegionWisePacking struct {
	ConstituentPicMatching bool                `json:"constituent_pic_matching,omitempty"`
	ProjPicWidth           uint32              `json:"proj_pic_width"`
	ProjPicHeight          uint32              `json:"proj_pic_height"`
	PackedPicWidth         uint16              `json:"packed_pic_width"`
	PackedPicHeight        uint16              `json:"packed_pic_height"`
	Regions                []RectRegionPacking `json:"regions,omitempty"`
}

// Clone 深拷贝
func (rwpk *RegionWisePacking) Clone() *RegionWisePacking {
	if rwpk == nil {
		return nil
	}
	c := *rwpk
	if rwpk.Regions == nil {
		return &c
	}

	c.Regions = make([]RectRegionPacking, len(rwpk.Regions))
	for i, r := range rwpk.Regions {
		c.Regions[i] = r
		if r.GuardBand != nil {
			gb := *r.GuardBand
			c.Regions[i].GuardBand = &gb
		}
	}
	return &c
}

// SphereRegion 球面区域
type SphereRegion struct {
	ViewIdc         uint8  `json:"view_idc,omitempty"`
	CentreAzimuth   int32  `json:"centre_azimuth"`
	CentreElevation int32  `json:"centre_elevation"`
	CentreTilt      int32  `json:"centre_tilt"`
	AzimuthRange    uint32 `json:"azimuth_range"`
	ElevationRange  uint32 `json:"elevation_range"`
	Interpolate     bool   `json:"interpolate,omitempty"`
}

// ContentCoverage 内容覆盖范围
type ContentCoverage struct {
	CoverageShapeType uint8          `json:"shape_type"`
	ViewIdcPresence   bool           `json:"view_idc_presence,omitempty"`
	DefaultViewIdc    uint8          `json:"default_view_idc,omitempty"`
	SphereRegions     []SphereRegion `json:"sphere_regions,omitempty"`
}

// Clone 深拷贝
func (covi *ContentCoverage) Clone() *ContentCoverage {
	if covi == nil {
		return nil
	}
	c := *covi
	c.SphereRegions = append([]SphereRegion(nil), covi.SphereRegions...)
	return &c
}
