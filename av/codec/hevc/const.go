// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

/**
 * Table 7-1 – NAL unit type codes and NAL unit type classes in
 * T-REC-H.265-201802
 */
const (
	NalTrailN    = 0
	NalTrailR    = 1
	NalTsaN      = 2
	NalTsaR      = 3
	NalStsaN     = 4
	NalStsaR     = 5
	NalRadlN     = 6
	NalRadlR     = 7
	NalRaslN     = 8
	NalRaslR     = 9
	NalVclN10    = 10
	NalVclR11    = 11
	NalVclN12    = 12
	NalVclR13    = 13
	NalVclN14    = 14
	NalVclR15    = 15
	NalBlaWLp    = 16
	NalBlaWRadl  = 17
	NalBlaNLp    = 18
	NalIdrWRadl  = 19
	NalIdrNLp    = 20
	NalCraNut    = 21
	NalIrapVcl22 = 22
	NalIrapVcl23 = 23
	NalRsvVcl24  = 24
	NalRsvVcl25  = 25
	NalRsvVcl26  = 26
	NalRsvVcl27  = 27
	NalRsvVcl28  = 28
	NalRsvVcl29  = 29
	NalRsvVcl30  = 30
	NalRsvVcl31  = 31
	NalVps       = 32
	NalSps       = 33
	NalPps       = 34
	NalAud       = 35
	NalEosNut    = 36
	NalEobNut    = 37
	NalFdNut     = 38
	NalSeiPrefix = 39
	NalSeiSuffix = 40
	NalRsvNvcl41 = 41
	NalRsvNvcl42 = 42
	NalRsvNvcl43 = 43
	NalRsvNvcl44 = 44
	NalRsvNvcl45 = 45
	NalRsvNvcl46 = 46
	NalRsvNvcl47 = 47
	NalUnspec48  = 48
	NalUnspec49  = 49
	NalUnspec50  = 50
	NalUnspec51  = 51
	NalUnspec52  = 52
	NalUnspec53  = 53
	NalUnspec54  = 54
	NalUnspec55  = 55
	NalUnspec56  = 56
	NalUnspec57  = 57
	NalUnspec58  = 58
	NalUnspec59  = 59
	NalUnspec60  = 60
	NalUnspec61  = 61
	NalUnspec62  = 62
	NalUnspec63  = 63

	// ISO/IEC 14496-15 中扩展
	NalAggregator = 48
	NalExtractor  = 49
)

// 长度常量
const (
	// StartCodesLen Annex-B 四字节起始码 00 00 00 01 的长度
	StartCodesLen = 4
	// NaluHeaderLen HEVC NAL 头长度
	NaluHeaderLen = 2
	// SampleLenFieldSize DASH/ISOBMFF 样本中每个 NALU 前的长度字段
	SampleLenFieldSize = 4
)

// SEI payloadType, 见 T-REC-H.265 D.2.1 / ISO/IEC 23090-2
const (
	SeiEquirectProjection = 150
	SeiCubemapProjection  = 151
	SeiSphereRotation     = 154
	SeiRegionWisePacking  = 155
	SeiOmniViewport       = 156
)

// IsIrap 判断是否为 IRAP 图像片（BLA/IDR/CRA 及保留的 22、23）
func IsIrap(naluType byte) bool {
	return naluType >= NalBlaWLp && naluType <= NalIrapVcl23
}

// IsVcl 判断是否为 VCL NAL
func IsVcl(naluType byte) bool {
	return naluType <= NalRsvVcl31
}
