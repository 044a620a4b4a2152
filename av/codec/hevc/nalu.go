// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"errors"

	"github.com/cnotch/omafpack/utils"
)

// 错误定义
var (
	ErrNaluTooShort   = errors.New("hevc: nalu is too short")
	ErrForbiddenBit   = errors.New("hevc: forbidden_zero_bit is not zero")
	ErrNoStartCode    = errors.New("hevc: nalu has no start code")
	ErrSeiUnsupported = errors.New("hevc: malformed sei message")
)

// Nalu 带格式信息的 NAL 单元缓存.
// Data 为空或者完整持有 Size() 个字节，不会只填充一部分.
type Nalu struct {
	Data           []byte // 含起始码的完整 NALU
	StartCodesSize uint32 // 起始码长度
	NaluType       byte   // NAL 类型
	SeiPayloadType int    // SEI 的 payloadType，非 SEI 为 -1
	SliceHeaderLen uint32 // 图像片头长度（字节），非 VCL 为 0
}

// Size 数据长度
func (n *Nalu) Size() uint32 {
	return uint32(len(n.Data))
}

// Empty 是否未填充数据
func (n *Nalu) Empty() bool {
	return n == nil || len(n.Data) == 0
}

// Clone 深拷贝
func (n *Nalu) Clone() *Nalu {
	c := *n
	if n.Data != nil {
		c.Data = make([]byte, len(n.Data))
		copy(c.Data, n.Data)
	}
	return &c
}

// Payload 去掉起始码和 NAL 头后的负载
func (n *Nalu) Payload() []byte {
	skip := int(n.StartCodesSize) + NaluHeaderLen
	if len(n.Data) < skip {
		return nil
	}
	return n.Data[skip:]
}

// ParseNalu 解析带起始码的 NALU 并拷贝数据.
func ParseNalu(b []byte) (*Nalu, error) {
	scLen := utils.NaluSeparatorLen(b)
	if scLen == 0 {
		return nil, ErrNoStartCode
	}
	if len(b) < scLen+NaluHeaderLen {
		return nil, ErrNaluTooShort
	}

	// +---------------+---------------+
	// |0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |F|   Type    |  LayerId  | TID |
	// +-------------+-----------------+
	header := b[scLen:]
	if header[0]&0x80 != 0 {
		return nil, ErrForbiddenBit
	}

	nalu := &Nalu{
		StartCodesSize: uint32(scLen),
		NaluType:       NulType(header[0]),
		SeiPayloadType: -1,
	}

	if nalu.NaluType == NalSeiPrefix || nalu.NaluType == NalSeiSuffix {
		payloadType, err := seiPayloadType(header[NaluHeaderLen:])
		if err != nil {
			return nil, err
		}
		nalu.SeiPayloadType = payloadType
	}

	nalu.Data = make([]byte, len(b))
	copy(nalu.Data, b)
	return nalu, nil
}

// 7.3.5 sei_message: payloadType 由若干 0xFF 加最后一个字节累加
func seiPayloadType(rbsp []byte) (int, error) {
	payloadType := 0
	for _, b := range rbsp {
		payloadType += int(b)
		if b != 0xff {
			return payloadType, nil
		}
	}
	return 0, ErrSeiUnsupported
}

// SplitAnnexB 按起始码切分 Annex-B 字节流，每个切片保留自己的起始码
func SplitAnnexB(b []byte) [][]byte {
	var starts []int
	for i := 0; i+2 < len(b); i++ {
		if b[i] != 0 || b[i+1] != 0 {
			continue
		}
		if b[i+2] == 1 {
			starts = append(starts, i)
			i += 2
		} else if b[i+2] == 0 && i+3 < len(b) && b[i+3] == 1 {
			starts = append(starts, i)
			i += 3
		}
	}

	nalus := make([][]byte, 0, len(starts))
	for i, start := range starts {
		end := len(b)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		nalus = append(nalus, b[start:end])
	}
	return nalus
}

// NulType 从 NAL 头第一个字节获取 NAL 类型
func NulType(nt byte) byte {
	return (nt >> 1) & 0x3f
}
