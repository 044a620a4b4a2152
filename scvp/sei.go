// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scvp

import (
	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/utils"
	"github.com/cnotch/omafpack/utils/bits"
)

// D.2.41.1 equirectangular_projection，不带保护带
func equirectPayload() []byte {
	w := bits.NewWriter(1)
	w.WriteBit(0) // erp_cancel_flag
	w.WriteBit(1) // erp_persistence_flag
	w.WriteBit(0) // erp_guard_band_flag
	w.WriteUint32(0, 2)
	alignPayload(w)
	return w.Bytes()
}

// D.2.41.2 cubemap_projection
func cubemapPayload() []byte {
	w := bits.NewWriter(1)
	w.WriteBit(0) // cmp_cancel_flag
	w.WriteBit(1) // cmp_persistence_flag
	alignPayload(w)
	return w.Bytes()
}

// D.2.41.4 regionwise_packing
func rwpkPayload(rwpk *omaf.RegionWisePacking) []byte {
	w := bits.NewWriter(14 + len(rwpk.Regions)*26)
	w.WriteBit(0) // rwp_cancel_flag
	w.WriteBit(1) // rwp_persistence_flag
	w.WriteBool(rwpk.ConstituentPicMatching)
	w.WriteUint32(0, 5)
	w.WriteUint32(uint32(len(rwpk.Regions)), 8)
	w.WriteUint32(rwpk.ProjPicWidth, 32)
	w.WriteUint32(rwpk.ProjPicHeight, 32)
	w.WriteUint32(uint32(rwpk.PackedPicWidth), 16)
	w.WriteUint32(uint32(rwpk.PackedPicHeight), 16)

	for _, r := range rwpk.Regions {
		w.WriteUint32(0, 4)
		w.WriteUint32(uint32(r.TransformType), 3)
		w.WriteBool(r.GuardBand != nil)
		w.WriteUint32(r.ProjRegWidth, 32)
		w.WriteUint32(r.ProjRegHeight, 32)
		w.WriteUint32(r.ProjRegTop, 32)
		w.WriteUint32(r.ProjRegLeft, 32)
		w.WriteUint32(uint32(r.PackedRegWidth), 16)
		w.WriteUint32(uint32(r.PackedRegHeight), 16)
		w.WriteUint32(uint32(r.PackedRegTop), 16)
		w.WriteUint32(uint32(r.PackedRegLeft), 16)

		if gb := r.GuardBand; gb != nil {
			w.WriteUint32(uint32(gb.LeftWidth), 8)
			w.WriteUint32(uint32(gb.RightWidth), 8)
			w.WriteUint32(uint32(gb.TopHeight), 8)
			w.WriteUint32(uint32(gb.BottomHeight), 8)
			w.WriteBool(gb.NotUsedForPredFlag)
			for j := 0; j < 4; j++ {
				w.WriteUint32(uint32(gb.Type[j]), 3)
			}
			w.WriteUint32(0, 3)
		}
	}
	alignPayload(w)
	return w.Bytes()
}

// sei_payload 末尾未对齐时：payload_bit_equal_to_one 加若干 0
func alignPayload(w *bits.Writer) {
	if !w.ByteAligned() {
		w.AlignOne()
	}
}

// 7.3.5 sei_message 的 payloadType / payloadSize 编码
func writeFF(rbsp []byte, v int) []byte {
	for v >= 0xff {
		rbsp = append(rbsp, 0xff)
		v -= 0xff
	}
	return append(rbsp, byte(v))
}

// writeSei 输出 起始码 + 前缀 SEI NAL 头 + 单个 sei_message + rbsp_trailing_bits
func writeSei(payloadType int, payload []byte, out []byte) (int, error) {
	rbsp := make([]byte, 0, len(payload)+8)
	rbsp = writeFF(rbsp, payloadType)
	rbsp = writeFF(rbsp, len(payload))
	rbsp = append(rbsp, payload...)
	rbsp = append(rbsp, 0x80)

	ebsp := utils.AddH264or5EmulationBytes(rbsp)
	size := hevc.StartCodesLen + hevc.NaluHeaderLen + len(ebsp)
	if size > len(out) {
		return 0, ErrBufferTooSmall
	}

	copy(out, startCode)
	out[4] = hevc.NalSeiPrefix << 1
	out[5] = 1 // nuh_layer_id = 0, nuh_temporal_id_plus1 = 1
	copy(out[6:], ebsp)
	return size, nil
}
