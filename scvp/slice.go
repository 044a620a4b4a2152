// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scvp

import (
	"bytes"
	"fmt"
	"runtime/debug"

	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/utils"
	"github.com/cnotch/omafpack/utils/bits"
)

const defaultCTUSize = 64

var startCode = []byte{0x0, 0x0, 0x0, 0x1}

// slice_segment_address 的比特数 Ceil(Log2(PicSizeInCtbsY))
func addressBits(width, height, ctuSize uint32) int {
	if ctuSize == 0 {
		ctuSize = defaultCTUSize
	}
	ctbs := ((width + ctuSize - 1) / ctuSize) * ((height + ctuSize - 1) / ctuSize)
	n := 0
	for (uint32(1) << uint(n)) < ctbs {
		n++
	}
	return n
}

// 最后一个为 1 的比特位置(byte_alignment 中的 alignment_bit_equal_to_one)
func lastOneBit(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == 0 {
			continue
		}
		pos := 7
		for b[i]&(1<<uint(7-pos)) == 0 {
			pos--
		}
		return i<<3 + pos
	}
	return -1
}

// 7.3.6.1 slice_segment_header，
// 只重写 first_slice_segment_in_pic_flag、dependent_slice_segment_flag 与 slice_segment_address
func rewriteSliceHeader(params *Params, ctuAddr uint16, out []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: slice header decode panic；r = %v \n %s", ErrMalformedSlice, r, debug.Stack())
		}
	}()

	in := params.InputBitstream
	headerEnd := hevc.StartCodesLen + hevc.NaluHeaderLen + int(params.InputSliceHeaderLen)
	if !bytes.HasPrefix(in, startCode) || params.InputSliceHeaderLen == 0 || len(in) < headerEnd {
		return 0, ErrMalformedSlice
	}

	naluType := hevc.NulType(in[hevc.StartCodesLen])
	if !hevc.IsVcl(naluType) {
		return 0, ErrMalformedSlice
	}

	rbsp := utils.RemoveH264or5EmulationBytes(in[hevc.StartCodesLen+hevc.NaluHeaderLen : headerEnd])
	alignBit := lastOneBit(rbsp)

	r := bits.NewReader(rbsp)
	first := r.ReadBool()
	var noOutputOfPriorPics uint8
	if hevc.IsIrap(naluType) {
		noOutputOfPriorPics = r.ReadBit()
	}
	ppsID := r.ReadUe()
	dependent := false
	if !first {
		if params.DependentSliceSegments {
			dependent = r.ReadBool()
		}
		r.Skip(addressBits(params.SrcWidth, params.SrcHeight, params.CTUSize))
	}
	if alignBit < r.Offset() {
		return 0, ErrMalformedSlice
	}
	if dependent && ctuAddr == 0 {
		return 0, ErrMalformedSlice
	}

	w := bits.NewWriter(len(rbsp) + 4)
	w.WriteBool(ctuAddr == 0)
	if hevc.IsIrap(naluType) {
		w.WriteBit(noOutputOfPriorPics)
	}
	w.WriteUe(ppsID)
	if ctuAddr != 0 {
		if params.DependentSliceSegments {
			w.WriteBool(dependent)
		}
		w.WriteUint32(uint32(ctuAddr), addressBits(params.DestWidth, params.DestHeight, params.CTUSize))
	}
	for r.Offset() < alignBit {
		w.WriteBit(r.ReadBit())
	}
	w.AlignOne()

	ebsp := utils.AddH264or5EmulationBytes(w.Bytes())
	n = hevc.StartCodesLen + hevc.NaluHeaderLen + len(ebsp)
	if n > len(out) {
		return 0, ErrBufferTooSmall
	}

	copy(out, in[:hevc.StartCodesLen+hevc.NaluHeaderLen])
	copy(out[hevc.StartCodesLen+hevc.NaluHeaderLen:], ebsp)
	return n, nil
}
