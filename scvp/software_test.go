// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scvp

import (
	"errors"
	"testing"

	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// IDR 图像片: first=1 no_output=0 pps_id=0 slice_type=2 "1010" 对齐
var idrSlice = []byte{0, 0, 0, 1, 0x26, 0x01, 0xae, 0xa0, 0xde, 0xad}

func sliceParams(in []byte, headerLen uint32) Params {
	return Params{
		SrcWidth:            640,
		SrcHeight:           384,
		DestWidth:           640,
		DestHeight:          384,
		CTUSize:             64,
		InputBitstream:      in,
		InputSliceHeaderLen: headerLen,
	}
}

func TestSoftware_Handles(t *testing.T) {
	s := NewSoftware()
	root := s.Open()
	assert.Equal(t, 1, s.Live())

	h, err := s.New(root)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Live())

	require.NoError(t, s.Destroy(h))
	assert.Equal(t, ErrInvalidHandle, s.Destroy(h))
	_, err = s.New(h)
	assert.Equal(t, ErrInvalidHandle, err)
	_, err = s.New("not a handle")
	assert.Equal(t, ErrInvalidHandle, err)

	out := make([]byte, 256)
	_, err = s.GenerateProjection(h, EquirectProjection, out)
	assert.Equal(t, ErrInvalidHandle, err)
	assert.Equal(t, 1, s.Live())
}

func TestSoftware_GenerateSliceHeader(t *testing.T) {
	s := NewSoftware()
	h := s.Open()
	out := make([]byte, 256)

	// 移到 CTU 5：640x384 共 60 个 CTU，地址占 6 比特
	n, err := s.GenerateSliceHeader(sliceParams(idrSlice, 2), 5, h, out)
	require.NoError(t, err)
	moved := []byte{0, 0, 0, 1, 0x26, 0x01, 0x22, 0xba, 0x80}
	assert.Equal(t, moved, out[:n])

	// 地址 0 保持原样
	n, err = s.GenerateSliceHeader(sliceParams(idrSlice, 2), 0, h, out)
	require.NoError(t, err)
	assert.Equal(t, idrSlice[:8], out[:n])

	// 非首片移回地址 0
	in := append(append([]byte(nil), moved...), 0xde, 0xad)
	n, err = s.GenerateSliceHeader(sliceParams(in, 3), 0, h, out)
	require.NoError(t, err)
	assert.Equal(t, idrSlice[:8], out[:n])
}

func TestSoftware_GenerateSliceHeaderErrors(t *testing.T) {
	s := NewSoftware()
	h := s.Open()
	out := make([]byte, 256)

	tests := []struct {
		name   string
		params Params
		out    []byte
		want   error
	}{
		{"no_start_code", sliceParams(idrSlice[1:], 2), out, ErrMalformedSlice},
		{"no_header_len", sliceParams(idrSlice, 0), out, ErrMalformedSlice},
		{"header_overflow", sliceParams(idrSlice, 9), out, ErrMalformedSlice},
		{"not_vcl", sliceParams([]byte{0, 0, 0, 1, 0x40, 0x01, 0x0c, 0x01}, 2), out, ErrMalformedSlice},
		{"all_zero_header", sliceParams([]byte{0, 0, 0, 1, 0x26, 0x01, 0x00, 0x00}, 2), out, ErrMalformedSlice},
		{"small_buffer", sliceParams(idrSlice, 2), make([]byte, 8), ErrBufferTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.GenerateSliceHeader(tt.params, 5, h, tt.out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestSoftware_GenerateProjection(t *testing.T) {
	s := NewSoftware()
	h := s.Open()
	out := make([]byte, 256)

	n, err := s.GenerateProjection(h, EquirectProjection, out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0x4e, 0x01, 150, 0x01, 0x44, 0x80}, out[:n])

	n, err = s.GenerateProjection(h, CubemapProjection, out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0x4e, 0x01, 151, 0x01, 0x60, 0x80}, out[:n])

	_, err = s.GenerateProjection(h, ProjectionKind(9), out)
	assert.Equal(t, ErrUnknownKind, err)
}

func TestSoftware_GenerateRwpk(t *testing.T) {
	s := NewSoftware()
	h := s.Open()

	out1 := make([]byte, 256)
	n1, err := s.GenerateRwpk(h, nil, out1)
	require.NoError(t, err)
	out2 := make([]byte, 256)
	n2, err := s.GenerateRwpk(h, &omaf.RegionWisePacking{}, out2)
	require.NoError(t, err)
	assert.Equal(t, out1[:n1], out2[:n2])

	rbsp := utils.RemoveH264or5EmulationBytes(out1[6:n1])
	want := append([]byte{155, 14, 0x40}, make([]byte, 13)...)
	want = append(want, 0x80)
	assert.Equal(t, want, rbsp)
	assert.Equal(t, []byte{0, 0, 0, 1, 0x4e, 0x01}, out1[:6])

	rwpk := &omaf.RegionWisePacking{
		ProjPicWidth:    3840,
		ProjPicHeight:   1920,
		PackedPicWidth:  1920,
		PackedPicHeight: 960,
		Regions: []omaf.RectRegionPacking{
			{ProjRegWidth: 960, ProjRegHeight: 960, PackedRegWidth: 480, PackedRegHeight: 480},
			{ProjRegWidth: 960, ProjRegHeight: 960, ProjRegLeft: 960, PackedRegWidth: 480, PackedRegHeight: 480,
				PackedRegLeft: 480, GuardBand: &omaf.GuardBand{LeftWidth: 4, RightWidth: 4}},
		},
	}
	n, err := s.GenerateRwpk(h, rwpk, out1)
	require.NoError(t, err)
	rbsp = utils.RemoveH264or5EmulationBytes(out1[6:n])
	// 14 + 25 + 25 + 6(保护带 4 字节 + 1 + 12 + 3 比特)
	assert.Equal(t, byte(155), rbsp[0])
	assert.Equal(t, byte(70), rbsp[1])
	assert.Equal(t, 2+70+1, len(rbsp))
	assert.Equal(t, byte(0x80), rbsp[len(rbsp)-1])

	_, err = s.GenerateRwpk(h, rwpk, make([]byte, 16))
	assert.Equal(t, ErrBufferTooSmall, err)
}

func TestAddressBits(t *testing.T) {
	assert.Equal(t, 0, addressBits(64, 64, 64))
	assert.Equal(t, 1, addressBits(128, 64, 64))
	assert.Equal(t, 6, addressBits(640, 384, 64))
	assert.Equal(t, 6, addressBits(640, 384, 0))
	assert.Equal(t, 11, addressBits(3840, 1920, 64))
}
