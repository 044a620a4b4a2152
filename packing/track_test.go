// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package packing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/media"
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/scvp"
	"github.com/cnotch/omafpack/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGen struct {
	headerLen  int // 含 4 字节起始码
	failAt     int // 第 failAt 次生成图像片头时失败，0 不失败
	failDelete bool
	seq        int
	news       int
	destroys   int
	slices     int
	projs      int
	rwpks      int
	params     []scvp.Params
	rwpk       *omaf.RegionWisePacking
}

func (g *fakeGen) New(parent scvp.Handle) (scvp.Handle, error) {
	g.seq++
	g.news++
	return fmt.Sprintf("%v/%d", parent, g.seq), nil
}

func (g *fakeGen) GenerateSliceHeader(params scvp.Params, ctuAddr uint16, h scvp.Handle, out []byte) (int, error) {
	g.slices++
	if g.failAt == g.slices {
		return 0, scvp.ErrMalformedSlice
	}
	p := params
	p.InputBitstream = append([]byte(nil), params.InputBitstream...)
	g.params = append(g.params, p)

	header := append([]byte{0, 0, 0, 1, 0x26, 0x01}, bytes.Repeat([]byte{byte(ctuAddr)}, g.headerLen-6)...)
	copy(out, header)
	return len(header), nil
}

func (g *fakeGen) GenerateProjection(h scvp.Handle, kind scvp.ProjectionKind, out []byte) (int, error) {
	g.projs++
	return copy(out, []byte{0, 0, 0, 1, 0x4e, 0x01, 150, 0x01, byte(kind), 0x80}), nil
}

func (g *fakeGen) GenerateRwpk(h scvp.Handle, rwpk *omaf.RegionWisePacking, out []byte) (int, error) {
	g.rwpks++
	g.rwpk = rwpk
	return copy(out, []byte{0, 0, 0, 1, 0x4e, 0x01, 155, 0x01, byte(len(rwpk.Regions)), 0x80}), nil
}

func (g *fakeGen) Destroy(h scvp.Handle) error {
	g.destroys++
	if g.failDelete {
		return scvp.ErrInvalidHandle
	}
	return nil
}

type fakeStream struct {
	tiles  []media.TileInfo
	handle scvp.Handle
	params scvp.Params
	proj   omaf.ProjectionFormat
}

func (s *fakeStream) Tiles() []media.TileInfo                { return s.tiles }
func (s *fakeStream) CodecHandle() scvp.Handle               { return s.handle }
func (s *fakeStream) CodecParams() scvp.Params               { return s.params }
func (s *fakeStream) ProjectionFormat() omaf.ProjectionFormat { return s.proj }

type fakeStreams map[uint8]*fakeStream

func (fs fakeStreams) Source(id uint8) (media.Source, bool) {
	s, ok := fs[id]
	if !ok {
		return nil, false
	}
	return s, true
}

func (fs fakeStreams) Ids() []uint8 {
	ids := make([]uint8, 0, len(fs))
	for id := range fs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// size 字节的图像片 NALU，起始码 sc 字节，图像片头 sliceHeaderLen 字节
func codedTile(size, sc int, sliceHeaderLen uint32) media.TileInfo {
	data := make([]byte, size)
	data[sc-1] = 1
	data[sc] = 0x26
	data[sc+1] = 0x01
	for i := sc + 2; i < size; i++ {
		data[i] = 0xaa
	}
	return media.TileInfo{Nalu: &hevc.Nalu{
		Data:           data,
		StartCodesSize: uint32(sc),
		NaluType:       hevc.NalIdrWRadl,
		SeiPayloadType: -1,
		SliceHeaderLen: sliceHeaderLen,
	}}
}

func newStream(id uint8, tiles ...media.TileInfo) *fakeStream {
	return &fakeStream{
		tiles:  tiles,
		handle: fmt.Sprintf("stream%d", id),
		params: scvp.Params{SrcWidth: 3840, SrcHeight: 1920, DestWidth: 1280, DestHeight: 640, CTUSize: 64},
		proj:   omaf.ProjectionERP,
	}
}

func oneColumn(tiles ...omaf.Tile) *omaf.TileLayout {
	return &omaf.TileLayout{Columns: []omaf.TileColumn{tiles}}
}

func newTrack(t *testing.T, streams fakeStreams, gen scvp.Generator, layout *omaf.TileLayout) *ExtractorTrack {
	track := NewExtractorTrack(1, streams, omaf.ProjectionERP, gen)
	require.NoError(t, track.SetTileLayout(layout))
	return track
}

func TestConstructExtractors_FirstConstruction(t *testing.T) {
	gen := &fakeGen{headerLen: 10}
	streams := fakeStreams{0: newStream(0, codedTile(100, 4, 3), codedTile(60, 4, 5))}
	track := newTrack(t, streams, gen, oneColumn(
		omaf.Tile{StreamIdx: 0, OrigTileIdx: 1, DstCTUIndex: 0},
		omaf.Tile{StreamIdx: 0, OrigTileIdx: 0, DstCTUIndex: 10},
	))

	require.NoError(t, track.ConstructExtractors())
	assert.Equal(t, 2, track.ExtractorCount())
	assert.Equal(t, 1, track.HandleCount())
	assert.Equal(t, 1, gen.news)
	assert.Equal(t, uint64(1), track.ProcessedFrames())

	extractors := track.Extractors()
	require.Len(t, extractors, 2)

	e0, e1 := extractors[0], extractors[1]
	assert.Equal(t, uint16(0), e0.TileIdx)
	assert.Equal(t, uint16(1), e0.Sample.TrackRefIndex)
	assert.Equal(t, uint16(0), e1.Sample.TrackRefIndex)
	assert.Equal(t, uint8(0), e1.Sample.StreamIdx)
	assert.Equal(t, int8(0), e1.Sample.SampleOffset)

	// 4 + 10 - 4
	assert.Equal(t, uint32(10), e0.Inline.Length)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0x26, 0x01, 0, 0, 0, 0}, e0.Inline.Data)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0x26, 0x01, 10, 10, 10, 10}, e1.Inline.Data)
	assert.Equal(t, InlineCapacity, cap(e0.Inline.Data))

	assert.Equal(t, uint32(4+2+5), e0.Sample.DataOffset)
	assert.Equal(t, uint32(60-4-2-5), e0.Sample.DataLength)
	assert.Equal(t, uint32(4+2+3), e1.Sample.DataOffset)
	assert.Equal(t, uint32(100-4-2-3), e1.Sample.DataLength)

	w, h := track.DstSize()
	assert.Equal(t, uint32(1280), w)
	assert.Equal(t, uint32(640), h)
}

func TestConstructExtractors_Update(t *testing.T) {
	gen := &fakeGen{headerLen: 10}
	stream := newStream(0, codedTile(100, 4, 3), codedTile(60, 4, 5))
	track := newTrack(t, fakeStreams{0: stream}, gen, oneColumn(
		omaf.Tile{StreamIdx: 0, OrigTileIdx: 0, DstCTUIndex: 0},
		omaf.Tile{StreamIdx: 0, OrigTileIdx: 1, DstCTUIndex: 10},
	))
	require.NoError(t, track.ConstructExtractors())

	inline0 := track.extractors[0].Inline
	sample0 := track.extractors[0].Sample
	data0 := &inline0.Data[:1][0]

	gen.headerLen = 14
	stream.tiles = []media.TileInfo{codedTile(120, 4, 7), codedTile(80, 4, 9)}
	stream.params.DestWidth, stream.params.DestHeight = 640, 320
	require.NoError(t, track.ConstructExtractors())

	assert.Equal(t, 2, track.ExtractorCount())
	assert.Equal(t, 1, gen.news)
	assert.Equal(t, uint64(2), track.ProcessedFrames())
	assert.Same(t, inline0, track.extractors[0].Inline)
	assert.Same(t, sample0, track.extractors[0].Sample)
	assert.Same(t, data0, &track.extractors[0].Inline.Data[:1][0])

	extractors := track.Extractors()
	assert.Equal(t, uint32(14), extractors[0].Inline.Length)
	assert.Equal(t, uint32(120-4-2-7), extractors[0].Sample.DataLength)
	assert.Equal(t, uint32(4+2+9), extractors[1].Sample.DataOffset)
	assert.Equal(t, uint32(80-4-2-9), extractors[1].Sample.DataLength)

	// 目标尺寸只在首个 tile 锁定一次
	for _, p := range gen.params {
		assert.Equal(t, uint32(1280), p.DestWidth)
		assert.Equal(t, uint32(640), p.DestHeight)
	}
	w, h := track.DstSize()
	assert.Equal(t, uint32(1280), w)
	assert.Equal(t, uint32(640), h)
}

func TestConstructExtractors_OffsetBoundary(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	streams := fakeStreams{0: newStream(0, codedTile(4+2+6, 4, 6), codedTile(3+2+1, 3, 1))}
	track := newTrack(t, streams, gen, oneColumn(
		omaf.Tile{StreamIdx: 0, OrigTileIdx: 0},
		omaf.Tile{StreamIdx: 0, OrigTileIdx: 1, DstCTUIndex: 3},
	))
	require.NoError(t, track.ConstructExtractors())

	extractors := track.Extractors()
	assert.Equal(t, uint32(0), extractors[0].Sample.DataLength)
	assert.Equal(t, uint32(4+2+6), extractors[0].Sample.DataOffset)
	assert.Equal(t, uint32(0), extractors[1].Sample.DataLength)

	// 三字节起始码被规范为四字节
	require.Len(t, gen.params, 2)
	assert.Equal(t, []byte{0, 0, 0, 1, 0x26, 0x01, 0xaa}, gen.params[1].InputBitstream)
	assert.Equal(t, uint32(1), gen.params[1].InputSliceHeaderLen)
}

func TestConstructExtractors_ZeroDstSize(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	stream := newStream(0, codedTile(20, 4, 2))
	stream.params.DestWidth, stream.params.DestHeight = 0, 0
	track := newTrack(t, fakeStreams{0: stream}, gen, oneColumn(omaf.Tile{}))

	err := track.ConstructExtractors()
	assert.True(t, errors.Is(err, ErrInvalidData))
	assert.Equal(t, 0, track.ExtractorCount())
	assert.Equal(t, 0, gen.slices)
	assert.Equal(t, uint64(0), track.ProcessedFrames())
}

func TestConstructExtractors_StreamNotFound(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	streams := fakeStreams{0: newStream(0, codedTile(20, 4, 2))}
	track := newTrack(t, streams, gen, oneColumn(omaf.Tile{StreamIdx: 5}))

	err := track.ConstructExtractors()
	assert.True(t, errors.Is(err, ErrStreamNotFound))
	assert.Equal(t, 0, track.ExtractorCount())
	assert.Equal(t, 0, track.HandleCount())
}

func TestConstructExtractors_Errors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(s *fakeStream, g *fakeGen)
		want    error
	}{
		{"tile_out_of_range", func(s *fakeStream, g *fakeGen) { s.tiles = s.tiles[:1] }, ErrInvalidData},
		{"empty_tile", func(s *fakeStream, g *fakeGen) { s.tiles[1].Nalu = &hevc.Nalu{} }, ErrInvalidData},
		{"short_tile", func(s *fakeStream, g *fakeGen) { s.tiles[1] = codedTile(10, 4, 5) }, ErrInvalidData},
		{"no_handle", func(s *fakeStream, g *fakeGen) { s.handle = nil }, ErrNullPointer},
		{"header_overflow", func(s *fakeStream, g *fakeGen) { g.headerLen = InlineCapacity + 1 }, ErrScvpProcessFailed},
		{"generate_failed", func(s *fakeStream, g *fakeGen) { g.failAt = 2 }, ErrScvpOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGen{headerLen: 8}
			stream := newStream(0, codedTile(20, 4, 2), codedTile(20, 4, 2))
			tt.prepare(stream, gen)
			track := newTrack(t, fakeStreams{0: stream}, gen, oneColumn(
				omaf.Tile{StreamIdx: 0, OrigTileIdx: 0},
				omaf.Tile{StreamIdx: 0, OrigTileIdx: 1, DstCTUIndex: 4},
			))

			err := track.ConstructExtractors()
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, track.ExtractorCount() < 2)
		})
	}
}

func TestConstructExtractors_PartialCommit(t *testing.T) {
	gen := &fakeGen{headerLen: 8, failAt: 2}
	streams := fakeStreams{
		0: newStream(0, codedTile(20, 4, 2)),
		1: newStream(1, codedTile(30, 4, 2)),
	}
	track := newTrack(t, streams, gen, &omaf.TileLayout{Columns: []omaf.TileColumn{
		{{StreamIdx: 0}},
		{{StreamIdx: 1, DstCTUIndex: 2}},
	}})

	err := track.ConstructExtractors()
	assert.True(t, errors.Is(err, ErrScvpOperationFailed))
	assert.Equal(t, 1, track.ExtractorCount())
	assert.Equal(t, uint16(0), track.Extractors()[0].TileIdx)

	require.NoError(t, track.DestroyExtractors())
	require.NoError(t, track.ConstructExtractors())
	assert.Equal(t, 2, track.ExtractorCount())
	assert.Equal(t, 2, track.HandleCount())
	assert.Equal(t, 2, gen.news)
}

func TestConstructExtractors_UpdateRequiresAllExtractors(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	streams := fakeStreams{0: newStream(0, codedTile(20, 4, 2), codedTile(20, 4, 2))}
	track := newTrack(t, streams, gen, oneColumn(
		omaf.Tile{StreamIdx: 0, OrigTileIdx: 0},
		omaf.Tile{StreamIdx: 0, OrigTileIdx: 1, DstCTUIndex: 4},
	))
	require.NoError(t, track.ConstructExtractors())
	slices := gen.slices

	delete(track.extractors, 1)
	err := track.ConstructExtractors()
	assert.True(t, errors.Is(err, ErrExtractorNotFound))
	assert.Equal(t, slices, gen.slices, "no extractor is refreshed")
}

func TestSetTileLayout(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	streams := fakeStreams{0: newStream(0, codedTile(20, 4, 2), codedTile(20, 4, 2))}
	track := NewExtractorTrack(0, streams, omaf.ProjectionERP, gen)

	assert.Equal(t, ErrNullPointer, track.SetTileLayout(nil))
	assert.True(t, errors.Is(track.SetTileLayout(&omaf.TileLayout{}), ErrInvalidData))
	assert.True(t, errors.Is(track.ConstructExtractors(), ErrNullPointer))

	layout := oneColumn(omaf.Tile{OrigTileIdx: 0}, omaf.Tile{OrigTileIdx: 1, DstCTUIndex: 4})
	require.NoError(t, track.SetTileLayout(layout))
	require.NoError(t, track.ConstructExtractors())

	// 同形状可以替换，形状变化需要先销毁
	swapped := oneColumn(omaf.Tile{OrigTileIdx: 1}, omaf.Tile{OrigTileIdx: 0, DstCTUIndex: 4})
	require.NoError(t, track.SetTileLayout(swapped))
	require.NoError(t, track.ConstructExtractors())
	assert.Equal(t, uint16(1), track.Extractors()[0].Sample.TrackRefIndex)

	bigger := oneColumn(omaf.Tile{}, omaf.Tile{OrigTileIdx: 1, DstCTUIndex: 4}, omaf.Tile{DstCTUIndex: 8})
	assert.True(t, errors.Is(track.SetTileLayout(bigger), ErrInvalidData))
	assert.True(t, track.TileLayout().Equal(swapped))

	require.NoError(t, track.DestroyExtractors())
	require.NoError(t, track.SetTileLayout(bigger))
	require.NoError(t, track.ConstructExtractors())
	assert.Equal(t, 3, track.ExtractorCount())
}

func TestSetTileLayout_SwapInNewStream(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	streams := fakeStreams{
		0: newStream(0, codedTile(20, 4, 2)),
		1: newStream(1, codedTile(30, 4, 2)),
	}
	track := newTrack(t, streams, gen, oneColumn(omaf.Tile{StreamIdx: 0}))
	require.NoError(t, track.ConstructExtractors())
	assert.Equal(t, 1, track.HandleCount())

	// 同形状替换引入新流，更新时为其新建句柄
	require.NoError(t, track.SetTileLayout(oneColumn(omaf.Tile{StreamIdx: 1})))
	require.NoError(t, track.ConstructExtractors())
	assert.Equal(t, 2, track.HandleCount())
	assert.Equal(t, 2, gen.news)
	assert.Equal(t, uint8(1), track.Extractors()[0].Sample.StreamIdx)
	assert.Equal(t, uint32(30-4-2-2), track.Extractors()[0].Sample.DataLength)
}

func TestConstructExtractors_FlowOut(t *testing.T) {
	tests := []struct {
		name         string
		failAt       int
		rounds       int
		wantTiles    int64 // 计入输出的 tile 数
		wantFailures int64
	}{
		{"generate_ok", 0, 1, 2, 0},
		{"generate_failed", 2, 1, 0, 1},
		{"update_ok", 0, 2, 4, 0},
		{"update_failed", 4, 2, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGen{headerLen: 8, failAt: tt.failAt}
			streams := fakeStreams{0: newStream(0, codedTile(20, 4, 2), codedTile(20, 4, 2))}
			flow := stats.NewFlow()
			track := NewExtractorTrack(1, streams, omaf.ProjectionERP, gen, Flow(flow))
			require.NoError(t, track.SetTileLayout(oneColumn(
				omaf.Tile{StreamIdx: 0, OrigTileIdx: 0},
				omaf.Tile{StreamIdx: 0, OrigTileIdx: 1, DstCTUIndex: 4},
			)))

			for i := 0; i < tt.rounds; i++ {
				track.ConstructExtractors()
			}

			inline := newInlineConstructor()
			require.NoError(t, inline.fill([]byte{0, 0, 0, 1, 0x26, 0x01, 0, 0}))
			sample := flow.GetSample()
			assert.Equal(t, tt.wantTiles*int64(inline.Length), sample.OutBytes)
			assert.Equal(t, tt.wantFailures, sample.Failures)
		})
	}
}

func TestDestroyExtractors(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	stream := newStream(0, codedTile(20, 4, 2))
	track := newTrack(t, fakeStreams{0: stream}, gen, oneColumn(omaf.Tile{}))
	require.NoError(t, track.ConstructExtractors())
	track.MarkFramesReady()
	assert.True(t, track.FramesReady())

	require.NoError(t, track.DestroyExtractors())
	assert.Equal(t, 0, track.ExtractorCount())
	assert.Empty(t, track.Extractors())
	assert.False(t, track.FramesReady())
	assert.Equal(t, 1, track.HandleCount())

	// 画面尺寸保留，重新生成时不再读取
	stream.params.DestWidth, stream.params.DestHeight = 0, 0
	require.NoError(t, track.ConstructExtractors())
	w, h := track.DstSize()
	assert.Equal(t, uint32(1280), w)
	assert.Equal(t, uint32(640), h)
	assert.Equal(t, 1, gen.news)
}

func TestExtractors_DeepCopy(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	track := newTrack(t, fakeStreams{0: newStream(0, codedTile(20, 4, 2))}, gen, oneColumn(omaf.Tile{}))
	require.NoError(t, track.ConstructExtractors())

	got := track.Extractors()
	got[0].Inline.Data[4] = 0
	got[0].Sample.DataLength = 0

	again := track.Extractors()
	assert.Equal(t, byte(0x26), again[0].Inline.Data[4])
	assert.Equal(t, uint32(20-4-2-2), again[0].Sample.DataLength)
}

func TestSetNalu(t *testing.T) {
	src := &hevc.Nalu{Data: []byte{0, 0, 0, 1, 0x40, 0x01, 0x0c}, StartCodesSize: 4, NaluType: hevc.NalVps, SeiPayloadType: -1}

	assert.Equal(t, ErrNullPointer, SetNalu(nil, &hevc.Nalu{}))
	assert.Equal(t, ErrInvalidData, SetNalu(&hevc.Nalu{}, &hevc.Nalu{}))

	dst := &hevc.Nalu{}
	require.NoError(t, SetNalu(src, dst))
	assert.Equal(t, src.Data, dst.Data)
	assert.Equal(t, src.NaluType, dst.NaluType)
	src.Data[6] = 0
	assert.Equal(t, byte(0x0c), dst.Data[6])

	other := &hevc.Nalu{Data: []byte{0, 0, 0, 1, 0x42, 0x01}, StartCodesSize: 4, NaluType: hevc.NalSps}
	assert.Equal(t, ErrInvalidData, SetNalu(other, dst))
	assert.Equal(t, byte(hevc.NalVps), dst.NaluType)
	assert.Equal(t, byte(0x40), dst.Data[4])
}

func TestParameterSets(t *testing.T) {
	track := NewExtractorTrack(0, fakeStreams{}, omaf.ProjectionERP, &fakeGen{})
	assert.True(t, track.VPS().Empty())
	assert.False(t, track.ParameterSetsReady())

	vps := &hevc.Nalu{Data: []byte{0, 0, 0, 1, 0x40, 0x01}, StartCodesSize: 4, NaluType: hevc.NalVps}
	sps := &hevc.Nalu{Data: []byte{0, 0, 0, 1, 0x42, 0x01}, StartCodesSize: 4, NaluType: hevc.NalSps}
	pps := &hevc.Nalu{Data: []byte{0, 0, 0, 1, 0x44, 0x01}, StartCodesSize: 4, NaluType: hevc.NalPps}
	require.NoError(t, track.SetVPS(vps))
	require.NoError(t, track.SetSPS(sps))
	require.NoError(t, track.SetPPS(pps))
	assert.Equal(t, ErrInvalidData, track.SetVPS(sps))

	assert.True(t, track.ParameterSetsReady())
	assert.Equal(t, vps.Data, track.VPS().Data)
	assert.Equal(t, sps.Data, track.SPS().Data)
	assert.Equal(t, pps.Data, track.PPS().Data)
}

func TestProjectionSEI(t *testing.T) {
	gen := &fakeGen{}
	streams := fakeStreams{2: newStream(2), 1: newStream(1)}
	streams[1].proj = omaf.ProjectionCubemap
	track := NewExtractorTrack(0, streams, omaf.ProjectionERP, gen)

	sei1, err := track.ProjectionSEI()
	require.NoError(t, err)
	sei2, err := track.ProjectionSEI()
	require.NoError(t, err)

	assert.Equal(t, 1, gen.projs)
	assert.Equal(t, sei1.Data, sei2.Data)
	assert.Equal(t, []byte{0, 0, 0, 6, 0x4e, 0x01, 150, 0x01, byte(scvp.CubemapProjection), 0x80}, sei1.Data)
	assert.Equal(t, uint32(10), sei1.Size())
	assert.Equal(t, byte(hevc.NalSeiPrefix), sei1.NaluType)
	assert.Equal(t, hevc.SeiEquirectProjection, sei1.SeiPayloadType)

	sei1.Data[0] = 0xee
	sei3, _ := track.ProjectionSEI()
	assert.Equal(t, byte(0), sei3.Data[0])
}

func TestProjectionSEI_Errors(t *testing.T) {
	gen := &fakeGen{}
	_, err := NewExtractorTrack(0, fakeStreams{}, omaf.ProjectionERP, gen).ProjectionSEI()
	assert.True(t, errors.Is(err, ErrStreamNotFound))

	stream := newStream(0)
	stream.proj = omaf.ProjectionPlanar
	track := NewExtractorTrack(0, fakeStreams{0: stream}, omaf.ProjectionERP, gen)
	_, err = track.ProjectionSEI()
	assert.True(t, errors.Is(err, ErrUndefinedOperation))

	// 失败不缓存
	stream.proj = omaf.ProjectionERP
	sei, err := track.ProjectionSEI()
	require.NoError(t, err)
	assert.Equal(t, byte(scvp.EquirectProjection), sei.Data[8])

	stream.handle = nil
	_, err = NewExtractorTrack(0, fakeStreams{0: stream}, omaf.ProjectionERP, gen).ProjectionSEI()
	assert.True(t, errors.Is(err, ErrNullPointer))
}

func TestRwpkSEI(t *testing.T) {
	gen := &fakeGen{}
	track := NewExtractorTrack(0, fakeStreams{0: newStream(0)}, omaf.ProjectionERP, gen)

	sei, err := track.RwpkSEI()
	require.NoError(t, err)
	require.NotNil(t, gen.rwpk)
	assert.Empty(t, gen.rwpk.Regions)
	assert.Equal(t, uint32(sei.Size()-4), binary.BigEndian.Uint32(sei.Data))
	assert.Equal(t, hevc.SeiRegionWisePacking, sei.SeiPayloadType)

	// 已生成后修改描述不影响缓存
	track.SetDstRwpk(&omaf.RegionWisePacking{Regions: make([]omaf.RectRegionPacking, 3)})
	again, err := track.RwpkSEI()
	require.NoError(t, err)
	assert.Equal(t, sei.Data, again.Data)
	assert.Equal(t, 1, gen.rwpks)
}

func TestSEI_Software(t *testing.T) {
	sw := scvp.NewSoftware()
	stream := newStream(0)
	stream.handle = sw.Open()
	track := NewExtractorTrack(0, fakeStreams{0: stream}, omaf.ProjectionERP, sw)

	proj, err := track.ProjectionSEI()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 6, 0x4e, 0x01, 150, 0x01, 0x44, 0x80}, proj.Data)

	rwpk1, err := track.RwpkSEI()
	require.NoError(t, err)
	other := NewExtractorTrack(1, fakeStreams{0: stream}, omaf.ProjectionERP, sw)
	rwpk2, err := other.RwpkSEI()
	require.NoError(t, err)
	assert.Equal(t, rwpk1.Data, rwpk2.Data)
	assert.Equal(t, uint32(rwpk1.Size()-4), binary.BigEndian.Uint32(rwpk1.Data))
}

func TestConstructExtractors_Software(t *testing.T) {
	sw := scvp.NewSoftware()
	slice := []byte{0, 0, 0, 1, 0x26, 0x01, 0xae, 0xa0, 0xde, 0xad}
	nalu, err := hevc.ParseNalu(slice)
	require.NoError(t, err)
	nalu.SliceHeaderLen = 2

	stream := newStream(0, media.TileInfo{Nalu: nalu}, media.TileInfo{Nalu: nalu})
	stream.handle = sw.Open()
	stream.params = scvp.Params{SrcWidth: 640, SrcHeight: 384, DestWidth: 640, DestHeight: 384, CTUSize: 64}
	track := newTrack(t, fakeStreams{0: stream}, sw, oneColumn(
		omaf.Tile{OrigTileIdx: 0, DstCTUIndex: 0},
		omaf.Tile{OrigTileIdx: 1, DstCTUIndex: 5},
	))

	require.NoError(t, track.ConstructExtractors())
	extractors := track.Extractors()
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0x26, 0x01, 0xae, 0xa0}, extractors[0].Inline.Data)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0x26, 0x01, 0x22, 0xba, 0x80}, extractors[1].Inline.Data)
	assert.Equal(t, uint32(9), extractors[1].Inline.Length)
	assert.Equal(t, uint32(2), extractors[1].Sample.DataLength)
	assert.Equal(t, 2, sw.Live())

	require.NoError(t, track.Close())
	assert.Equal(t, 1, sw.Live())
}

func TestClose(t *testing.T) {
	gen := &fakeGen{headerLen: 8, failDelete: true}
	streams := fakeStreams{
		0: newStream(0, codedTile(20, 4, 2)),
		1: newStream(1, codedTile(20, 4, 2)),
	}
	track := newTrack(t, streams, gen, &omaf.TileLayout{Columns: []omaf.TileColumn{
		{{StreamIdx: 0}}, {{StreamIdx: 1, DstCTUIndex: 1}},
	}})
	require.NoError(t, track.ConstructExtractors())
	assert.Equal(t, 2, track.HandleCount())

	err := track.Close()
	assert.True(t, errors.Is(err, ErrScvpProcessFailed))
	assert.Equal(t, 2, gen.destroys)
	assert.Equal(t, 0, track.HandleCount())
	assert.Equal(t, 0, track.ExtractorCount())
}

func TestInfo(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	streams := fakeStreams{3: newStream(3, codedTile(20, 4, 2))}
	covi := &omaf.ContentCoverage{SphereRegions: []omaf.SphereRegion{{AzimuthRange: 90}}}
	track := NewExtractorTrack(2, streams, omaf.ProjectionCubemap, gen,
		Layout(oneColumn(omaf.Tile{StreamIdx: 3})), DstCovi(covi))
	require.NoError(t, track.ConstructExtractors())

	info := track.Info()
	assert.Equal(t, uint8(2), info.ViewportIdx)
	assert.Equal(t, omaf.ProjectionCubemap, info.Projection)
	assert.Equal(t, 1, info.Tiles)
	assert.Equal(t, 1, info.Extractors)
	assert.Equal(t, []uint8{3}, info.Streams)
	assert.Equal(t, int64(8), info.Flow.OutBytes)
	assert.Equal(t, uint32(90), track.DstCovi().SphereRegions[0].AzimuthRange)
}

func TestConcurrentAccess(t *testing.T) {
	gen := &fakeGen{headerLen: 8}
	streams := fakeStreams{0: newStream(0, codedTile(20, 4, 2), codedTile(30, 4, 3))}
	track := newTrack(t, streams, gen, oneColumn(
		omaf.Tile{OrigTileIdx: 0},
		omaf.Tile{OrigTileIdx: 1, DstCTUIndex: 4},
	))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, track.ConstructExtractors())
				assert.Len(t, track.Extractors(), 2)
				_, err := track.ProjectionSEI()
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(400), track.ProcessedFrames())
	assert.Equal(t, 1, gen.projs)
	assert.Equal(t, 1, gen.news)
}
