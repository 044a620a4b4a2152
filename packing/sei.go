// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package packing

import (
	"encoding/binary"
	"fmt"

	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/media"
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/scvp"
)

const seiCapacity = 256

// ProjectionSEI 投影 SEI，首次调用时生成，之后返回缓存的拷贝.
// 数据的前 4 字节为大端长度 size - 4，取代起始码.
func (t *ExtractorTrack) ProjectionSEI() (*hevc.Nalu, error) {
	t.l.Lock()
	defer t.l.Unlock()

	if t.projSEI.Empty() {
		if err := t.generateProjectionSEI(); err != nil {
			t.logger.Errorf("generate projection sei failed; %v", err)
			return nil, err
		}
	}
	return t.projSEI.Clone(), nil
}

// RwpkSEI 区域打包 SEI，首次调用时生成，之后返回缓存的拷贝.
func (t *ExtractorTrack) RwpkSEI() (*hevc.Nalu, error) {
	t.l.Lock()
	defer t.l.Unlock()

	if t.rwpkSEI.Empty() {
		if err := t.generateRwpkSEI(); err != nil {
			t.logger.Errorf("generate rwpk sei failed; %v", err)
			return nil, err
		}
	}
	return t.rwpkSEI.Clone(), nil
}

// 取标识最小的源流，SEI 用它自己的句柄生成
func (t *ExtractorTrack) seiSource() (media.Source, scvp.Handle, error) {
	ids := t.streams.Ids()
	if len(ids) == 0 {
		return nil, nil, ErrStreamNotFound
	}

	src, ok := t.streams.Source(ids[0])
	if !ok || src == nil {
		return nil, nil, fmt.Errorf("%w: stream %d", ErrStreamNotFound, ids[0])
	}

	h := src.CodecHandle()
	if h == nil {
		return nil, nil, fmt.Errorf("%w: stream %d has no codec handle", ErrNullPointer, ids[0])
	}
	return src, h, nil
}

func (t *ExtractorTrack) generateProjectionSEI() error {
	src, h, err := t.seiSource()
	if err != nil {
		return err
	}

	var kind scvp.ProjectionKind
	switch src.ProjectionFormat() {
	case omaf.ProjectionERP:
		kind = scvp.EquirectProjection
	case omaf.ProjectionCubemap:
		kind = scvp.CubemapProjection
	default:
		return fmt.Errorf("%w: projection format %q", ErrUndefinedOperation, src.ProjectionFormat())
	}

	out := make([]byte, seiCapacity)
	n, err := t.gen.GenerateProjection(h, kind, out)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScvpProcessFailed, err)
	}
	return storeSei(t.projSEI, out, n)
}

func (t *ExtractorTrack) generateRwpkSEI() error {
	_, h, err := t.seiSource()
	if err != nil {
		return err
	}

	rwpk := t.dstRwpk
	if rwpk == nil {
		rwpk = &omaf.RegionWisePacking{}
	}

	out := make([]byte, seiCapacity)
	n, err := t.gen.GenerateRwpk(h, rwpk, out)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScvpProcessFailed, err)
	}
	return storeSei(t.rwpkSEI, out, n)
}

// storeSei 用大端长度 n - 4 覆盖起始码后填充 dst
func storeSei(dst *hevc.Nalu, out []byte, n int) error {
	if n <= hevc.StartCodesLen+hevc.NaluHeaderLen || n > len(out) {
		return fmt.Errorf("%w: generated sei length %d", ErrScvpProcessFailed, n)
	}

	nalu, err := hevc.ParseNalu(out[:n])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScvpProcessFailed, err)
	}

	binary.BigEndian.PutUint32(nalu.Data, uint32(n-hevc.StartCodesLen))
	nalu.StartCodesSize = hevc.StartCodesLen
	*dst = *nalu
	return nil
}
