// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bits

// Reader 按位（MSB 优先）读取字节切片.
// 越界读取会 panic，调用方在解码入口处 recover.
type Reader struct {
	buf    []byte
	offset int // bit base
}

// NewReader retruns a new Reader.
func NewReader(buf []byte) *Reader {
	return &Reader{
		buf: buf,
	}
}

// Skip skip n bits.
func (r *Reader) Skip(n int) {
	if n <= 0 {
		return
	}
	_ = r.buf[(r.offset+n-1)>>3] // bounds check hint to compiler; see golang.org/issue/14808
	r.offset += n
}

// ReadBit read a bit.
func (r *Reader) ReadBit() uint8 {
	_ = r.buf[r.offset>>3]

	tmp := (r.buf[r.offset>>3] >> (7 - r.offset&0x7)) & 1
	r.offset++
	return tmp
}

// ReadBool read one bit bool.
func (r *Reader) ReadBool() bool { return r.ReadBit() == 1 }

// ReadUint8 read the uint8 of n bits.
func (r *Reader) ReadUint8(n int) uint8 { return uint8(r.readUint64(n, 8)) }

// ReadUint16 read the uint16 of n bits.
func (r *Reader) ReadUint16(n int) uint16 { return uint16(r.readUint64(n, 16)) }

// ReadUint32 read the uint32 of n bits.
func (r *Reader) ReadUint32(n int) uint32 { return uint32(r.readUint64(n, 32)) }

// ReadUint64 read the uint64 of n bits.
func (r *Reader) ReadUint64(n int) uint64 { return r.readUint64(n, 64) }

// ReadUe 读取无符号指数哥伦布码 ue(v).
func (r *Reader) ReadUe() uint32 {
	i := 0
	for r.ReadBit() == 0 && i < 32 {
		i++
	}
	return r.ReadUint32(i) + (1<<uint(i) - 1)
}

// Offset returns the offset of bits.
func (r *Reader) Offset() int {
	return r.offset
}

// BitsLeft returns the number of left bits.
func (r *Reader) BitsLeft() int {
	return len(r.buf)<<3 - r.offset
}

var bitsMask = [9]byte{
	0x00,
	0x01, 0x03, 0x07, 0x0f,
	0x1f, 0x3f, 0x7f, 0xff,
}

func (r *Reader) readUint64(n, max int) uint64 {
	if n <= 0 || n > max {
		return 0
	}

	_ = r.buf[(r.offset+n-1)>>3] // bounds check hint to compiler; see golang.org/issue/14808

	idx := r.offset >> 3
	validBits := 8 - r.offset&0x7
	r.offset += n

	var tmp uint64
	for n >= validBits {
		n -= validBits
		tmp |= uint64(r.buf[idx]&bitsMask[validBits]) << uint(n)
		idx++
		validBits = 8
	}

	if n > 0 {
		tmp |= uint64((r.buf[idx] >> uint(validBits-n)) & bitsMask[n])
	}
	return tmp
}
