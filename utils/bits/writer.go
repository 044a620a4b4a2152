// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bits

// Writer 按位（MSB 优先）写入，内部缓存按需增长.
type Writer struct {
	buf    []byte
	offset int // bit base
}

// NewWriter 创建 Writer，capacity 为初始字节容量
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: make([]byte, 0, capacity),
	}
}

// WriteBit write a bit.
func (w *Writer) WriteBit(b uint8) {
	if w.offset&0x7 == 0 {
		w.buf = append(w.buf, 0)
	}
	if b&1 == 1 {
		w.buf[len(w.buf)-1] |= 1 << uint(7-w.offset&0x7)
	}
	w.offset++
}

// WriteBool write one bit bool.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
}

// WriteUint64 write the low n bits of v.
func (w *Writer) WriteUint64(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.WriteBit(uint8(v >> uint(i)))
	}
}

// WriteUint32 write the low n bits of v.
func (w *Writer) WriteUint32(v uint32, n int) { w.WriteUint64(uint64(v), n) }

// WriteUe 写入无符号指数哥伦布码 ue(v).
func (w *Writer) WriteUe(v uint32) {
	code := uint64(v) + 1
	n := 0
	for tmp := code; tmp > 1; tmp >>= 1 {
		n++
	}
	w.WriteUint64(0, n)
	w.WriteUint64(code, n+1)
}

// ByteAligned 当前是否字节对齐
func (w *Writer) ByteAligned() bool {
	return w.offset&0x7 == 0
}

// AlignOne 写入一个 1 后补 0 至字节对齐（rbsp_trailing_bits/byte_alignment）
func (w *Writer) AlignOne() {
	w.WriteBit(1)
	for !w.ByteAligned() {
		w.WriteBit(0)
	}
}

// Offset returns the offset of bits.
func (w *Writer) Offset() int {
	return w.offset
}

// Bytes 返回已写入的字节，最后一个字节未满时低位为 0
func (w *Writer) Bytes() []byte {
	return w.buf
}
