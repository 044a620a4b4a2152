// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package utils

import "bytes"

var (
	startCode4 = []byte{0x0, 0x0, 0x0, 0x1}
	startCode3 = []byte{0x0, 0x0, 0x1}
)

// NaluSeparatorLen 返回 NALU 分隔符(起始码)的长度，0 表示没有分隔符
func NaluSeparatorLen(nalu []byte) int {
	if bytes.HasPrefix(nalu, startCode4) {
		return 4
	}
	if bytes.HasPrefix(nalu, startCode3) {
		return 3
	}
	return 0
}

// RemoveNaluSeparator 移除 NALU 分隔符 0x00000001 或 0x000001
func RemoveNaluSeparator(nalu []byte) []byte {
	return nalu[NaluSeparatorLen(nalu):]
}

// RemoveH264or5EmulationBytes 拷贝(H.264 or H.265) NAL unit，同时移除防竞争字节 0x03
func RemoveH264or5EmulationBytes(from []byte) []byte {
	from = RemoveNaluSeparator(from)
	to := make([]byte, 0, len(from))
	zeros := 0
	for _, b := range from {
		if zeros >= 2 && b == 3 {
			zeros = 0
			continue
		}

		to = append(to, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return to
}

// AddH264or5EmulationBytes 为 RBSP 插入防竞争字节：
// 连续两个 0x00 后若出现 <= 0x03 的字节，先插入 0x03
func AddH264or5EmulationBytes(from []byte) []byte {
	to := make([]byte, 0, len(from)+len(from)/2)
	zeros := 0
	for _, b := range from {
		if zeros >= 2 && b <= 3 {
			to = append(to, 3)
			zeros = 0
		}

		to = append(to, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return to
}
