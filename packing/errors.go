// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package packing

import "errors"

// 错误定义
var (
	// ErrNullPointer 缺少必需的依赖（流的生成器句柄、布局等）
	ErrNullPointer = errors.New("packing: null pointer")
	// ErrInvalidData 前置条件不满足
	ErrInvalidData = errors.New("packing: invalid data")
	// ErrStreamNotFound 布局引用的流不存在
	ErrStreamNotFound = errors.New("packing: stream not found")
	// ErrExtractorNotFound 更新时布局与已有提取器不匹配
	ErrExtractorNotFound = errors.New("packing: extractor not found")
	// ErrScvpOperationFailed 图像片头生成失败
	ErrScvpOperationFailed = errors.New("packing: scvp operation failed")
	// ErrScvpProcessFailed SEI 生成或句柄操作失败
	ErrScvpProcessFailed = errors.New("packing: scvp process failed")
	// ErrUndefinedOperation 不支持的投影格式
	ErrUndefinedOperation = errors.New("packing: undefined operation")
)
