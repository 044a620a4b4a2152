// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"runtime"
	"time"

	"github.com/kelindar/process"
)

// 创建时间
var (
	StartingTime = time.Now()
)

// Proc 进程信息统计
type Proc struct {
	CPU    float64 `json:"cpu"`    // cpu使用情况
	Priv   int32   `json:"priv"`   // 私有内存 KB
	Virt   int32   `json:"virt"`   // 虚拟内存 KB
	Uptime int32   `json:"uptime"` // 运行时间 S
}

// Memory 通用内存信息
type Memory struct {
	Inuse int32 `json:"inuse"` // KB
	Sys   int32 `json:"sys"`   // KB
}

// Runtime 运行时统计
type Runtime struct {
	Proc       Proc       `json:"proc"`
	Heap       Memory     `json:"heap"`    // MemStats.HeapInuse/HeapSys
	Objects    int32      `json:"objects"` // MemStats.HeapObjects
	Stack      Memory     `json:"stack"`   // MemStats.StackInuse/StackSys
	GCCPU      float64    `json:"gccpu"`   // MemStats.GCCPUFraction
	NumGC      uint32     `json:"numgc"`
	Goroutines int32      `json:"goroutines"`
	Packing    FlowSample `json:"packing"`
}

// MeasureRuntime 获取进程信息。
func MeasureRuntime() (proc Proc) {
	defer func() { recover() }()

	proc.Uptime = int32(time.Since(StartingTime).Seconds())
	var memoryPriv, memoryVirtual int64
	var cpu float64
	process.ProcUsage(&cpu, &memoryPriv, &memoryVirtual)
	proc.CPU = cpu
	proc.Priv = toKB(uint64(memoryPriv))
	proc.Virt = toKB(uint64(memoryVirtual))
	return
}

// MeasureFullRuntime 获取进程、内存与打包统计信息。
func MeasureFullRuntime() *Runtime {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	return &Runtime{
		Proc: MeasureRuntime(),
		Heap: Memory{
			Inuse: toKB(memory.HeapInuse),
			Sys:   toKB(memory.HeapSys),
		},
		Objects: int32(memory.HeapObjects),
		Stack: Memory{
			Inuse: toKB(memory.StackInuse),
			Sys:   toKB(memory.StackSys),
		},
		GCCPU:      memory.GCCPUFraction,
		NumGC:      memory.NumGC,
		Goroutines: int32(runtime.NumGoroutine()),
		Packing:    Total.GetSample(),
	}
}

// Converts the memory in bytes to KBs, otherwise it would overflow our int32
func toKB(v uint64) int32 {
	return int32(v / 1024)
}
