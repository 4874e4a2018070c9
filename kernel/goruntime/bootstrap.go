// Package goruntime bootstraps the parts of the Go runtime's own memory
// allocator that would otherwise issue raw OS memory-management calls:
// sysReserve, sysMap and sysAlloc are redirected (via go:linkname, the same
// technique the teacher uses) to grow a dedicated virtual region backed by
// this kernel's own frame allocator and page mapper instead. Without this,
// every ordinary Go allocation (new, make, a growing slice, a map insert)
// would eventually try to reach an operating system that is not there.
package goruntime

import (
	"gopheros/kernel/mem"
	"gopheros/kernel/mem/pmm"
	"gopheros/kernel/mem/vmm"
	"unsafe"
)

// arenaBase is the fixed virtual address the Go runtime's own heap grows
// from. It is deliberately distinct from kernel/mem/heap.HeapBase: that
// package serves this kernel's own Malloc/Realloc/Free API, spec-mandated
// for syscalls and the ELF loader; this one serves the Go runtime's
// internal allocator that every package here implicitly depends on.
const arenaBase = uintptr(0xE0000000)

var (
	mapFrameFn   = vmm.MapFrame
	allocFrameFn = pmm.AllocFrame

	next = arenaBase
)

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

// sysReserve reserves address space without allocating any memory or
// establishing any page mappings.
//
// This function replaces runtime.sysReserve and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysReserve
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr, reserved *bool) unsafe.Pointer {
	start := next
	next += pageRound(size)
	*reserved = true
	return unsafe.Pointer(start)
}

// sysMap establishes a mapping for a region previously reserved via
// sysReserve. This target has no copy-on-write support (kernel/mem/vmm's
// CloneDirectory deep-copies eagerly instead), so the mapping is backed by
// real frames immediately rather than a shared zero page.
//
// This function replaces runtime.sysMap and is required for initializing the
// Go allocator.
//
//go:redirect-from runtime.sysMap
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, reserved bool, sysStat *uint64) unsafe.Pointer {
	if !reserved {
		panic("sysMap should only be called with reserved=true")
	}

	start := uintptr(virtAddr) &^ (uintptr(mem.PageSize) - 1)
	regionSize := pageRound(size)

	for page := start; page < start+regionSize; page += uintptr(mem.PageSize) {
		if err := mapFrameFn(page, allocFrameFn(), vmm.FlagPresent|vmm.FlagRW); err != nil {
			return unsafe.Pointer(uintptr(0))
		}
	}

	mSysStatInc(sysStat, uintptr(regionSize))
	return unsafe.Pointer(start)
}

// sysAlloc reserves enough physical frames to satisfy the allocation
// request and establishes a contiguous virtual page mapping for them,
// returning the pointer to the virtual region start.
//
// This function replaces runtime.sysAlloc and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysAlloc
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	var reserved bool
	ptr := sysReserve(nil, size, &reserved)
	return sysMap(ptr, size, reserved, sysStat)
}

func pageRound(size uintptr) uintptr {
	return (size + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
}

func init() {
	// Dummy calls so the compiler does not optimize away the functions in
	// this file.
	var (
		reserved bool
		stat     uint64
		zeroPtr  = unsafe.Pointer(uintptr(0))
	)

	sysReserve(zeroPtr, 0, &reserved)
	sysMap(zeroPtr, 0, reserved, &stat)
	sysAlloc(0, &stat)
}
