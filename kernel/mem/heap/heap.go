// Package heap provides the kernel's only dynamic memory allocator: a bump
// allocator over a fixed virtual region that grows by mapping fresh pages on
// demand. It never reclaims memory; Free is a documented no-op, matching
// this kernel's "physical frames and heap memory are never released" design.
package heap

import (
	"gopheros/kernel"
	"gopheros/kernel/kfmt/early"
	"gopheros/kernel/mem"
	"gopheros/kernel/mem/vmm"
)

// HeapBase is the fixed virtual address the heap grows upward from.
const HeapBase = uintptr(0xD0000000)

// wordAlign is the alignment the bump allocator naturally provides.
const wordAlign = uintptr(1) << mem.PointerShift

var (
	mapFn     = vmm.Map
	memcopyFn = kernel.Memcopy
	panicFn   = kernel.Panic

	next   = HeapBase
	mapped = HeapBase

	loggedMisalignment bool
)

// Init resets the bump cursor. It must run after vmm.Init so Malloc can map
// pages into the address space it grows into.
func Init() {
	next = HeapBase
	mapped = HeapBase
}

// Malloc returns a pointer to a fresh, n-byte region of memory, mapping
// whatever additional pages are required to back it. It never fails: a
// mapping error is fatal (see vmm.Map), matching the "physical allocator
// never fails" contract the rest of the kernel relies on.
func Malloc(n uintptr) uintptr {
	for mapped-next < n {
		if err := mapFn(mapped, uintptr(mem.PageSize), vmm.FlagPresent|vmm.FlagRW); err != nil {
			early.Printf("[heap] fatal: failed to grow heap at 0x%x: %s\n", mapped, err.Error())
			panicFn(err)
		}
		mapped += uintptr(mem.PageSize)
	}

	ptr := next
	next += n

	return ptr
}

// Realloc allocates a fresh n-byte region and copies n bytes forward from p
// into it. The bump allocator keeps no per-block size metadata, so callers
// must not pass an n smaller than p's original allocation.
func Realloc(p uintptr, n uintptr) uintptr {
	newPtr := Malloc(n)
	memcopyFn(p, newPtr, n)
	Free(p)
	return newPtr
}

// Free does nothing. The heap never reclaims memory.
func Free(p uintptr) {}

// PosixMemalign returns an n-byte allocation. The bump allocator always
// returns word-aligned memory; a request for coarser alignment is logged
// once and otherwise ignored, since no caller in this kernel asks for more.
func PosixMemalign(alignment uintptr, n uintptr) uintptr {
	if alignment > wordAlign && !loggedMisalignment {
		loggedMisalignment = true
		early.Printf("[heap] warning: PosixMemalign alignment %d exceeds natural alignment; ignoring\n", alignment)
	}
	return Malloc(n)
}
