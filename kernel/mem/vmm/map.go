package vmm

import (
	"gopheros/kernel"
	"gopheros/kernel/cpu"
	"gopheros/kernel/mem"
	"gopheros/kernel/mem/pmm"
	"unsafe"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	allocFrameFn    = pmm.AllocFrame
	flushTLBEntryFn = cpu.FlushTLBEntry
	memsetFn        = kernel.Memset
)

// Map establishes a mapping between the page(s) covering [virt, virt+size)
// and freshly allocated physical frames in the currently active page
// directory, allocating any missing intermediate page tables along the way.
// size is rounded up to the nearest page boundary.
func Map(virt uintptr, size uintptr, flags PageTableEntryFlag) *kernel.Error {
	flags = translateFlags(flags)

	start := virt &^ (uintptr(mem.PageSize) - 1)
	end := (virt + size + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)

	var err *kernel.Error
	for page := start; page < end; page += uintptr(mem.PageSize) {
		if mapErr := mapPage(page, flags); mapErr != nil {
			err = mapErr
			break
		}
	}

	return err
}

// mapPage establishes a mapping for a single page-aligned virtual address,
// allocating a fresh physical frame for it.
func mapPage(virt uintptr, flags PageTableEntryFlag) *kernel.Error {
	var err *kernel.Error

	walk(virt, func(pteLevel uint8, pte *pageTableEntry) bool {
		if pteLevel == pageLevels-1 {
			frame := allocFrameFn()
			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			flushTLBEntryFn(virt)
			return true
		}

		if !pte.HasFlags(FlagPresent) {
			tableFrame := allocFrameFn()
			*pte = 0
			pte.SetFrame(tableFrame)
			pte.SetFlags(FlagPresent | FlagRW)

			// The freshly mapped table is now reachable through the
			// recursive mapping at the next level; zero it so stale
			// physical memory isn't interpreted as entries.
			nextTableAddr := nextLevelAddr(pte, pteLevel)
			memsetFn(nextTableAddr, 0, uintptr(mem.PageSize))
		}

		return true
	})

	return err
}

// nextLevelAddr computes the recursively-mapped virtual address of the
// table that pte (itself addressed recursively at pteLevel) points to. This
// mirrors the shift walk() applies internally to descend a level, letting
// callers reach a just-allocated table through the same recursive trick
// before the next walk() call would.
func nextLevelAddr(pte *pageTableEntry, pteLevel uint8) uintptr {
	return uintptr(unsafe.Pointer(pte)) << pageLevelBits[pteLevel]
}

// MapFrame establishes a mapping from virt to a caller-supplied physical
// frame rather than allocating a new one. Used for the temporary scratch
// mappings that CloneDirectory needs and by the Go runtime's sysMap hook.
func MapFrame(virt uintptr, frame pmm.Frame, flags PageTableEntryFlag) *kernel.Error {
	flags = translateFlags(flags)

	var err *kernel.Error
	walk(virt, func(pteLevel uint8, pte *pageTableEntry) bool {
		if pteLevel == pageLevels-1 {
			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			flushTLBEntryFn(virt)
			return true
		}

		if !pte.HasFlags(FlagPresent) {
			tableFrame := allocFrameFn()
			*pte = 0
			pte.SetFrame(tableFrame)
			pte.SetFlags(FlagPresent | FlagRW)
			memsetFn(nextLevelAddr(pte, pteLevel), 0, uintptr(mem.PageSize))
		}

		return true
	})

	return err
}
