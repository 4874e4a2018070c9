package pmm

import (
	"gopheros/kernel/hal/multiboot"
	"gopheros/kernel/kfmt/early"
	"gopheros/kernel/mem"
)

var (
	nextFrame        Frame
	lastAvailableEnd uintptr
	loggedExhausted  bool
)

// Init prepares the physical frame allocator. kernelEnd is the first
// physical address after the loaded kernel image; frames are handed out
// starting from the page following it.
//
// Init also scans the multiboot memory map to record the highest address
// reported as available, purely so AllocFrame can log a one-time warning
// once its bump cursor runs past it. The allocator never consults the map
// to decide what to hand out and never fails: it has no free list and no
// out-of-memory condition, matching the commitment that frame allocation in
// this kernel is infallible by design.
func Init(kernelEnd uintptr) {
	pageSizeMinus1 := uintptr(mem.PageSize - 1)
	nextFrame = FrameFromAddress((kernelEnd + pageSizeMinus1) &^ pageSizeMinus1)

	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		if region.Type == multiboot.MemAvailable {
			end := uintptr(region.PhysAddress + region.Length)
			if end > lastAvailableEnd {
				lastAvailableEnd = end
			}
		}
		return true
	})

	early.Printf("[pmm] kernel ends at 0x%x; allocating frames from 0x%x\n", kernelEnd, nextFrame.Address())
	early.Printf("[pmm] bootloader reports usable memory up to 0x%x\n", lastAvailableEnd)
}

// AllocFrame hands out the next physical frame. Frames are never reclaimed;
// this is a pure monotonic bump allocator.
func AllocFrame() Frame {
	f := nextFrame
	nextFrame++

	if !loggedExhausted && lastAvailableEnd != 0 && f.Address() >= lastAvailableEnd {
		loggedExhausted = true
		early.Printf("[pmm] warning: frame allocation cursor has passed reported available memory\n")
	}

	return f
}
