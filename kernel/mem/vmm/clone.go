package vmm

import (
	"gopheros/kernel"
	"gopheros/kernel/mem"
	"gopheros/kernel/mem/pmm"
	"unsafe"
)

var memcopyFn = kernel.Memcopy

const (
	// pageTableCoverage is the span of virtual memory mapped by a single
	// page table, and hence by a single page directory entry.
	pageTableCoverage = uintptr(pageLevelEntries) * uintptr(mem.PageSize)

	// deepCopyEnd is the first address of kernel space. CloneDirectory
	// deep-copies everything below it and links everything at or above
	// it, matching the fixed 3 GiB user/kernel split.
	deepCopyEnd = uintptr(0xC0000000)
)

// CloneDirectory creates a new page directory that is a fork snapshot of the
// one currently active: the first 4 MiB (the identity-mapped kernel image)
// is linked as-is, user space [4 MiB, 3 GiB) is deep copied page by page so
// parent and child stop sharing frames, and kernel space, from 3 GiB up to
// the recursive directory slots, is linked one directory entry (4 MiB) at a
// time, allocating any kernel page table that does not exist yet, so both
// address spaces keep observing the same kernel mappings. It returns the physical address of
// the new directory.
func CloneDirectory() (uintptr, *kernel.Error) {
	dirPhys, err := newDirectory()
	if err != nil {
		return 0, err
	}

	mapSecondaryDirectory(dirPhys)

	*secondaryDirSlot(0) = currentDirEntry(0)

	for addr := pageTableCoverage; addr < deepCopyEnd; addr += uintptr(mem.PageSize) {
		srcPTE, lookupErr := pteForAddress(addr)
		if lookupErr != nil {
			continue
		}

		dstFrame := allocFrameFn()
		if copyErr := copyPage(srcPTE.Frame().Address(), dstFrame.Address()); copyErr != nil {
			return 0, copyErr
		}
		if setErr := setDirectoryPage(addr, dstFrame, srcPTE.Flags()); setErr != nil {
			return 0, setErr
		}
	}

	for index := deepCopyEnd / pageTableCoverage; index < secondaryDirIndex; index++ {
		// Make sure the kernel page table exists in the current directory
		// before linking it, so that mappings added to it later are seen
		// by both address spaces.
		entry := (*pageTableEntry)(unsafe.Pointer(pdtVirtualAddr + (index << mem.PointerShift)))
		if !entry.HasFlags(FlagPresent) {
			*entry = 0
			entry.SetFrame(allocFrameFn())
			entry.SetFlags(FlagPresent | FlagRW)
			memsetFn(nextLevelAddr(entry, 0), 0, uintptr(mem.PageSize))
		}
		*secondaryDirSlot(index) = *entry
	}

	return dirPhys, nil
}

// newDirectory allocates a frame for a fresh page directory, zeroes it and
// wires its own recursive self-mapping slot so it can later be addressed as
// a flat array of entries through pdtSecondaryVirtualAddr.
func newDirectory() (uintptr, *kernel.Error) {
	frame := allocFrameFn()
	if err := MapFrame(temp1Addr, frame, FlagPresent|FlagRW); err != nil {
		return 0, err
	}
	memsetFn(temp1Addr, 0, uintptr(mem.PageSize))

	dir := (*[pageLevelEntries]pageTableEntry)(unsafe.Pointer(temp1Addr))
	selfEntry := pageTableEntry(0)
	selfEntry.SetFrame(frame)
	selfEntry.SetFlags(FlagPresent | FlagRW)
	dir[pageLevelEntries-1] = selfEntry

	return frame.Address(), nil
}

// mapSecondaryDirectory installs dirPhys as directory entry secondaryDirIndex
// of the currently active directory. Because dirPhys's own last slot points
// back at itself (see newDirectory), the hardware's page-table walk for the
// resulting "table" lands the new directory's own page at
// pdtSecondaryVirtualAddr, exposing it as a flat, writable array of entries.
func mapSecondaryDirectory(dirPhys uintptr) {
	entry := pageTableEntry(0)
	entry.SetFrame(pmm.FrameFromAddress(dirPhys))
	entry.SetFlags(FlagPresent | FlagRW)
	*(*pageTableEntry)(unsafe.Pointer(pdtVirtualAddr + secondaryDirIndex*4)) = entry
	flushTLBEntryFn(pdtSecondaryVirtualAddr)
}

// currentDirEntry reads directory entry index of the currently active
// directory through its own recursive self-mapping.
func currentDirEntry(index uintptr) pageTableEntry {
	return *(*pageTableEntry)(unsafe.Pointer(pdtVirtualAddr + index*4))
}

// secondaryDirSlot addresses directory entry index of the directory exposed
// through mapSecondaryDirectory.
func secondaryDirSlot(index uintptr) *pageTableEntry {
	return (*pageTableEntry)(unsafe.Pointer(pdtSecondaryVirtualAddr + index*4))
}

// setDirectoryPage installs a leaf mapping for addr in the directory exposed
// through the secondary recursive slot, allocating and zeroing the backing
// page table on first use.
func setDirectoryPage(addr uintptr, frame pmm.Frame, flags PageTableEntryFlag) *kernel.Error {
	dirIndex := (addr >> pageLevelShifts[0]) & (uintptr(pageLevelEntries) - 1)
	slot := secondaryDirSlot(dirIndex)

	fresh := !slot.HasFlags(FlagPresent)

	var tableFrame pmm.Frame
	if fresh {
		tableFrame = allocFrameFn()
		*slot = 0
		slot.SetFrame(tableFrame)
		slot.SetFlags(FlagPresent | FlagRW)
	} else {
		tableFrame = slot.Frame()
	}

	if err := MapFrame(temp1Addr, tableFrame, FlagPresent|FlagRW); err != nil {
		return err
	}
	if fresh {
		memsetFn(temp1Addr, 0, uintptr(mem.PageSize))
	}

	table := (*[pageLevelEntries]pageTableEntry)(unsafe.Pointer(temp1Addr))
	pteIndex := (addr >> pageLevelShifts[1]) & (uintptr(pageLevelEntries) - 1)

	entry := pageTableEntry(0)
	entry.SetFrame(frame)
	entry.SetFlags(flags)
	table[pteIndex] = entry

	return nil
}

// copyPage copies the contents of the physical page at srcPhys into the
// physical page at dstPhys, using the two single-page scratch mappings so
// neither frame needs to already be addressable.
func copyPage(srcPhys, dstPhys uintptr) *kernel.Error {
	if err := MapFrame(temp1Addr, pmm.FrameFromAddress(srcPhys), FlagPresent); err != nil {
		return err
	}
	if err := MapFrame(temp2Addr, pmm.FrameFromAddress(dstPhys), FlagPresent|FlagRW); err != nil {
		return err
	}
	memcopyFn(temp1Addr, temp2Addr, uintptr(mem.PageSize))
	return nil
}
