package vmm

import (
	"gopheros/kernel/mem/pmm"
	"testing"
	"unsafe"
)

func withMapSeams(t *testing.T, backing *[pageLevels]pageTableEntry) (restore func()) {
	origAlloc, origFlush, origMemset, origPtePtr := allocFrameFn, flushTLBEntryFn, memsetFn, ptePtrFn

	nextFrame := pmm.Frame(1)
	allocFrameFn = func() pmm.Frame {
		f := nextFrame
		nextFrame++
		return f
	}
	flushTLBEntryFn = func(uintptr) {}
	memsetFn = func(uintptr, byte, uintptr) {}

	calls := 0
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		pte := &backing[calls]
		if calls < pageLevels-1 {
			calls++
		}
		return unsafe.Pointer(pte)
	}

	return func() {
		allocFrameFn, flushTLBEntryFn, memsetFn, ptePtrFn = origAlloc, origFlush, origMemset, origPtePtr
	}
}

func TestMapAllocatesFrameForEachPage(t *testing.T) {
	var backing [pageLevels]pageTableEntry
	backing[0].SetFlags(FlagPresent | FlagRW)
	restore := withMapSeams(t, &backing)
	defer restore()

	if err := Map(0x00400000, 1, FlagRW); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !backing[pageLevels-1].HasFlags(FlagPresent | FlagRW) {
		t.Error("expected the leaf entry to end up present and writable")
	}
	if !backing[pageLevels-1].Frame().Valid() {
		t.Error("expected the leaf entry to be assigned a valid frame")
	}
}

func TestMapFrameUsesSuppliedFrame(t *testing.T) {
	var backing [pageLevels]pageTableEntry
	backing[0].SetFlags(FlagPresent | FlagRW)
	restore := withMapSeams(t, &backing)
	defer restore()

	if err := MapFrame(0x00400000, pmm.Frame(0x99), FlagRW); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := backing[pageLevels-1].Frame(); got != pmm.Frame(0x99) {
		t.Errorf("expected leaf entry to point at frame 0x99; got 0x%x", uint32(got))
	}
}

func TestMapFrameAllocatesMissingIntermediateTable(t *testing.T) {
	var backing [pageLevels]pageTableEntry // level 0 starts absent
	restore := withMapSeams(t, &backing)
	defer restore()

	if err := MapFrame(0x00400000, pmm.Frame(0x7), FlagRW); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !backing[0].HasFlags(FlagPresent | FlagRW) {
		t.Error("expected the missing intermediate table to be allocated present+writable")
	}
}
