package vmm

import (
	"gopheros/kernel"
	"gopheros/kernel/cpu"
	"gopheros/kernel/gate"
	"gopheros/kernel/kfmt/early"
	"gopheros/kernel/mem"
	"gopheros/kernel/mem/pmm"
	"unsafe"
)

var (
	readCR2Fn           = cpu.ReadCR2
	switchPDTFn         = cpu.SwitchPDT
	registerPageFaultFn = gate.HandleInterrupt

	execWarningLogged bool

	errUnrecoverableFault = &kernel.Error{Module: "vmm", Message: "unrecoverable page fault"}
)

// Init identity-maps the first 4 MiB of physical memory (where the kernel
// image and its early structures live), installs the directory's recursive
// self-mapping slot, registers the page-fault handler, activates the new
// directory and finally enables paging.
func Init() *kernel.Error {
	pdtFrame := allocFrameFn()
	tableFrame := allocFrameFn()

	// Identity map the first 4 MiB using a single page table. Before
	// paging is enabled, physical and virtual addresses coincide, so the
	// frames backing the directory and its one table can be addressed
	// directly.
	tableVirt := uintptr(tableFrame.Address())
	memsetFn(tableVirt, 0, uintptr(mem.PageSize))
	table := (*[1024]pageTableEntry)(unsafe.Pointer(tableVirt))
	for i := 0; i < 1024; i++ {
		entry := pageTableEntry(0)
		entry.SetFrame(pmm.Frame(i))
		entry.SetFlags(FlagPresent | FlagRW)
		table[i] = entry
	}

	dirVirt := uintptr(pdtFrame.Address())
	memsetFn(dirVirt, 0, uintptr(mem.PageSize))
	dir := (*[1024]pageTableEntry)(unsafe.Pointer(dirVirt))

	firstEntry := pageTableEntry(0)
	firstEntry.SetFrame(tableFrame)
	firstEntry.SetFlags(FlagPresent | FlagRW)
	dir[0] = firstEntry

	// Recursive slot: the last directory entry points back at the
	// directory itself so it (and, through it, every table) remains
	// addressable via pdtVirtualAddr once paging is active.
	selfEntry := pageTableEntry(0)
	selfEntry.SetFrame(pdtFrame)
	selfEntry.SetFlags(FlagPresent | FlagRW)
	dir[1023] = selfEntry

	registerPageFaultFn(14, pageFaultHandler)

	switchPDTFn(pdtFrame.Address())
	enablePaging()

	return nil
}

// SwitchPageDirectory activates the page directory at the given physical
// address, used by the scheduler when context-switching to a task with its
// own address space (created via CloneDirectory).
func SwitchPageDirectory(phys uintptr) {
	switchPDTFn(phys)
}

func pageFaultHandler(regs *gate.Registers) {
	faultAddr := readCR2Fn()

	early.Printf("\npage fault at 0x%x while accessing 0x%x\nreason: ", regs.EIP, faultAddr)
	switch {
	case regs.ErrCode&1 == 0:
		early.Printf("non-present page")
	case regs.ErrCode&2 != 0:
		early.Printf("write to read-only page")
	default:
		early.Printf("protection violation")
	}
	if regs.ErrCode&4 != 0 {
		early.Printf(" (user-mode)")
	}
	early.Printf("\n")

	kernel.Panic(errUnrecoverableFault)
}

// warnExecIgnored logs, once, that the EXEC flag passed to Map/MapFrame has
// no enforcement on this target (no PAE, no NX bit).
func warnExecIgnored() {
	if execWarningLogged {
		return
	}
	execWarningLogged = true
	early.Printf("[vmm] warning: FlagExec is accepted but not enforced on this target\n")
}

// enablePaging sets CR0.PG, turning on paging with whatever directory is
// currently loaded in CR3 ("mov eax, cr0 / or eax, 0x80000000 / mov cr0, eax").
func enablePaging()
