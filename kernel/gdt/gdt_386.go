// Package gdt owns the IA-32 global descriptor table: the flat kernel and
// user code/data segments every other selector in the kernel assumes, and
// the single TSS descriptor used purely to hold ring-0's esp0/ss0 so the CPU
// knows which stack to switch to on a ring-3 -> ring-0 transition.
package gdt

import "unsafe"

const (
	entryCount = 6

	granularity4KbProtected = uint8(0xc0)

	flagAccessed = uint8(1 << 0)
	flagRW       = uint8(1 << 1)
	flagExecute  = uint8(1 << 3)
	flagAlways1  = uint8(1 << 4)
	flagPresent  = uint8(1 << 7)
	flagRing3    = uint8(3 << 5)

	accessCode     = flagPresent | flagAlways1 | flagExecute | flagRW
	accessData     = flagPresent | flagAlways1 | flagRW
	accessUserCode = flagRing3 | accessCode
	accessUserData = flagRing3 | accessData
	accessTSS      = flagPresent | flagExecute | flagAccessed

	// Selector values, fixed by the order entries are installed in Init.
	// The low 2 bits of each encode the requested privilege level.
	NullSelector       = uint16(0x00)
	KernelCodeSelector = uint16(0x08)
	KernelDataSelector = uint16(0x10)
	UserCodeSelector   = uint16(0x18 | 3)
	UserDataSelector   = uint16(0x20 | 3)
	tssSelector        = uint16(0x28)
)

// entry is a single 8-byte GDT descriptor, laid out exactly as the CPU
// expects it in memory.
type entry struct {
	limitLow    uint16
	baseLow     uint16
	baseMiddle  uint8
	access      uint8
	granularity uint8
	baseHigh    uint8
}

func newEntry(base, limit uint32, access, granularity uint8) entry {
	return entry{
		baseLow:     uint16(base & 0xFFFF),
		baseMiddle:  uint8((base >> 16) & 0xFF),
		baseHigh:    uint8((base >> 24) & 0xFF),
		limitLow:    uint16(limit & 0xFFFF),
		granularity: (uint8((limit>>16)&0x0F) | (granularity & 0xF0)),
		access:      access,
	}
}

// pointer is the operand LGDT expects: table size minus one, then the
// table's linear base address.
type pointer struct {
	limit uint16
	base  uint32
}

// tss is the IA-32 32-bit task state segment. This kernel never uses
// hardware task switching; the only fields the CPU consults on a ring-3 ->
// ring-0 transition are ss0/esp0, which is why every other field stays
// zeroed.
type tss struct {
	prevTSS   uint32
	esp0      uint32
	ss0       uint32
	unused    [21]uint32
	ldt       uint32
	trap      uint16
	iomapBase uint16
}

var (
	entries [entryCount]entry
	table   pointer
	tssSeg  tss
)

// Init builds the 6-entry flat GDT (null, kernel code, kernel data, user
// code, user data, TSS), loads it and reloads every segment register,
// including the task register.
func Init() {
	entries[0] = newEntry(0, 0, 0, 0)
	entries[1] = newEntry(0, 0xFFFFFFFF, accessCode, granularity4KbProtected)
	entries[2] = newEntry(0, 0xFFFFFFFF, accessData, granularity4KbProtected)
	entries[3] = newEntry(0, 0xFFFFFFFF, accessUserCode, granularity4KbProtected)
	entries[4] = newEntry(0, 0xFFFFFFFF, accessUserData, granularity4KbProtected)

	tssSeg.ss0 = uint32(KernelDataSelector)
	tssSeg.iomapBase = uint16(unsafe.Sizeof(tssSeg))
	entries[5] = newEntry(uint32(uintptr(unsafe.Pointer(&tssSeg))), uint32(unsafe.Sizeof(tssSeg))-1, accessTSS, 0)

	table = pointer{
		limit: uint16(unsafe.Sizeof(entries)) - 1,
		base:  uint32(uintptr(unsafe.Pointer(&entries))),
	}

	loadGDT(&table)
	loadSegments(KernelCodeSelector, KernelDataSelector)
	loadTSS(tssSelector)
}

// SetKernelStack updates the TSS's esp0 field, the stack the CPU switches to
// whenever a ring-3 task traps or interrupts into ring-0. The scheduler
// calls this on every context switch to a user task.
func SetKernelStack(esp uintptr) {
	tssSeg.esp0 = uint32(esp)
}

// SetSegments reloads DS, ES, FS and GS with sel. tasking.UserMode calls this
// with the user data selector before the IRET that drops to ring 3, since
// IRET itself only reloads CS, SS, EFLAGS, EIP and ESP.
func SetSegments(sel uint16)

// loadGDT installs ptr via LGDT.
func loadGDT(ptr *pointer)

// loadSegments performs the far jump required to reload CS with codeSel and
// reloads DS/ES/FS/GS/SS with dataSel ("ljmp codeSel:1f; 1: mov dataSel,
// ds/es/fs/gs/ss").
func loadSegments(codeSel, dataSel uint16)

// loadTSS loads the task register with sel via LTR.
func loadTSS(sel uint16)
