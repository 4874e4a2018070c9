// Package cpu exposes the IA-32 primitives the rest of the kernel builds on:
// port I/O, interrupt masking, TLB control and the active page directory
// register. Every function below is intentionally body-less; each one lowers
// to the single instruction (or short instruction sequence) documented in its
// comment; the Plan 9 assembly implementing them is not part of this tree.
package cpu

var (
	cpuidFn = ID
)

// In reads a single byte from the given I/O port ("in al, dx").
func In(port uint16) uint8

// Out writes a single byte to the given I/O port ("out dx, al").
func Out(port uint16, value uint8)

// EnableInterrupts enables interrupt handling ("sti").
func EnableInterrupts()

// DisableInterrupts disables interrupt handling ("cli").
func DisableInterrupts()

// Halt disables interrupts and stops instruction execution ("cli; hlt",
// repeated in a loop so that a non-maskable interrupt cannot resume
// execution). It never returns.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address
// ("invlpg [virtAddr]").
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page directory to point to the specified physical
// address and flushes the TLB ("mov cr3, pdtPhysAddr").
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page
// directory ("mov eax, cr3").
func ActivePDT() uintptr

// ReadCR2 returns the faulting linear address stored by the CPU in CR2 when
// a page fault is raised ("mov eax, cr2").
func ReadCR2() uintptr

// ReadEFlags returns the current EFLAGS register contents ("pushf; pop
// eax"), used by UserMode to build a user task's initial flags with the
// interrupt-enable bit set.
func ReadEFlags() uint32

// ID returns information about the CPU and its features. It is implemented
// as a CPUID instruction with EAX=leaf and returns the values in EAX, EBX,
// ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}
