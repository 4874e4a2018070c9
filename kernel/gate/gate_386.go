// Package gate owns the IA-32 interrupt descriptor table: the trap-frame
// layout shared by every exception, IRQ and syscall entry, the table of 256
// gate descriptors, and the single Dispatch entry point the (declared, not
// Go-implemented) assembly trap stub calls into.
package gate

import (
	"gopheros/kernel"
	"gopheros/kernel/irq"
	"gopheros/kernel/kfmt"
	"io"
)

// Registers contains a snapshot of all register values when an exception,
// interrupt or syscall occurs. The field order matches, byte for byte, the
// order the trap stub pushes them onto the kernel stack, and must not be
// reordered without updating that stub.
type Registers struct {
	EDI uint32
	ESI uint32
	EBP uint32
	ESP uint32
	EBX uint32
	EDX uint32
	ECX uint32
	EAX uint32

	GS uint32
	FS uint32
	ES uint32
	DS uint32

	// IntNo holds the vector number the trap stub was entered at; ErrCode
	// holds the CPU-pushed error code for exceptions that have one (0
	// otherwise).
	IntNo   uint32
	ErrCode uint32

	// The return frame consumed by IRET.
	EIP     uint32
	CS      uint32
	EFlags  uint32
	UserESP uint32
	SS      uint32
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "EAX = %8x EBX = %8x ECX = %8x EDX = %8x\n", r.EAX, r.EBX, r.ECX, r.EDX)
	kfmt.Fprintf(w, "ESI = %8x EDI = %8x EBP = %8x ESP = %8x\n", r.ESI, r.EDI, r.EBP, r.ESP)
	kfmt.Fprintf(w, "DS  = %8x ES  = %8x FS  = %8x GS  = %8x\n", r.DS, r.ES, r.FS, r.GS)
	kfmt.Fprintf(w, "int = %8x err = %8x\n", r.IntNo, r.ErrCode)
	kfmt.Fprintf(w, "EIP = %8x CS  = %8x EFL = %8x\n", r.EIP, r.CS, r.EFlags)
	kfmt.Fprintf(w, "uESP= %8x SS  = %8x\n", r.UserESP, r.SS)
}

// Handler processes an interrupt, exception or syscall trap. It receives the
// Registers snapshot pushed by the trap stub; modifications made to it are
// propagated back by the stub's IRET where the trap returns to user or
// kernel code (used by syscall handlers to hand their result back in EAX).
type Handler func(*Registers)

const exceptionCount = 32

// exceptionNames holds the mnemonic for each of the 32 CPU-reserved
// exception vectors, used for panic/diagnostic output.
var exceptionNames = [exceptionCount]string{
	0: "divide-by-zero", 1: "debug", 2: "nmi", 3: "breakpoint",
	4: "overflow", 5: "bound-range-exceeded", 6: "invalid-opcode",
	7: "device-not-available", 8: "double-fault", 9: "coprocessor-segment-overrun",
	10: "invalid-tss", 11: "segment-not-present", 12: "stack-segment-fault",
	13: "general-protection-fault", 14: "page-fault", 15: "reserved",
	16: "x87-fp-exception", 17: "alignment-check", 18: "machine-check",
	19: "simd-fp-exception", 20: "virtualization-exception",
	30: "security-exception",
}

var (
	handlers [256]Handler
	panicFn  = kernel.Panic

	// preDispatchHook, when set, is invoked with the raw Registers before
	// the vector's handler runs. tasking installs itself here (instead of
	// gate importing tasking directly) so that Fork can snapshot the
	// interrupted frame without introducing an import cycle between gate
	// and tasking.
	preDispatchHook func(*Registers)
)

// SetPreDispatchHook installs fn to run before every dispatched trap.
func SetPreDispatchHook(fn func(*Registers)) {
	preDispatchHook = fn
}

// Init installs the IDT and the dummy handler for every unassigned vector.
func Init() {
	for i := range handlers {
		handlers[i] = dummyHandler
	}
	installIDT()
}

// HandleInterrupt installs h as the ring-0 handler for vector vec.
func HandleInterrupt(vec uint8, h Handler) {
	handlers[vec] = h
	setGateDPL(vec, 0)
}

// HandleUserInterrupt installs h as a DPL=3 handler for vec, allowing it to
// be invoked via INT from user mode (used only for the syscall vector,
// 0x80).
func HandleUserInterrupt(vec uint8, h Handler) {
	handlers[vec] = h
	setGateDPL(vec, 3)
}

// RegisterIRQHandler wires h to IRQ line (0-15): it installs h at
// irq.VectorBase+line as a ring-0 handler and unmasks the line on the PIC.
func RegisterIRQHandler(line uint8, h Handler) {
	HandleInterrupt(irq.VectorBase+line, h)
	irq.Unmask(line)
}

// Dispatch is the single Go entry point the assembly trap stub transfers
// control to. It runs the pre-dispatch hook (if any), EOIs the PIC when the
// vector is a hardware IRQ, then invokes the installed handler.
func Dispatch(regs *Registers) {
	if preDispatchHook != nil {
		preDispatchHook(regs)
	}

	if regs.IntNo >= irq.VectorBase && regs.IntNo < irq.VectorBase+16 {
		irq.EOI(uint8(regs.IntNo - irq.VectorBase))
	}

	handlers[regs.IntNo](regs)
}

// dummyHandler is installed for every vector that has no registered
// handler. CPU exceptions fall through to kernel.Panic with a decoded
// mnemonic; any other vector (including an unexpected IRQ, which Dispatch
// has already EOI'd) panics with "unknown interrupt vector".
func dummyHandler(regs *Registers) {
	if regs.IntNo < exceptionCount {
		name := exceptionNames[regs.IntNo]
		if name == "" {
			name = "reserved"
		}
		kfmt.Printf("unhandled exception %d (%s) err=%x eip=%x\n", regs.IntNo, name, regs.ErrCode, regs.EIP)
		panicFn(&kernel.Error{Module: "gate", Message: name})
		return
	}

	panicFn(&kernel.Error{Module: "gate", Message: "unknown interrupt vector"})
}

// setGateDPL adjusts the descriptor privilege level of the IDT entry for
// vec after it has been populated by HandleInterrupt/HandleUserInterrupt.
func setGateDPL(vec uint8, dpl uint8)

// installIDT populates the IDT with 256 gate descriptors pointing at the
// shared assembly trap entrypoints and loads it via LIDT. All gates are
// installed present with DPL=0; HandleUserInterrupt raises the DPL for the
// vectors it is used on.
func installIDT()
