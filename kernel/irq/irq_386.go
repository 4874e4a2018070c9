// Package irq drives the two cascaded 8259A programmable interrupt
// controllers (PICs). It owns nothing beyond the PIC command/data ports:
// remapping the master/slave vector bases, masking and unmasking individual
// IRQ lines and acknowledging serviced interrupts. Installing handlers and
// routing vectors to them is gate's job (gate.RegisterIRQHandler); this
// package has no dependency on gate so the two can be wired in either
// direction without an import cycle.
package irq

import "gopheros/kernel/cpu"

const (
	masterCmd  = 0x20
	masterData = 0x21
	slaveCmd   = 0xA0
	slaveData  = 0xA1

	icw1Init     = 0x11
	icw4_8086    = 0x01
	pic2IRQStart = 8

	// VectorBase is the IDT vector that IRQ0 is remapped to. IRQ n is
	// delivered at vector VectorBase+n.
	VectorBase = 32
)

var (
	outFn = cpu.Out
	inFn  = cpu.In

	masterMask uint8 = 0xFF
	slaveMask  uint8 = 0xFF
)

// Init remaps the PIC vector bases to [VectorBase, VectorBase+16) using the
// standard ICW1-ICW4 initialization sequence and masks every line. Callers
// unmask individual IRQs via Unmask once a handler has been installed.
func Init() {
	// ICW1: begin initialization, expect ICW4
	outFn(masterCmd, icw1Init)
	outFn(slaveCmd, icw1Init)

	// ICW2: vector offsets
	outFn(masterData, VectorBase)
	outFn(slaveData, VectorBase+pic2IRQStart)

	// ICW3: master has a slave on IRQ2, slave's cascade identity is 2
	outFn(masterData, 1<<2)
	outFn(slaveData, 2)

	// ICW4: 8086 mode
	outFn(masterData, icw4_8086)
	outFn(slaveData, icw4_8086)

	masterMask, slaveMask = 0xFF, 0xFF
	outFn(masterData, masterMask)
	outFn(slaveData, slaveMask)
}

// Mask disables delivery of the given IRQ line (0-15).
func Mask(line uint8) {
	if line < pic2IRQStart {
		masterMask |= 1 << line
		outFn(masterData, masterMask)
		return
	}

	slaveMask |= 1 << (line - pic2IRQStart)
	outFn(slaveData, slaveMask)
}

// Unmask enables delivery of the given IRQ line (0-15).
func Unmask(line uint8) {
	if line < pic2IRQStart {
		masterMask &^= 1 << line
		outFn(masterData, masterMask)
		return
	}

	slaveMask &^= 1 << (line - pic2IRQStart)
	outFn(slaveData, slaveMask)
	// the cascade line on the master must stay unmasked for slave IRQs
	// to reach the CPU at all.
	masterMask &^= 1 << 2
	outFn(masterData, masterMask)
}

// EOI sends an end-of-interrupt command for the given IRQ line. Slave-PIC
// IRQs require an EOI on both PICs since the cascade line on the master
// also latched the interrupt.
func EOI(line uint8) {
	if line >= pic2IRQStart {
		outFn(slaveCmd, 0x20)
	}
	outFn(masterCmd, 0x20)
}
