// Package pit programs the 8254 programmable interval timer to fire IRQ0 at
// a fixed frequency and maintains a tick counter, grounded on
// original_source/rost/drivers/timer.rs (itself descended from the simpler
// original_source/timer.rs).
package pit

import (
	"gopheros/kernel/cpu"
	"gopheros/kernel/gate"
)

const (
	baseFrequency = 1193182

	modeCmdPort = 0x43
	channel0    = 0x40

	// channel 0, lobyte/hibyte access, mode 3 (square wave)
	modeCmd = 0x36
)

var (
	outFn     = cpu.Out
	handlerFn = gate.RegisterIRQHandler

	ticks uint32
)

// Init programs channel 0 of the PIT to fire at hz and registers the tick
// counter as IRQ0's handler.
func Init(hz uint32) {
	handlerFn(0, onTick)

	divisor := baseFrequency / hz
	outFn(modeCmdPort, modeCmd)
	outFn(channel0, uint8(divisor&0xFF))
	outFn(channel0, uint8((divisor>>8)&0xFF))
}

// Ticks returns the number of timer interrupts serviced since Init.
func Ticks() uint32 {
	return ticks
}

func onTick(_ *gate.Registers) {
	ticks++
}
