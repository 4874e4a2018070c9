// Package hal wires together the fixed-address, always-present devices this
// target boots with: the VGA text console and the serial port that mirrors
// it. There is no bootloader-reported framebuffer to probe on this
// platform (unlike the teacher's amd64 kmain, which asks multiboot for one)
// since the text-mode console's physical address is architecturally fixed.
package hal

import (
	"gopheros/kernel/driver/serial"
	"gopheros/kernel/driver/tty"
	"gopheros/kernel/driver/vga"
)

var (
	vgaConsole = &vga.Console{}

	// ActiveTerminal is the terminal kmain and kfmt.SetOutputSink write
	// early boot output to.
	ActiveTerminal = &tty.Vt{}

	// SerialMirror is combined with ActiveTerminal via io.MultiWriter at
	// the kmain call site so panic output survives in headless emulator
	// runs with no display attached.
	SerialMirror = serial.Console{}
)

// InitTerminal brings up the VGA console and attaches ActiveTerminal to it,
// and programs the serial port so SerialMirror is usable immediately after.
func InitTerminal() {
	vgaConsole.Init()
	ActiveTerminal.AttachTo(vgaConsole)
	serial.Init()
}
