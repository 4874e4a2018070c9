// Package serial drives the COM1 UART (16550-compatible) as a minimal,
// flow-control-free byte sink: useful for panic/log output when a headless
// emulator run has no VGA text-mode output to look at. Grounded on
// original_source/rost/drivers/serial.rs, which talks to the same port with
// the same initialization sequence.
package serial

import "gopheros/kernel/cpu"

const port = 0x3F8

var (
	outFn = cpu.Out
	inFn  = cpu.In
)

// Init programs the UART for 38400 baud, 8 data bits, no parity, one stop
// bit, with the FIFOs enabled.
func Init() {
	outFn(port+1, 0x00) // disable interrupts
	outFn(port+3, 0x80) // enable DLAB to set the baud rate divisor
	outFn(port+0, 0x03) // divisor low byte: 3 => 38400 baud
	outFn(port+1, 0x00) // divisor high byte
	outFn(port+3, 0x03) // 8 bits, no parity, one stop bit, DLAB cleared
	outFn(port+2, 0xC7) // enable FIFO, clear them, 14-byte threshold
	outFn(port+4, 0x0B) // DTR, RTS and OUT2 set
}

// Console implements io.Writer and io.ByteWriter by writing bytes out over
// COM1. It does not interpret or translate its input.
type Console struct{}

// Write implements io.Writer.
func (Console) Write(data []byte) (int, error) {
	for _, b := range data {
		writeByte(b)
	}
	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (Console) WriteByte(b byte) error {
	writeByte(b)
	return nil
}

func writeByte(b byte) {
	for !transmitEmpty() {
	}
	outFn(port, b)
}

func transmitEmpty() bool {
	return inFn(port+5)&0x20 != 0
}
