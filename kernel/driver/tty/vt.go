package tty

import "gopheros/kernel/driver/vga"

const (
	defaultFg = vga.LightGrey
	defaultBg = vga.Black
	tabWidth  = 4
)

// console is the subset of *vga.Console that Vt drives. Taking it as an
// interface (rather than a concrete *vga.Console, as the teacher's original
// Vt does) costs nothing here: a pointer value boxed into an interface never
// allocates, so this works even before the kernel heap is up, and it lets
// tests substitute a fake console instead of a real memory-mapped one.
type console interface {
	Dimensions() (uint16, uint16)
	Clear(x, y, width, height uint16)
	Scroll(dir vga.ScrollDir, lines uint16)
	Write(ch byte, attr vga.Attr, x, y uint16)
}

// Vt implements Tty on top of a console. It understands CR, LF, tab and
// backspace; anything else beyond a plain byte write (ANSI escapes) is out
// of scope.
type Vt struct {
	cons console

	width  uint16
	height uint16

	curX    uint16
	curY    uint16
	curAttr vga.Attr
}

// AttachTo links the terminal to cons and adopts its dimensions.
func (t *Vt) AttachTo(cons console) {
	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.curX, t.curY = 0, 0
	t.curAttr = makeAttr(defaultFg, defaultBg)
}

// Clear implements Tty.
func (t *Vt) Clear() {
	t.cons.Clear(0, 0, t.width, t.height)
}

// Position implements Tty.
func (t *Vt) Position() (uint16, uint16) {
	return t.curX, t.curY
}

// SetPosition implements Tty.
func (t *Vt) SetPosition(x, y uint16) {
	if x >= t.width {
		x = t.width - 1
	}
	if y >= t.height {
		y = t.height - 1
	}
	t.curX, t.curY = x, y
}

// Write implements io.Writer.
func (t *Vt) Write(data []byte) (int, error) {
	for _, b := range data {
		t.WriteByte(b)
	}
	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *Vt) WriteByte(b byte) error {
	switch b {
	case '\r':
		t.cr()
	case '\n':
		t.cr()
		t.lf()
	case '\b':
		if t.curX > 0 {
			t.curX--
			t.cons.Write(' ', t.curAttr, t.curX, t.curY)
		}
	case '\t':
		for i := 0; i < tabWidth; i++ {
			t.cons.Write(' ', t.curAttr, t.curX, t.curY)
			t.curX++
			if t.curX == t.width {
				t.cr()
				t.lf()
			}
		}
	default:
		t.cons.Write(b, t.curAttr, t.curX, t.curY)
		t.curX++
		if t.curX == t.width {
			t.cr()
			t.lf()
		}
	}

	return nil
}

func (t *Vt) cr() {
	t.curX = 0
}

func (t *Vt) lf() {
	if t.curY+1 < t.height {
		t.curY++
		return
	}

	t.cons.Scroll(vga.Up, 1)
	t.cons.Clear(0, t.height-1, t.width, 1)
}

func makeAttr(fg, bg vga.Attr) vga.Attr {
	return (bg << 4) | (fg & 0xF)
}
