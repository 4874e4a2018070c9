package tty

import (
	"gopheros/kernel/driver/vga"
	"testing"
)

// fakeConsole is an in-memory stand-in for vga.Console so these tests never
// touch the real memory-mapped framebuffer.
type fakeConsole struct {
	w, h uint16
	fb   []uint16
}

func newFakeConsole(w, h uint16) *fakeConsole {
	return &fakeConsole{w: w, h: h, fb: make([]uint16, int(w)*int(h))}
}

func (f *fakeConsole) Dimensions() (uint16, uint16) { return f.w, f.h }

func (f *fakeConsole) Clear(x, y, width, height uint16) {
	if x+width > f.w {
		width = f.w - x
	}
	if y+height > f.h {
		height = f.h - y
	}
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			f.fb[int(row)*int(f.w)+int(col)] = 0
		}
	}
}

func (f *fakeConsole) Scroll(dir vga.ScrollDir, lines uint16) {
	offset := int(lines) * int(f.w)
	switch dir {
	case vga.Up:
		copy(f.fb, f.fb[offset:])
	case vga.Down:
		copy(f.fb[offset:], f.fb)
	}
}

func (f *fakeConsole) Write(ch byte, attr vga.Attr, x, y uint16) {
	if x >= f.w || y >= f.h {
		return
	}
	f.fb[int(y)*int(f.w)+int(x)] = (uint16(attr) << 8) | uint16(ch)
}

func (f *fakeConsole) charAt(x, y uint16) byte {
	return byte(f.fb[int(y)*int(f.w)+int(x)] & 0xFF)
}

func TestVtPosition(t *testing.T) {
	specs := []struct {
		inX, inY   uint16
		expX, expY uint16
	}{
		{20, 20, 20, 20},
		{100, 20, 79, 20},
		{10, 200, 10, 24},
		{100, 100, 79, 24},
	}

	cons := newFakeConsole(80, 25)
	var vt Vt
	vt.AttachTo(cons)

	if w, h := cons.Dimensions(); w != 80 || h != 25 {
		t.Fatalf("unexpected console dimensions: got %dx%d", w, h)
	}

	for specIndex, spec := range specs {
		vt.SetPosition(spec.inX, spec.inY)
		if x, y := vt.Position(); x != spec.expX || y != spec.expY {
			t.Errorf("[spec %d] expected position (%d, %d); got (%d, %d)", specIndex, spec.expX, spec.expY, x, y)
		}
	}
}

func TestVtWrite(t *testing.T) {
	cons := newFakeConsole(80, 25)
	var vt Vt
	vt.AttachTo(cons)

	vt.Clear()
	vt.SetPosition(0, 1)
	vt.Write([]byte("12\n\t3\n4\r567\b8"))

	specs := []struct {
		x, y    uint16
		expChar byte
	}{
		{0, 1, '1'},
		{1, 1, '2'},
		{0, 2, ' '},
		{1, 2, ' '},
		{2, 2, ' '},
		{3, 2, ' '},
		{4, 2, '3'},
		{0, 3, '5'},
		{1, 3, '6'},
		{2, 3, '8'},
	}

	for specIndex, spec := range specs {
		if got := cons.charAt(spec.x, spec.y); got != spec.expChar {
			t.Errorf("[spec %d] expected char at (%d, %d) to be %q; got %q", specIndex, spec.x, spec.y, spec.expChar, got)
		}
	}
}

func TestVtScrollsOnLastLine(t *testing.T) {
	cons := newFakeConsole(80, 25)
	var vt Vt
	vt.AttachTo(cons)

	vt.SetPosition(0, 24)
	cons.Write('X', 0, 0, 24)
	vt.WriteByte('\n')

	if x, y := vt.Position(); x != 0 || y != 24 {
		t.Errorf("expected cursor to stay on the last line after a scroll; got (%d, %d)", x, y)
	}
	if got := cons.charAt(0, 23); got != 'X' {
		t.Errorf("expected row 24's content to have scrolled up to row 23; got %q", got)
	}
}
