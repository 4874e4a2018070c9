package vga

import "testing"

func TestConsoleInit(t *testing.T) {
	var cons Console
	cons.Init()

	if w, h := cons.Dimensions(); w != Width || h != Height {
		t.Fatalf("expected console dimensions after Init() to be (%d, %d); got (%d, %d)", Width, Height, w, h)
	}
}

func TestConsoleClear(t *testing.T) {
	specs := []struct {
		x, y, w, h             uint16
		expX, expY, expW, expH uint16
	}{
		{0, 0, 500, 500, 0, 0, Width, Height},
		{10, 10, 11, 50, 10, 10, 11, 15},
		{10, 10, 110, 1, 10, 10, 70, 1},
		{70, 20, 20, 20, 70, 20, 10, 5},
		{90, 25, 20, 20, 0, 0, 0, 0},
		{12, 12, 5, 6, 12, 12, 5, 6},
	}

	cons := Console{fb: make([]uint16, Width*Height)}
	cons.Init()

	testPat := uint16(0xDEAD)
	clearPat := (uint16(clearColor) << 8) | uint16(clearChar)

nextSpec:
	for specIndex, spec := range specs {
		for i := range cons.fb {
			cons.fb[i] = testPat
		}

		cons.Clear(spec.x, spec.y, spec.w, spec.h)

		var x, y uint16
		for y = 0; y < Height; y++ {
			for x = 0; x < Width; x++ {
				fbVal := cons.fb[(y*Width)+x]
				if x < spec.expX || y < spec.expY || x >= spec.expX+spec.expW || y >= spec.expY+spec.expH {
					if fbVal != testPat {
						t.Errorf("[spec %d] expected char at (%d, %d) not to be cleared", specIndex, x, y)
						continue nextSpec
					}
				} else if fbVal != clearPat {
					t.Errorf("[spec %d] expected char at (%d, %d) to be cleared", specIndex, x, y)
					continue nextSpec
				}
			}
		}
	}
}

func TestConsoleScrollUp(t *testing.T) {
	cons := Console{fb: make([]uint16, Width*Height)}
	cons.Init()

	for _, lines := range []uint16{0, 1, 2} {
		var x, y, index uint16
		for y = 0; y < Height; y++ {
			for x = 0; x < Width; x++ {
				cons.fb[index] = (y << 8) | x
				index++
			}
		}

		cons.Scroll(Up, lines)

		index = 0
		for y = 0; y < Height-lines; y++ {
			for x = 0; x < Width; x++ {
				expVal := ((y + lines) << 8) | x
				if cons.fb[index] != expVal {
					t.Errorf("lines=%d: expected value at (%d, %d) to be %d; got %d", lines, x, y, expVal, cons.fb[index])
				}
				index++
			}
		}
	}
}

func TestConsoleScrollDown(t *testing.T) {
	cons := Console{fb: make([]uint16, Width*Height)}
	cons.Init()

	for _, lines := range []uint16{0, 1, 2} {
		var x, y, index uint16
		for y = 0; y < Height; y++ {
			for x = 0; x < Width; x++ {
				cons.fb[index] = (y << 8) | x
				index++
			}
		}

		cons.Scroll(Down, lines)

		index = lines * Width
		for y = lines; y < Height-lines; y++ {
			for x = 0; x < Width; x++ {
				expVal := ((y - lines) << 8) | x
				if cons.fb[index] != expVal {
					t.Errorf("lines=%d: expected value at (%d, %d) to be %d; got %d", lines, x, y, expVal, cons.fb[index])
				}
				index++
			}
		}
	}
}

func TestConsoleWriteOffScreenIsNoop(t *testing.T) {
	cons := Console{fb: make([]uint16, Width*Height)}
	cons.Init()

	for _, spec := range []struct{ x, y uint16 }{
		{Width, Height}, {Width + 10, Height - 1}, {Width - 1, Height + 5}, {200, 200},
	} {
		for i := range cons.fb {
			cons.fb[i] = 0
		}

		cons.Write('!', Red, spec.x, spec.y)

		for i, got := range cons.fb {
			if got != 0 {
				t.Fatalf("expected Write with off-screen coords (%d,%d) to be a no-op; fb[%d]=%d", spec.x, spec.y, i, got)
			}
		}
	}
}

func TestConsoleWrite(t *testing.T) {
	cons := Console{fb: make([]uint16, Width*Height)}
	cons.Init()

	attr := (Black << 4) | Red
	cons.Write('!', attr, 0, 0)

	expVal := uint16(attr)<<8 | uint16('!')
	if got := cons.fb[0]; got != expVal {
		t.Errorf("expected Write to set fb[0] to %d; got %d", expVal, got)
	}
}
