// Package vga drives the IBM color text-mode console: 80x25 cells of
// {char, attr} uint16 words memory-mapped at the fixed physical address
// 0xB8000. There is exactly one text-mode framebuffer on this platform, so
// unlike the teacher's Ega console (parameterized over a bootloader-reported
// framebuffer address for eventual multi-console support) this driver is
// hardcoded to 80x25 at 0xB8000, matching its own Vga console from before
// that generalization.
package vga

import (
	"reflect"
	"unsafe"
)

const (
	// Width and Height are the fixed dimensions of the VGA text console.
	Width  = 80
	Height = 25

	physAddr = uintptr(0xB8000)

	clearColor = Black
	clearChar  = byte(' ')
)

// Attr is a 4-bit foreground/background color pair packed into the high
// byte of a console cell.
type Attr uint16

// The 16 colors addressable by a VGA text attribute nibble.
const (
	Black Attr = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	Grey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	LightBrown
	White
)

// ScrollDir selects the direction a Scroll call shifts the framebuffer.
type ScrollDir uint8

const (
	Up ScrollDir = iota
	Down
)

// Console is the single VGA text-mode console. Its zero value is not usable
// until Init has run.
type Console struct {
	fb []uint16
}

// Init maps the console's frame buffer field onto the fixed physical
// address of the text-mode framebuffer. Safe to call more than once.
func (c *Console) Init() {
	if c.fb != nil {
		return
	}

	c.fb = *(*[]uint16)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  Width * Height,
		Cap:  Width * Height,
		Data: physAddr,
	}))
}

// Dimensions returns the console width and height in characters.
func (c *Console) Dimensions() (uint16, uint16) {
	return Width, Height
}

// Clear clears the rectangular region [x,y)-[x+width,y+height), clipped to
// the console's bounds.
func (c *Console) Clear(x, y, width, height uint16) {
	var (
		attr                 = uint16((clearColor << 4) | clearColor)
		clr                  = attr | uint16(clearChar)
		rowOffset, colOffset uint16
	)

	if x >= Width {
		x = Width
	}
	if y >= Height {
		y = Height
	}
	if x+width > Width {
		width = Width - x
	}
	if y+height > Height {
		height = Height - y
	}

	rowOffset = (y * Width) + x
	for ; height > 0; height, rowOffset = height-1, rowOffset+Width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			c.fb[colOffset] = clr
		}
	}
}

// Scroll shifts the framebuffer contents by lines rows in the given
// direction, leaving the vacated rows untouched (the caller clears them).
func (c *Console) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > Height {
		return
	}

	var i uint16
	offset := lines * Width

	switch dir {
	case Up:
		for ; i < (Height-lines)*Width; i++ {
			c.fb[i] = c.fb[i+offset]
		}
	case Down:
		for i = Height*Width - 1; i >= lines*Width; i-- {
			c.fb[i] = c.fb[i-offset]
		}
	}
}

// Write sets the character and attribute of the cell at (x, y). Out-of-range
// coordinates are silently ignored.
func (c *Console) Write(ch byte, attr Attr, x, y uint16) {
	if x >= Width || y >= Height {
		return
	}

	c.fb[(y*Width)+x] = (uint16(attr) << 8) | uint16(ch)
}
