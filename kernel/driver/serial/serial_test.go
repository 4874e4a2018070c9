package serial

import "testing"

func withSerialSeams(t *testing.T) (*[]uint16, func()) {
	origOut, origIn := outFn, inFn

	var ports []uint16
	outFn = func(p uint16, _ uint8) { ports = append(ports, p) }
	inFn = func(p uint16) uint8 { return 0x20 }

	return &ports, func() { outFn, inFn = origOut, origIn }
}

func TestInitProgramsExpectedPorts(t *testing.T) {
	ports, restore := withSerialSeams(t)
	defer restore()

	Init()

	exp := []uint16{port + 1, port + 3, port + 0, port + 1, port + 3, port + 2, port + 4}
	if len(*ports) != len(exp) {
		t.Fatalf("expected %d port writes; got %d", len(exp), len(*ports))
	}
	for i, p := range exp {
		if (*ports)[i] != p {
			t.Errorf("write %d: expected port %#x; got %#x", i, p, (*ports)[i])
		}
	}
}

func TestWriteWaitsForTransmitEmpty(t *testing.T) {
	origOut, origIn := outFn, inFn
	defer func() { outFn, inFn = origOut, origIn }()

	var calls int
	var written []uint8
	inFn = func(uint16) uint8 {
		calls++
		if calls < 3 {
			return 0x00
		}
		return 0x20
	}
	outFn = func(_ uint16, v uint8) { written = append(written, v) }

	var c Console
	c.WriteByte('A')

	if calls != 3 {
		t.Errorf("expected WriteByte to poll transmitEmpty until set; polled %d times", calls)
	}
	if len(written) != 1 || written[0] != 'A' {
		t.Errorf("expected 'A' written to the data port; got %v", written)
	}
}

func TestWriteAllBytes(t *testing.T) {
	origOut, origIn := outFn, inFn
	defer func() { outFn, inFn = origOut, origIn }()

	inFn = func(uint16) uint8 { return 0x20 }
	var written []uint8
	outFn = func(_ uint16, v uint8) { written = append(written, v) }

	var c Console
	n, err := c.Write([]byte("hi"))
	if err != nil || n != 2 {
		t.Fatalf("unexpected result from Write: n=%d err=%v", n, err)
	}
	if string(written) != "hi" {
		t.Errorf("expected \"hi\" written; got %q", written)
	}
}
