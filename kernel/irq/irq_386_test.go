package irq

import (
	"gopheros/kernel/cpu"
	"testing"
)

func TestInit(t *testing.T) {
	defer func() {
		outFn = cpu.Out
	}()

	var writes []uint16
	outFn = func(port uint16, _ uint8) {
		writes = append(writes, port)
	}

	Init()

	exp := []uint16{masterCmd, slaveCmd, masterData, slaveData, masterData, slaveData, masterData, slaveData, masterData, slaveData}
	if len(writes) != len(exp) {
		t.Fatalf("expected %d port writes; got %d", len(exp), len(writes))
	}
	for i, port := range exp {
		if writes[i] != port {
			t.Errorf("write %d: expected port %#x; got %#x", i, port, writes[i])
		}
	}

	if masterMask != 0xFF || slaveMask != 0xFF {
		t.Fatalf("expected both PICs fully masked after Init, got master=%#x slave=%#x", masterMask, slaveMask)
	}
}

func TestMaskUnmask(t *testing.T) {
	defer func() {
		outFn = cpu.Out
	}()

	masterMask, slaveMask = 0xFF, 0xFF
	var lastPort uint16
	var lastVal uint8
	outFn = func(port uint16, v uint8) {
		lastPort, lastVal = port, v
	}

	Unmask(1)
	if lastPort != masterData || lastVal&(1<<1) != 0 {
		t.Fatalf("expected IRQ1 unmasked on master data port")
	}

	Unmask(10)
	if masterMask&(1<<2) != 0 {
		t.Fatalf("expected cascade line (IRQ2) unmasked when unmasking a slave IRQ")
	}
	if slaveMask&(1<<(10-pic2IRQStart)) != 0 {
		t.Fatalf("expected IRQ10 unmasked on slave mask")
	}

	Mask(1)
	if masterMask&(1<<1) == 0 {
		t.Fatalf("expected IRQ1 masked again")
	}
}

func TestEOI(t *testing.T) {
	defer func() {
		outFn = cpu.Out
	}()

	var ports []uint16
	outFn = func(port uint16, _ uint8) {
		ports = append(ports, port)
	}

	EOI(3)
	if len(ports) != 1 || ports[0] != masterCmd {
		t.Fatalf("expected single master EOI for master-PIC IRQ, got %v", ports)
	}

	ports = nil
	EOI(9)
	if len(ports) != 2 || ports[0] != slaveCmd || ports[1] != masterCmd {
		t.Fatalf("expected slave then master EOI for slave-PIC IRQ, got %v", ports)
	}
}
