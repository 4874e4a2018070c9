// Package kmain is the kernel's single entry point: it brings up every
// collaborator in dependency order and then hands control to the embedded
// init payload. Grounded on the teacher's own kernel/kmain/kmain.go, adapted
// from its amd64 four-call boot sequence (allocator, vmm, goruntime) to this
// target's longer IA-32 chain, which additionally brings up interrupts,
// tasking and the syscall gate before loading anything.
package kmain

import (
	"gopheros/kernel"
	"gopheros/kernel/cpu"
	"gopheros/kernel/driver/keyboard"
	"gopheros/kernel/driver/pit"
	"gopheros/kernel/elf"
	"gopheros/kernel/gate"
	"gopheros/kernel/gdt"
	"gopheros/kernel/hal"
	"gopheros/kernel/hal/multiboot"
	"gopheros/kernel/irq"
	"gopheros/kernel/kfmt"
	"gopheros/kernel/kfmt/early"
	"gopheros/kernel/mem/heap"
	"gopheros/kernel/mem/pmm"
	"gopheros/kernel/mem/vmm"
	"gopheros/kernel/sync"
	"gopheros/kernel/syscall"
	"gopheros/kernel/tasking"
	"io"
	"reflect"
	"unsafe"

	// Imported for its side effect only: init() redirects the Go
	// runtime's own allocator hooks (sysReserve/sysMap/sysAlloc) into
	// this kernel's page mapper instead of a nonexistent host OS.
	_ "gopheros/kernel/goruntime"
)

// timerHz is the frequency the PIT fires IRQ0 at.
const timerHz = 100

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// Kmain is the only Go symbol the rt0 boot stub (out of scope for this
// repo) calls into, after it has set up a GDT-less flat segment and a
// minimal stack sufficient to run Go code. multibootInfoPtr is the address
// of the multiboot2 info structure; kernelStart/kernelEnd bound the
// kernel's own image so the physical frame allocator can start allocating
// past it; binaryELFStart/binaryELFEnd bound the statically-linked init
// payload embedded in the kernel image by the linker.
//
// Kmain is not expected to return. If it does, the rt0 stub halts the CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd, binaryELFStart, binaryELFEnd uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	gdt.Init()
	irq.Init()
	gate.Init()

	hal.InitTerminal()
	consoleSink := io.MultiWriter(hal.ActiveTerminal, hal.SerialMirror)
	kfmt.SetOutputSink(consoleSink)
	early.SetOutput(consoleSink)

	pit.Init(timerHz)
	keyboard.Init()

	pmm.Init(kernelEnd)
	if err := vmm.Init(); err != nil {
		kernel.Panic(err)
	}
	heap.Init()

	tasking.Init()
	sync.SetYieldFn(tasking.Schedule)
	syscall.Init()

	cpu.EnableInterrupts()

	img := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: binaryELFStart,
		Len:  int(binaryELFEnd - binaryELFStart),
		Cap:  int(binaryELFEnd - binaryELFStart),
	}))

	if !elf.Probe(img) {
		kernel.Panic(&kernel.Error{Module: "kmain", Message: "embedded init payload is not a valid ELF image"})
	}
	if err := elf.Exec(img); err != nil {
		kernel.Panic(err)
	}

	// elf.Exec only returns on failure; a successful Exec never returns
	// since it transfers control to ring 3. Reaching here is a bug.
	kernel.Panic(errKmainReturned)
}
