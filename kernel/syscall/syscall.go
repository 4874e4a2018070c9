// Package syscall implements the int 0x80 syscall gate: a 128-slot dispatch
// table indexed by EAX, with arguments passed in EBX/ECX/EDX and the return
// value (for syscalls that have one) written back to EAX.
package syscall

import (
	"gopheros/kernel/driver/pit"
	"gopheros/kernel/gate"
	"gopheros/kernel/kfmt"
	"gopheros/kernel/tasking"
	"reflect"
	"unsafe"
)

// Vector is the interrupt number user code issues an INT instruction against
// to reach the kernel.
const Vector = 0x80

const numSyscalls = 128

// Numbers assigned to the syscalls this kernel implements.
const (
	Exit  = 1
	Write = 2
	Fork  = 3
	Sleep = 4
)

// msPerTick is how many milliseconds syscallSleep's busy-loop counts per
// pit.Ticks() increment. It assumes the PIT was programmed at 100Hz, as
// kmain does.
const msPerTick = 1000 / 100

var (
	scheduleFn  = tasking.Schedule
	killFn      = tasking.Kill
	forkFn      = tasking.Fork
	currentTask = tasking.CurrentTask
	ticksFn     = pit.Ticks

	table [numSyscalls]func(*gate.Registers)
)

// Init fills in the dispatch table and registers it at Vector with DPL=3 so
// user-mode code can reach it via INT.
func Init() {
	for i := range table {
		table[i] = unimplementedSyscall
	}

	table[Exit] = syscallExit
	table[Write] = syscallWrite
	table[Fork] = syscallFork
	table[Sleep] = syscallSleep

	gate.HandleUserInterrupt(Vector, dispatch)
}

// dispatch is the handler installed at Vector. The syscall number arrives in
// EAX; a number outside the table's range is treated the same as an
// unimplemented syscall rather than indexed out of bounds.
func dispatch(regs *gate.Registers) {
	if regs.EAX >= numSyscalls {
		unimplementedSyscall(regs)
		return
	}
	table[regs.EAX](regs)
}

func unimplementedSyscall(regs *gate.Registers) {
	kfmt.Printf("unimplemented syscall, number=%d\n", regs.EAX)
}

// syscallExit terminates the calling task. code is read from EBX but
// otherwise only logged: this kernel has no parent/wait mechanism to deliver
// it to.
func syscallExit(regs *gate.Registers) {
	code := regs.EBX
	kfmt.Printf("process %d exit with code %d\n", currentTask().PID, code)
	killFn()
}

// syscallWrite implements a single-fd (stdout) write: EBX is the fd
// (only 1 is written; any other fd writes nothing and returns 0), ECX the
// user-space buffer pointer, EDX the length. The written length is returned
// in EAX.
func syscallWrite(regs *gate.Registers) {
	fd, ptr, length := regs.EBX, uintptr(regs.ECX), regs.EDX

	if fd != 1 {
		regs.EAX = 0
		return
	}

	buf := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: ptr,
		Len:  int(length),
		Cap:  int(length),
	}))
	kfmt.Printf("%s", buf)

	regs.EAX = length
}

// syscallFork clones the calling task; the new task's PID is returned in
// EAX for the parent, while the child resumes with EAX already zeroed by
// tasking.Fork.
func syscallFork(regs *gate.Registers) {
	regs.EAX = forkFn()
}

// syscallSleep busy-loops against the PIT tick counter for approximately
// EBX milliseconds, then reschedules. This kernel has no timer-driven
// wakeup queue, so the delay is spun rather than slept.
func syscallSleep(regs *gate.Registers) {
	ms := regs.EBX
	if ticks := ms / msPerTick; ticks > 0 {
		target := ticksFn() + ticks
		for ticksFn() < target {
		}
	}
	scheduleFn()
}
