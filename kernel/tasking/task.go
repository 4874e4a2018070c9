// Package tasking implements round-robin cooperative multitasking: task
// control blocks, a FIFO ready queue, fork/kill and the ring-3 entry point
// user code resumes at.
package tasking

import (
	"gopheros/kernel/gate"
	"unsafe"
)

// kernelStackSize is the size of the stack each task's trap frame and
// kernel-mode execution run on.
const kernelStackSize = 8 * 1024

// Task is a single schedulable unit of execution: its own kernel stack, its
// saved context for the next resume, and its own page directory (Exec and
// Fork both give a new task a cloned one).
//
// A *Task is always heap-allocated: KernelStack alone is larger than any
// stack frame it could be constructed on, so callers build one with new
// (or the zero value of a composite literal) rather than ever copying a
// Task by value.
type Task struct {
	PID uint32

	// ESP/EIP are the saved context switchTo resumes from. For a task that
	// has never run, ESP points either at KernelStack's top (Exec) or at the
	// copied trap frame stored just below it (Fork), and EIP is either the
	// task's entry point (Exec) or the trap-return stub (Fork).
	ESP uintptr
	EIP uintptr

	// PD is the physical address of this task's page directory.
	PD uintptr

	// Regs points at the most recent trap frame taken while this task was
	// current, snapshotted by the pre-dispatch hook installed in Init. Fork
	// copies it to seed the child's first resume.
	Regs *gate.Registers

	KernelStack [kernelStackSize]byte
}

// StackTop returns the address one past the last byte of the task's kernel
// stack, the value ESP is initialized to before the stack is ever used.
func (t *Task) StackTop() uintptr {
	return uintptr(unsafe.Pointer(&t.KernelStack[0])) + uintptr(len(t.KernelStack))
}
