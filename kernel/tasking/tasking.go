package tasking

import (
	"container/list"
	"gopheros/kernel"
	"gopheros/kernel/cpu"
	"gopheros/kernel/gate"
	"gopheros/kernel/gdt"
	"gopheros/kernel/mem/vmm"
	"reflect"
	"unsafe"
)

var (
	cloneDirectoryFn      = vmm.CloneDirectory
	switchPageDirectoryFn = vmm.SwitchPageDirectory
	setKernelStackFn      = gdt.SetKernelStack
	setSegmentsFn         = gdt.SetSegments
	readEFlagsFn          = cpu.ReadEFlags
	saveContextFn         = saveContext
	resumeContextFn       = resumeContext
	replaceCurrentFn      = replaceCurrent
	runIretFn             = runIret
	retFromTrapAddrFn     = retFromTrapAddr
	funcEntryFn           = funcEntry
	panicFn               = kernel.Panic

	nextPID     = uint32(1)
	currentTask *Task
	readyQueue  list.List

	errCannotKillIdle = &kernel.Error{Module: "tasking", Message: "cannot kill the idle task"}
	errQueueEmpty     = &kernel.Error{Module: "tasking", Message: "no other task to kill into"}
)

// iretFrame is the fake interrupt-return stack UserMode builds so that a
// single IRET transitions from kernel code directly into ring-3 user code.
// Its field order and packing match exactly what IRET expects to pop.
type iretFrame struct {
	EIP    uint32
	CS     uint32
	EFlags uint32
	ESP    uint32
	SS     uint32
}

// Init installs the boot task (PID 0) as the current task, using whatever
// page directory is already active (installed earlier by vmm.Init) and the
// kernel's own boot stack. It must run after gdt.Init and vmm.Init, and
// before the first call to Schedule.
func Init() {
	currentTask = &Task{PID: 0, PD: cpu.ActivePDT()}
	setKernelStackFn(currentTask.StackTop())
	gate.SetPreDispatchHook(snapshotRegs)
}

// CurrentTask returns the task currently executing.
func CurrentTask() *Task {
	return currentTask
}

// snapshotRegs is installed as gate's pre-dispatch hook so that Fork always
// has access to the trap frame most recently taken while its caller was
// current, without gate needing to import tasking directly.
func snapshotRegs(regs *gate.Registers) {
	if currentTask != nil {
		currentTask.Regs = regs
	}
}

func acquirePID() uint32 {
	pid := nextPID
	nextPID++
	return pid
}

// Exec creates a new kernel-mode task that begins executing fn with its own
// address space (a deep copy of the caller's, per vmm.CloneDirectory) and a
// fresh kernel stack. The new task is appended to the ready queue; it does
// not run until Schedule selects it.
func Exec(fn func()) {
	pd, err := cloneDirectoryFn()
	if err != nil {
		panicFn(err)
	}

	t := &Task{
		PID: acquirePID(),
		PD:  pd,
		EIP: funcEntryFn(fn),
	}
	t.ESP = t.StackTop()

	readyQueue.PushBack(t)
}

// Fork creates a child task that is an exact copy of the calling task at the
// point of its most recent trap: same address space contents (via
// vmm.CloneDirectory), same register snapshot, except the child's EAX reads
// 0 so caller code can distinguish parent from child exactly as the POSIX
// fork() convention does. The child resumes at the shared trap-return stub
// rather than at Exec's plain-entry-point convention, since it must fall
// through the normal register-restore/IRET path to reach the instruction
// after the syscall that invoked Fork.
func Fork() uint32 {
	pd, err := cloneDirectoryFn()
	if err != nil {
		panicFn(err)
	}

	child := &Task{
		PID: acquirePID(),
		PD:  pd,
	}

	regsAddr := child.StackTop() - unsafe.Sizeof(gate.Registers{})
	childRegs := (*gate.Registers)(unsafe.Pointer(regsAddr))
	*childRegs = *currentTask.Regs
	childRegs.EAX = 0

	child.Regs = childRegs
	child.ESP = regsAddr
	child.EIP = retFromTrapAddrFn()

	readyQueue.PushBack(child)

	return child.PID
}

// UserMode drops the calling task into ring 3, resuming at entry with the
// given user stack pointer and interrupts enabled. It never returns: the
// task only re-enters kernel code through a later interrupt or syscall trap.
func UserMode(entry, stackTop uintptr) {
	frame := iretFrame{
		SS:     uint32(gdt.UserDataSelector),
		ESP:    uint32(stackTop),
		EFlags: readEFlagsFn() | 0x200,
		CS:     uint32(gdt.UserCodeSelector),
		EIP:    uint32(entry),
	}

	setSegmentsFn(gdt.UserDataSelector)
	runIretFn(&frame)
}

// Schedule picks the next ready task in FIFO order, appends the currently
// running task to the back of the queue and switches to it. If the ready
// queue is empty the current task keeps running.
func Schedule() {
	front := readyQueue.Front()
	if front == nil {
		return
	}
	readyQueue.Remove(front)
	next := front.Value.(*Task)

	prev := currentTask
	readyQueue.PushBack(prev)
	currentTask = next

	switchTo(prev, next)
}

// switchTo transfers control from prev to next. It mirrors the teacher's
// convention of splitting hardware context-save/restore into two tiny
// asm-backed primitives around the Go-level bookkeeping (kernel stack,
// page directory) that has to happen in between while prev's context is
// already saved but next's is not yet live.
func switchTo(prev, next *Task) {
	saveContextFn(prev)

	setKernelStackFn(next.StackTop())
	switchPageDirectoryFn(next.PD)

	resumeContextFn(next)
}

// Kill terminates the calling task and switches directly to the next ready
// task without saving the caller's context anywhere, since it is being
// discarded. The idle task (PID 0) can never be killed.
func Kill() {
	if currentTask.PID == 0 {
		panicFn(errCannotKillIdle)
	}

	front := readyQueue.Front()
	if front == nil {
		panicFn(errQueueEmpty)
	}
	readyQueue.Remove(front)

	next := front.Value.(*Task)
	currentTask = next

	replaceCurrentFn(next)
}

// funcEntry returns the machine code entry point of a niladic function
// value, used to seed a freshly Exec'd task's EIP without requiring the
// caller to hand over a raw address.
func funcEntry(fn func()) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// saveContext stores the caller's resume point into prev.ESP/prev.EIP and
// preserves its frame pointer across the switch ("cli; push ebp; mov esp,
// prev.esp; lea resume, prev.eip"), the first of switch_to's two asm blocks.
func saveContext(prev *Task)

// resumeContext loads ESP from next.ESP, re-enables interrupts and jumps to
// next.EIP ("mov next.esp, esp; sti; jmp next.eip; resume: pop ebp"), the
// second of switch_to's two asm blocks. The "resume:" label is only ever
// landed on by a later saveContext targeting this same task; the first time
// a task is resumed this is a plain jump into its entry point or the
// trap-return stub.
func resumeContext(next *Task)

// replaceCurrent loads ESP from next.ESP and jumps to next.EIP without
// saving any context for the caller, used by Kill.
func replaceCurrent(next *Task)

// runIret pops frame's fields into EIP, CS, EFLAGS, ESP and SS via IRET,
// dropping into ring 3 at frame.EIP.
func runIret(frame *iretFrame)

// retFromTrapAddr returns the address of the shared trap stub's
// ret_from_trap label: the point after register restoration begins, where a
// forked child must resume so that it falls through the ordinary
// trap-return path (pop saved registers, IRET) instead of a plain
// entry-point jump.
func retFromTrapAddr() uintptr
