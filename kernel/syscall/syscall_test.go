package syscall

import (
	"gopheros/kernel/gate"
	"gopheros/kernel/tasking"
	"testing"
)

func withSyscallSeams(t *testing.T) func() {
	origSchedule, origKill, origFork, origCurrent, origTicks := scheduleFn, killFn, forkFn, currentTask, ticksFn

	scheduleFn = func() {}
	killFn = func() {}
	forkFn = func() uint32 { return 0 }
	currentTask = func() *tasking.Task { return &tasking.Task{PID: 7} }
	ticksFn = func() uint32 { return 0 }

	Init()

	return func() {
		scheduleFn, killFn, forkFn, currentTask, ticksFn = origSchedule, origKill, origFork, origCurrent, origTicks
	}
}

func TestInitFillsUnassignedSlotsWithUnimplemented(t *testing.T) {
	defer withSyscallSeams(t)()

	for i, fn := range table {
		if fn == nil {
			t.Fatalf("slot %d left nil after Init", i)
		}
	}
	if table[99] == nil {
		t.Fatal("expected an unassigned slot to be filled with a handler")
	}
}

func TestDispatchRoutesByEAX(t *testing.T) {
	defer withSyscallSeams(t)()

	killed := false
	killFn = func() { killed = true }

	regs := &gate.Registers{EAX: Exit, EBX: 3}
	dispatch(regs)

	if !killed {
		t.Error("expected EAX=Exit to invoke the exit syscall")
	}
}

func TestDispatchTreatsOutOfRangeAsUnimplemented(t *testing.T) {
	defer withSyscallSeams(t)()

	// Should not panic or index out of bounds.
	dispatch(&gate.Registers{EAX: numSyscalls + 1})
}

func TestSyscallWriteReturnsLengthForFD1(t *testing.T) {
	defer withSyscallSeams(t)()

	msg := []byte("hi")
	regs := &gate.Registers{
		EBX: 1,
		ECX: uint32(uintptr(ptrOf(msg))),
		EDX: uint32(len(msg)),
	}

	syscallWrite(regs)

	if regs.EAX != uint32(len(msg)) {
		t.Errorf("expected EAX to hold the written length %d; got %d", len(msg), regs.EAX)
	}
}

func TestSyscallWriteIgnoresOtherFDs(t *testing.T) {
	defer withSyscallSeams(t)()

	regs := &gate.Registers{EBX: 2, EDX: 5}
	syscallWrite(regs)

	if regs.EAX != 0 {
		t.Errorf("expected writes to fds other than 1 to report 0 bytes written; got %d", regs.EAX)
	}
}

func TestSyscallForkReturnsChildPIDInEAX(t *testing.T) {
	defer withSyscallSeams(t)()
	forkFn = func() uint32 { return 42 }

	regs := &gate.Registers{}
	syscallFork(regs)

	if regs.EAX != 42 {
		t.Errorf("expected EAX to hold the forked child's PID 42; got %d", regs.EAX)
	}
}

func TestSyscallSleepReschedules(t *testing.T) {
	defer withSyscallSeams(t)()

	scheduled := false
	scheduleFn = func() { scheduled = true }

	syscallSleep(&gate.Registers{})

	if !scheduled {
		t.Error("expected syscallSleep to trigger a reschedule")
	}
}

func TestSyscallSleepBusyLoopsProportionalToMs(t *testing.T) {
	defer withSyscallSeams(t)()

	var tick uint32
	ticksFn = func() uint32 { tick++; return tick }

	const ms = 50
	wantTicks := uint32(ms / msPerTick)

	syscallSleep(&gate.Registers{EBX: ms})

	if tick < wantTicks {
		t.Errorf("expected syscallSleep to poll ticksFn until at least %d ticks elapsed; got %d polls", wantTicks, tick)
	}
}

func TestSyscallSleepSkipsLoopForSubTickDelay(t *testing.T) {
	defer withSyscallSeams(t)()

	polls := 0
	ticksFn = func() uint32 { polls++; return 0 }
	scheduleFn = func() {}

	syscallSleep(&gate.Registers{EBX: msPerTick - 1})

	if polls != 0 {
		t.Errorf("expected a delay under one tick to skip the busy-loop entirely; got %d polls", polls)
	}
}

func ptrOf(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}
