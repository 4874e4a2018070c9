package vmm

import (
	"bytes"
	"gopheros/kernel/kfmt/early"
	"testing"
)

func TestSwitchPageDirectory(t *testing.T) {
	defer func() { switchPDTFn = func(uintptr) {} }()

	var got uintptr
	switchPDTFn = func(phys uintptr) { got = phys }

	SwitchPageDirectory(0xdeadb000)
	if got != 0xdeadb000 {
		t.Errorf("expected SwitchPageDirectory to forward 0x%x; got 0x%x", uintptr(0xdeadb000), got)
	}
}

func TestWarnExecIgnoredLogsOnce(t *testing.T) {
	defer func() {
		execWarningLogged = false
		early.SetOutput(discardBuf{})
	}()

	var buf bytes.Buffer
	early.SetOutput(&buf)
	execWarningLogged = false

	warnExecIgnored()
	firstLen := buf.Len()
	warnExecIgnored()

	if firstLen == 0 {
		t.Fatal("expected warnExecIgnored to log on first call")
	}
	if buf.Len() != firstLen {
		t.Error("expected warnExecIgnored to log only once")
	}
}

func TestTranslateFlagsDropsExec(t *testing.T) {
	defer func() {
		execWarningLogged = false
		early.SetOutput(discardBuf{})
	}()
	early.SetOutput(discardBuf{})
	execWarningLogged = false

	got := translateFlags(FlagRW | FlagExec)
	if got&FlagExec != 0 {
		t.Error("expected translateFlags to drop FlagExec")
	}
	if got&FlagPresent == 0 {
		t.Error("expected translateFlags to always assert FlagPresent")
	}
	if got&FlagRW == 0 {
		t.Error("expected translateFlags to preserve other flags")
	}
}

type discardBuf struct{}

func (discardBuf) Write(p []byte) (int, error) { return len(p), nil }
