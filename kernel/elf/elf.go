// Package elf loads and launches a statically-linked ELF32 executable: it
// walks the program header table, maps and populates each PT_LOAD segment
// in the currently active address space, maps a fixed user stack, and hands
// control to tasking.UserMode. Header fields are read directly off the raw
// byte slice at their fixed on-disk offsets rather than through an
// encoding/binary.Read, matching how the rest of this kernel avoids that
// package in favor of manual little-endian field access.
package elf

import (
	"gopheros/kernel"
	"gopheros/kernel/mem/vmm"
	"gopheros/kernel/tasking"
	"unsafe"
)

const (
	magic0, magic1, magic2, magic3 = 0x7f, 'E', 'L', 'F'

	etExec = 2

	ptNull     = 0
	ptLoad     = 1
	ptGNUStack = 0x60000000 + 0x474e551

	ptW = 0x4
	ptX = 0x1

	// Byte offsets of the fields this loader reads within an ELF32 file
	// header (Elf32_Ehdr) and program header (Elf32_Phdr). Every other
	// field is either unused (e_shoff, p_paddr, ...) or implied by the
	// loop bounds (e_phnum, e_phentsize).
	offEType      = 16
	offEEntry     = 24
	offEPhoff     = 28
	offEPhentsize = 42
	offEPhnum     = 44

	phOffType   = 0
	phOffOffset = 4
	phOffVaddr  = 8
	phOffFilesz = 16
	phOffMemsz  = 20
	phOffFlags  = 24

	// UserStackAddr and UserStackSize are the fixed location and size of
	// the stack mapped for every loaded executable. This loader supports
	// exactly one running user image at a time, so a fixed address is
	// sufficient.
	UserStackAddr = uintptr(0x5600000)
	UserStackSize = uintptr(8 * 1024)
)

var (
	mapFn      = vmm.Map
	memcopyFn  = kernel.Memcopy
	memsetFn   = kernel.Memset
	userModeFn = tasking.UserMode

	errNotExecutable  = &kernel.Error{Module: "elf", Message: "not an executable ELF image"}
	errUnsupportedSeg = &kernel.Error{Module: "elf", Message: "unsupported ELF program header type"}
	errImageTooSmall  = &kernel.Error{Module: "elf", Message: "image too small to contain an ELF header"}
)

// Probe reports whether img begins with the 4-byte ELF magic number.
func Probe(img []byte) bool {
	return len(img) >= 4 &&
		img[0] == magic0 && img[1] == magic1 && img[2] == magic2 && img[3] == magic3
}

// Exec loads img's PT_LOAD segments, maps the user stack, and transfers
// control to the image's entry point in ring 3 via tasking.UserMode. It
// only returns when setup fails; on success UserMode never returns.
func Exec(img []byte) *kernel.Error {
	if len(img) < offEPhnum+2 {
		return errImageTooSmall
	}

	entry, stackExec, err := setup(img)
	if err != nil {
		return err
	}

	stackFlags := vmm.FlagPresent | vmm.FlagUser | vmm.FlagRW
	if stackExec {
		stackFlags |= vmm.FlagExec
	}
	if err := mapFn(UserStackAddr, UserStackSize, stackFlags); err != nil {
		return err
	}

	userModeFn(entry, UserStackAddr+UserStackSize)
	return nil
}

// setup walks img's program header table, loading every PT_LOAD segment,
// and returns the entry point to resume at along with whether the user
// stack should be mapped executable: true unless a PT_GNU_STACK header is
// present and clears PT_X, per the ELF stack-executability convention.
func setup(img []byte) (uintptr, bool, *kernel.Error) {
	if readUint16(img, offEType) != etExec {
		return 0, false, errNotExecutable
	}

	phoff := uintptr(readUint32(img, offEPhoff))
	phentsize := uintptr(readUint16(img, offEPhentsize))
	phnum := uintptr(readUint16(img, offEPhnum))

	stackExec := true

	for i := uintptr(0); i < phnum; i++ {
		ph := img[phoff+i*phentsize:]

		switch readUint32(ph, phOffType) {
		case ptNull:
			// no action
		case ptLoad:
			if err := loadSegment(img, ph); err != nil {
				return 0, false, err
			}
		case ptGNUStack:
			if readUint32(ph, phOffFlags)&ptX == 0 {
				stackExec = false
			}
		default:
			return 0, false, errUnsupportedSeg
		}
	}

	return uintptr(readUint32(img, offEEntry)), stackExec, nil
}

// loadSegment maps a PT_LOAD segment's virtual range, copies its file
// contents in, and zero-fills the remainder of p_memsz beyond p_filesz
// (the BSS convention: memsz may exceed filesz, and the gap must read as
// zero rather than leftover physical memory).
func loadSegment(img []byte, ph []byte) *kernel.Error {
	offset := uintptr(readUint32(ph, phOffOffset))
	vaddr := uintptr(readUint32(ph, phOffVaddr))
	filesz := uintptr(readUint32(ph, phOffFilesz))
	memsz := uintptr(readUint32(ph, phOffMemsz))
	flags := readUint32(ph, phOffFlags)

	pteFlags := vmm.FlagPresent | vmm.FlagUser
	if flags&ptW != 0 {
		pteFlags |= vmm.FlagRW
	}
	if flags&ptX != 0 {
		pteFlags |= vmm.FlagExec
	}

	if err := mapFn(vaddr, memsz, pteFlags); err != nil {
		return err
	}

	if filesz > 0 {
		memcopyFn(uintptr(unsafe.Pointer(&img[offset])), vaddr, filesz)
	}
	if memsz > filesz {
		memsetFn(vaddr+filesz, 0, memsz-filesz)
	}

	return nil
}

func readUint16(b []byte, off int) uint16 {
	return uint16(b[off]) | uint16(b[off+1])<<8
}

func readUint32(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}
