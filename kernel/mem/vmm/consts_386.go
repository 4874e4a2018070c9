package vmm

// IA-32 two-level paging geometry: a page directory of 1024 entries, each
// pointing at a page table of 1024 entries, each mapping a single 4 KiB
// page. This reuses the teacher's level-agnostic walk() abstraction at 2
// levels instead of amd64's 4.
const (
	pageLevels = 2

	// pageLevelEntries is the number of entries in a page directory or
	// page table (1024, the IA-32 two-level standard).
	pageLevelEntries = 1024

	// secondaryDirIndex is the page directory index that
	// pdtSecondaryVirtualAddr resolves to (0xFFBFF000 >> 22).
	secondaryDirIndex = uintptr(1022)
)

var (
	pageLevelBits   = [pageLevels]uint8{10, 10}
	pageLevelShifts = [pageLevels]uint8{22, 12}
)

const (
	// pdtVirtualAddr is the recursively-mapped virtual address of the
	// currently active page directory: the last entry of the directory
	// points back at itself, so indexing through it at every level lands
	// back on the directory's own 4 KiB page.
	pdtVirtualAddr = uintptr(0xFFFFF000)

	// pdtSecondaryVirtualAddr is a second recursive slot used while
	// constructing a *different* page directory than the currently active
	// one (fork). Mapping a candidate directory's physical frame here
	// lets CloneDirectory address it with ordinary loads/stores.
	pdtSecondaryVirtualAddr = uintptr(0xFFBFF000)

	// temp1Addr and temp2Addr are scratch single-page mappings used to
	// copy data between two physical frames that are not otherwise
	// mapped (CloneDirectory's per-page deep copy).
	temp1Addr = uintptr(0xFF7FF000)
	temp2Addr = uintptr(0xFF7FE000)

	// ptePhysPageMask isolates the physical frame address encoded in a
	// page table entry, discarding the low 12 flag bits.
	ptePhysPageMask = uintptr(0xFFFFF000)
)

// Page describes a page-aligned virtual address.
type Page uintptr

// Address returns the virtual address for this page.
func (p Page) Address() uintptr {
	return uintptr(p)
}

// PageFromAddress returns the Page that contains the given virtual address.
func PageFromAddress(addr uintptr) Page {
	return Page(addr &^ (uintptr(1<<pageLevelShifts[pageLevels-1]) - 1))
}
