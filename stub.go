package main

import "gopheros/kernel/kmain"

// These are populated by the rt0 boot stub and linker script (both out of
// scope for this repo) before control reaches main: multibootInfoPtr holds
// the address of the multiboot2 info structure, kernelStart/kernelEnd bound
// the kernel's own loaded image, and binaryELFStart/binaryELFEnd bound the
// statically-linked init payload the linker embeds alongside the kernel.
var (
	multibootInfoPtr             uintptr
	kernelStart, kernelEnd       uintptr
	binaryELFStart, binaryELFEnd uintptr
)

// main makes a dummy call into the real kernel entrypoint. It exists so the
// Go compiler cannot see through to an empty program and optimize the
// kernel away; passing package-level variables (rather than constants)
// prevents the call from being inlined and the callee from being dropped.
func main() {
	kmain.Kmain(multibootInfoPtr, kernelStart, kernelEnd, binaryELFStart, binaryELFEnd)
}
