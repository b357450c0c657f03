// Package loader places a flat kernel image and an optional Device
// Tree Blob into a vm.Bus's RAM and seeds the hart registers a
// no-MMU Linux boot expects, plus an ELF path for the rv32ui-p-*
// conformance binaries used by this package's conformance test.
package loader

import (
	"fmt"
	"os"

	"github.com/rv32ima/emulator/vm"
)

// Image describes what was placed in RAM by LoadFlat, for callers
// (main.go, the debugger) that want to report addresses back to the
// user.
type Image struct {
	EntryPoint uint32
	DTBAddr    uint32
	DTBSize    uint32
}

// LoadFlat reads the kernel image at kernelPath and, if dtbPath is
// non-empty, the DTB at dtbPath, places the kernel at bus.PageOffset()
// and the DTB at the end of RAM, and seeds hart registers a0=0
// (hartid) and a1=DTB address per spec §6. Returns the resulting
// entry point and DTB placement.
func LoadFlat(bus *vm.Bus, h *vm.Hart, kernelPath, dtbPath string) (*Image, error) {
	kernel, err := os.ReadFile(kernelPath) // #nosec G304 -- user-supplied kernel image
	if err != nil {
		return nil, fmt.Errorf("read kernel image: %w", err)
	}

	entry := bus.PageOffset()
	if err := bus.LoadBytes(entry, kernel); err != nil {
		return nil, fmt.Errorf("load kernel image at 0x%08X: %w", entry, err)
	}

	img := &Image{EntryPoint: entry}

	if dtbPath != "" {
		dtb, err := os.ReadFile(dtbPath) // #nosec G304 -- user-supplied DTB
		if err != nil {
			return nil, fmt.Errorf("read DTB: %w", err)
		}
		dtbAddr, err := placeDTB(bus, dtb)
		if err != nil {
			return nil, err
		}
		img.DTBAddr = dtbAddr
		img.DTBSize = uint32(len(dtb))
	}

	h.PC = entry
	h.SetRegister(10, 0) // a0: hartid
	h.SetRegister(11, img.DTBAddr) // a1: DTB physical address, 0 if none

	return img, nil
}

// placeDTB writes dtb at the end of RAM, aligned down to a 8-byte
// boundary so the blob's own alignment requirements are satisfied,
// and returns its physical address.
func placeDTB(bus *vm.Bus, dtb []byte) (uint32, error) {
	end := bus.PageOffset() + bus.Size()
	addr := (end - uint32(len(dtb))) &^ 7
	if addr < bus.PageOffset() {
		return 0, fmt.Errorf("DTB of %d bytes does not fit in %d bytes of RAM", len(dtb), bus.Size())
	}
	if err := bus.LoadBytes(addr, dtb); err != nil {
		return 0, fmt.Errorf("place DTB at 0x%08X: %w", addr, err)
	}
	return addr, nil
}
