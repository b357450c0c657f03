package loader

import (
	"debug/elf"
	"errors"
	"fmt"

	"github.com/rv32ima/emulator/vm"
)

// LoadELF loads the PT_LOAD segments of a 32-bit RISC-V ELF binary
// (the rv32ui-p-* conformance suite) into bus RAM and sets the hart's
// PC to the ELF entry point. Segment physical addresses are used
// directly, matching how the conformance binaries are linked to run
// at PAGE_OFFSET.
func LoadELF(bus *vm.Bus, h *vm.Hart, path string) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("open ELF %s: %w", path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return fmt.Errorf("ELF %s is not 32-bit", path)
	}
	if f.Machine != elf.EM_RISCV {
		return fmt.Errorf("ELF %s machine is %s, want EM_RISCV", path, f.Machine)
	}

	loaded := 0
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if prog.Filesz > 0 {
			if _, err := prog.ReadAt(data, 0); err != nil {
				return fmt.Errorf("read ELF segment at 0x%08X: %w", prog.Paddr, err)
			}
		}
		if err := bus.LoadBytes(uint32(prog.Paddr), data); err != nil {
			return fmt.Errorf("load ELF segment at 0x%08X: %w", prog.Paddr, err)
		}
		if gap := prog.Memsz - prog.Filesz; gap > 0 {
			if err := bus.LoadBytes(uint32(prog.Paddr)+uint32(prog.Filesz), make([]byte, gap)); err != nil {
				return fmt.Errorf("zero-fill ELF segment bss at 0x%08X: %w", prog.Paddr, err)
			}
		}
		loaded++
	}
	if loaded == 0 {
		return errors.New("ELF has no loadable segments")
	}

	if f.Entry == 0 {
		return errors.New("ELF entry point is zero")
	}
	h.PC = uint32(f.Entry)

	return nil
}
