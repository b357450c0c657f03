package vm

import (
	"errors"
	"testing"
)

func TestStoreLoadWordRoundTrip(t *testing.T) {
	h, _ := newTestHart(8192)
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 0xfff), // addi x1, x0, -1
		encodeS(opSTORE, 0b010, 0, 1, 0x100),                   // sw x1, 0x100(x0)
		encodeI(opLOAD, 2, 0b010, 0, 0x100),                    // lw x2, 0x100(x0)
	})
	for i := 0; i < 3; i++ {
		if err := h.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if got := h.GetRegister(2); got != 0xffffffff {
		t.Fatalf("x2 = 0x%X, want 0xffffffff", got)
	}
}

func TestLoadByteSignAndZeroExtend(t *testing.T) {
	h, _ := newTestHart(8192)
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 0xffe), // addi x1, x0, -2
		encodeS(opSTORE, 0b000, 0, 1, 0x200),                   // sb x1, 0x200(x0)
		encodeI(opLOAD, 2, 0b000, 0, 0x200),                    // lb x2, 0x200(x0)  -> sign-extend
		encodeI(opLOAD, 3, 0b100, 0, 0x200),                    // lbu x3, 0x200(x0) -> zero-extend
	})
	for i := 0; i < 4; i++ {
		if err := h.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if got := int32(h.GetRegister(2)); got != -2 {
		t.Fatalf("lb x2 = %d, want -2", got)
	}
	if got := h.GetRegister(3); got != 0xfe {
		t.Fatalf("lbu x3 = 0x%X, want 0xFE", got)
	}
}

func TestLoadOutOfRangeFaults(t *testing.T) {
	h, _ := newTestHart(4096)
	loadProgram(h, []uint32{
		encodeI(opLOAD, 1, 0b010, 0, 0xfff), // lw x1, -1(x0) -> addr = 0xFFFFFFFF, past the end of RAM
	})
	if err := h.Step(); err != nil {
		t.Fatalf("Step returned fatal error: %v", err)
	}
	if h.CSR.Read(csrMcause) != CauseLoadAccessFault {
		t.Fatalf("mcause = %d, want CauseLoadAccessFault", h.CSR.Read(csrMcause))
	}
}

func TestNullDereferenceIsFatal(t *testing.T) {
	h, _ := newTestHart(4096)
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 0),    // addi x1, x0, 0
		encodeI(opLOAD, 2, 0b010, 1, 0),     // lw x2, 0(x1) -> address 0
	})
	_ = h.Step()
	err := h.Step()
	if err == nil {
		t.Fatal("expected a fatal error from a null-pointer load")
	}
	var fe *FatalError
	if !errors.As(err, &fe) {
		t.Fatalf("error is not *FatalError: %v", err)
	}
	var nullErr *FatalNullDerefError
	if !errors.As(fe.Cause, &nullErr) {
		t.Fatalf("FatalError.Cause is not *FatalNullDerefError: %v", fe.Cause)
	}
}
