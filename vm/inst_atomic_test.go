package vm

import "testing"

func amoWord(funct5, rd, rs1, rs2 uint32) uint32 {
	return encodeR(opAMO, rd, 0b010, rs1, rs2, funct5<<2)
}

func TestLRSCSuccess(t *testing.T) {
	h, _ := newTestHart(8192)
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 0x200),       // addi x1, x0, 0x200 (address)
		encodeI(opOPIMM, 2, 0b000, 0, 7),           // addi x2, x0, 7
		amoWord(0b00010, 3, 1, 0),                  // lr.w x3, (x1)
		amoWord(0b00011, 4, 1, 2),                  // sc.w x4, x2, (x1)
	})
	for i := 0; i < 4; i++ {
		if err := h.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if h.GetRegister(4) != 0 {
		t.Fatalf("sc.w result x4 = %d, want 0 (success)", h.GetRegister(4))
	}
	v, err := h.Bus.Load(0x200, 4)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != 7 {
		t.Fatalf("memory at 0x200 = %d, want 7", v)
	}
}

func TestSCWithoutReservationFails(t *testing.T) {
	h, _ := newTestHart(8192)
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 0x200), // addi x1, x0, 0x200
		amoWord(0b00011, 2, 1, 0),            // sc.w x2, x0, (x1), no prior lr.w
	})
	_ = h.Step()
	if err := h.Step(); err != nil {
		t.Fatalf("sc.w: %v", err)
	}
	if h.GetRegister(2) != 1 {
		t.Fatalf("sc.w result = %d, want 1 (failure)", h.GetRegister(2))
	}
}

func TestAMOADDAccumulates(t *testing.T) {
	h, _ := newTestHart(8192)
	if err := h.Bus.Store(0x300, 4, 10); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 0x300), // addi x1, x0, 0x300
		encodeI(opOPIMM, 2, 0b000, 0, 5),     // addi x2, x0, 5
		amoWord(0b00000, 3, 1, 2),            // amoadd.w x3, x2, (x1)
	})
	for i := 0; i < 3; i++ {
		if err := h.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if h.GetRegister(3) != 10 {
		t.Fatalf("amoadd.w old value x3 = %d, want 10", h.GetRegister(3))
	}
	v, _ := h.Bus.Load(0x300, 4)
	if v != 15 {
		t.Fatalf("memory at 0x300 = %d, want 15", v)
	}
}

func TestAMOAlignmentFault(t *testing.T) {
	h, _ := newTestHart(8192)
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 0x301), // addi x1, x0, 0x301 (misaligned)
		amoWord(0b00001, 2, 1, 0),            // amoswap.w x2, x0, (x1)
	})
	_ = h.Step()
	if err := h.Step(); err != nil {
		t.Fatalf("Step returned fatal error: %v", err)
	}
	if h.CSR.Read(csrMcause) != CauseInstructionAddressMisaligned {
		t.Fatalf("mcause = %d, want CauseInstructionAddressMisaligned", h.CSR.Read(csrMcause))
	}
}
