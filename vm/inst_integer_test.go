package vm

import "testing"

func TestExecLUIAUIPC(t *testing.T) {
	h, _ := newTestHart(4096)
	loadProgram(h, []uint32{
		encodeU(opLUI, 1, 0x12345),
		encodeU(opAUIPC, 2, 1),
	})
	_ = h.Step()
	if got := h.GetRegister(1); got != 0x12345000 {
		t.Fatalf("lui x1 = 0x%X, want 0x12345000", got)
	}
	pcBeforeAuipc := h.PC
	_ = h.Step()
	if got := h.GetRegister(2); got != pcBeforeAuipc+0x1000 {
		t.Fatalf("auipc x2 = 0x%X, want 0x%X", got, pcBeforeAuipc+0x1000)
	}
}

func TestExecJAL(t *testing.T) {
	h, _ := newTestHart(4096)
	loadProgram(h, []uint32{
		encodeJ(opJAL, 1, 8), // jal x1, +8 -> lands on the 3rd word
		0,                    // skipped
		encodeI(opOPIMM, 2, 0b000, 0, 42), // addi x2, x0, 42
	})
	if err := h.Step(); err != nil {
		t.Fatalf("jal: %v", err)
	}
	if h.GetRegister(1) != testBase+4 {
		t.Fatalf("x1 (return addr) = 0x%X, want 0x%X", h.GetRegister(1), testBase+4)
	}
	if h.PC != testBase+8 {
		t.Fatalf("PC after jal = 0x%X, want 0x%X", h.PC, testBase+8)
	}
	if err := h.Step(); err != nil {
		t.Fatalf("addi: %v", err)
	}
	if h.GetRegister(2) != 42 {
		t.Fatalf("x2 = %d, want 42", h.GetRegister(2))
	}
}

func TestExecJALRMisaligned(t *testing.T) {
	h, _ := newTestHart(4096)
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 2), // addi x1, x0, 2
		encodeI(opJALR, 2, 0b000, 1, 1),  // jalr x2, 1(x1) -> target = (2+1)&^1 = 2, misaligned
	})
	_ = h.Step()
	if err := h.Step(); err != nil {
		t.Fatalf("jalr Step returned fatal error: %v", err)
	}
	if h.CSR.Read(csrMcause) != CauseInstructionAddressMisaligned {
		t.Fatalf("mcause = %d, want CauseInstructionAddressMisaligned", h.CSR.Read(csrMcause))
	}
}

func TestExecBranchTaken(t *testing.T) {
	h, _ := newTestHart(4096)
	loadProgram(h, []uint32{
		encodeI(opOPIMM, 1, 0b000, 0, 5),           // addi x1, x0, 5
		encodeI(opOPIMM, 2, 0b000, 0, 5),           // addi x2, x0, 5
		encodeB(opBRANCH, 0b000, 1, 2, 8),          // beq x1, x2, +8 (taken)
		encodeI(opOPIMM, 3, 0b000, 0, 1),           // addi x3, x0, 1 (skipped)
		encodeI(opOPIMM, 4, 0b000, 0, 2),           // addi x4, x0, 2
	})
	for i := 0; i < 2; i++ {
		_ = h.Step()
	}
	beforeBranch := h.PC
	if err := h.Step(); err != nil {
		t.Fatalf("beq: %v", err)
	}
	if h.PC != beforeBranch+8 {
		t.Fatalf("PC after taken branch = 0x%X, want 0x%X", h.PC, beforeBranch+8)
	}
	_ = h.Step()
	if h.GetRegister(3) != 0 {
		t.Fatalf("x3 = %d, want 0 (instruction skipped)", h.GetRegister(3))
	}
	if h.GetRegister(4) != 2 {
		t.Fatalf("x4 = %d, want 2", h.GetRegister(4))
	}
}

func TestFenceAndFenceINoOps(t *testing.T) {
	h, _ := newTestHart(4096)
	loadProgram(h, []uint32{
		encodeI(opMISCMEM, 0, 0b000, 0, 0), // fence
		encodeI(opMISCMEM, 0, 0b001, 0, 0), // fence.i
	})
	start := h.PC
	_ = h.Step()
	_ = h.Step()
	if h.PC != start+8 {
		t.Fatalf("PC = 0x%X, want 0x%X", h.PC, start+8)
	}
}
