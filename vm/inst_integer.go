package vm

// This file implements the RV32I handlers that are not loads, stores,
// or ALU ops: LUI, AUIPC, the jump family, branches, and the
// Zifencei no-ops. See spec §4.3.

func execLUI(h *Hart, inst uint32) error {
	rd := decodeRd(inst)
	h.SetRegister(rd, immU(inst))
	h.PC += 4
	return nil
}

func execAUIPC(h *Hart, inst uint32) error {
	rd := decodeRd(inst)
	h.SetRegister(rd, h.PC+immU(inst))
	h.PC += 4
	return nil
}

func execJAL(h *Hart, inst uint32) error {
	rd := decodeRd(inst)
	offset := signExtend(immJ(inst), 21)
	target := h.PC + offset
	if target&0b11 != 0 {
		return instructionMisaligned(target)
	}
	h.SetRegister(rd, h.PC+4)
	h.PC = target
	return nil
}

func execJALR(h *Hart, inst uint32) error {
	rd := decodeRd(inst)
	rs1 := decodeRs1(inst)
	offset := signExtend(immI(inst), 12)
	target := (h.GetRegister(rs1) + offset) &^ 1
	if target&0b11 != 0 {
		return instructionMisaligned(target)
	}
	ret := h.PC + 4
	h.SetRegister(rd, ret)
	h.PC = target
	return nil
}

// branchTaken evaluates the funct3-selected condition for a Bxx
// instruction, per the RISC-V unprivileged spec's Bxx semantics.
func branchTaken(funct3 uint32, a, b uint32) bool {
	switch funct3 {
	case 0b000: // BEQ
		return a == b
	case 0b001: // BNE
		return a != b
	case 0b100: // BLT
		return int32(a) < int32(b)
	case 0b101: // BGE
		return int32(a) >= int32(b)
	case 0b110: // BLTU
		return a < b
	case 0b111: // BGEU
		return a >= b
	default:
		return false
	}
}

func execBranch(h *Hart, inst uint32) error {
	funct3 := decodeFunct3(inst)
	rs1 := decodeRs1(inst)
	rs2 := decodeRs2(inst)
	a, b := h.GetRegister(rs1), h.GetRegister(rs2)

	if !branchTaken(funct3, a, b) {
		h.PC += 4
		return nil
	}
	offset := signExtend(immB(inst), 13)
	target := h.PC + offset
	if target&0b11 != 0 {
		return instructionMisaligned(target)
	}
	h.PC = target
	return nil
}

// execFence and execFenceI are no-ops in a single-hart, strictly
// program-ordered interpreter (spec §4.3, §5) but must still advance pc.
func execFence(h *Hart, inst uint32) error {
	h.PC += 4
	return nil
}

func execFenceI(h *Hart, inst uint32) error {
	h.PC += 4
	return nil
}

// execEnvCall dispatches ECALL/EBREAK, which share an opcode/funct3
// and are distinguished only by the I-type immediate (spec §7:
// "Breakpoint — EBREAK (encoded as ECALL with immediate 1)").
func execEnvCall(h *Hart, inst uint32) error {
	imm := immI(inst)
	if imm == 1 {
		return &trapError{cause: CauseBreakpoint, tval: 0}
	}
	return &trapError{cause: CauseMachineEnvCall, tval: 0}
}

func execMret(h *Hart, inst uint32) error {
	h.mret()
	return nil
}
