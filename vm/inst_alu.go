package vm

// RV32I register-immediate and register-register ALU/shift handlers
// (spec §4.3). ADD/SUB/ADDI use wrapping 32-bit arithmetic throughout,
// which is exactly what Go's uint32 arithmetic already does.

func execOpImm(h *Hart, inst uint32) error {
	funct3 := decodeFunct3(inst)
	rd := decodeRd(inst)
	rs1 := decodeRs1(inst)
	a := h.GetRegister(rs1)
	imm := signExtend(immI(inst), 12)

	var result uint32
	switch funct3 {
	case 0b000: // ADDI
		result = a + imm
	case 0b010: // SLTI
		result = boolToWord(int32(a) < int32(imm))
	case 0b011: // SLTIU
		result = boolToWord(a < imm)
	case 0b100: // XORI
		result = a ^ imm
	case 0b110: // ORI
		result = a | imm
	case 0b111: // ANDI
		result = a & imm
	case 0b001: // SLLI
		result = a << immIUnsigned(inst)
	case 0b101: // SRLI / SRAI, distinguished by instr[30]
		shamt := immIUnsigned(inst)
		if inst&(1<<30) != 0 {
			result = uint32(int32(a) >> shamt) // SRAI, arithmetic
		} else {
			result = a >> shamt // SRLI, logical
		}
	default:
		return illegalInstruction(inst)
	}

	h.SetRegister(rd, result)
	h.PC += 4
	return nil
}

func execOp(h *Hart, inst uint32) error {
	funct3 := decodeFunct3(inst)
	funct7 := decodeFunct7(inst)
	rd := decodeRd(inst)
	rs1 := decodeRs1(inst)
	rs2 := decodeRs2(inst)
	a, b := h.GetRegister(rs1), h.GetRegister(rs2)

	var result uint32
	switch {
	case funct3 == 0b000 && funct7 == 0b0000000: // ADD
		result = a + b
	case funct3 == 0b000 && funct7 == 0b0100000: // SUB
		result = a - b
	case funct3 == 0b001: // SLL
		result = a << (b & 0x1f)
	case funct3 == 0b010: // SLT
		result = boolToWord(int32(a) < int32(b))
	case funct3 == 0b011: // SLTU
		result = boolToWord(a < b)
	case funct3 == 0b100: // XOR
		result = a ^ b
	case funct3 == 0b101 && funct7 == 0b0000000: // SRL
		result = a >> (b & 0x1f)
	case funct3 == 0b101 && funct7 == 0b0100000: // SRA
		result = uint32(int32(a) >> (b & 0x1f))
	case funct3 == 0b110: // OR
		result = a | b
	case funct3 == 0b111: // AND
		result = a & b
	default:
		return illegalInstruction(inst)
	}

	h.SetRegister(rd, result)
	h.PC += 4
	return nil
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
