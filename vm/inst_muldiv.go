package vm

// M-extension handlers (spec §4.4). These share the OP opcode with the
// base ALU but are distinguished by funct7==0b0000001; see decoder.go.

func execMulDiv(h *Hart, inst uint32) error {
	funct3 := decodeFunct3(inst)
	rd := decodeRd(inst)
	rs1 := decodeRs1(inst)
	rs2 := decodeRs2(inst)
	a, b := h.GetRegister(rs1), h.GetRegister(rs2)

	var result uint32
	switch funct3 {
	case 0b000: // MUL
		result = a * b
	case 0b001: // MULH (signed x signed)
		result = uint32(int64(int32(a)) * int64(int32(b)) >> 32)
	case 0b010: // MULHSU (signed x unsigned)
		result = uint32((int64(int32(a)) * int64(b)) >> 32)
	case 0b011: // MULHU (unsigned x unsigned)
		result = uint32((uint64(a) * uint64(b)) >> 32)
	case 0b100: // DIV
		result = divSigned(int32(a), int32(b))
	case 0b101: // DIVU
		result = divUnsigned(a, b)
	case 0b110: // REM
		result = remSigned(int32(a), int32(b))
	case 0b111: // REMU
		result = remUnsigned(a, b)
	default:
		return illegalInstruction(inst)
	}

	h.SetRegister(rd, result)
	h.PC += 4
	return nil
}

// divSigned implements spec §4.4: division by zero yields all-ones;
// INT_MIN / -1 yields INT_MIN (signed overflow, no trap).
func divSigned(a, b int32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	if a == -2147483648 && b == -1 {
		return uint32(a)
	}
	return uint32(a / b)
}

func divUnsigned(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	return a / b
}

// remSigned implements spec §4.4: remainder by zero returns the
// dividend; INT_MIN % -1 is 0 per the same overflow rule as DIV.
func remSigned(a, b int32) uint32 {
	if b == 0 {
		return uint32(a)
	}
	if a == -2147483648 && b == -1 {
		return 0
	}
	return uint32(a % b)
}

func remUnsigned(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
