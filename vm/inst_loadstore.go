package vm

// Loads and stores (spec §4.3): sign/zero extension per width, and
// little-endian byte-wise stores. Misaligned accesses are permitted,
// matching the hardware-style byte-wise behavior the spec calls for;
// the Bus itself enforces only the RAM/device bounds check.

func execLoad(h *Hart, inst uint32) error {
	funct3 := decodeFunct3(inst)
	rd := decodeRd(inst)
	rs1 := decodeRs1(inst)
	offset := signExtend(immI(inst), 12)
	addr := h.GetRegister(rs1) + offset

	var width int
	switch funct3 {
	case 0b000, 0b100: // LB, LBU
		width = 1
	case 0b001, 0b101: // LH, LHU
		width = 2
	case 0b010: // LW
		width = 4
	default:
		return illegalInstruction(inst)
	}

	raw, err := h.Bus.Load(addr, width)
	if err != nil {
		return err
	}

	var val uint32
	switch funct3 {
	case 0b000: // LB
		val = signExtend(raw, 8)
	case 0b001: // LH
		val = signExtend(raw, 16)
	case 0b010: // LW
		val = raw
	case 0b100: // LBU
		val = raw & 0xff
	case 0b101: // LHU
		val = raw & 0xffff
	}

	h.SetRegister(rd, val)
	h.PC += 4
	return nil
}

func execStore(h *Hart, inst uint32) error {
	funct3 := decodeFunct3(inst)
	rs1 := decodeRs1(inst)
	rs2 := decodeRs2(inst)
	offset := signExtend(immS(inst), 12)
	addr := h.GetRegister(rs1) + offset
	val := h.GetRegister(rs2)

	var width int
	switch funct3 {
	case 0b000: // SB
		width = 1
	case 0b001: // SH
		width = 2
	case 0b010: // SW
		width = 4
	default:
		return illegalInstruction(inst)
	}

	if err := h.Bus.Store(addr, width, val); err != nil {
		return err
	}
	h.PC += 4
	return nil
}
