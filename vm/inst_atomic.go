package vm

// A-extension handlers: LR.W, SC.W, and the nine AMO ops (spec §4.5).
// All operate on a single 32-bit word and require 4-byte alignment.
// funct7's low two bits are aq/rl, ignored semantically but matched as
// wildcards in the decode table so every aq/rl combination reaches the
// same handler (spec §4.5, last paragraph).

func checkAmoAlign(addr uint32) error {
	if addr&0b11 != 0 {
		return instructionMisaligned(addr)
	}
	return nil
}

func execLR(h *Hart, inst uint32) error {
	rd := decodeRd(inst)
	rs1 := decodeRs1(inst)
	addr := h.GetRegister(rs1)
	if err := checkAmoAlign(addr); err != nil {
		return err
	}
	v, err := h.Bus.Load(addr, 4)
	if err != nil {
		return err
	}
	h.SetRegister(rd, v)
	h.SetReservation(addr)
	h.PC += 4
	return nil
}

func execSC(h *Hart, inst uint32) error {
	rd := decodeRd(inst)
	rs1 := decodeRs1(inst)
	rs2 := decodeRs2(inst)
	addr := h.GetRegister(rs1)
	if err := checkAmoAlign(addr); err != nil {
		return err
	}
	if h.HasReservation(addr) {
		if err := h.Bus.Store(addr, 4, h.GetRegister(rs2)); err != nil {
			return err
		}
		h.SetRegister(rd, 0)
		h.ClearReservation()
		if h.Stats != nil {
			h.Stats.RecordSC(true)
		}
	} else {
		h.SetRegister(rd, 1)
		if h.Stats != nil {
			h.Stats.RecordSC(false)
		}
	}
	h.PC += 4
	return nil
}

// amoOp applies one of the nine AMO operators to the value loaded
// from memory (old) and the register operand (rs2val).
func amoOp(funct5 uint32, old, rs2val uint32) uint32 {
	switch funct5 {
	case 0b00001: // AMOSWAP
		return rs2val
	case 0b00000: // AMOADD
		return old + rs2val
	case 0b00100: // AMOXOR
		return old ^ rs2val
	case 0b01100: // AMOAND
		return old & rs2val
	case 0b01000: // AMOOR
		return old | rs2val
	case 0b10000: // AMOMIN
		if int32(old) < int32(rs2val) {
			return old
		}
		return rs2val
	case 0b10100: // AMOMAX
		if int32(old) > int32(rs2val) {
			return old
		}
		return rs2val
	case 0b11000: // AMOMINU
		if old < rs2val {
			return old
		}
		return rs2val
	case 0b11100: // AMOMAXU
		if old > rs2val {
			return old
		}
		return rs2val
	default:
		return old
	}
}

func execAMO(h *Hart, inst uint32) error {
	rd := decodeRd(inst)
	rs1 := decodeRs1(inst)
	rs2 := decodeRs2(inst)
	funct5 := decodeFunct7(inst) >> 2
	addr := h.GetRegister(rs1)
	if err := checkAmoAlign(addr); err != nil {
		return err
	}

	old, err := h.Bus.Load(addr, 4)
	if err != nil {
		return err
	}
	newVal := amoOp(funct5, old, h.GetRegister(rs2))
	if err := h.Bus.Store(addr, 4, newVal); err != nil {
		return err
	}
	h.SetRegister(rd, old)
	h.PC += 4
	return nil
}
