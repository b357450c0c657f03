package vm

// Zicsr handlers (spec §4.6). The six variants share one contract:
// read-old, compute-new from the variant's combining rule, write-new,
// write-old-into-rd. pc is advanced BEFORE the setter runs so a
// setter-triggered trap (none of ours raise one directly today, but
// the contract matters for fidelity) sees the next instruction's pc.

type csrCombine func(old, src uint32) uint32

func csrCombineW(old, src uint32) uint32 { return src }
func csrCombineS(old, src uint32) uint32 { return old | src }
func csrCombineC(old, src uint32) uint32 { return old &^ src }

// execCSR implements CSRRW/CSRRS/CSRRC and their immediate forms. src
// is either the rs1 register value or the zero-extended 5-bit uimm;
// writeless reports whether the write side effect must be suppressed
// (rs1==x0 for S/C, uimm==0 for SI/CI).
func execCSR(h *Hart, inst uint32, combine csrCombine, src uint32, writeless bool) error {
	num := int(immI(inst))
	rd := decodeRd(inst)

	res := h.csrRead(num)
	if res.fail {
		return illegalInstruction(inst)
	}
	old := res.old

	h.PC += 4

	if !writeless {
		newVal := combine(old, src)
		if wres := h.csrWrite(num, newVal); wres.fail {
			return illegalInstruction(inst)
		}
	}

	h.SetRegister(rd, old)
	return nil
}

func execCSRRW(h *Hart, inst uint32) error {
	rs1 := decodeRs1(inst)
	return execCSR(h, inst, csrCombineW, h.GetRegister(rs1), false)
}

func execCSRRS(h *Hart, inst uint32) error {
	rs1 := decodeRs1(inst)
	return execCSR(h, inst, csrCombineS, h.GetRegister(rs1), rs1 == 0)
}

func execCSRRC(h *Hart, inst uint32) error {
	rs1 := decodeRs1(inst)
	return execCSR(h, inst, csrCombineC, h.GetRegister(rs1), rs1 == 0)
}

func execCSRRWI(h *Hart, inst uint32) error {
	uimm := decodeRs1(inst)
	return execCSR(h, inst, csrCombineW, uimm, false)
}

func execCSRRSI(h *Hart, inst uint32) error {
	uimm := decodeRs1(inst)
	return execCSR(h, inst, csrCombineS, uimm, uimm == 0)
}

func execCSRRCI(h *Hart, inst uint32) error {
	uimm := decodeRs1(inst)
	return execCSR(h, inst, csrCombineC, uimm, uimm == 0)
}
