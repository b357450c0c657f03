package vm

import "fmt"

// Disassemble renders inst as a mnemonic-plus-operands string, in the
// switch-on-decoded-fields style of the reference pack's Disassemble
// function, extended to the full RV32IMA_Zicsr_Zifencei set. It is
// used by the execution trace and the debugger's disassembly panel;
// it never fails, falling back to a raw-word rendering for anything
// decode cannot place.
func Disassemble(inst uint32) string {
	d := decode(inst)
	if d == nil {
		return fmt.Sprintf("<unknown: 0x%08X>", inst)
	}

	rd, rs1, rs2 := decodeRd(inst), decodeRs1(inst), decodeRs2(inst)
	opcode := decodeOpcode(inst)

	switch opcode {
	case opLUI, opAUIPC:
		return fmt.Sprintf("%s x%d, 0x%05X", d.mnemonic, rd, immU(inst)>>12)
	case opJAL:
		return fmt.Sprintf("jal x%d, %d", rd, int32(signExtend(immJ(inst), 21)))
	case opJALR:
		return fmt.Sprintf("jalr x%d, %d(x%d)", rd, int32(signExtend(immI(inst), 12)), rs1)
	case opBRANCH:
		return fmt.Sprintf("%s x%d, x%d, %d", d.mnemonic, rs1, rs2, int32(signExtend(immB(inst), 13)))
	case opLOAD:
		return fmt.Sprintf("%s x%d, %d(x%d)", d.mnemonic, rd, int32(signExtend(immI(inst), 12)), rs1)
	case opSTORE:
		return fmt.Sprintf("%s x%d, %d(x%d)", d.mnemonic, rs2, int32(signExtend(immS(inst), 12)), rs1)
	case opOPIMM:
		return fmt.Sprintf("%s x%d, x%d, %d", d.mnemonic, rd, rs1, int32(signExtend(immI(inst), 12)))
	case opOP:
		return fmt.Sprintf("%s x%d, x%d, x%d", d.mnemonic, rd, rs1, rs2)
	case opMISCMEM:
		return d.mnemonic
	case opSYSTEM:
		switch d.mnemonic {
		case "mret", "ecall/ebreak":
			return d.mnemonic
		default:
			return fmt.Sprintf("%s x%d, 0x%03X, x%d", d.mnemonic, rd, immI(inst), rs1)
		}
	case opAMO:
		return fmt.Sprintf("%s x%d, x%d, (x%d)", d.mnemonic, rd, rs2, rs1)
	default:
		return fmt.Sprintf("<unknown: 0x%08X>", inst)
	}
}
