package vm

// Opcode groups (bits [6:2] of the instruction word, bits [1:0] are
// always 0b11 for the 32-bit encodings this core implements).
const (
	opLUI     = 0b01101
	opAUIPC   = 0b00101
	opJAL     = 0b11011
	opJALR    = 0b11001
	opBRANCH  = 0b11000
	opLOAD    = 0b00000
	opSTORE   = 0b01000
	opOPIMM   = 0b00100
	opOP      = 0b01100
	opMISCMEM = 0b00011
	opSYSTEM  = 0b11100
	opAMO     = 0b01011
)

// decodeOpcode extracts the 5-bit opcode group, instr[6:2]. Bits[1:0]
// are the fixed 0b11 marker for every 32-bit encoding this core
// handles and carry no information, so they are dropped here rather
// than carried through every opXXX constant above.
func decodeOpcode(inst uint32) uint32 { return (inst >> 2) & 0x1f }

func decodeRd(inst uint32) uint32     { return (inst >> 7) & 0x1f }
func decodeFunct3(inst uint32) uint32 { return (inst >> 12) & 0x7 }
func decodeRs1(inst uint32) uint32    { return (inst >> 15) & 0x1f }
func decodeRs2(inst uint32) uint32    { return (inst >> 20) & 0x1f }
func decodeFunct7(inst uint32) uint32 { return (inst >> 25) & 0x7f }

// signExtend OR's the sign-extension bits into v when bit (width-1) is
// set, per spec §4.1 ("Sign-extension mask for width w").
func signExtend(v uint32, width uint) uint32 {
	if v&(1<<(width-1)) != 0 {
		v |= ^uint32(0) << width
	}
	return v
}

// immI decodes the 12-bit I-type immediate (instr[31:20]), not yet
// sign-extended (callers that need sign extension call signExtend(v,12)).
func immI(inst uint32) uint32 {
	return inst >> 20
}

// immIUnsigned decodes the I-type immediate as the raw unsigned field,
// used by shift-amount handlers where only the low 5 bits matter.
func immIUnsigned(inst uint32) uint32 {
	return immI(inst) & 0x1f
}

// immS decodes the S-type immediate: instr[31:25] || instr[11:7].
func immS(inst uint32) uint32 {
	return ((inst >> 25) << 5) | ((inst >> 7) & 0x1f)
}

// immB decodes the B-type immediate: instr[31]|instr[7]|instr[30:25]|instr[11:8]|0,
// returned with bit 0 always zero (a 13-bit natural width field).
func immB(inst uint32) uint32 {
	bit12 := (inst >> 31) & 1
	bit11 := (inst >> 7) & 1
	bits10_5 := (inst >> 25) & 0x3f
	bits4_1 := (inst >> 8) & 0xf
	return (bit12 << 12) | (bit11 << 11) | (bits10_5 << 5) | (bits4_1 << 1)
}

// immU decodes the U-type immediate: instr[31:12] placed in bits
// 31:12 of the operand, low 12 bits zero.
func immU(inst uint32) uint32 {
	return inst & 0xfffff000
}

// immJ decodes the J-type immediate: instr[31]|instr[19:12]|instr[20]|instr[30:21]|0.
func immJ(inst uint32) uint32 {
	bit20 := (inst >> 31) & 1
	bits19_12 := (inst >> 12) & 0xff
	bit11 := (inst >> 20) & 1
	bits10_1 := (inst >> 21) & 0x3ff
	return (bit20 << 20) | (bits19_12 << 12) | (bit11 << 11) | (bits10_1 << 1)
}
