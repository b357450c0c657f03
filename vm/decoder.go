package vm

// decodedInst is the record a decode lookup returns: a handler plus
// enough metadata for diagnostics (trace/debugger disassembly). This
// mirrors the "record of function pointers" approach spec §9 calls
// out, generalized with a mnemonic field for tooling.
type decodedInst struct {
	mnemonic string
	handler  func(h *Hart, inst uint32) error
}

type decodeKey struct{ opcode, funct3, funct7 uint32 }

var (
	decodeExact = map[decodeKey]*decodedInst{}
	decodeF3    = map[[2]uint32]*decodedInst{}
	decodeOnly  = map[uint32]*decodedInst{}
)

func regExact(opcode, funct3, funct7 uint32, mnemonic string, handler func(*Hart, uint32) error) {
	decodeExact[decodeKey{opcode, funct3, funct7}] = &decodedInst{mnemonic: mnemonic, handler: handler}
}

func regF3(opcode, funct3 uint32, mnemonic string, handler func(*Hart, uint32) error) {
	decodeF3[[2]uint32{opcode, funct3}] = &decodedInst{mnemonic: mnemonic, handler: handler}
}

func regOp(opcode uint32, mnemonic string, handler func(*Hart, uint32) error) {
	decodeOnly[opcode] = &decodedInst{mnemonic: mnemonic, handler: handler}
}

func init() {
	regOp(opLUI, "lui", execLUI)
	regOp(opAUIPC, "auipc", execAUIPC)
	regOp(opJAL, "jal", execJAL)
	regF3(opJALR, 0b000, "jalr", execJALR)

	regF3(opBRANCH, 0b000, "beq", execBranch)
	regF3(opBRANCH, 0b001, "bne", execBranch)
	regF3(opBRANCH, 0b100, "blt", execBranch)
	regF3(opBRANCH, 0b101, "bge", execBranch)
	regF3(opBRANCH, 0b110, "bltu", execBranch)
	regF3(opBRANCH, 0b111, "bgeu", execBranch)

	regF3(opLOAD, 0b000, "lb", execLoad)
	regF3(opLOAD, 0b001, "lh", execLoad)
	regF3(opLOAD, 0b010, "lw", execLoad)
	regF3(opLOAD, 0b100, "lbu", execLoad)
	regF3(opLOAD, 0b101, "lhu", execLoad)

	regF3(opSTORE, 0b000, "sb", execStore)
	regF3(opSTORE, 0b001, "sh", execStore)
	regF3(opSTORE, 0b010, "sw", execStore)

	regF3(opOPIMM, 0b000, "addi", execOpImm)
	regF3(opOPIMM, 0b010, "slti", execOpImm)
	regF3(opOPIMM, 0b011, "sltiu", execOpImm)
	regF3(opOPIMM, 0b100, "xori", execOpImm)
	regF3(opOPIMM, 0b110, "ori", execOpImm)
	regF3(opOPIMM, 0b111, "andi", execOpImm)
	regF3(opOPIMM, 0b001, "slli", execOpImm)
	regF3(opOPIMM, 0b101, "srli/srai", execOpImm)

	regExact(opOP, 0b000, 0b0000000, "add", execOp)
	regExact(opOP, 0b000, 0b0100000, "sub", execOp)
	regExact(opOP, 0b001, 0b0000000, "sll", execOp)
	regExact(opOP, 0b010, 0b0000000, "slt", execOp)
	regExact(opOP, 0b011, 0b0000000, "sltu", execOp)
	regExact(opOP, 0b100, 0b0000000, "xor", execOp)
	regExact(opOP, 0b101, 0b0000000, "srl", execOp)
	regExact(opOP, 0b101, 0b0100000, "sra", execOp)
	regExact(opOP, 0b110, 0b0000000, "or", execOp)
	regExact(opOP, 0b111, 0b0000000, "and", execOp)

	regExact(opOP, 0b000, 0b0000001, "mul", execMulDiv)
	regExact(opOP, 0b001, 0b0000001, "mulh", execMulDiv)
	regExact(opOP, 0b010, 0b0000001, "mulhsu", execMulDiv)
	regExact(opOP, 0b011, 0b0000001, "mulhu", execMulDiv)
	regExact(opOP, 0b100, 0b0000001, "div", execMulDiv)
	regExact(opOP, 0b101, 0b0000001, "divu", execMulDiv)
	regExact(opOP, 0b110, 0b0000001, "rem", execMulDiv)
	regExact(opOP, 0b111, 0b0000001, "remu", execMulDiv)

	regF3(opMISCMEM, 0b000, "fence", execFence)
	regF3(opMISCMEM, 0b001, "fence.i", execFenceI)

	regExact(opSYSTEM, 0b000, 0b0000000, "ecall/ebreak", execEnvCall)
	regExact(opSYSTEM, 0b000, 0b0011000, "mret", execMret)
	regF3(opSYSTEM, 0b001, "csrrw", execCSRRW)
	regF3(opSYSTEM, 0b010, "csrrs", execCSRRS)
	regF3(opSYSTEM, 0b011, "csrrc", execCSRRC)
	regF3(opSYSTEM, 0b101, "csrrwi", execCSRRWI)
	regF3(opSYSTEM, 0b110, "csrrsi", execCSRRSI)
	regF3(opSYSTEM, 0b111, "csrrci", execCSRRCI)

	for aqrl := uint32(0); aqrl < 4; aqrl++ {
		regExact(opAMO, 0b010, (0b00010<<2)|aqrl, "lr.w", execLR)
		regExact(opAMO, 0b010, (0b00011<<2)|aqrl, "sc.w", execSC)
		regExact(opAMO, 0b010, (0b00001<<2)|aqrl, "amoswap.w", execAMO)
		regExact(opAMO, 0b010, (0b00000<<2)|aqrl, "amoadd.w", execAMO)
		regExact(opAMO, 0b010, (0b00100<<2)|aqrl, "amoxor.w", execAMO)
		regExact(opAMO, 0b010, (0b01100<<2)|aqrl, "amoand.w", execAMO)
		regExact(opAMO, 0b010, (0b01000<<2)|aqrl, "amoor.w", execAMO)
		regExact(opAMO, 0b010, (0b10000<<2)|aqrl, "amomin.w", execAMO)
		regExact(opAMO, 0b010, (0b10100<<2)|aqrl, "amomax.w", execAMO)
		regExact(opAMO, 0b010, (0b11000<<2)|aqrl, "amominu.w", execAMO)
		regExact(opAMO, 0b010, (0b11100<<2)|aqrl, "amomaxu.w", execAMO)
	}
}

// decode implements spec §4.2: a pure lookup from (opcode, funct3,
// funct7), most specific match first, falling back to funct7-wildcard
// then funct3-and-funct7-wildcard. A miss returns nil, which the cycle
// loop turns into IllegalInstruction with mtval = the instruction word.
func decode(inst uint32) *decodedInst {
	opcode := decodeOpcode(inst)
	funct3 := decodeFunct3(inst)
	funct7 := decodeFunct7(inst)

	if d, ok := decodeExact[decodeKey{opcode, funct3, funct7}]; ok {
		return d
	}
	if d, ok := decodeF3[[2]uint32{opcode, funct3}]; ok {
		return d
	}
	if d, ok := decodeOnly[opcode]; ok {
		return d
	}
	return nil
}
