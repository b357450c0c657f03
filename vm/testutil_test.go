package vm

import "bytes"

// testBase is the address test programs are loaded and started at. It
// must be nonzero because address 0 is the reserved null-dereference
// sentinel (spec §4.9), so a PC of 0 can never be a valid fetch address.
const testBase = 0x1000

// newTestHart returns a hart wired to a RAM-only bus covering the
// whole address space from 0 (RAM starts at physical address 0 for
// these tests, i.e. PageOffset is 0), with the program counter parked
// at testBase so low addresses remain free for data used by
// load/store and atomic tests. RAM spans [0, testBase+memSize), so
// memSize bytes are available from testBase on. Address 0 itself stays
// off-limits, per spec §4.9's null-dereference sentinel.
func newTestHart(memSize int) (*Hart, *bytes.Buffer) {
	var out bytes.Buffer
	bus := NewBus(testBase+memSize, 0, &out, nil)
	h := NewHart(bus)
	bus.AttachHart(h)
	h.PC = testBase
	return h, &out
}

// loadProgram writes a sequence of pre-encoded instruction words
// starting at the hart's current PC (testBase for newTestHart,
// DefaultPageOffset for newHartWithDevices).
func loadProgram(h *Hart, words []uint32) {
	for i, w := range words {
		_ = h.Bus.Store(h.PC+uint32(i*4), 4, w)
	}
}

// op7 expands a 5-bit opXXX group constant (instr[6:2]) into the full
// 7-bit opcode field, filling in the fixed instr[1:0] = 0b11 marker
// every encoding below assumes.
func op7(opcode uint32) uint32 { return (opcode << 2) | 0b11 }

// encodeR builds an R-type word.
func encodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | op7(opcode)
}

// encodeI builds an I-type word. imm is the raw 12-bit field.
func encodeI(opcode, rd, funct3, rs1, imm uint32) uint32 {
	return ((imm & 0xfff) << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | op7(opcode)
}

// encodeS builds an S-type word.
func encodeS(opcode, funct3, rs1, rs2, imm uint32) uint32 {
	imm &= 0xfff
	return ((imm >> 5) << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | ((imm & 0x1f) << 7) | op7(opcode)
}

// encodeB builds a B-type word. imm is the signed byte offset (even).
func encodeB(opcode, funct3, rs1, rs2, imm uint32) uint32 {
	bit12 := (imm >> 12) & 1
	bit11 := (imm >> 11) & 1
	bits10_5 := (imm >> 5) & 0x3f
	bits4_1 := (imm >> 1) & 0xf
	return (bit12 << 31) | (bits10_5 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) |
		(bits4_1 << 8) | (bit11 << 7) | op7(opcode)
}

// encodeU builds a U-type word. imm20 occupies bits 31:12.
func encodeU(opcode, rd, imm20 uint32) uint32 {
	return (imm20 << 12) | (rd << 7) | op7(opcode)
}

// encodeJ builds a J-type word. imm is the signed byte offset (even).
func encodeJ(opcode, rd, imm uint32) uint32 {
	bit20 := (imm >> 20) & 1
	bits10_1 := (imm >> 1) & 0x3ff
	bit11 := (imm >> 11) & 1
	bits19_12 := (imm >> 12) & 0xff
	return (bit20 << 31) | (bits10_1 << 21) | (bit11 << 20) | (bits19_12 << 12) | (rd << 7) | op7(opcode)
}
