package vm

import "testing"

func TestDecodeKnownOpcodes(t *testing.T) {
	cases := []struct {
		name string
		word uint32
	}{
		{"lui", encodeU(opLUI, 1, 1)},
		{"auipc", encodeU(opAUIPC, 1, 1)},
		{"jal", encodeJ(opJAL, 1, 4)},
		{"jalr", encodeI(opJALR, 1, 0b000, 0, 0)},
		{"beq", encodeB(opBRANCH, 0b000, 0, 0, 4)},
		{"lw", encodeI(opLOAD, 1, 0b010, 0, 0)},
		{"sw", encodeS(opSTORE, 0b010, 0, 0, 0)},
		{"addi", encodeI(opOPIMM, 1, 0b000, 0, 0)},
		{"add", encodeR(opOP, 1, 0b000, 0, 0, 0b0000000)},
		{"mul", encodeR(opOP, 1, 0b000, 0, 0, 0b0000001)},
		{"fence", encodeI(opMISCMEM, 0, 0b000, 0, 0)},
		{"csrrw", encodeI(opSYSTEM, 1, 0b001, 0, csrMscratch)},
		{"lr.w", amoWord(0b00010, 1, 0, 0)},
	}
	for _, c := range cases {
		if d := decode(c.word); d == nil {
			t.Errorf("%s: decode returned nil for word 0x%08X", c.name, c.word)
		}
	}
}

func TestDecodeUnknownReturnsNil(t *testing.T) {
	if d := decode(0xFFFFFFFF); d != nil {
		t.Fatalf("decode(0xFFFFFFFF) = %+v, want nil", d)
	}
}

func TestDecodeAMOWildcardsAqRl(t *testing.T) {
	for aqrl := uint32(0); aqrl < 4; aqrl++ {
		word := encodeR(opAMO, 1, 0b010, 0, 0, (0b00001<<2)|aqrl)
		d := decode(word)
		if d == nil || d.mnemonic != "amoswap.w" {
			t.Errorf("aqrl=%d: decode = %+v, want amoswap.w", aqrl, d)
		}
	}
}
