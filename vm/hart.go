package vm

import "fmt"

// Hart is the state of a single RISC-V hardware thread: 32 general
// purpose registers, the program counter, current privilege, the CSR
// file, the LR/SC reservation, and the platform clock. Only one hart
// is modeled; the field layout mirrors what a multi-hart extension
// would need to duplicate per-core.
type Hart struct {
	X  [32]uint32 // general purpose registers, X[0] is hard-wired to zero
	PC uint32

	Priv int

	CSR CSRFile

	reservationValid bool
	reservationAddr  uint32

	Clock Clock

	Bus *Bus

	// Cycles executed so far. mcycle/minstret are mirrored into the CSR
	// file directly by Step; this field exists for diagnostics and the
	// statistics collector.
	Cycles uint64

	// LastError holds the most recently reported fatal error, for the
	// debugger/api packages.
	LastError error

	// Trace and Stats are optional diagnostics hooks, nil unless
	// -t/--trace or --stats is requested; Step no-ops through them
	// when unset.
	Trace *ExecutionTrace
	Stats *PerformanceStatistics
}

// NewHart allocates a hart wired to the given bus and resets it to the
// initial values required by spec §3 ("Initial values").
func NewHart(bus *Bus) *Hart {
	h := &Hart{Bus: bus}
	h.Reset()
	return h
}

// Reset restores the hart to its power-on state. Memory is untouched;
// callers that want a fresh RAM image should reset the Bus separately.
func (h *Hart) Reset() {
	for i := range h.X {
		h.X[i] = 0
	}
	h.PC = 0
	h.Priv = PrivMachine
	h.reservationValid = false
	h.reservationAddr = 0
	h.Cycles = 0
	h.LastError = nil
	h.CSR.Reset(h)
}

// GetRegister returns the value of general purpose register i. X[0]
// always reads as zero.
func (h *Hart) GetRegister(i uint32) uint32 {
	return h.X[i&0x1f]
}

// SetRegister writes general purpose register i, silently discarding
// writes to X[0] as required by spec §3.
func (h *Hart) SetRegister(i uint32, v uint32) {
	i &= 0x1f
	if i == 0 {
		return
	}
	h.X[i] = v
}

// zeroX0 re-establishes the X[0]==0 invariant (spec §8, invariant 1).
// Every handler path funnels through here at the end of a cycle so the
// invariant holds even if a handler wrote X[0] directly.
func (h *Hart) zeroX0() {
	h.X[0] = 0
}

// ClearReservation drops the LR/SC reservation, if any. Called by a
// successful SC.W (Reset clears the reservation directly); per spec §9
// it is NOT cleared by
// intervening ordinary stores in this minimal implementation.
func (h *Hart) ClearReservation() {
	h.reservationValid = false
}

// SetReservation records an LR.W reservation at addr.
func (h *Hart) SetReservation(addr uint32) {
	h.reservationValid = true
	h.reservationAddr = addr
}

// HasReservation reports whether a reservation is held for addr. The
// reservation set in this implementation is a single global flag (see
// spec §9), so any valid reservation satisfies any address; the
// address is tracked only for diagnostics.
func (h *Hart) HasReservation(addr uint32) bool {
	return h.reservationValid
}

// DumpState renders a one-line summary of hart state, in the style the
// teacher's VM.DumpState uses for diagnostics.
func (h *Hart) DumpState() string {
	return fmt.Sprintf(
		"PC=0x%08X RA=0x%08X SP=0x%08X mstatus=0x%08X mcause=0x%08X mepc=0x%08X priv=%d cycles=%d",
		h.PC, h.GetRegister(1), h.GetRegister(2),
		h.CSR.storage[csrMstatus], h.CSR.storage[csrMcause], h.CSR.storage[csrMepc],
		h.Priv, h.Cycles,
	)
}
