package vm

import "fmt"

// FatalError wraps a condition that must stop the interpreter outright
// rather than be delivered to the guest as a trap: an unhandled
// mtvec.MODE (spec §4.8) or a null-pointer dereference (spec §4.9).
// Run's caller inspects this to choose spec §6's process exit code.
type FatalError struct {
	Cause error
	PC    uint32
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("vm: fatal at pc=0x%08X: %v", e.PC, e.Cause)
}

func (e *FatalError) Unwrap() error { return e.Cause }

// Step executes exactly one fetch-decode-execute cycle, in this order:
// timer-pending latch, interrupt evaluation and redirect,
// instruction-fetch alignment check, fetch, decode, execute, X[0]
// re-zeroing, and counter advance. Interrupts are evaluated before the
// alignment check, so a pending interrupt is taken (with mepc = pc)
// even when pc is misaligned. A synchronous exception raised
// by the decoder or a handler is delivered via exception() and Step
// returns nil (the trap was handled, not fatal); only an
// UnhandledTrapVectorModeError or FatalNullDerefError is returned as a
// non-nil *FatalError.
func (h *Hart) Step() error {
	if h.Clock.Expired() {
		h.CSR.storage[csrMip] |= MTIPBit
	}

	if cause, ok := h.pendingInterrupt(); ok {
		if h.Stats != nil {
			h.Stats.RecordTrap(cause)
		}
		if err := h.exception(cause, 0, h.PC); err != nil {
			return h.fatal(err)
		}
		h.advanceCounters()
		return nil
	}

	startPC := h.PC
	if startPC&0b11 != 0 {
		if h.Stats != nil {
			h.Stats.RecordTrap(CauseInstructionAddressMisaligned)
		}
		if err := h.exception(CauseInstructionAddressMisaligned, startPC, startPC); err != nil {
			return h.fatal(err)
		}
		h.advanceCounters()
		return nil
	}

	raw, err := h.Bus.Load(startPC, 4)
	if err != nil {
		if ferr := h.deliver(err, startPC); ferr != nil {
			return ferr
		}
		h.advanceCounters()
		return nil
	}

	d := decode(raw)
	if d == nil {
		if ferr := h.deliver(illegalInstruction(raw), startPC); ferr != nil {
			return ferr
		}
		h.advanceCounters()
		return nil
	}

	if h.Trace != nil {
		h.Trace.Record(h.Cycles, startPC, raw)
	}

	if err := d.handler(h, raw); err != nil {
		if ferr := h.deliver(err, startPC); ferr != nil {
			return ferr
		}
		h.advanceCounters()
		return nil
	}

	if h.Stats != nil {
		h.Stats.RecordInstruction(d.mnemonic)
	}

	h.zeroX0()
	h.advanceCounters()
	return nil
}

// deliver routes a handler's returned error to the trap unit (for a
// *trapError, using faultPC as mepc) or reports it as fatal. Any other
// error type (none of our handlers produce one) is treated as fatal
// too, since Step's contract admits only traps or fatal conditions.
func (h *Hart) deliver(err error, faultPC uint32) error {
	if te, ok := err.(*trapError); ok {
		if h.Stats != nil {
			h.Stats.RecordTrap(te.cause)
		}
		if eerr := h.exception(te.cause, te.tval, faultPC); eerr != nil {
			return h.fatal(eerr)
		}
		return nil
	}
	return h.fatal(err)
}

func (h *Hart) fatal(err error) error {
	fe := &FatalError{Cause: err, PC: h.PC}
	h.LastError = fe
	return fe
}

// advanceCounters increments mcycle/minstret with carry into their high
// halves, per spec §4.7's closing step.
func (h *Hart) advanceCounters() {
	h.Cycles++

	h.CSR.storage[csrMcycle]++
	if h.CSR.storage[csrMcycle] == 0 {
		h.CSR.storage[csrMcycleh]++
	}

	h.CSR.storage[csrMinstret]++
	if h.CSR.storage[csrMinstret] == 0 {
		h.CSR.storage[csrMinstreth]++
	}
}

// Run steps the hart until a fatal condition occurs or the guest
// requests power-off/reboot via SYSCON, whichever comes first. The
// returned PowerAction is PowerNone when Run stopped because of a
// fatal error instead of a guest-initiated shutdown.
func (h *Hart) Run() (PowerAction, error) {
	for {
		if err := h.Step(); err != nil {
			if h.Stats != nil {
				h.Stats.Finalize(h.Cycles)
			}
			return PowerNone, err
		}
		if action := h.Bus.PendingPower(); action != PowerNone {
			if h.Stats != nil {
				h.Stats.Finalize(h.Cycles)
			}
			return action, nil
		}
	}
}
