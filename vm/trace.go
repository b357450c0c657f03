package vm

import (
	"fmt"
	"io"
)

// TraceEntry is one recorded fetch-execute cycle: enough to reconstruct
// what ran and when, in the compact single-line format the teacher's
// own trace writer uses (vm/trace.go).
type TraceEntry struct {
	Cycle uint64
	PC    uint32
	Word  uint32
	Asm   string
}

// ExecutionTrace is a bounded, file-backed per-instruction trace,
// toggled by -t/--trace. Entries beyond MaxEntries are dropped rather
// than growing the trace unboundedly, matching the teacher's
// ExecutionTrace.MaxEntries guard.
type ExecutionTrace struct {
	Enabled    bool
	Writer     io.Writer
	MaxEntries int

	entries []TraceEntry
}

// NewExecutionTrace returns a trace that writes to w when Flush is
// called. MaxEntries defaults to 100000, matching the teacher.
func NewExecutionTrace(w io.Writer) *ExecutionTrace {
	return &ExecutionTrace{
		Enabled:    true,
		Writer:     w,
		MaxEntries: 100000,
		entries:    make([]TraceEntry, 0, 1024),
	}
}

// Record appends one cycle's fetch result to the trace, disassembling
// word lazily only when the trace is actually enabled.
func (t *ExecutionTrace) Record(cycle uint64, pc, word uint32) {
	if !t.Enabled {
		return
	}
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}
	t.entries = append(t.entries, TraceEntry{
		Cycle: cycle,
		PC:    pc,
		Word:  word,
		Asm:   Disassemble(word),
	})
}

// Flush writes every recorded entry to Writer, one line per cycle in
// the form "[cycle] pc: word  asm".
func (t *ExecutionTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}
	for _, e := range t.entries {
		line := fmt.Sprintf("[%08d] 0x%08X: %08X  %s\n", e.Cycle, e.PC, e.Word, e.Asm)
		if _, err := t.Writer.Write([]byte(line)); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the recorded entries.
func (t *ExecutionTrace) Entries() []TraceEntry { return t.entries }

// Clear discards all recorded entries without disabling the trace.
func (t *ExecutionTrace) Clear() { t.entries = t.entries[:0] }
