package vm

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// PerformanceStatistics accumulates end-of-run counters: instruction
// mix, trap causes, and the atomic-engine success rate, in the style
// of the teacher's PerformanceStatistics but scoped to what this
// interpreter's instruction set can actually produce.
type PerformanceStatistics struct {
	Enabled bool

	TotalInstructions uint64
	TotalCycles       uint64
	ExecutionTime     time.Duration

	InstructionCounts map[string]uint64
	TrapCounts        map[uint32]uint64

	AMOCount       uint64
	LRCount        uint64
	SCSuccessCount uint64
	SCFailureCount uint64

	startTime time.Time
}

// NewPerformanceStatistics returns an enabled, zeroed collector.
func NewPerformanceStatistics() *PerformanceStatistics {
	return &PerformanceStatistics{
		Enabled:           true,
		InstructionCounts: make(map[string]uint64),
		TrapCounts:        make(map[uint32]uint64),
	}
}

// Start resets the collector and records the wall-clock start time.
func (s *PerformanceStatistics) Start() {
	s.startTime = time.Now()
	s.TotalInstructions = 0
	s.TotalCycles = 0
	s.InstructionCounts = make(map[string]uint64)
	s.TrapCounts = make(map[uint32]uint64)
	s.AMOCount = 0
	s.LRCount = 0
	s.SCSuccessCount = 0
	s.SCFailureCount = 0
}

// RecordInstruction tallies one retired instruction by mnemonic.
func (s *PerformanceStatistics) RecordInstruction(mnemonic string) {
	if !s.Enabled {
		return
	}
	s.TotalInstructions++
	s.InstructionCounts[mnemonic]++
	switch mnemonic {
	case "lr.w":
		s.LRCount++
		s.AMOCount++
	case "sc.w":
		s.AMOCount++
	case "amoswap.w", "amoadd.w", "amoxor.w", "amoand.w", "amoor.w",
		"amomin.w", "amomax.w", "amominu.w", "amomaxu.w":
		s.AMOCount++
	}
}

// RecordSC tallies an SC.W outcome, for the LR/SC success rate.
func (s *PerformanceStatistics) RecordSC(succeeded bool) {
	if !s.Enabled {
		return
	}
	if succeeded {
		s.SCSuccessCount++
	} else {
		s.SCFailureCount++
	}
}

// RecordTrap tallies one delivered exception or interrupt by mcause.
func (s *PerformanceStatistics) RecordTrap(cause uint32) {
	if !s.Enabled {
		return
	}
	s.TrapCounts[cause]++
}

// Finalize stamps ExecutionTime; call once after the run loop stops.
func (s *PerformanceStatistics) Finalize(cycles uint64) {
	s.TotalCycles = cycles
	s.ExecutionTime = time.Since(s.startTime)
}

type instructionCount struct {
	Mnemonic string `json:"mnemonic"`
	Count    uint64 `json:"count"`
}

func (s *PerformanceStatistics) sortedInstructionCounts() []instructionCount {
	out := make([]instructionCount, 0, len(s.InstructionCounts))
	for m, c := range s.InstructionCounts {
		out = append(out, instructionCount{Mnemonic: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// ExportJSON writes the full statistics snapshot as indented JSON.
func (s *PerformanceStatistics) ExportJSON(w io.Writer) error {
	data := map[string]any{
		"total_instructions": s.TotalInstructions,
		"total_cycles":       s.TotalCycles,
		"execution_time_ms":  s.ExecutionTime.Milliseconds(),
		"instruction_counts": s.sortedInstructionCounts(),
		"trap_counts":        s.TrapCounts,
		"amo_count":          s.AMOCount,
		"lr_count":           s.LRCount,
		"sc_success_count":   s.SCSuccessCount,
		"sc_failure_count":   s.SCFailureCount,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes a summary row followed by the per-mnemonic breakdown.
func (s *PerformanceStatistics) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	rows := [][]string{
		{"Metric", "Value"},
		{"Total Instructions", fmt.Sprintf("%d", s.TotalInstructions)},
		{"Total Cycles", fmt.Sprintf("%d", s.TotalCycles)},
		{"Execution Time (ms)", fmt.Sprintf("%d", s.ExecutionTime.Milliseconds())},
		{"AMO Count", fmt.Sprintf("%d", s.AMOCount)},
		{"LR Count", fmt.Sprintf("%d", s.LRCount)},
		{"SC Success", fmt.Sprintf("%d", s.SCSuccessCount)},
		{"SC Failure", fmt.Sprintf("%d", s.SCFailureCount)},
		{},
		{"Mnemonic", "Count"},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	for _, ic := range s.sortedInstructionCounts() {
		if err := cw.Write([]string{ic.Mnemonic, fmt.Sprintf("%d", ic.Count)}); err != nil {
			return err
		}
	}
	return nil
}

// String renders a short human-readable summary for terminal output.
func (s *PerformanceStatistics) String() string {
	out := fmt.Sprintf("Total Instructions: %d\nTotal Cycles:       %d\nExecution Time:     %v\n",
		s.TotalInstructions, s.TotalCycles, s.ExecutionTime)
	out += fmt.Sprintf("AMO Count:          %d (LR %d, SC success %d / failure %d)\n",
		s.AMOCount, s.LRCount, s.SCSuccessCount, s.SCFailureCount)
	for _, ic := range s.sortedInstructionCounts() {
		out += fmt.Sprintf("  %-10s %d\n", ic.Mnemonic, ic.Count)
	}
	return out
}
