// Package debugger implements an interactive terminal monitor for the
// hart: breakpoints, single-stepping, and register/CSR/memory
// inspection, in both a line-oriented CLI and a tcell/tview TUI.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rv32ima/emulator/vm"
)

// Debugger wraps a hart and its bus with breakpoint management,
// command history, and a line-oriented command interpreter.
type Debugger struct {
	Hart *vm.Hart
	Bus  *vm.Bus

	Breakpoints *BreakpointManager
	History     *CommandHistory

	Running  bool
	StepMode StepMode

	// LastCommand supports repeat-on-empty-input (gdb convention).
	LastCommand string

	// Output buffer, drained by the CLI/TUI after each command.
	Output strings.Builder
}

// StepMode represents different stepping modes.
type StepMode int

const (
	StepNone   StepMode = iota // Not stepping
	StepSingle                 // Step one instruction
)

// NewDebugger creates a new debugger instance with the default command
// history size.
func NewDebugger(h *vm.Hart, bus *vm.Bus) *Debugger {
	return NewDebuggerWithHistorySize(h, bus, 0)
}

// NewDebuggerWithHistorySize creates a new debugger instance, bounding
// its command history to historySize entries (0 = default).
func NewDebuggerWithHistorySize(h *vm.Hart, bus *vm.Bus, historySize int) *Debugger {
	return &Debugger{
		Hart:        h,
		Bus:         bus,
		Breakpoints: NewBreakpointManager(),
		History:     NewCommandHistoryWithSize(historySize),
		Running:     false,
		StepMode:    StepNone,
	}
}

// ExecuteCommand processes and executes a debugger command.
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)

	if cmdLine == "" {
		cmdLine = d.LastCommand
	}
	if cmdLine != "" {
		d.History.Add(cmdLine)
		d.LastCommand = cmdLine
	}

	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	return d.handleCommand(cmd, args)
}

// handleCommand dispatches commands to appropriate handlers.
func (d *Debugger) handleCommand(cmd string, args []string) error {
	switch cmd {
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s", "si":
		return d.cmdStep(args)

	case "break", "b":
		return d.cmdBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)

	case "print", "p", "reg", "registers":
		return d.cmdPrint(args)
	case "csr":
		return d.cmdCSR(args)
	case "x", "examine":
		return d.cmdExamine(args)
	case "info", "i":
		return d.cmdInfo(args)

	case "reset":
		return d.cmdReset(args)

	case "help", "h", "?":
		return d.cmdHelp(args)

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// ShouldBreak checks if execution should pause at the current PC.
func (d *Debugger) ShouldBreak() (bool, string) {
	pc := d.Hart.PC

	if d.StepMode == StepSingle {
		d.StepMode = StepNone
		return true, "single step"
	}

	if bp := d.Breakpoints.GetBreakpoint(pc); bp != nil {
		if !bp.Enabled {
			return false, ""
		}
		bp.HitCount++
		if bp.Temporary {
			_ = d.Breakpoints.DeleteBreakpoint(bp.ID)
		}
		return true, fmt.Sprintf("breakpoint %d", bp.ID)
	}

	return false, ""
}

// GetOutput returns and clears the output buffer.
func (d *Debugger) GetOutput() string {
	output := d.Output.String()
	d.Output.Reset()
	return output
}

// Printf writes formatted output to the output buffer.
func (d *Debugger) Printf(format string, args ...interface{}) {
	d.Output.WriteString(fmt.Sprintf(format, args...))
}

// Println writes a line to the output buffer.
func (d *Debugger) Println(args ...interface{}) {
	d.Output.WriteString(fmt.Sprintln(args...))
}

// parseAddress parses a hex ("0x..."), or decimal address argument.
func parseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	trimmed := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		trimmed = s[2:]
	}
	v, err := strconv.ParseUint(trimmed, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %s", s)
	}
	return uint32(v), nil
}
