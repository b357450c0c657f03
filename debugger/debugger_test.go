package debugger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rv32ima/emulator/vm"
)

func newTestDebugger(t *testing.T) *Debugger {
	t.Helper()
	var out bytes.Buffer
	bus := vm.NewBus(4096, 0, &out, nil)
	h := vm.NewHart(bus)
	bus.AttachHart(h)
	return NewDebugger(h, bus)
}

func TestExecuteCommandBreakAndDelete(t *testing.T) {
	d := newTestDebugger(t)

	if err := d.ExecuteCommand("break 0x100"); err != nil {
		t.Fatalf("break: %v", err)
	}
	if !strings.Contains(d.GetOutput(), "Breakpoint 1") {
		t.Fatal("expected breakpoint announcement")
	}
	if d.Breakpoints.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", d.Breakpoints.Count())
	}

	if err := d.ExecuteCommand("delete 1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if d.Breakpoints.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after delete", d.Breakpoints.Count())
	}
}

func TestExecuteCommandUnknown(t *testing.T) {
	d := newTestDebugger(t)
	if err := d.ExecuteCommand("bogus"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestExecuteCommandRepeatsLastOnEmpty(t *testing.T) {
	d := newTestDebugger(t)
	_ = d.ExecuteCommand("break 0x200")
	d.GetOutput()

	if err := d.ExecuteCommand(""); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	// break is idempotent at the same address: still exactly one breakpoint.
	if d.Breakpoints.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", d.Breakpoints.Count())
	}
}

func TestCmdStepAdvancesPC(t *testing.T) {
	d := newTestDebugger(t)
	const base = 0x100 // address 0 is the reserved null-dereference sentinel
	d.Hart.PC = base
	// addi x1, x0, 1 at base
	if err := d.Bus.Store(base, 4, 0x00100093); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := d.ExecuteCommand("step"); err != nil {
		t.Fatalf("step: %v", err)
	}
	if d.Hart.PC != base+4 {
		t.Fatalf("PC = 0x%X, want 0x%X", d.Hart.PC, base+4)
	}
	if d.Hart.GetRegister(1) != 1 {
		t.Fatalf("x1 = %d, want 1", d.Hart.GetRegister(1))
	}
}

func TestCmdPrintShowsRegisters(t *testing.T) {
	d := newTestDebugger(t)
	d.Hart.SetRegister(5, 0xDEADBEEF)

	if err := d.ExecuteCommand("print"); err != nil {
		t.Fatalf("print: %v", err)
	}
	if out := d.GetOutput(); !strings.Contains(out, "0xDEADBEEF") {
		t.Fatalf("output missing register value: %s", out)
	}
}

func TestCmdCSRDumpsTable(t *testing.T) {
	d := newTestDebugger(t)
	if err := d.ExecuteCommand("csr"); err != nil {
		t.Fatalf("csr: %v", err)
	}
	if out := d.GetOutput(); !strings.Contains(out, "mstatus") {
		t.Fatalf("output missing mstatus: %s", out)
	}
}

func TestShouldBreakOnBreakpoint(t *testing.T) {
	d := newTestDebugger(t)
	d.Hart.PC = 0x400
	d.Breakpoints.AddBreakpoint(0x400, false)

	stop, reason := d.ShouldBreak()
	if !stop {
		t.Fatal("expected ShouldBreak to report a stop")
	}
	if !strings.Contains(reason, "breakpoint") {
		t.Fatalf("reason = %q, want to mention breakpoint", reason)
	}
}
