package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rv32ima/emulator/vm"
)

// ConsoleBuffer is an io.Writer that retains the last maxBytes written
// to it, used to feed the TUI's UART console panel from vm.UART.Out.
type ConsoleBuffer struct {
	maxBytes int
	buf      strings.Builder
}

// NewConsoleBuffer returns a ConsoleBuffer retaining at most maxBytes.
func NewConsoleBuffer(maxBytes int) *ConsoleBuffer {
	return &ConsoleBuffer{maxBytes: maxBytes}
}

func (c *ConsoleBuffer) Write(p []byte) (int, error) {
	c.buf.Write(p)
	if c.buf.Len() > c.maxBytes {
		s := c.buf.String()
		c.buf.Reset()
		c.buf.WriteString(s[len(s)-c.maxBytes:])
	}
	return len(p), nil
}

// String returns everything currently retained.
func (c *ConsoleBuffer) String() string { return c.buf.String() }

// TUI is the text user interface for the debugger.
type TUI struct {
	Debugger *Debugger
	Console  *ConsoleBuffer

	App   *tview.Application
	Pages *tview.Pages

	MainLayout *tview.Flex
	LeftPanel  *tview.Flex
	RightPanel *tview.Flex

	RegisterView    *tview.TextView
	CSRView         *tview.TextView
	MemoryView      *tview.TextView
	DisassemblyView *tview.TextView
	ConsoleView     *tview.TextView
	BreakpointsView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField

	MemoryAddress uint32
}

// NewTUI creates a new text user interface. It replaces the bus UART's
// Out writer with the TUI's console buffer so guest writes show up live
// in the UART console panel.
func NewTUI(debugger *Debugger) *TUI {
	t := &TUI{
		Debugger: debugger,
		Console:  NewConsoleBuffer(16 * 1024),
		App:      tview.NewApplication(),
	}
	if uart := debugger.Bus.UART; uart != nil {
		uart.Out = t.Console
	}

	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()

	return t
}

func (t *TUI) initializeViews() {
	t.RegisterView = tview.NewTextView().SetDynamicColors(true).SetScrollable(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.CSRView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.CSRView.SetBorder(true).SetTitle(" CSRs ")

	t.MemoryView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.MemoryView.SetBorder(true).SetTitle(" Memory ")

	t.DisassemblyView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.ConsoleView = tview.NewTextView().SetDynamicColors(false).SetScrollable(true).SetWrap(true)
	t.ConsoleView.SetBorder(true).SetTitle(" UART Console ")

	t.BreakpointsView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.BreakpointsView.SetBorder(true).SetTitle(" Breakpoints ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

func (t *TUI) buildLayout() {
	t.LeftPanel = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.DisassemblyView, 0, 2, false).
		AddItem(t.ConsoleView, 0, 1, false)

	rightTop := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 10, 0, false).
		AddItem(t.CSRView, 0, 1, false).
		AddItem(t.MemoryView, 0, 1, false)

	t.RightPanel = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(rightTop, 0, 3, false).
		AddItem(t.BreakpointsView, 8, 0, false)

	mainContent := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.LeftPanel, 0, 2, false).
		AddItem(t.RightPanel, 0, 1, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainContent, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.Pages = tview.NewPages().AddPage("main", t.MainLayout, true, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			t.executeCommand("help")
			return nil
		case tcell.KeyF5:
			t.executeCommand("continue")
			return nil
		case tcell.KeyF9:
			t.executeCommand("break")
			return nil
		case tcell.KeyF11:
			t.executeCommand("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			t.RefreshAll()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key == tcell.KeyEnter {
		cmd := t.CommandInput.GetText()
		if cmd != "" {
			t.executeCommand(cmd)
			t.CommandInput.SetText("")
		}
	}
}

func (t *TUI) executeCommand(cmd string) {
	t.Debugger.Output.Reset()

	err := t.Debugger.ExecuteCommand(cmd)
	output := t.Debugger.GetOutput()

	if err != nil {
		t.WriteOutput(fmt.Sprintf("[red]Error:[white] %v\n", err))
	}
	if output != "" {
		t.WriteOutput(output)
	}

	if t.Debugger.Running {
		t.runUntilStop()
	}

	t.RefreshAll()
}

// runUntilStop steps the hart until a breakpoint, a fatal error, or a
// SYSCON power request, refreshing the display periodically rather
// than on every cycle so continuous runs stay responsive.
func (t *TUI) runUntilStop() {
	dbg := t.Debugger
	for i := 0; dbg.Running; i++ {
		if shouldBreak, reason := dbg.ShouldBreak(); shouldBreak {
			dbg.Running = false
			t.WriteOutput(fmt.Sprintf("Stopped: %s at PC=0x%08X\n", reason, dbg.Hart.PC))
			break
		}
		if err := dbg.Hart.Step(); err != nil {
			dbg.Running = false
			t.WriteOutput(fmt.Sprintf("Halted: %v\n", err))
			break
		}
		if action := dbg.Bus.PendingPower(); action != vm.PowerNone {
			dbg.Running = false
			t.WriteOutput(fmt.Sprintf("SYSCON requested %s\n", powerActionString(action)))
			break
		}
		if i%DisplayUpdateFrequency == 0 {
			t.RefreshAll()
		}
	}
}

// WriteOutput writes to the output view.
func (t *TUI) WriteOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text))
	t.OutputView.ScrollToEnd()
}

// RefreshAll refreshes all view panels.
func (t *TUI) RefreshAll() {
	t.UpdateRegisterView()
	t.UpdateCSRView()
	t.UpdateMemoryView()
	t.UpdateDisassemblyView()
	t.UpdateConsoleView()
	t.UpdateBreakpointsView()
	t.App.Draw()
}

// UpdateRegisterView updates the register view.
func (t *TUI) UpdateRegisterView() {
	t.RegisterView.Clear()

	h := t.Debugger.Hart
	var lines []string

	for row := 0; row < RegisterCount/RegisterGroupSize; row++ {
		var cols []string
		for col := 0; col < RegisterGroupSize; col++ {
			i := row*RegisterGroupSize + col
			cols = append(cols, fmt.Sprintf("x%-2d: 0x%08X", i, h.GetRegister(uint32(i))))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("PC: 0x%08X  priv: %d  cycles: %d", h.PC, h.Priv, h.Cycles))

	t.RegisterView.SetText(strings.Join(lines, "\n"))
}

// UpdateCSRView updates the CSR table view.
func (t *TUI) UpdateCSRView() {
	t.CSRView.Clear()

	h := t.Debugger.Hart
	var lines []string
	for _, c := range h.CSR.Named() {
		lines = append(lines, fmt.Sprintf("%-10s 0x%08X", c.Name, h.CSR.Read(c.Num)))
	}

	t.CSRView.SetText(strings.Join(lines, "\n"))
}

// UpdateMemoryView updates the memory hex-dump view, starting at
// MemoryAddress or, if that is 0, at the current PC.
func (t *TUI) UpdateMemoryView() {
	t.MemoryView.Clear()

	addr := t.MemoryAddress
	if addr == 0 {
		addr = t.Debugger.Hart.PC
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("[yellow]Address: 0x%08X[white]", addr))

	for row := 0; row < MemoryDisplayRows; row++ {
		rowAddr := addr + uint32(row*MemoryDisplayBytesPerRow)
		line := fmt.Sprintf("0x%08X: ", rowAddr)

		var hexBytes []string
		var asciiBytes []byte
		for col := 0; col < MemoryDisplayColumns; col++ {
			v, err := t.Debugger.Bus.Load(rowAddr+uint32(col), 1)
			if err != nil {
				hexBytes = append(hexBytes, "??")
				asciiBytes = append(asciiBytes, '.')
				continue
			}
			b := byte(v)
			hexBytes = append(hexBytes, fmt.Sprintf("%02X", b))
			if b >= 32 && b < 127 {
				asciiBytes = append(asciiBytes, b)
			} else {
				asciiBytes = append(asciiBytes, '.')
			}
		}

		line += strings.Join(hexBytes, " ") + "  " + string(asciiBytes)
		lines = append(lines, line)
	}

	t.MemoryView.SetText(strings.Join(lines, "\n"))
}

// UpdateDisassemblyView updates the disassembly view around PC.
func (t *TUI) UpdateDisassemblyView() {
	t.DisassemblyView.Clear()

	pc := t.Debugger.Hart.PC
	startAddr := pc - 32
	if startAddr > pc {
		startAddr = 0
	}

	var lines []string
	for i := 0; i < 16; i++ {
		addr := startAddr + uint32(i*4)

		v, err := t.Debugger.Bus.Load(addr, 4)
		if err != nil {
			continue
		}

		marker, color := "  ", "white"
		if addr == pc {
			marker, color = "->", "yellow"
		}
		if t.Debugger.Breakpoints.GetBreakpoint(addr) != nil {
			marker = "* "
		}

		lines = append(lines, fmt.Sprintf("[%s]%s 0x%08X: %08X  %s[white]", color, marker, addr, v, vm.Disassemble(v)))
	}

	t.DisassemblyView.SetText(strings.Join(lines, "\n"))
}

// UpdateConsoleView updates the UART console view.
func (t *TUI) UpdateConsoleView() {
	t.ConsoleView.SetText(t.Console.String())
	t.ConsoleView.ScrollToEnd()
}

// UpdateBreakpointsView updates the breakpoints view.
func (t *TUI) UpdateBreakpointsView() {
	t.BreakpointsView.Clear()

	bps := t.Debugger.Breakpoints.GetAllBreakpoints()
	if len(bps) == 0 {
		t.BreakpointsView.SetText("[yellow]No breakpoints set[white]")
		return
	}

	var lines []string
	for _, bp := range bps {
		status, color := "enabled", "green"
		if !bp.Enabled {
			status, color = "disabled", "red"
		}
		lines = append(lines, fmt.Sprintf("  %d: [%s]%s[white] 0x%08X (hits: %d)", bp.ID, color, status, bp.Address, bp.HitCount))
	}

	t.BreakpointsView.SetText(strings.Join(lines, "\n"))
}

// Run starts the TUI application.
func (t *TUI) Run() error {
	t.RefreshAll()

	t.WriteOutput("[green]RV32IMA Monitor[white]\n")
	t.WriteOutput("Press F1 for help, F5 to continue, F11 to step\n")
	t.WriteOutput("Type 'help' for command list\n\n")

	return t.App.SetRoot(t.Pages, true).SetFocus(t.CommandInput).Run()
}

// Stop stops the TUI application.
func (t *TUI) Stop() {
	t.App.Stop()
}
