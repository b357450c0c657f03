// Package gui implements the optional desktop dashboard: a read-only
// view of hart/CSR state and guest UART output, plus a power button
// that asserts the SYSCON poweroff path as if a front panel switch had
// been pressed.
package gui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/rv32ima/emulator/vm"
)

// refreshInterval is how often the dashboard polls hart/bus state.
// Polling rather than event-driven updates keeps the gui package from
// needing any hooks into the fetch-execute loop.
const refreshInterval = 100 * time.Millisecond

// App is the fyne-backed dashboard window.
type App struct {
	hart *vm.Hart
	bus  *vm.Bus

	mu     sync.Mutex
	output strings.Builder

	fyneApp fyne.App
	window  fyne.Window

	registers *widget.Label
	csrs      *widget.Label
	console   *widget.Entry
	status    *widget.Label

	stop chan struct{}
}

// consoleWriter feeds guest UART bytes into the dashboard's console
// panel; it is installed as bus.UART.Out.
type consoleWriter struct{ a *App }

func (w consoleWriter) Write(p []byte) (int, error) {
	w.a.mu.Lock()
	w.a.output.Write(p)
	w.a.mu.Unlock()
	return len(p), nil
}

// New builds the dashboard around an already-running hart/bus pair and
// wires the bus's UART output into the console panel.
func New(h *vm.Hart, bus *vm.Bus) *App {
	a := &App{hart: h, bus: bus, stop: make(chan struct{})}
	bus.UART.Out = consoleWriter{a}

	a.fyneApp = app.New()
	a.window = a.fyneApp.NewWindow("rv32ima")

	a.registers = widget.NewLabel("")
	a.registers.TextStyle = fyne.TextStyle{Monospace: true}
	a.csrs = widget.NewLabel("")
	a.csrs.TextStyle = fyne.TextStyle{Monospace: true}
	a.status = widget.NewLabel("running")

	a.console = widget.NewMultiLineEntry()
	a.console.Disable()

	power := widget.NewButton("Power off", a.requestPoweroff)

	left := container.NewVBox(a.status, a.registers, a.csrs, power)
	split := container.NewHSplit(left, container.NewScroll(a.console))
	split.Offset = 0.4

	a.window.SetContent(split)
	a.window.Resize(fyne.NewSize(900, 600))
	return a
}

// requestPoweroff asserts the SYSCON poweroff path exactly as a guest
// write to SysconBase would, simulating a front-panel power button.
func (a *App) requestPoweroff() {
	_ = a.bus.Store(vm.SysconBase, 4, vm.SysconPoweroff)
}

// Run shows the window and blocks until it is closed, refreshing the
// register/CSR/console panels on refreshInterval.
func (a *App) Run() {
	go a.refreshLoop()
	a.window.ShowAndRun()
	close(a.stop)
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.refresh()
		case <-a.stop:
			return
		}
	}
}

func (a *App) refresh() {
	var regs strings.Builder
	for i := 0; i < 32; i++ {
		fmt.Fprintf(&regs, "x%-2d=%08X ", i, a.hart.GetRegister(uint32(i)))
		if i%4 == 3 {
			regs.WriteByte('\n')
		}
	}
	fmt.Fprintf(&regs, "pc =%08X priv=%d cycles=%d", a.hart.PC, a.hart.Priv, a.hart.Cycles)

	var csrs strings.Builder
	for _, c := range a.hart.CSR.Named() {
		fmt.Fprintf(&csrs, "%-12s %08X\n", c.Name, a.hart.CSR.Read(c.Num))
	}

	status := powerActionString(a.bus.PendingPower())

	a.mu.Lock()
	console := a.output.String()
	a.mu.Unlock()

	a.registers.SetText(regs.String())
	a.csrs.SetText(csrs.String())
	a.status.SetText("status: " + status)
	if a.console.Text != console {
		a.console.SetText(console)
	}
}

func powerActionString(p vm.PowerAction) string {
	switch p {
	case vm.PowerOff:
		return "poweroff requested"
	case vm.PowerReboot:
		return "reboot requested"
	default:
		return "running"
	}
}
