package debugger

import (
	"fmt"

	"github.com/rv32ima/emulator/vm"
)

// cmdRun resets the hart (memory untouched) and starts execution.
func (d *Debugger) cmdRun(args []string) error {
	d.Hart.Reset()
	d.Println("Restarted at PC=0x" + fmt.Sprintf("%08X", d.Hart.PC))
	d.Running = true
	return nil
}

// cmdContinue resumes execution until a breakpoint or a fatal error.
func (d *Debugger) cmdContinue(args []string) error {
	d.Running = true
	return nil
}

// cmdStep executes exactly one instruction.
func (d *Debugger) cmdStep(args []string) error {
	if err := d.Hart.Step(); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	d.Printf("PC=0x%08X\n", d.Hart.PC)
	return nil
}

// cmdBreak sets a breakpoint at the given address.
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: break <address>")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	bp := d.Breakpoints.AddBreakpoint(addr, false)
	d.Printf("Breakpoint %d at 0x%08X\n", bp.ID, addr)
	return nil
}

// cmdDelete removes a breakpoint by ID.
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) < 1 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}
	var id int
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		return err
	}
	d.Printf("Deleted breakpoint %d\n", id)
	return nil
}

func (d *Debugger) cmdEnable(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: enable <id>")
	}
	var id int
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	return d.Breakpoints.EnableBreakpoint(id)
}

func (d *Debugger) cmdDisable(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: disable <id>")
	}
	var id int
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	return d.Breakpoints.DisableBreakpoint(id)
}

// cmdPrint dumps the general-purpose register file.
func (d *Debugger) cmdPrint(args []string) error {
	h := d.Hart
	for row := 0; row < 8; row++ {
		for col := 0; col < 4; col++ {
			i := row*4 + col
			d.Printf("x%-2d=0x%08X  ", i, h.GetRegister(uint32(i)))
		}
		d.Println()
	}
	d.Printf("pc =0x%08X  priv=%d  cycles=%d\n", h.PC, h.Priv, h.Cycles)
	return nil
}

// cmdCSR dumps a single named/numbered CSR, or the whole table with no
// argument.
func (d *Debugger) cmdCSR(args []string) error {
	if len(args) == 0 {
		for _, c := range d.Hart.CSR.Named() {
			d.Printf("%-12s (0x%03X) = 0x%08X\n", c.Name, c.Num, d.Hart.CSR.Read(c.Num))
		}
		return nil
	}
	num, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	d.Printf("0x%03X = 0x%08X\n", num, d.Hart.CSR.Read(int(num)))
	return nil
}

// cmdExamine dumps a hex/ASCII view of memory starting at an address.
func (d *Debugger) cmdExamine(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: x <address> [rows]")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	rows := MemoryDisplayRows
	if len(args) > 1 {
		if _, err := fmt.Sscanf(args[1], "%d", &rows); err != nil {
			return fmt.Errorf("invalid row count: %s", args[1])
		}
	}

	for row := 0; row < rows; row++ {
		rowAddr := addr + uint32(row*MemoryDisplayBytesPerRow)
		line := fmt.Sprintf("0x%08X: ", rowAddr)
		var ascii []byte
		for col := 0; col < MemoryDisplayBytesPerRow; col++ {
			v, err := d.Bus.Load(rowAddr+uint32(col), 1)
			if err != nil {
				line += "?? "
				ascii = append(ascii, '.')
				continue
			}
			b := byte(v)
			line += fmt.Sprintf("%02X ", b)
			if b >= 32 && b < 127 {
				ascii = append(ascii, b)
			} else {
				ascii = append(ascii, '.')
			}
		}
		d.Println(line + " " + string(ascii))
	}
	return nil
}

// cmdInfo reports whether the hart is halted on a fatal error.
func (d *Debugger) cmdInfo(args []string) error {
	h := d.Hart
	d.Printf("PC=0x%08X priv=%d cycles=%d\n", h.PC, h.Priv, h.Cycles)
	if h.LastError != nil {
		d.Printf("last error: %v\n", h.LastError)
	} else {
		d.Println("no fatal error recorded")
	}
	d.Printf("breakpoints: %d\n", d.Breakpoints.Count())
	d.Printf("pending power action: %v\n", powerActionString(d.Bus.PendingPower()))
	return nil
}

func powerActionString(a vm.PowerAction) string {
	switch a {
	case vm.PowerOff:
		return "poweroff"
	case vm.PowerReboot:
		return "reboot"
	default:
		return "none"
	}
}

// cmdReset resets the hart without touching RAM.
func (d *Debugger) cmdReset(args []string) error {
	d.Hart.Reset()
	d.Running = false
	d.Println("Hart reset")
	return nil
}

// cmdHelp prints the command list.
func (d *Debugger) cmdHelp(args []string) error {
	d.Println(`Commands:
  run, r                  reset hart and start execution
  continue, c             resume execution
  step, s, si             execute one instruction
  break, b <addr>         set breakpoint
  delete, d [id]          delete breakpoint (all if no id)
  enable <id>             enable breakpoint
  disable <id>            disable breakpoint
  print, p                dump general-purpose registers
  csr [num]               dump CSR table, or one CSR
  x, examine <addr> [n]   dump n rows of memory (16 bytes each)
  info, i                 hart status summary
  reset                   reset hart (RAM untouched)
  help, h, ?              this text`)
	return nil
}
