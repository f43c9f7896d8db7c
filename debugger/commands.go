package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/djanderson/riscv-5stage-simulator/vm"
)

// Command handler implementations

// cmdRun restarts execution from cycle zero
func (d *Debugger) cmdRun(args []string) error {
	d.Sim.Reset()
	d.Running = true
	d.skipValid = false

	d.Println("Restarting simulation from cycle 0...")
	return nil
}

// cmdContinue resumes execution from the current cycle
func (d *Debugger) cmdContinue(args []string) error {
	if d.Sim.Halted() {
		return fmt.Errorf("simulation has halted at 0x%08X", d.Sim.HaltPC())
	}

	d.Running = true
	d.Println("Continuing...")
	return nil
}

// cmdStep advances one clock cycle, or N cycles with an argument
func (d *Debugger) cmdStep(args []string) error {
	n := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			return fmt.Errorf("usage: step [count]")
		}
		n = parsed
	}

	for i := 0; i < n; i++ {
		halted, err := d.StepCycle()
		if err != nil {
			return err
		}
		if halted {
			d.Printf("Halted at 0x%08X (clock %d)\n", d.Sim.HaltPC(), d.Sim.Clock())
			return nil
		}
	}

	d.Printf("Clock %d, next fetch PC 0x%08X\n", d.Sim.Clock(), d.Sim.Reg.PC.Read())
	return nil
}

// cmdBreak sets a breakpoint
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address>")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.Add(address, false)
	d.Printf("Breakpoint %d at 0x%08X\n", bp.ID, address)
	return nil
}

// cmdTBreak sets a temporary breakpoint (auto-delete after hit)
func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <address>")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.Add(address, true)
	d.Printf("Temporary breakpoint %d at 0x%08X\n", bp.ID, address)
	return nil
}

// cmdDelete deletes breakpoint(s)
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("usage: delete [id]")
	}
	if err := d.Breakpoints.Delete(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

// cmdEnable enables a breakpoint
func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: enable <id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("usage: enable <id>")
	}
	if err := d.Breakpoints.SetEnabled(id, true); err != nil {
		return err
	}
	d.Printf("Breakpoint %d enabled\n", id)
	return nil
}

// cmdDisable disables a breakpoint
func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: disable <id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("usage: disable <id>")
	}
	if err := d.Breakpoints.SetEnabled(id, false); err != nil {
		return err
	}
	d.Printf("Breakpoint %d disabled\n", id)
	return nil
}

// cmdPrint prints a register: "print x5" or "print pc"
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <register>  (x0-x31 or pc)")
	}

	name := strings.ToLower(args[0])
	if name == "pc" {
		d.Printf("pc = 0x%08X\n", d.Sim.Reg.PC.Read())
		return nil
	}

	if !strings.HasPrefix(name, "x") {
		return fmt.Errorf("unknown register: %s", args[0])
	}
	idx, err := strconv.Atoi(name[1:])
	if err != nil || idx < 0 || idx > 31 {
		return fmt.Errorf("unknown register: %s", args[0])
	}

	value := d.Sim.Reg.GPR[idx].Read()
	d.Printf("x%d = 0x%08X (%d)\n", idx, value, int32(value))
	return nil
}

// cmdExamine dumps data memory: "x <address> [words]"
func (d *Debugger) cmdExamine(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: x <address> [words]")
	}

	addr, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	count := 4
	if len(args) > 1 {
		if count, err = strconv.Atoi(args[1]); err != nil || count < 1 {
			return fmt.Errorf("usage: x <address> [words]")
		}
	}

	for i := 0; i < count; i++ {
		a := addr + uint32(i*4)
		word, err := d.Sim.Mem.Read(a, 4)
		if err != nil {
			return err
		}
		d.Printf("0x%08X: 0x%08X (%d)\n", a, word, int32(word))
	}
	return nil
}

// cmdInfo shows state: "info registers|pipeline|breakpoints|stats"
func (d *Debugger) cmdInfo(args []string) error {
	what := "registers"
	if len(args) > 0 {
		what = strings.ToLower(args[0])
	}

	switch what {
	case "registers", "reg", "r":
		d.Output.WriteString(FormatRegisters(d.Sim))
	case "pipeline", "pipe", "p":
		d.Output.WriteString(FormatPipeline(d.Sim))
	case "breakpoints", "break", "b":
		bps := d.Breakpoints.All()
		if len(bps) == 0 {
			d.Println("No breakpoints set")
			return nil
		}
		for _, bp := range bps {
			status := "enabled"
			if !bp.Enabled {
				status = "disabled"
			}
			d.Printf("%d: 0x%08X %s (hits: %d)\n", bp.ID, bp.Address, status, bp.HitCount)
		}
	case "stats", "statistics":
		if d.Sim.Stats == nil {
			d.Println("Statistics collection is not enabled")
			return nil
		}
		d.Output.WriteString(d.Sim.Stats.String())
	default:
		return fmt.Errorf("usage: info registers|pipeline|breakpoints|stats")
	}
	return nil
}

// cmdReset rewinds the simulation without starting it
func (d *Debugger) cmdReset(args []string) error {
	d.Sim.Reset()
	d.Running = false
	d.skipValid = false
	d.Println("Simulation reset (data memory preserved)")
	return nil
}

// cmdHelp shows the command list
func (d *Debugger) cmdHelp(args []string) error {
	d.Output.WriteString(`Commands:
  run, r             Restart simulation from cycle 0
  continue, c        Run until breakpoint or halt
  step, s [n]        Advance one (or n) clock cycles
  break, b ADDR      Set breakpoint on fetch address
  tbreak ADDR        Set temporary breakpoint
  delete [id]        Delete breakpoint (all when no id)
  enable/disable ID  Toggle breakpoint
  print, p REG       Print register (x0-x31, pc)
  x ADDR [n]         Examine n data memory words
  info registers     Show the register file
  info pipeline      Show the pipeline latches
  info breakpoints   List breakpoints
  info stats         Show run statistics
  reset              Rewind to cycle 0
  quit, q            Leave the debugger
`)
	return nil
}

// FormatRegisters renders the register file, four registers per row
func FormatRegisters(sim *vm.Simulator) string {
	var b strings.Builder
	for row := 0; row < 8; row++ {
		for col := 0; col < 4; col++ {
			idx := row*4 + col
			fmt.Fprintf(&b, "x%-2d: 0x%08X  ", idx, sim.Reg.GPR[idx].Read())
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "pc : 0x%08X  clock: %d\n", sim.Reg.PC.Read(), sim.Clock())
	return b.String()
}

// FormatPipeline renders the read-side latches, one stage per row
func FormatPipeline(sim *vm.Simulator) string {
	p := sim.ReadPipeline()
	var b strings.Builder

	fmt.Fprintf(&b, "IF/ID:  pc=0x%08X raw=0x%08X\n", p.IfId.PC, p.IfId.RawInsn)
	fmt.Fprintf(&b, "ID/EX:  pc=0x%08X %-24s rs1=%-11d rs2=%d\n",
		p.IdEx.PC, p.IdEx.Insn.Disassemble(), p.IdEx.Rs1, p.IdEx.Rs2)
	fmt.Fprintf(&b, "EX/MEM: pc=0x%08X %-24s alu=%d", p.ExMem.PC, p.ExMem.Insn.Disassemble(), p.ExMem.AluResult)
	if p.ExMem.Halt {
		fmt.Fprintf(&b, " halt@0x%08X", p.ExMem.HaltPC)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "MEM/WB: pc=0x%08X %-24s alu=%-11d mem=0x%08X\n",
		p.MemWb.PC, p.MemWb.Insn.Disassemble(), p.MemWb.AluResult, p.MemWb.MemResult)

	return b.String()
}
