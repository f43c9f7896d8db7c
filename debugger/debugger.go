// Package debugger provides the interactive cycle-stepping debugger, in
// command-line and TUI flavors.
package debugger

import (
	"fmt"
	"strings"

	"github.com/djanderson/riscv-5stage-simulator/vm"
)

// Debugger wraps a simulator with breakpoints, cycle stepping and state
// inspection. One clock cycle is the stepping unit: a "step" advances the
// whole pipeline by one tick, not one instruction.
type Debugger struct {
	Sim *vm.Simulator

	Breakpoints *BreakpointManager
	History     *CommandHistory

	// Running is set while continue/run executes cycles
	Running bool

	// LastCommand repeats on empty input
	LastCommand string

	// skipValid/skipPC suppress the breakpoint we just stopped at, so
	// continue can leave it
	skipValid bool
	skipPC    uint32

	// Output buffer drained by the CLI loop or the TUI after every command
	Output strings.Builder
}

// NewDebugger creates a debugger over sim
func NewDebugger(sim *vm.Simulator) *Debugger {
	return &Debugger{
		Sim:         sim,
		Breakpoints: NewBreakpointManager(),
		History:     NewCommandHistory(1000),
	}
}

// ResolveAddress parses a hex (0x-prefixed) or decimal address
func (d *Debugger) ResolveAddress(addrStr string) (uint32, error) {
	var addr uint32
	if strings.HasPrefix(addrStr, "0x") || strings.HasPrefix(addrStr, "0X") {
		if _, err := fmt.Sscanf(addrStr[2:], "%x", &addr); err != nil {
			return 0, fmt.Errorf("invalid address: %s", addrStr)
		}
		return addr, nil
	}
	if _, err := fmt.Sscanf(addrStr, "%d", &addr); err != nil {
		return 0, fmt.Errorf("invalid address: %s", addrStr)
	}
	return addr, nil
}

// ExecuteCommand processes and executes a debugger command
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)

	// Empty command repeats the last one (for step, continue, etc.)
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

	switch cmd {
	// Execution control
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s":
		return d.cmdStep(args)

	// Breakpoints
	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)

	// Inspection
	case "print", "p":
		return d.cmdPrint(args)
	case "x":
		return d.cmdExamine(args)
	case "info", "i":
		return d.cmdInfo(args)

	// Program control
	case "reset":
		return d.cmdReset(args)

	// Help
	case "help", "h", "?":
		return d.cmdHelp(args)

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// StepCycle advances the simulation by one clock cycle. It reports
// whether the run has halted.
func (d *Debugger) StepCycle() (bool, error) {
	if d.Sim.Halted() {
		return true, nil
	}
	return d.Sim.Step()
}

// ShouldBreak checks whether execution must pause before the next cycle,
// because the next fetch address carries an enabled breakpoint. The
// breakpoint execution last stopped at is skipped once so a resume can
// leave it.
func (d *Debugger) ShouldBreak() (bool, string) {
	pc := d.Sim.Reg.PC.Read()
	if d.skipValid {
		d.skipValid = false
		if pc == d.skipPC {
			return false, ""
		}
	}
	if bp := d.Breakpoints.ProcessHit(pc); bp != nil {
		d.skipValid = true
		d.skipPC = pc
		return true, fmt.Sprintf("breakpoint %d", bp.ID)
	}
	return false, ""
}

// Resume executes cycles until a breakpoint, halt or error and clears
// Running. The returned reason is non-empty for a breakpoint stop.
func (d *Debugger) Resume() (reason string, halted bool, err error) {
	defer func() { d.Running = false }()

	for d.Running {
		if stop, why := d.ShouldBreak(); stop {
			return why, false, nil
		}

		halted, err := d.StepCycle()
		if err != nil {
			return "", false, err
		}
		if halted {
			return "", true, nil
		}
	}
	return "", d.Sim.Halted(), nil
}

// GetOutput returns and clears the output buffer
func (d *Debugger) GetOutput() string {
	output := d.Output.String()
	d.Output.Reset()
	return output
}

// Printf writes formatted output to the output buffer
func (d *Debugger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.Output, format, args...)
}

// Println writes a line to the output buffer
func (d *Debugger) Println(args ...interface{}) {
	fmt.Fprintln(&d.Output, args...)
}
