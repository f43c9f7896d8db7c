package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RunCLI runs the command-line debugger interface
func RunCLI(dbg *Debugger) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("(riscv-dbg) ")

		if !scanner.Scan() {
			break
		}

		cmdLine := strings.TrimSpace(scanner.Text())

		if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
			fmt.Println("Exiting debugger...")
			break
		}

		if err := dbg.ExecuteCommand(cmdLine); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

		if output := dbg.GetOutput(); output != "" {
			fmt.Print(output)
		}

		// If running, execute cycles until breakpoint or halt
		if dbg.Running {
			reason, halted, err := dbg.Resume()
			switch {
			case err != nil:
				fmt.Printf("Runtime error: %v\n", err)
			case halted:
				fmt.Printf("Halted at 0x%08X after %d cycles\n", dbg.Sim.HaltPC(), dbg.Sim.Clock())
			case reason != "":
				fmt.Printf("Stopped: %s before fetch at PC=0x%08X (clock %d)\n",
					reason, dbg.Sim.Reg.PC.Read(), dbg.Sim.Clock())
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}

	return nil
}

// RunTUI runs the TUI (Text User Interface) debugger
func RunTUI(dbg *Debugger) error {
	tui := NewTUI(dbg)
	return tui.Run()
}
