package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/djanderson/riscv-5stage-simulator/config"
	"github.com/djanderson/riscv-5stage-simulator/debugger"
	"github.com/djanderson/riscv-5stage-simulator/loader"
	"github.com/djanderson/riscv-5stage-simulator/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		reference   = flag.Bool("reference", false, "Run the non-pipelined reference simulator")
		maxCycles   = flag.Uint64("max-cycles", 0, "Maximum clock cycles before giving up (0 = config default)")
		memWords    = flag.Int("mem-words", 0, "Data memory size in 32-bit words (0 = config default)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")
		configFile  = flag.String("config", "", "Configuration file (default: platform config path)")

		enableTrace = flag.Bool("trace", false, "Enable per-cycle pipeline trace")
		traceFile   = flag.String("trace-file", "", "Trace output file (default: trace.log in log dir)")
		enableStats = flag.Bool("stats", false, "Enable run statistics")
		statsFile   = flag.String("stats-file", "", "Statistics output file (default: stdout)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("RISC-V 5-Stage Pipeline Simulator %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// Require a disassembly file
	if flag.NArg() == 0 {
		printHelp()
		os.Exit(1)
	}

	// Load configuration; flags override it
	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadFrom(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *maxCycles != 0 {
		cfg.Execution.MaxCycles = *maxCycles
	}
	if *memWords != 0 {
		cfg.Execution.DataMemWords = *memWords
	}

	programFile := flag.Arg(0)
	if *verboseMode {
		fmt.Printf("Loading disassembly file: %s\n", programFile)
	}

	insns, err := loader.LoadFile(programFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Loaded %d instruction words\n", insns.Len())
	}

	mem := vm.NewDataMemory(cfg.Execution.DataMemWords)
	reg := vm.NewRegisterFile(0x0)

	if *reference || cfg.Execution.UseReference {
		haltPC, err := vm.RunReferenceBounded(insns, mem, reg, cfg.Execution.MaxCycles)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Halt: 0x%X\n", haltPC)
		os.Exit(0)
	}

	sim := vm.NewSimulator(insns, mem, reg)
	sim.MaxCycles = cfg.Execution.MaxCycles

	// Per-cycle pipeline trace
	if *enableTrace || cfg.Execution.EnableTrace {
		tracePath := *traceFile
		if tracePath == "" {
			tracePath = filepath.Join(config.GetLogPath(), cfg.Trace.OutputFile)
		}

		traceWriter, err := os.Create(tracePath) // #nosec G304 -- user-specified trace output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := traceWriter.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close trace file: %v\n", err)
			}
		}()

		sim.Trace = vm.NewPipelineTrace(traceWriter)
		sim.Trace.MaxEntries = cfg.Trace.MaxEntries

		if *verboseMode {
			fmt.Printf("Pipeline trace enabled: %s\n", tracePath)
		}
	}

	if *enableStats || cfg.Execution.EnableStats {
		sim.Stats = vm.NewStatistics()
	}

	// Run in appropriate mode
	if *debugMode || *tuiMode {
		dbg := debugger.NewDebugger(sim)

		if *tuiMode {
			if err := debugger.RunTUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Println("RISC-V Pipeline Debugger - Type 'help' for commands")
			fmt.Printf("Program loaded: %s\n", programFile)
			fmt.Println()

			if err := debugger.RunCLI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
				os.Exit(1)
			}
		}
		os.Exit(0)
	}

	// Direct execution mode
	haltPC, err := sim.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Halt: 0x%X (clock %d)\n", haltPC, sim.Clock())

	if sim.Trace != nil {
		if err := sim.Trace.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Error flushing trace: %v\n", err)
		}
		if *verboseMode {
			fmt.Printf("Pipeline trace written (%d entries)\n", sim.Trace.Len())
		}
	}

	if sim.Stats != nil {
		if *statsFile != "" {
			statsWriter, err := os.Create(*statsFile) // #nosec G304 -- user-specified stats output path
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating statistics file: %v\n", err)
			} else {
				defer func() {
					if err := statsWriter.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close statistics file: %v\n", err)
					}
				}()
				if err := sim.Stats.ExportJSON(statsWriter); err != nil {
					fmt.Fprintf(os.Stderr, "Error exporting statistics: %v\n", err)
				}
			}
		}
		if *verboseMode || *statsFile == "" {
			fmt.Println()
			fmt.Println(sim.Stats.String())
		}
	}
}

func printHelp() {
	fmt.Printf(`RISC-V 5-Stage Pipeline Simulator %s

Usage: riscv-sim [options] <disassembly-file>

The input is an objdump-style disassembly: indented lines of the form
"  addr:	b1 b2 b3 b4 ..." are loaded in order; everything else is
ignored. A halt sentinel is appended after the last instruction and the
simulator prints the address at which it retires.

Options:
  -help              Show this help message
  -version           Show version information
  -debug             Start in debugger mode (CLI)
  -tui               Start in TUI debugger mode
  -reference         Run the non-pipelined reference simulator instead
  -max-cycles N      Maximum clock cycles (default from config)
  -mem-words N       Data memory size in words (default from config)
  -config FILE       Configuration file
  -verbose           Enable verbose output

Tracing & Statistics:
  -trace             Enable per-cycle pipeline trace
  -trace-file FILE   Trace output file (default: trace.log in log dir)
  -stats             Enable run statistics
  -stats-file FILE   Statistics output file (JSON; default prints summary)

Examples:
  # Run a program
  riscv-sim program.txt

  # Compare against the non-pipelined reference
  riscv-sim -reference program.txt

  # Run with a cycle-by-cycle latch trace
  riscv-sim -trace -trace-file pipeline.log program.txt

  # Debug interactively
  riscv-sim -debug program.txt
  riscv-sim -tui program.txt

Debugger Commands (when in -debug mode):
  run, r             Restart simulation
  continue, c        Run until breakpoint or halt
  step, s [n]        Advance one (or n) clock cycles
  break ADDR         Set breakpoint on fetch address
  info registers     Show the register file
  info pipeline      Show the pipeline latches
  help               Show debugger help
`, Version)
}
