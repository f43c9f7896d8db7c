package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/djanderson/riscv-5stage-simulator/vm"
)

// TUI is the text user interface for the debugger
type TUI struct {
	Debugger *Debugger
	App      *tview.Application
	Pages    *tview.Pages

	MainLayout *tview.Flex

	// View panels
	PipelineView    *tview.TextView
	RegisterView    *tview.TextView
	MemoryView      *tview.TextView
	DisassemblyView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField

	// MemoryAddress is the first data memory address shown
	MemoryAddress uint32
}

// NewTUI creates a new text user interface
func NewTUI(debugger *Debugger) *TUI {
	tui := &TUI{
		Debugger: debugger,
		App:      tview.NewApplication(),
	}

	tui.initializeViews()
	tui.buildLayout()
	tui.setupKeyBindings()

	return tui
}

// initializeViews creates all the view panels
func (t *TUI) initializeViews() {
	t.PipelineView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false).
		SetWrap(false)
	t.PipelineView.SetBorder(true).SetTitle(" Pipeline ")

	t.RegisterView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.MemoryView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.MemoryView.SetBorder(true).SetTitle(" Data Memory ")

	t.DisassemblyView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.OutputView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

// buildLayout constructs the TUI layout
func (t *TUI) buildLayout() {
	// Left panel: disassembly above the pipeline latches
	leftPanel := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.DisassemblyView, 0, 2, false).
		AddItem(t.PipelineView, 8, 0, false)

	// Right panel: registers above data memory
	rightPanel := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 12, 0, false).
		AddItem(t.MemoryView, 0, 1, false)

	mainContent := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(leftPanel, 0, 3, false).
		AddItem(rightPanel, 0, 2, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainContent, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.Pages = tview.NewPages().
		AddPage("main", t.MainLayout, true, true)
}

// setupKeyBindings sets up keyboard shortcuts
func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			t.executeCommand("help")
			return nil
		case tcell.KeyF5:
			t.executeCommand("continue")
			return nil
		case tcell.KeyF11:
			t.executeCommand("step")
			return nil
		case tcell.KeyUp:
			if t.App.GetFocus() == t.CommandInput {
				t.CommandInput.SetText(t.Debugger.History.Previous())
				return nil
			}
		case tcell.KeyDown:
			if t.App.GetFocus() == t.CommandInput {
				t.CommandInput.SetText(t.Debugger.History.Next())
				return nil
			}
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

// handleCommand processes command input
func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	if cmd == "quit" || cmd == "q" || cmd == "exit" {
		t.App.Stop()
		return
	}
	t.executeCommand(cmd)
	t.CommandInput.SetText("")
}

// executeCommand executes a debugger command and refreshes the views
func (t *TUI) executeCommand(cmd string) {
	t.Debugger.Output.Reset()

	err := t.Debugger.ExecuteCommand(cmd)

	// Drain the run loop here: the TUI owns the cycle loop the CLI's
	// interactive loop would otherwise run
	if t.Debugger.Running {
		reason, halted, runErr := t.Debugger.Resume()
		switch {
		case runErr != nil:
			t.Debugger.Printf("Runtime error: %v\n", runErr)
		case halted:
			t.Debugger.Printf("Halted at 0x%08X after %d cycles\n",
				t.Debugger.Sim.HaltPC(), t.Debugger.Sim.Clock())
		case reason != "":
			t.Debugger.Printf("Stopped: %s before fetch at PC=0x%08X\n",
				reason, t.Debugger.Sim.Reg.PC.Read())
		}
	}

	if err != nil {
		t.WriteOutput(fmt.Sprintf("[red]Error:[white] %v\n", err))
	}
	if output := t.Debugger.GetOutput(); output != "" {
		t.WriteOutput(output)
	}

	t.RefreshAll()
}

// WriteOutput writes to the output view
func (t *TUI) WriteOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text)) // Ignore write errors in TUI
	t.OutputView.ScrollToEnd()
}

// RefreshAll refreshes all view panels
func (t *TUI) RefreshAll() {
	t.UpdatePipelineView()
	t.UpdateRegisterView()
	t.UpdateMemoryView()
	t.UpdateDisassemblyView()
	t.App.Draw()
}

// UpdatePipelineView shows the four read-side latches
func (t *TUI) UpdatePipelineView() {
	t.PipelineView.Clear()

	p := t.Debugger.Sim.ReadPipeline()
	var lines []string
	lines = append(lines, fmt.Sprintf("[yellow]IF/ID [white] pc=0x%08X raw=0x%08X", p.IfId.PC, p.IfId.RawInsn))
	lines = append(lines, fmt.Sprintf("[yellow]ID/EX [white] pc=0x%08X %-22s rs1=%-11d rs2=%d",
		p.IdEx.PC, p.IdEx.Insn.Disassemble(), p.IdEx.Rs1, p.IdEx.Rs2))
	exLine := fmt.Sprintf("[yellow]EX/MEM[white] pc=0x%08X %-22s alu=%d",
		p.ExMem.PC, p.ExMem.Insn.Disassemble(), p.ExMem.AluResult)
	if p.ExMem.Halt {
		exLine += fmt.Sprintf(" [red]halt@0x%08X[white]", p.ExMem.HaltPC)
	}
	lines = append(lines, exLine)
	lines = append(lines, fmt.Sprintf("[yellow]MEM/WB[white] pc=0x%08X %-22s alu=%-11d mem=0x%08X",
		p.MemWb.PC, p.MemWb.Insn.Disassemble(), p.MemWb.AluResult, p.MemWb.MemResult))

	t.PipelineView.SetText(strings.Join(lines, "\n"))
}

// UpdateRegisterView shows the register file
func (t *TUI) UpdateRegisterView() {
	t.RegisterView.Clear()

	sim := t.Debugger.Sim
	var lines []string
	for row := 0; row < 8; row++ {
		var cols []string
		for col := 0; col < 4; col++ {
			idx := row*4 + col
			cols = append(cols, fmt.Sprintf("x%-2d: 0x%08X", idx, sim.Reg.GPR[idx].Read()))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("[yellow]pc : 0x%08X  clock: %d[white]", sim.Reg.PC.Read(), sim.Clock()))
	if sim.Halted() {
		lines = append(lines, fmt.Sprintf("[red]halted at 0x%08X[white]", sim.HaltPC()))
	}

	t.RegisterView.SetText(strings.Join(lines, "\n"))
}

// UpdateMemoryView shows a data memory window
func (t *TUI) UpdateMemoryView() {
	t.MemoryView.Clear()

	addr := t.MemoryAddress
	var lines []string
	lines = append(lines, fmt.Sprintf("[yellow]Address: 0x%08X[white]", addr))

	for row := 0; row < 16; row++ {
		rowAddr := addr + uint32(row*16)
		line := fmt.Sprintf("0x%08X: ", rowAddr)

		var words []string
		for col := 0; col < 4; col++ {
			word, err := t.Debugger.Sim.Mem.Read(rowAddr+uint32(col*4), 4)
			if err != nil {
				words = append(words, "????????")
				continue
			}
			words = append(words, fmt.Sprintf("%08X", word))
		}
		lines = append(lines, line+strings.Join(words, " "))
	}

	t.MemoryView.SetText(strings.Join(lines, "\n"))
}

// UpdateDisassemblyView shows instructions around the next fetch PC
func (t *TUI) UpdateDisassemblyView() {
	t.DisassemblyView.Clear()

	pc := t.Debugger.Sim.Reg.PC.Read()

	startAddr := pc - 32 // 8 instructions before
	if startAddr > pc {  // Handle underflow
		startAddr = 0
	}

	var lines []string
	for i := 0; i < 24; i++ {
		addr := startAddr + uint32(i*4)

		raw, err := t.Debugger.Sim.Insns.Read(addr)
		if err != nil {
			break
		}

		marker := "  "
		color := "white"
		if addr == pc {
			marker = "->"
			color = "yellow"
		}
		if t.Debugger.Breakpoints.At(addr) != nil {
			marker = "* "
		}

		text := fmt.Sprintf("0x%08X", raw)
		if insn, err := vm.Decode(raw); err == nil {
			text = insn.Disassemble()
		}

		lines = append(lines, fmt.Sprintf("[%s]%s 0x%08X: %s[white]", color, marker, addr, text))
	}

	t.DisassemblyView.SetText(strings.Join(lines, "\n"))
}

// Run starts the TUI application
func (t *TUI) Run() error {
	t.RefreshAll()

	t.WriteOutput("[green]RISC-V Pipeline Debugger TUI[white]\n")
	t.WriteOutput("Press F1 for help, F5 to continue, F11 to step one cycle\n")
	t.WriteOutput("Type 'help' for command list\n\n")

	return t.App.SetRoot(t.Pages, true).SetFocus(t.CommandInput).Run()
}

// Stop stops the TUI application
func (t *TUI) Stop() {
	t.App.Stop()
}
