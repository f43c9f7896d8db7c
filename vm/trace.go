package vm

import (
	"fmt"
	"io"
	"strings"
)

// PipelineTrace streams a per-cycle picture of the four latches to a
// writer. Entries are buffered and written out on Flush so a trace file
// is not half-written when the run dies mid-cycle.
type PipelineTrace struct {
	Enabled    bool
	Writer     io.Writer
	MaxEntries int

	entries []traceEntry
}

type traceEntry struct {
	clock uint64
	pc    uint32
	ifId  string
	idEx  string
	exMem string
	memWb string
}

// NewPipelineTrace creates a trace writing to writer
func NewPipelineTrace(writer io.Writer) *PipelineTrace {
	return &PipelineTrace{
		Enabled:    true,
		Writer:     writer,
		MaxEntries: 100000,
		entries:    make([]traceEntry, 0, 1000),
	}
}

// Record captures the write-side latch state at the end of a cycle
func (t *PipelineTrace) Record(sim *Simulator) {
	if !t.Enabled {
		return
	}
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	w := &sim.write
	entry := traceEntry{
		clock: sim.clock,
		pc:    sim.Reg.PC.Read(),
		ifId:  fmt.Sprintf("0x%08X @ 0x%08X", w.IfId.RawInsn, w.IfId.PC),
		idEx:  fmt.Sprintf("%-24s rs1=%-11d rs2=%d", w.IdEx.Insn.Disassemble(), w.IdEx.Rs1, w.IdEx.Rs2),
		exMem: fmt.Sprintf("%-24s alu=%d", w.ExMem.Insn.Disassemble(), w.ExMem.AluResult),
		memWb: fmt.Sprintf("%-24s alu=%-11d mem=0x%08X", w.MemWb.Insn.Disassemble(), w.MemWb.AluResult, w.MemWb.MemResult),
	}
	if w.ExMem.Halt {
		entry.exMem += fmt.Sprintf(" halt@0x%08X", w.ExMem.HaltPC)
	}
	t.entries = append(t.entries, entry)
}

// Flush writes all recorded entries to the writer
func (t *PipelineTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString("clock  next-pc     if/id                    id/ex                                          ex/mem                            mem/wb\n")
	for _, e := range t.entries {
		fmt.Fprintf(&b, "%-6d 0x%08X  %-24s %-46s %-33s %s\n",
			e.clock, e.pc, e.ifId, e.idEx, e.exMem, e.memWb)
	}

	_, err := io.WriteString(t.Writer, b.String())
	return err
}

// Len returns the number of recorded entries
func (t *PipelineTrace) Len() int {
	return len(t.entries)
}
