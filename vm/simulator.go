package vm

import "fmt"

// DefaultMaxCycles bounds a run so a program that never reaches the halt
// sentinel cannot spin forever
const DefaultMaxCycles uint64 = 1_000_000

// Simulator is the cycle-accurate five-stage pipeline simulator. The
// driver owns all mutable state: the register file, the data memory and
// the two pipeline snapshots. Each cycle is an atomic transition from the
// read-side snapshot to the write-side snapshot.
type Simulator struct {
	Insns *InstructionMemory
	Mem   *DataMemory
	Reg   *RegisterFile

	// MaxCycles aborts the run when exceeded; zero means DefaultMaxCycles
	MaxCycles uint64

	// Trace, when non-nil, records every cycle's latch state
	Trace *PipelineTrace

	// Stats, when non-nil, accumulates run counters
	Stats *Statistics

	read  Pipeline
	write Pipeline

	clock     uint64
	halted    bool
	haltPC    uint32
	initialPC uint32 // PC the register file started at, for Reset
}

// NewSimulator creates a simulator over the given memories and registers.
// The caller retains ownership of all three.
func NewSimulator(insns *InstructionMemory, mem *DataMemory, reg *RegisterFile) *Simulator {
	return &Simulator{
		Insns:     insns,
		Mem:       mem,
		Reg:       reg,
		read:      NewPipeline(),
		write:     NewPipeline(),
		initialPC: reg.PC.Read(),
	}
}

// Clock returns the number of completed cycles
func (s *Simulator) Clock() uint64 {
	return s.clock
}

// Halted reports whether the halt sentinel has retired
func (s *Simulator) Halted() bool {
	return s.halted
}

// HaltPC returns the address of the retired halt sentinel; only
// meaningful once Halted reports true
func (s *Simulator) HaltPC() uint32 {
	return s.haltPC
}

// ReadPipeline returns the current read-side latch snapshot, for the
// debugger and trace views
func (s *Simulator) ReadPipeline() Pipeline {
	return s.read
}

// Step advances the simulation by one clock cycle. It returns true when
// the halt sentinel retired this cycle; the simulator must not be stepped
// further once halted.
func (s *Simulator) Step() (bool, error) {
	if s.halted {
		return true, nil
	}

	// A load-use hazard stalls fetch and decode for one cycle and feeds
	// execute a bubble. The stall is evaluated before anything else so it
	// wins over a simultaneous branch flush.
	if LoadHazard(&s.read) {
		s.write.IdEx = IdExLatch{Insn: NewNop()}
		if s.Stats != nil {
			s.Stats.Stalls++
		}
	} else {
		if err := fetchStage(&s.write, s.Insns, s.Reg); err != nil {
			return false, fmt.Errorf("fetch (clock %d): %w", s.clock, err)
		}
		if err := decodeStage(&s.read, &s.write, s.Reg); err != nil {
			return false, fmt.Errorf("decode (clock %d): %w", s.clock, err)
		}
	}

	if err := executeStage(&s.read, &s.write); err != nil {
		return false, fmt.Errorf("execute (clock %d): %w", s.clock, err)
	}

	redirected, err := memoryStage(&s.read, &s.write, s.Mem, s.Reg)
	if err != nil {
		return false, fmt.Errorf("memory (clock %d): %w", s.clock, err)
	}
	if redirected && s.Stats != nil {
		s.Stats.Flushes++
		s.Stats.BranchesTaken++
	}

	// Halt is detected after the memory stage, so a branch flush can
	// still discard a wrong-path halt. Instructions that entered the
	// pipeline behind the halt never commit; the two older instructions
	// still in flight drain through write-back so the architectural
	// state matches the non-pipelined reference.
	if s.write.ExMem.Halt {
		s.halted = true
		s.haltPC = s.write.ExMem.HaltPC
		if err := writebackStage(&s.read, s.Reg); err != nil {
			return false, fmt.Errorf("write-back (clock %d): %w", s.clock, err)
		}
		s.finishCycle()
		if err := writebackStage(&s.read, s.Reg); err != nil {
			return false, fmt.Errorf("write-back (clock %d): %w", s.clock, err)
		}
		return true, nil
	}

	if err := writebackStage(&s.read, s.Reg); err != nil {
		return false, fmt.Errorf("write-back (clock %d): %w", s.clock, err)
	}
	if s.Stats != nil && s.read.MemWb.Insn.Raw != NopWord {
		s.Stats.Instructions++
	}

	s.finishCycle()
	return false, nil
}

// finishCycle flips the write-side latches to the read side and advances
// the clock
func (s *Simulator) finishCycle() {
	if s.Trace != nil {
		s.Trace.Record(s)
	}
	s.read = s.write
	s.clock++
	if s.Stats != nil {
		s.Stats.Cycles = s.clock
	}
}

// Run steps the simulator until the halt sentinel retires and returns the
// halt address
func (s *Simulator) Run() (uint32, error) {
	limit := s.MaxCycles
	if limit == 0 {
		limit = DefaultMaxCycles
	}

	for !s.halted {
		if s.clock >= limit {
			return 0, fmt.Errorf("no halt after %d cycles (PC 0x%08X)", s.clock, s.Reg.PC.Read())
		}
		if _, err := s.Step(); err != nil {
			return 0, err
		}
	}
	return s.haltPC, nil
}

// Reset rewinds the simulator to its initial state. The data memory is
// not cleared; the caller owns its contents.
func (s *Simulator) Reset() {
	s.Reg.Reset(s.initialPC)
	s.read = NewPipeline()
	s.write = NewPipeline()
	s.clock = 0
	s.halted = false
	s.haltPC = 0
	if s.Stats != nil {
		s.Stats.Reset()
	}
}

// Run executes a program on the cycle-accurate simulator and returns the
// address at which the halt sentinel retired. The caller owns the
// memories and register file across the call.
func Run(insns *InstructionMemory, mem *DataMemory, reg *RegisterFile) (uint32, error) {
	return NewSimulator(insns, mem, reg).Run()
}
