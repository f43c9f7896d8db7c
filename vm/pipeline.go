package vm

// Pipeline latches. Each latch is a plain value record copied wholesale
// from the write side to the read side at the end of every cycle; stages
// never share mutable references, which keeps the hazard predicates pure
// functions of the read-side snapshot.

// IfIdLatch sits between instruction fetch and decode
type IfIdLatch struct {
	// PC of the fetched instruction
	PC uint32

	// RawInsn is the fetched, not yet decoded word
	RawInsn uint32
}

// IdExLatch sits between decode and execute
type IdExLatch struct {
	PC   uint32
	Insn Instruction

	// Operand snapshots read from the register file (or forwarded from
	// the retiring instruction) during decode
	Rs1 int32
	Rs2 int32
}

// ExMemLatch sits between execute and memory access
type ExMemLatch struct {
	PC        uint32
	Insn      Instruction
	AluResult int32

	// Rs2 is the post-forwarding src2 snapshot, the store data
	Rs2 int32

	// Halt is set when the halt sentinel passed through execute;
	// HaltPC is its address
	Halt   bool
	HaltPC uint32
}

// MemWbLatch sits between memory access and write-back
type MemWbLatch struct {
	PC        uint32
	Insn      Instruction
	AluResult int32
	MemResult uint32
}

// Pipeline holds the four inter-stage latches
type Pipeline struct {
	IfId  IfIdLatch
	IdEx  IdExLatch
	ExMem ExMemLatch
	MemWb MemWbLatch
}

// NewPipeline returns a pipeline reset to NOPs
func NewPipeline() Pipeline {
	nop := NewNop()
	return Pipeline{
		IfId:  IfIdLatch{RawInsn: NopWord},
		IdEx:  IdExLatch{Insn: nop},
		ExMem: ExMemLatch{Insn: nop},
		MemWb: MemWbLatch{Insn: nop},
	}
}
