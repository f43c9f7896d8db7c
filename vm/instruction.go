package vm

import "fmt"

// Well-known instruction encodings
const (
	// NopWord is the canonical NOP (addi x0, x0, 0), used as the pipeline
	// reset, bubble and flush value
	NopWord uint32 = 0x00000013

	// HaltWord is the simulator-only halt sentinel appended by the loader
	HaltWord uint32 = 0x0000003F
)

// Opcode is the instruction category selected by the low 7 bits of the word
type Opcode int

const (
	OpcodeLui Opcode = iota
	OpcodeAuiPc
	OpcodeJal
	OpcodeJalr
	OpcodeBranch
	OpcodeLoad
	OpcodeStore
	OpcodeOp
	OpcodeOpImm
	OpcodeHalt
)

// String returns the opcode category name
func (o Opcode) String() string {
	switch o {
	case OpcodeLui:
		return "LUI"
	case OpcodeAuiPc:
		return "AUIPC"
	case OpcodeJal:
		return "JAL"
	case OpcodeJalr:
		return "JALR"
	case OpcodeBranch:
		return "BRANCH"
	case OpcodeLoad:
		return "LOAD"
	case OpcodeStore:
		return "STORE"
	case OpcodeOp:
		return "OP"
	case OpcodeOpImm:
		return "OP-IMM"
	case OpcodeHalt:
		return "HALT"
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// Format is the instruction encoding format associated with an opcode
type Format int

const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// String returns the format letter
func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Function is the concrete operation an instruction performs, discriminated
// from the opcode plus funct3 and instruction bit 30
type Function int

const (
	FnLui Function = iota
	FnAuiPc
	// Jumps
	FnJal
	FnJalr
	// Branches
	FnBeq
	FnBne
	FnBlt
	FnBge
	FnBltu
	FnBgeu
	// Loads
	FnLb
	FnLh
	FnLw
	FnLbu
	FnLhu
	// Stores
	FnSb
	FnSh
	FnSw
	// Operations on immediates
	FnAddi
	FnSlti
	FnSltiu
	FnXori
	FnOri
	FnAndi
	FnSlli
	FnSrli
	FnSrai
	// Operations on registers
	FnAdd
	FnSub
	FnSll
	FnSlt
	FnSltu
	FnXor
	FnSrl
	FnSra
	FnOr
	FnAnd
	// Simulator halt sentinel
	FnHalt
)

var functionNames = map[Function]string{
	FnLui: "lui", FnAuiPc: "auipc",
	FnJal: "jal", FnJalr: "jalr",
	FnBeq: "beq", FnBne: "bne", FnBlt: "blt", FnBge: "bge",
	FnBltu: "bltu", FnBgeu: "bgeu",
	FnLb: "lb", FnLh: "lh", FnLw: "lw", FnLbu: "lbu", FnLhu: "lhu",
	FnSb: "sb", FnSh: "sh", FnSw: "sw",
	FnAddi: "addi", FnSlti: "slti", FnSltiu: "sltiu", FnXori: "xori",
	FnOri: "ori", FnAndi: "andi", FnSlli: "slli", FnSrli: "srli",
	FnSrai: "srai",
	FnAdd: "add", FnSub: "sub", FnSll: "sll", FnSlt: "slt", FnSltu: "sltu",
	FnXor: "xor", FnSrl: "srl", FnSra: "sra", FnOr: "or", FnAnd: "and",
	FnHalt: "halt",
}

// String returns the assembler mnemonic
func (f Function) String() string {
	if name, ok := functionNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Function(%d)", int(f))
}

// AluSrc selects the ALU's second operand source
type AluSrc int

const (
	AluSrcReg AluSrc = iota // rs2 register value
	AluSrcImm               // sign-extended immediate
)

// Field is an optional instruction subfield. Formats omit fields they do not
// encode; an absent field must never compare equal to a register index, so
// the valid flag is explicit rather than a magic value.
type Field struct {
	Val   uint32
	Valid bool
}

// NewField returns a present field holding v
func NewField(v uint32) Field {
	return Field{Val: v, Valid: true}
}

// Fields holds the format-dependent bit slices of an instruction.
// Absent fields have Valid == false.
type Fields struct {
	Rs1    Field
	Rs2    Field
	Rd     Field
	Funct3 Field
	Funct7 Field
	// Imm is the format-assembled but not yet sign-extended immediate.
	// For I-format shifts it holds the 5-bit shift amount.
	Imm Field
}

// Semantics are the control lines consumed by the later pipeline stages
type Semantics struct {
	Branch   bool   // control-flow instruction
	MemRead  bool   // load
	MemWrite bool   // store
	MemToReg bool   // write-back source is memory, not the ALU
	RegWrite bool   // commits a register in write-back
	AluSrc   AluSrc // ALU src2 select
	AluOp    AluOp
	MemSize  int // 1, 2 or 4 bytes; 0 when no memory access
}

// Instruction is a fully decoded RV32I instruction. Values are ephemeral:
// produced by the decode stage each cycle and propagated through the
// pipeline latches by copy.
type Instruction struct {
	Raw       uint32
	Opcode    Opcode
	Format    Format
	Fields    Fields
	Function  Function
	Semantics Semantics
}

// NewNop returns the decoded canonical NOP (addi x0, x0, 0)
func NewNop() Instruction {
	insn, err := Decode(NopWord)
	if err != nil {
		// The NOP encoding is a constant; failing to decode it is a
		// simulator bug
		panic(err)
	}
	return insn
}

// Disassemble renders the instruction in assembler-like form for traces
// and the debugger views
func (i Instruction) Disassemble() string {
	f := i.Fields
	switch i.Format {
	case FormatR:
		return fmt.Sprintf("%s x%d, x%d, x%d", i.Function, f.Rd.Val, f.Rs1.Val, f.Rs2.Val)
	case FormatI:
		if i.Opcode == OpcodeLoad {
			imm, _ := SignExtendedImmediate(&i)
			return fmt.Sprintf("%s x%d, %d(x%d)", i.Function, f.Rd.Val, imm, f.Rs1.Val)
		}
		imm, _ := SignExtendedImmediate(&i)
		return fmt.Sprintf("%s x%d, x%d, %d", i.Function, f.Rd.Val, f.Rs1.Val, imm)
	case FormatS:
		imm, _ := SignExtendedImmediate(&i)
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Function, f.Rs2.Val, imm, f.Rs1.Val)
	case FormatB:
		imm, _ := SignExtendedImmediate(&i)
		return fmt.Sprintf("%s x%d, x%d, %d", i.Function, f.Rs1.Val, f.Rs2.Val, imm)
	case FormatU:
		if i.Opcode == OpcodeHalt {
			return "halt"
		}
		return fmt.Sprintf("%s x%d, 0x%x", i.Function, f.Rd.Val, f.Imm.Val>>12)
	case FormatJ:
		imm, _ := SignExtendedImmediate(&i)
		return fmt.Sprintf("%s x%d, %d", i.Function, f.Rd.Val, imm)
	}
	return fmt.Sprintf(".word 0x%08X", i.Raw)
}
