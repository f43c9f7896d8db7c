package vm

import "fmt"

// The five per-tick stage functions. Each reads only the read-side
// pipeline snapshot and writes only its own write-side latch; the one
// shared mutable within a cycle is the register file (written in WB, read
// in ID), which the write-back-to-decode forward makes deterministic.

// fetchStage reads the word at the current PC into the write-side IF/ID
// latch and advances the PC by one word
func fetchStage(write *Pipeline, insns *InstructionMemory, reg *RegisterFile) error {
	pc := reg.PC.Read()
	raw, err := insns.Read(pc)
	if err != nil {
		return err
	}
	reg.PC.Write(pc + 4)

	write.IfId = IfIdLatch{PC: pc, RawInsn: raw}
	return nil
}

// decodeStage decodes the read-side IF/ID word and reads the source
// operands, taking the value the retiring MEM/WB instruction is about to
// commit when it targets one of them
func decodeStage(read, write *Pipeline, reg *RegisterFile) error {
	insn, err := Decode(read.IfId.RawInsn)
	if err != nil {
		return err
	}

	rs1 := readOperand(read, reg, insn.Fields.Rs1)
	rs2 := readOperand(read, reg, insn.Fields.Rs2)

	write.IdEx = IdExLatch{
		PC:   read.IfId.PC,
		Insn: insn,
		Rs1:  rs1,
		Rs2:  rs2,
	}
	return nil
}

// readOperand reads one source register, applying the write-back-to-decode
// forward. An absent source field reads x0.
func readOperand(read *Pipeline, reg *RegisterFile, src Field) int32 {
	if WbHazard(&read.MemWb, src) {
		return WbForwardValue(&read.MemWb)
	}
	var idx uint32
	if src.Valid {
		idx = src.Val
	}
	return int32(reg.GPR[idx].Read())
}

// executeStage applies the forwarding muxes and the ALU src2 mux, runs the
// ALU, and records the halt address when the halt sentinel passes through
func executeStage(read, write *Pipeline) error {
	insn := read.IdEx.Insn
	pc := read.IdEx.PC

	// Forwarding muxes: EX/MEM wins over MEM/WB
	rs1 := read.IdEx.Rs1
	if ExHazardSrc1(read) {
		rs1 = read.ExMem.AluResult
	} else if MemHazardSrc1(read) {
		rs1 = WbForwardValue(&read.MemWb)
	}

	rs2 := read.IdEx.Rs2
	if ExHazardSrc2(read) {
		rs2 = read.ExMem.AluResult
	} else if MemHazardSrc2(read) {
		rs2 = WbForwardValue(&read.MemWb)
	}

	src1 := rs1
	src2 := rs2
	if insn.Semantics.AluSrc == AluSrcImm {
		imm, ok := SignExtendedImmediate(&insn)
		if !ok {
			return fmt.Errorf("instruction 0x%08X at 0x%08X selects an immediate operand but carries none", insn.Raw, pc)
		}
		src2 = imm
	}
	if insn.Opcode == OpcodeAuiPc {
		// AUIPC adds the upper immediate to its own PC
		src1 = int32(pc)
	}

	write.ExMem = ExMemLatch{
		PC:        pc,
		Insn:      insn,
		AluResult: Alu(insn.Semantics.AluOp, src1, src2),
		Rs2:       rs2,
	}
	if insn.Function == FnHalt {
		write.ExMem.Halt = true
		write.ExMem.HaltPC = pc
	}
	return nil
}

// memoryStage performs the load or store and resolves branch redirection.
// A redirect overwrites the PC and flushes the three younger write-side
// slots (IF/ID raw word, ID/EX and EX/MEM instructions) to NOPs,
// discarding any halt captured this cycle.
func memoryStage(read, write *Pipeline, mem *DataMemory, reg *RegisterFile) (redirected bool, err error) {
	insn := read.ExMem.Insn
	aluResult := read.ExMem.AluResult

	var memResult uint32
	if insn.Semantics.MemRead {
		memResult, err = mem.Read(uint32(aluResult), insn.Semantics.MemSize)
		if err != nil {
			return false, err
		}
	} else if insn.Semantics.MemWrite {
		if err := mem.Write(uint32(aluResult), insn.Semantics.MemSize, uint32(read.ExMem.Rs2)); err != nil {
			return false, err
		}
	}

	// A conditional branch whose ALU result is nonzero was not taken;
	// everything else with the branch line set always redirects
	if insn.Semantics.Branch && !(insn.Opcode == OpcodeBranch && aluResult != 0) {
		var target uint32
		if insn.Opcode == OpcodeJalr {
			target = uint32(aluResult) & 0xFFFFFFFE // LSB forced to 0
		} else {
			imm, ok := SignExtendedImmediate(&insn)
			if !ok {
				return false, fmt.Errorf("branch instruction 0x%08X at 0x%08X carries no immediate", insn.Raw, read.ExMem.PC)
			}
			target = read.ExMem.PC + uint32(imm)
		}
		reg.PC.Write(target)

		nop := NewNop()
		write.IfId.RawInsn = NopWord
		write.IdEx.Insn = nop
		write.ExMem.Insn = nop
		write.ExMem.Halt = false
		write.ExMem.HaltPC = 0
		redirected = true
	}

	write.MemWb = MemWbLatch{
		PC:        read.ExMem.PC,
		Insn:      insn,
		AluResult: aluResult,
		MemResult: memResult,
	}
	return redirected, nil
}

// writebackStage commits the retiring instruction's result to the
// register file. Writes to x0 are dropped by the register itself.
func writebackStage(read *Pipeline, reg *RegisterFile) error {
	insn := read.MemWb.Insn
	if !insn.Semantics.RegWrite {
		return nil
	}
	if !insn.Fields.Rd.Valid {
		return fmt.Errorf("instruction 0x%08X commits a register but has no rd field", insn.Raw)
	}

	var value uint32
	switch {
	case insn.Semantics.MemToReg:
		value = read.MemWb.MemResult
	case insn.Opcode == OpcodeLui:
		imm, _ := SignExtendedImmediate(&insn)
		value = uint32(imm)
	case insn.Opcode == OpcodeJal || insn.Opcode == OpcodeJalr:
		value = read.MemWb.PC + 4
	default:
		value = uint32(read.MemWb.AluResult)
	}

	reg.GPR[insn.Fields.Rd.Val].Write(value)
	return nil
}
