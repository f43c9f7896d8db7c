package vm

import "fmt"

// RunReference executes a program one instruction per step, with no
// pipelining, forwarding or stalls. It is the oracle the cycle-accurate
// simulator is checked against: both must leave identical register files
// and data memories and halt at the same address.
func RunReference(insns *InstructionMemory, mem *DataMemory, reg *RegisterFile) (uint32, error) {
	return RunReferenceBounded(insns, mem, reg, DefaultMaxCycles)
}

// RunReferenceBounded is RunReference with an explicit instruction limit
func RunReferenceBounded(insns *InstructionMemory, mem *DataMemory, reg *RegisterFile, limit uint64) (uint32, error) {
	for executed := uint64(0); executed < limit; executed++ {
		pc := reg.PC.Read()
		reg.PC.Write(pc + 4)

		raw, err := insns.Read(pc)
		if err != nil {
			return 0, err
		}
		insn, err := Decode(raw)
		if err != nil {
			return 0, fmt.Errorf("at 0x%08X: %w", pc, err)
		}

		var rs1, rs2 int32
		if insn.Fields.Rs1.Valid {
			rs1 = int32(reg.GPR[insn.Fields.Rs1.Val].Read())
		}
		if insn.Fields.Rs2.Valid {
			rs2 = int32(reg.GPR[insn.Fields.Rs2.Val].Read())
		}

		src1 := rs1
		src2 := rs2
		if insn.Semantics.AluSrc == AluSrcImm {
			imm, ok := SignExtendedImmediate(&insn)
			if !ok {
				return 0, fmt.Errorf("instruction 0x%08X at 0x%08X selects an immediate operand but carries none", raw, pc)
			}
			src2 = imm
		}
		if insn.Opcode == OpcodeAuiPc {
			src1 = int32(pc)
		}
		aluResult := Alu(insn.Semantics.AluOp, src1, src2)

		var memResult uint32
		if insn.Semantics.MemRead {
			memResult, err = mem.Read(uint32(aluResult), insn.Semantics.MemSize)
			if err != nil {
				return 0, fmt.Errorf("at 0x%08X: %w", pc, err)
			}
		} else if insn.Semantics.MemWrite {
			if err := mem.Write(uint32(aluResult), insn.Semantics.MemSize, uint32(rs2)); err != nil {
				return 0, fmt.Errorf("at 0x%08X: %w", pc, err)
			}
		}

		if insn.Semantics.RegWrite && insn.Fields.Rd.Valid {
			var value uint32
			switch {
			case insn.Semantics.MemToReg:
				value = memResult
			case insn.Opcode == OpcodeLui:
				imm, _ := SignExtendedImmediate(&insn)
				value = uint32(imm)
			case insn.Opcode == OpcodeJal || insn.Opcode == OpcodeJalr:
				value = pc + 4
			default:
				value = uint32(aluResult)
			}
			reg.GPR[insn.Fields.Rd.Val].Write(value)
		}

		if insn.Function == FnHalt {
			return pc, nil
		}

		if insn.Semantics.Branch && !(insn.Opcode == OpcodeBranch && aluResult != 0) {
			if insn.Opcode == OpcodeJalr {
				reg.PC.Write(uint32(aluResult) & 0xFFFFFFFE)
			} else {
				imm, ok := SignExtendedImmediate(&insn)
				if !ok {
					return 0, fmt.Errorf("branch instruction 0x%08X at 0x%08X carries no immediate", raw, pc)
				}
				reg.PC.Write(pc + uint32(imm))
			}
		}
	}

	return 0, fmt.Errorf("no halt after %d instructions (PC 0x%08X)", limit, reg.PC.Read())
}
