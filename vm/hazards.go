package vm

// Data hazard detection: pure predicates over the current cycle's
// read-side latches. A writer whose destination is x0 (or absent) never
// forwards.

// writesTo reports whether insn commits a register equal to src.
// Both fields must be present and the destination nonzero.
func writesTo(insn *Instruction, src Field) bool {
	rd := insn.Fields.Rd
	return insn.Semantics.RegWrite &&
		rd.Valid && rd.Val != 0 &&
		src.Valid && rd.Val == src.Val
}

// ExHazardSrc1 reports that ALU src1 must be forwarded from the previous
// ALU result in EX/MEM
func ExHazardSrc1(p *Pipeline) bool {
	return writesTo(&p.ExMem.Insn, p.IdEx.Insn.Fields.Rs1)
}

// ExHazardSrc2 reports that ALU src2 must be forwarded from the previous
// ALU result in EX/MEM
func ExHazardSrc2(p *Pipeline) bool {
	return writesTo(&p.ExMem.Insn, p.IdEx.Insn.Fields.Rs2)
}

// MemHazardSrc1 reports that ALU src1 must be forwarded from MEM/WB.
// An EX/MEM forward for the same source takes precedence.
func MemHazardSrc1(p *Pipeline) bool {
	return !ExHazardSrc1(p) && writesTo(&p.MemWb.Insn, p.IdEx.Insn.Fields.Rs1)
}

// MemHazardSrc2 reports that ALU src2 must be forwarded from MEM/WB
func MemHazardSrc2(p *Pipeline) bool {
	return !ExHazardSrc2(p) && writesTo(&p.MemWb.Insn, p.IdEx.Insn.Fields.Rs2)
}

// LoadHazard reports a load-use hazard: the load in ID/EX produces a
// register that the still-undecoded instruction in IF/ID consumes, which
// forwarding alone cannot satisfy. The younger instruction has not been
// decoded yet, so its source registers are extracted from the raw word.
func LoadHazard(p *Pipeline) bool {
	if !p.IdEx.Insn.Semantics.MemRead {
		return false
	}
	rd := p.IdEx.Insn.Fields.Rd
	if !rd.Valid {
		return false
	}

	ifIdRs1 := (p.IfId.RawInsn & Rs1Mask) >> Rs1Shift
	ifIdRs2 := (p.IfId.RawInsn & Rs2Mask) >> Rs2Shift

	return rd.Val == ifIdRs1 || rd.Val == ifIdRs2
}

// WbHazard reports that the instruction retiring through MEM/WB this cycle
// writes the register the decoding instruction reads as src, so decode
// must take the retiring value instead of the (stale) register file read
func WbHazard(memWb *MemWbLatch, src Field) bool {
	return writesTo(&memWb.Insn, src)
}

// WbForwardValue is the value the retiring MEM/WB instruction is about to
// commit: the memory result for a load, the ALU result otherwise
func WbForwardValue(memWb *MemWbLatch) int32 {
	if memWb.Insn.Semantics.MemRead {
		return int32(memWb.MemResult)
	}
	return memWb.AluResult
}
