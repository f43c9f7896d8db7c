package vm

// SignExtendedImmediate sign extends the instruction's packed immediate to
// 32 bits. The packed width depends on the opcode: U-format immediates are
// already full width, JAL/JALR carry a 20-bit byte offset, branches a
// 13-bit offset, and the remaining I/S immediates are 12 bits wide. The
// extension is a left shift to the top of the word followed by an
// arithmetic right shift.
//
// Returns false when the format carries no immediate.
func SignExtendedImmediate(insn *Instruction) (int32, bool) {
	if !insn.Fields.Imm.Valid {
		return 0, false
	}

	var shift uint
	switch insn.Opcode {
	case OpcodeLui, OpcodeAuiPc, OpcodeHalt:
		shift = 0
	case OpcodeJal, OpcodeJalr:
		shift = 12
	case OpcodeBranch:
		shift = 19
	default:
		shift = 20
	}

	return int32(insn.Fields.Imm.Val<<shift) >> shift, true
}
