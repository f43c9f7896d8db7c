package vm

import "testing"

// program appends the halt sentinel and drain padding the way the loader
// does, so test streams read like loader output
func program(words ...uint32) *InstructionMemory {
	image := append([]uint32{}, words...)
	image = append(image, HaltWord, NopWord, NopWord, NopWord)
	return NewInstructionMemory(image)
}

// Forwarding from EX/MEM and MEM/WB, including the store-data path and
// the write-back-to-decode forward.
//
// See Patterson & Hennessy pgs 297-302 for a description of this
// sequence and the associated hazard detection logic.
func TestForwarding(t *testing.T) {
	insns := program(
		0x40308133, // sub x2, x1, x3
		0x00517633, // and x12, x2, x5
		0x002366B3, // or x13, x6, x2
		0x00210733, // add x14, x2, x2
		0x06F11223, // sh x15, 100(x2)
		NopWord,
		NopWord,
		NopWord,
	)
	mem := NewDataMemory(1024)
	reg := NewRegisterFile(0)
	reg.GPR[1].Write(2)
	reg.GPR[3].Write(1)
	reg.GPR[15].Write(0xFFFF)

	haltPC, err := Run(insns, mem, reg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if haltPC != 0x20 {
		t.Errorf("halt PC = 0x%X, expected 0x20", haltPC)
	}
	for _, tt := range []struct {
		reg  int
		want uint32
	}{{2, 1}, {3, 1}, {12, 0}, {13, 1}, {14, 2}} {
		if got := reg.GPR[tt.reg].Read(); got != tt.want {
			t.Errorf("x%d = %d, expected %d", tt.reg, got, tt.want)
		}
	}

	// sh x15, 100(x2) with x2 == 1 stores the halfword at byte address 101
	got, err := mem.Read(101, 2)
	if err != nil {
		t.Fatalf("memory read failed: %v", err)
	}
	if got != 0xFFFF {
		t.Errorf("halfword at 101 = 0x%X, expected 0xFFFF", got)
	}
}

// Load-use hazard: exactly one bubble, and the consumer's operand comes
// from data memory.
//
// See Patterson & Hennessy pgs 303-306.
func TestLoadUseBubble(t *testing.T) {
	insns := program(
		0x0140A103, // lw x2, 20(x1)
		0x00517233, // and x4, x2, x5
		0x00616433, // or x8, x2, x6
		0x002204B3, // add x9, x4, x2
		0x407300B3, // sub x1, x6, x7
		NopWord,
		NopWord,
		NopWord,
	)
	mem := NewDataMemory(1024)
	if err := mem.Write(20, 4, 5); err != nil {
		t.Fatalf("memory setup failed: %v", err)
	}
	reg := NewRegisterFile(0)
	reg.GPR[4].Write(1)
	reg.GPR[5].Write(3)
	reg.GPR[6].Write(2)
	reg.GPR[7].Write(1)

	sim := NewSimulator(insns, mem, reg)
	sim.Stats = NewStatistics()

	haltPC, err := sim.Run()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if haltPC != 0x20 {
		t.Errorf("halt PC = 0x%X, expected 0x20", haltPC)
	}
	for _, tt := range []struct {
		reg  int
		want uint32
	}{{4, 1}, {8, 7}, {9, 6}, {1, 1}} {
		if got := reg.GPR[tt.reg].Read(); got != tt.want {
			t.Errorf("x%d = %d, expected %d", tt.reg, got, tt.want)
		}
	}
	if sim.Stats.Stalls != 1 {
		t.Errorf("stalls = %d, expected exactly 1 bubble", sim.Stats.Stalls)
	}
}

// A stream of N NOPs halts at 4N
func TestHaltAddress(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		words := make([]uint32, n)
		for i := range words {
			words[i] = NopWord
		}

		haltPC, err := Run(program(words...), NewDataMemory(16), NewRegisterFile(0))
		if err != nil {
			t.Fatalf("n=%d: run failed: %v", n, err)
		}
		if haltPC != uint32(4*n) {
			t.Errorf("n=%d: halt PC = 0x%X, expected 0x%X", n, haltPC, 4*n)
		}
	}
}

// Writes to x0 are silently dropped
func TestRegisterZeroProtection(t *testing.T) {
	insns := program(0x02A00013) // addi x0, x0, 42
	reg := NewRegisterFile(0)

	if _, err := Run(insns, NewDataMemory(16), reg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := reg.GPR[0].Read(); got != 0 {
		t.Errorf("x0 = %d, expected 0", got)
	}
}

// A taken branch flushes the three in-flight slots behind it
func TestBranchAndFlush(t *testing.T) {
	insns := program(
		0x00000463, // beq x0, x0, +8
		0x00100293, // addi x5, x0, 1 -- flushed
		0x00200293, // addi x5, x0, 2 -- branch target
	)
	reg := NewRegisterFile(0)

	haltPC, err := Run(insns, NewDataMemory(16), reg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if haltPC != 12 {
		t.Errorf("halt PC = 0x%X, expected 0xC", haltPC)
	}
	if got := reg.GPR[5].Read(); got != 2 {
		t.Errorf("x5 = %d, expected 2 (the flushed instruction must not commit)", got)
	}
}

// JALR clears the low bit of the computed target
func TestJalrRedirect(t *testing.T) {
	insns := program(
		0x00D00093, // addi x1, x0, 13
		0x00008167, // jalr x2, 0(x1) -- target 13 & ~1 = 12, the halt
		0x00100513, // addi x10, x0, 1 -- flushed
	)
	reg := NewRegisterFile(0)

	haltPC, err := Run(insns, NewDataMemory(16), reg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if haltPC != 12 {
		t.Errorf("halt PC = 0x%X, expected 0xC", haltPC)
	}
	if got := reg.GPR[2].Read(); got != 8 {
		t.Errorf("x2 = %d, expected link value 8", got)
	}
	if got := reg.GPR[10].Read(); got != 0 {
		t.Errorf("x10 = %d, expected 0 (wrong-path instruction committed)", got)
	}
}

// AUIPC adds its upper immediate to its own PC
func TestAuiPc(t *testing.T) {
	insns := program(
		NopWord,
		0x00001297, // auipc x5, 1 -- at PC 4, so x5 = 4 + 0x1000
	)
	reg := NewRegisterFile(0)

	if _, err := Run(insns, NewDataMemory(16), reg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := reg.GPR[5].Read(); got != 0x1004 {
		t.Errorf("x5 = 0x%X, expected 0x1004", got)
	}
}

// Back-to-back and two-apart RAW chains resolve by forwarding alone
func TestRawChainsNoStall(t *testing.T) {
	insns := program(
		0x00700093, // addi x1, x0, 7
		0x00800113, // addi x2, x0, 8
		0x002081B3, // add x3, x1, x2
		0x00118233, // add x4, x3, x1
		0x004182B3, // add x5, x3, x4
	)
	reg := NewRegisterFile(0)
	sim := NewSimulator(insns, NewDataMemory(16), reg)
	sim.Stats = NewStatistics()

	if _, err := sim.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, tt := range []struct {
		reg  int
		want uint32
	}{{3, 15}, {4, 22}, {5, 37}} {
		if got := reg.GPR[tt.reg].Read(); got != tt.want {
			t.Errorf("x%d = %d, expected %d", tt.reg, got, tt.want)
		}
	}
	if sim.Stats.Stalls != 0 {
		t.Errorf("stalls = %d, expected none for a non-load producer", sim.Stats.Stalls)
	}
}

// The cycle-accurate simulator and the reference must agree on final
// architectural state
func TestAgainstReference(t *testing.T) {
	tests := []struct {
		name  string
		words []uint32
		regs  map[int]uint32
		mem   map[uint32]uint32
	}{
		{
			name:  "forwarding",
			words: []uint32{0x40308133, 0x00517633, 0x002366B3, 0x00210733, 0x06F11223, NopWord, NopWord, NopWord},
			regs:  map[int]uint32{1: 2, 3: 1, 15: 0xFFFF},
		},
		{
			name:  "load-use",
			words: []uint32{0x0140A103, 0x00517233, 0x00616433, 0x002204B3, 0x407300B3, NopWord, NopWord, NopWord},
			regs:  map[int]uint32{4: 1, 5: 3, 6: 2, 7: 1},
			mem:   map[uint32]uint32{20: 5},
		},
		{
			name:  "branch-flush",
			words: []uint32{0x00000463, 0x00100293, 0x00200293},
		},
		{
			name:  "jalr",
			words: []uint32{0x00D00093, 0x00008167, 0x00100513},
		},
	}

	for _, tt := range tests {
		insns := program(tt.words...)

		memCA, memIA := NewDataMemory(1024), NewDataMemory(1024)
		regCA, regIA := NewRegisterFile(0), NewRegisterFile(0)
		for r, v := range tt.regs {
			regCA.GPR[r].Write(v)
			regIA.GPR[r].Write(v)
		}
		for addr, v := range tt.mem {
			if err := memCA.Write(addr, 4, v); err != nil {
				t.Fatal(err)
			}
			if err := memIA.Write(addr, 4, v); err != nil {
				t.Fatal(err)
			}
		}

		haltCA, err := Run(insns, memCA, regCA)
		if err != nil {
			t.Fatalf("%s: pipelined run failed: %v", tt.name, err)
		}
		haltIA, err := RunReference(insns, memIA, regIA)
		if err != nil {
			t.Fatalf("%s: reference run failed: %v", tt.name, err)
		}

		if haltCA != haltIA {
			t.Errorf("%s: halt PCs differ: 0x%X vs 0x%X", tt.name, haltCA, haltIA)
		}
		for r := 0; r < 32; r++ {
			if regCA.GPR[r].Read() != regIA.GPR[r].Read() {
				t.Errorf("%s: x%d differs: %d vs %d", tt.name, r, regCA.GPR[r].Read(), regIA.GPR[r].Read())
			}
		}
		for addr := uint32(0); addr < 4096; addr += 4 {
			ca, _ := memCA.Read(addr, 4)
			ia, _ := memIA.Read(addr, 4)
			if ca != ia {
				t.Errorf("%s: memory at 0x%X differs: 0x%X vs 0x%X", tt.name, addr, ca, ia)
			}
		}
	}
}

// Stepping after halt stays halted
func TestStepAfterHalt(t *testing.T) {
	sim := NewSimulator(program(NopWord), NewDataMemory(16), NewRegisterFile(0))

	if _, err := sim.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	halted, err := sim.Step()
	if err != nil {
		t.Fatalf("step after halt failed: %v", err)
	}
	if !halted || !sim.Halted() {
		t.Error("simulator must stay halted")
	}
}

// Reset rewinds clock, latches and registers
func TestSimulatorReset(t *testing.T) {
	sim := NewSimulator(program(0x00700093, NopWord, NopWord), NewDataMemory(16), NewRegisterFile(0))

	if _, err := sim.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	sim.Reset()

	if sim.Halted() || sim.Clock() != 0 {
		t.Errorf("reset left halted=%v clock=%d", sim.Halted(), sim.Clock())
	}
	if sim.Reg.GPR[1].Read() != 0 {
		t.Errorf("reset left x1=%d", sim.Reg.GPR[1].Read())
	}

	// The rerun reproduces the first run
	haltPC, err := sim.Run()
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if haltPC != 12 || sim.Reg.GPR[1].Read() != 7 {
		t.Errorf("rerun: halt=0x%X x1=%d", haltPC, sim.Reg.GPR[1].Read())
	}
}

// A run without a halt sentinel in reach aborts at the cycle limit
func TestMaxCycles(t *testing.T) {
	// beq x0, x0, 0 loops forever
	insns := program(0x00000063)
	sim := NewSimulator(insns, NewDataMemory(16), NewRegisterFile(0))
	sim.MaxCycles = 100

	if _, err := sim.Run(); err == nil {
		t.Error("expected an error from the cycle limit")
	}
}
