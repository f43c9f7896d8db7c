package loader

import (
	"strings"
	"testing"

	"github.com/djanderson/riscv-5stage-simulator/vm"
)

func TestLoadMatchedLines(t *testing.T) {
	input := strings.Join([]string{
		"prog.elf:     file format elf32-littleriscv",
		"",
		"Disassembly of section .text:",
		"",
		"00000000 <_start>:",
		"     0:\t00 15 05 13    addi x10 , x10 , 1",
		"     4:\t00 00 00 13    nop",
		"1c4 <FAIL____src_ins_assembly_test_s>:",
		"     8:\t40 30 81 33    sub x2 , x1 , x3",
	}, "\n")

	mem, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Three instructions, the halt sentinel, and the drain padding
	if mem.Len() != 3+1+3 {
		t.Fatalf("image length = %d, expected 7", mem.Len())
	}

	for i, want := range []uint32{0x00150513, 0x00000013, 0x40308133, vm.HaltWord} {
		got, err := mem.Read(uint32(i * 4))
		if err != nil {
			t.Fatalf("read at 0x%X failed: %v", i*4, err)
		}
		if got != want {
			t.Errorf("word %d = 0x%08X, expected 0x%08X", i, got, want)
		}
	}
}

func TestLoadIgnoresNonMatchingLines(t *testing.T) {
	input := strings.Join([]string{
		"random text",
		"0: 00 00 00 13 not indented, ignored",
		"     not-an-addr:\t00 00 00 13",
	}, "\n")

	mem, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	// Only the appended halt and padding
	if mem.Len() != 4 {
		t.Errorf("image length = %d, expected 4", mem.Len())
	}

	got, _ := mem.Read(0)
	if got != vm.HaltWord {
		t.Errorf("first word = 0x%08X, expected the halt sentinel", got)
	}
}

func TestLoadAddressOutOfSequence(t *testing.T) {
	input := strings.Join([]string{
		"     0:\t00 00 00 13    nop",
		"     8:\t00 00 00 13    nop", // expected address 4
	}, "\n")

	if _, err := Load(strings.NewReader(input)); err == nil {
		t.Error("expected an error for an out-of-sequence address")
	}
}

func TestLoadAddressNotStartingAtZero(t *testing.T) {
	input := "     4:\t00 00 00 13    nop\n"

	if _, err := Load(strings.NewReader(input)); err == nil {
		t.Error("expected an error when the first address is not 0")
	}
}

func TestLoadEmptyInput(t *testing.T) {
	mem, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	haltPC, err := vm.Run(mem, vm.NewDataMemory(16), vm.NewRegisterFile(0))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if haltPC != 0 {
		t.Errorf("halt PC = 0x%X, expected 0", haltPC)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("testdata/does_not_exist.txt"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
