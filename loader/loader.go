// Package loader reads objdump-style disassembly text into a read-only
// instruction memory.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/djanderson/riscv-5stage-simulator/vm"
)

// Disassembly lines look like
//
//	16c:	00 15 05 13    addi x10 , x10 , 1
//
// an indented hex address, a colon, and four hex byte pairs. Anything
// after the fourth byte is ignored; lines that do not match (section
// headers, symbol labels, blanks) are skipped.
var lineRE = regexp.MustCompile(
	`^[[:blank:]]+(?P<addr>[[:xdigit:]]+):[[:blank:]]+` +
		`(?P<b1>[[:xdigit:]]{2})[[:blank:]]` +
		`(?P<b2>[[:xdigit:]]{2})[[:blank:]]` +
		`(?P<b3>[[:xdigit:]]{2})[[:blank:]]` +
		`(?P<b4>[[:xdigit:]]{2}).*$`)

// drainWords pad the image behind the halt sentinel so the pipeline's
// fetch stage cannot run off the end of the image before the sentinel
// retires through execute
const drainWords = 3

// LoadFile reads a disassembly file and returns its instruction memory
func LoadFile(path string) (*vm.InstructionMemory, error) {
	f, err := os.Open(path) // #nosec G304 -- user-specified program path
	if err != nil {
		return nil, fmt.Errorf("cannot open program: %w", err)
	}
	defer f.Close()

	mem, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mem, nil
}

// Load reads disassembly text and returns its instruction memory.
// Matched lines must appear in address order starting at 0, one word
// apart; the N-th matched line's address must equal 4*(N-1). The halt
// sentinel is appended after the last instruction.
func Load(r io.Reader) (*vm.InstructionMemory, error) {
	scanner := bufio.NewScanner(r)
	var words []uint32

	lineno := 0
	for scanner.Scan() {
		lineno++
		m := lineRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}

		addr, err := strconv.ParseUint(m[1], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad address %q: %w", lineno, m[1], err)
		}
		if want := uint64(len(words) * 4); addr != want {
			return nil, fmt.Errorf("line %d: address 0x%X out of sequence (expected 0x%X)", lineno, addr, want)
		}

		var word uint32
		for _, capture := range m[2:6] {
			b, err := strconv.ParseUint(capture, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad byte %q: %w", lineno, capture, err)
			}
			word = word<<8 | uint32(b)
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	words = append(words, vm.HaltWord)
	for i := 0; i < drainWords; i++ {
		words = append(words, vm.NopWord)
	}

	return vm.NewInstructionMemory(words), nil
}
