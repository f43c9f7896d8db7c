package vm

import "fmt"

// InstructionMemory is a read-only, word-addressed fetch source. The image
// is immutable after construction; the loader appends the halt sentinel
// after the last program word, followed by NOP drain padding.
type InstructionMemory struct {
	words []uint32
}

// NewInstructionMemory wraps a word image in a read-only instruction memory
func NewInstructionMemory(words []uint32) *InstructionMemory {
	image := make([]uint32, len(words))
	copy(image, words)
	return &InstructionMemory{words: image}
}

// Read fetches the word at byte address addr
func (m *InstructionMemory) Read(addr uint32) (uint32, error) {
	wordAddr := addr >> 2
	if wordAddr >= uint32(len(m.words)) {
		return 0, fmt.Errorf("instruction fetch at 0x%08X out of range (%d words loaded)", addr, len(m.words))
	}
	return m.words[wordAddr], nil
}

// Len returns the number of words in the image
func (m *InstructionMemory) Len() int {
	return len(m.words)
}
