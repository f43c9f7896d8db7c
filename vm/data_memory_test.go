package vm

import "testing"

func TestDataMemoryBytes(t *testing.T) {
	// A byte written at each offset lands in the right lane of the
	// backing word and leaves the others untouched
	for offset := uint32(0); offset < 4; offset++ {
		mem := NewDataMemory(2)

		got, err := mem.Read(offset, 1)
		if err != nil {
			t.Fatalf("offset %d: read failed: %v", offset, err)
		}
		if got != 0 {
			t.Errorf("offset %d: fresh memory reads %d", offset, got)
		}

		if err := mem.Write(offset, 1, 0xFF); err != nil {
			t.Fatalf("offset %d: write failed: %v", offset, err)
		}
		word, err := mem.Read(0, 4)
		if err != nil {
			t.Fatalf("offset %d: word read failed: %v", offset, err)
		}
		if want := uint32(0xFF) << (8 * offset); word != want {
			t.Errorf("offset %d: word = 0x%08X, expected 0x%08X", offset, word, want)
		}
	}
}

func TestDataMemoryHalfwords(t *testing.T) {
	for _, addr := range []uint32{4, 6} {
		mem := NewDataMemory(2)

		if err := mem.Write(addr, 2, 0xF0F0); err != nil {
			t.Fatalf("addr %d: write failed: %v", addr, err)
		}
		got, err := mem.Read(addr, 2)
		if err != nil {
			t.Fatalf("addr %d: read failed: %v", addr, err)
		}
		if got != 0xF0F0 {
			t.Errorf("addr %d: read 0x%04X, expected 0xF0F0", addr, got)
		}
	}
}

func TestDataMemoryFullWord(t *testing.T) {
	mem := NewDataMemory(2)

	if err := mem.Write(4, 4, 0xF0F0F0F0); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := mem.Read(4, 4)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != 0xF0F0F0F0 {
		t.Errorf("read 0x%08X, expected 0xF0F0F0F0", got)
	}
}

func TestDataMemoryPreservesNeighbors(t *testing.T) {
	mem := NewDataMemory(2)

	if err := mem.Write(0, 4, 0xAABBCCDD); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := mem.Write(1, 1, 0x11); err != nil {
		t.Fatalf("byte write failed: %v", err)
	}

	word, _ := mem.Read(0, 4)
	if word != 0xAABB11DD {
		t.Errorf("word = 0x%08X, expected 0xAABB11DD", word)
	}
}

func TestDataMemoryWordBoundary(t *testing.T) {
	mem := NewDataMemory(2)

	// Halfword at 0x3 would span addresses 3 and 4
	if _, err := mem.Read(3, 2); err == nil {
		t.Error("expected error for halfword read crossing a word boundary")
	}
	// Word at 0x2 would span addresses 2 through 5
	if _, err := mem.Read(2, 4); err == nil {
		t.Error("expected error for word read crossing a word boundary")
	}
	if err := mem.Write(3, 2, 0); err == nil {
		t.Error("expected error for halfword write crossing a word boundary")
	}
}

func TestDataMemoryOutOfRange(t *testing.T) {
	// Two words cover byte addresses 0x0 through 0x7
	mem := NewDataMemory(2)

	if _, err := mem.Read(8, 1); err == nil {
		t.Error("expected error for read past the backing vector")
	}
	if err := mem.Write(8, 1, 1); err == nil {
		t.Error("expected error for write past the backing vector")
	}
}

func TestDataMemoryBadSize(t *testing.T) {
	mem := NewDataMemory(2)

	if _, err := mem.Read(0, 3); err == nil {
		t.Error("expected error for 3-byte read")
	}
	if err := mem.Write(0, 0, 1); err == nil {
		t.Error("expected error for 0-byte write")
	}
}

// Writing d then reading at the same (addr, size) returns d, for every
// size and every in-word placement
func TestDataMemoryRoundTrip(t *testing.T) {
	tests := []struct {
		addr uint32
		size int
		data uint32
	}{
		{100, 1, 0x7A},
		{101, 1, 0xFF},
		{102, 2, 0xBEEF},
		{101, 2, 0xFFFF}, // odd halfword within one word is accepted
		{104, 4, 0xDEADBEEF},
	}

	for _, tt := range tests {
		mem := NewDataMemory(64)
		if err := mem.Write(tt.addr, tt.size, tt.data); err != nil {
			t.Errorf("write(0x%X, %d): %v", tt.addr, tt.size, err)
			continue
		}
		got, err := mem.Read(tt.addr, tt.size)
		if err != nil {
			t.Errorf("read(0x%X, %d): %v", tt.addr, tt.size, err)
			continue
		}
		if got != tt.data {
			t.Errorf("round trip (0x%X, %d) = 0x%X, expected 0x%X", tt.addr, tt.size, got, tt.data)
		}
	}
}
