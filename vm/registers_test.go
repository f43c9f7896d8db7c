package vm

import "testing"

func TestRegisterZeroIsReadOnly(t *testing.T) {
	reg := NewRegisterFile(0)

	reg.GPR[0].Write(42)
	if got := reg.GPR[0].Read(); got != 0 {
		t.Errorf("x0 = %d after write, expected 0", got)
	}
}

func TestRegisterWrites(t *testing.T) {
	reg := NewRegisterFile(0x100)

	if got := reg.PC.Read(); got != 0x100 {
		t.Errorf("PC = 0x%X, expected 0x100", got)
	}

	for i := 1; i < 32; i++ {
		reg.GPR[i].Write(uint32(i * 3))
	}
	for i := 1; i < 32; i++ {
		if got := reg.GPR[i].Read(); got != uint32(i*3) {
			t.Errorf("x%d = %d, expected %d", i, got, i*3)
		}
	}
}

func TestRegisterFileReset(t *testing.T) {
	reg := NewRegisterFile(0)
	reg.GPR[5].Write(99)
	reg.PC.Write(0x40)

	reg.Reset(0)

	if reg.GPR[5].Read() != 0 || reg.PC.Read() != 0 {
		t.Errorf("reset left x5=%d pc=0x%X", reg.GPR[5].Read(), reg.PC.Read())
	}
}
