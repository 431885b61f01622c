package emulator

import (
	"bytes"
	"testing"
)

func TestInterconnectMirrors(t *testing.T) {
	inter := NewInterconnect(nil, nil)

	inter.Store32(0x02000010, 0xdeadbeef)
	if v := inter.Load32(0x02040010); v != 0xdeadbeef {
		t.Errorf("EWRAM mirror reads 0x%08x", v)
	}

	inter.Store16(0x03007ffc, 0x1234)
	if v := inter.Load16(0x03fffffc); v != 0x1234 {
		t.Errorf("IWRAM mirror reads 0x%04x", v)
	}

	// the last 32KB of the VRAM mirror repeat the object area
	inter.Store16(0x06010000, 0xabcd)
	if v := inter.Load16(0x06018000); v != 0xabcd {
		t.Errorf("VRAM mirror reads 0x%04x", v)
	}
}

func TestInterconnectByteWrites(t *testing.T) {
	inter := NewInterconnect(nil, nil)

	inter.Store8(0x05000001, 0x12)
	if v := inter.Load16(0x05000000); v != 0x1212 {
		t.Errorf("palette byte write gave 0x%04x", v)
	}

	inter.Store8(0x06000000, 0x34)
	if v := inter.Load16(0x06000000); v != 0x3434 {
		t.Errorf("BG VRAM byte write gave 0x%04x", v)
	}

	inter.Store8(0x06010000, 0x56)
	if v := inter.Load16(0x06010000); v != 0 {
		t.Errorf("OBJ VRAM byte write was not ignored")
	}

	inter.Store8(0x07000000, 0x78)
	if v := inter.Load16(0x07000000); v != 0 {
		t.Errorf("OAM byte write was not ignored")
	}

	inter.Store8(0x02000003, 0x9a)
	if v := inter.Load32(0x02000000); v != 0x9a000000 {
		t.Errorf("EWRAM byte write gave 0x%08x", v)
	}
}

func TestInterconnectSRAM(t *testing.T) {
	inter := NewInterconnect(nil, nil)

	inter.Store16(0x0e000000, 0x1234)
	if v := inter.Load8(0x0e000000); v != 0x34 {
		t.Errorf("SRAM stored 0x%02x", v)
	}
	if v := inter.Load32(0x0e000000); v != 0x34343434 {
		t.Errorf("SRAM word read 0x%08x", v)
	}
}

func TestInterconnectCartridge(t *testing.T) {
	data := make([]byte, 0x200)
	data[0x100] = 0x78
	data[0x101] = 0x56
	data[0x102] = 0x34
	data[0x103] = 0x12
	cart, err := LoadROM(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	inter := NewInterconnect(nil, cart)

	if v := inter.Load32(0x08000100); v != 0x12345678 {
		t.Errorf("ROM read 0x%08x", v)
	}
	// wait state mirrors
	if v := inter.Load32(0x0a000100); v != 0x12345678 {
		t.Errorf("ROM mirror read 0x%08x", v)
	}
	// writes are ignored
	inter.Store32(0x08000100, 0)
	if v := inter.Load32(0x08000100); v != 0x12345678 {
		t.Errorf("ROM was written")
	}
	// past the end of the ROM
	if v := inter.Load16(0x08001000); v != 0x0800 {
		t.Errorf("open bus read 0x%04x", v)
	}
}

func TestInterconnectInterruptRegisters(t *testing.T) {
	gba, err := NewGBA(Options{})
	if err != nil {
		t.Fatal(err)
	}
	inter := gba.Inter

	inter.Store16(0x04000200, 0xffff)
	if v := inter.Load16(0x04000200); v != 0x3fff {
		t.Errorf("IE reads 0x%04x", v)
	}

	gba.Irq.SetHigh(INTERRUPT_VBLANK)
	gba.Irq.SetHigh(INTERRUPT_TIMER0)
	if v := inter.Load16(0x04000202); v != 1<<INTERRUPT_VBLANK|1<<INTERRUPT_TIMER0 {
		t.Errorf("IF reads 0x%04x", v)
	}

	// writing 1 acknowledges
	inter.Store16(0x04000202, 1<<INTERRUPT_VBLANK)
	if v := inter.Load16(0x04000202); v != 1<<INTERRUPT_TIMER0 {
		t.Errorf("IF after acknowledge reads 0x%04x", v)
	}
	inter.Store8(0x04000202, 1<<INTERRUPT_TIMER0)
	if gba.Irq.Flags != 0 {
		t.Errorf("byte acknowledge failed")
	}

	inter.Store32(0x04000208, 1)
	if !gba.Irq.Master || inter.Load8(0x04000208) != 1 {
		t.Errorf("IME not set")
	}
}

func TestInterconnectIORegisters(t *testing.T) {
	gba, err := NewGBA(Options{})
	if err != nil {
		t.Fatal(err)
	}
	inter := gba.Inter

	// DISPCNT through two byte writes
	inter.Store8(0x04000000, 0x03)
	inter.Store8(0x04000001, 0x04)
	if gba.Lcd.Mode != BG_MODE_BITMAP || !gba.Lcd.Bg2Enable {
		t.Errorf("DISPCNT byte writes lost: 0x%04x", gba.Lcd.DisplayControl)
	}

	// timer reload and control with a single word write
	inter.Store32(0x04000100, 0x00c0abcd)
	if gba.Timers.Timers[0].Reload != 0xabcd || !gba.Timers.Timers[0].Enable {
		t.Errorf("timer word write lost")
	}
	if v := inter.Load16(0x04000100); v != 0xabcd {
		t.Errorf("timer counter reads 0x%04x", v)
	}

	// KEYINPUT is read through the keypad
	if v := inter.Load16(0x04000130); v != KEYS_RELEASED {
		t.Errorf("KEYINPUT reads 0x%04x", v)
	}

	// registers without a peripheral read back
	inter.Store16(0x04000050, 0x1234)
	if v := inter.Load16(0x04000050); v != 0x1234 {
		t.Errorf("BLDCNT reads 0x%04x", v)
	}
}

func TestInterconnectHalt(t *testing.T) {
	gba, err := NewGBA(Options{})
	if err != nil {
		t.Fatal(err)
	}

	gba.Inter.Store8(0x04000301, 0)
	if !gba.Cpu.Halted {
		t.Errorf("HALTCNT write did not halt the CPU")
	}
}

func TestInterconnectPostFlag(t *testing.T) {
	assert := func(v bool) {
		if !v {
			t.Helper()
			t.Fatal("assertion failed")
		}
	}

	gba, err := NewGBA(Options{})
	if err != nil {
		t.Fatal(err)
	}

	// the BIOS sets POSTFLG with a byte store
	gba.Inter.Store8(0x04000300, 1)
	assert(!gba.Cpu.Halted)
	assert(gba.Inter.Load8(0x04000300) == 1)

	// a halfword store reaches HALTCNT through the high byte
	gba.Inter.Store16(0x04000300, 0x0001)
	assert(gba.Cpu.Halted)
}
