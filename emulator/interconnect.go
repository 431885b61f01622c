package emulator

// Size of the I/O register block
const IO_SIZE = 0x400

// I/O register offsets handled by the interconnect itself
const (
	REG_IE      = 0x200 // Interrupt enable
	REG_IF      = 0x202 // Interrupt request flags, write 1 to acknowledge
	REG_IME     = 0x208 // Interrupt master enable
	REG_POSTFLG = 0x300 // Set by the BIOS after the first boot (8 bit)
	REG_HALTCNT = 0x301 // Low power mode control (8 bit)
)

// Global interconnect. It stores all of the peripherals and decodes the
// memory map for every bus master
type Interconnect struct {
	Bios    *BIOS      // Basic input/output memory, may be nil
	Cart    *Cartridge // Game pak, may be nil
	Ewram   *RAM
	Iwram   *RAM
	Palette *RAM
	Vram    *RAM
	Oam     *RAM
	Sram    *RAM
	// Last value written to each I/O byte. Registers without a peripheral
	// behind them read back from here
	IO     [IO_SIZE]byte
	Irq    *IrqState
	Lcd    *LCD
	Dma    *DMA
	Timers *Timers
	Keypad *Keypad
	Sound  *Sound
	OnHalt func() // Called on HALTCNT writes
}

var _ Bus = (*Interconnect)(nil)

// Creates a new interconnect instance. Peripherals are attached by the
// machine once they exist, since most of them need the bus themselves
func NewInterconnect(bios *BIOS, cart *Cartridge) *Interconnect {
	inter := &Interconnect{
		Bios:    bios,
		Cart:    cart,
		Ewram:   NewRAM(EWRAM_SIZE),
		Iwram:   NewRAM(IWRAM_SIZE),
		Palette: NewRAM(PALETTE_SIZE),
		Vram:    NewRAM(128 * 1024),
		Oam:     NewRAM(OAM_SIZE),
		Sram:    NewRAM(SRAM_SIZE),
	}
	return inter
}

// The upper 32KB of the 128KB VRAM mirror repeat the object area
func vramOffset(addr uint32) uint32 {
	offset := VRAM_RANGE.Offset(addr) & 0x1ffff
	if offset >= VRAM_SIZE {
		offset -= 0x8000
	}
	return offset
}

// Returns a 32bit little endian value at `addr`. Unmapped addresses read
// as zero
func (inter *Interconnect) Load32(addr uint32) uint32 {
	switch {
	case BIOS_RANGE.Contains(addr):
		if inter.Bios != nil {
			return inter.Bios.Load32(BIOS_RANGE.Offset(addr))
		}
	case EWRAM_RANGE.Contains(addr):
		return inter.Ewram.Load32(EWRAM_RANGE.Offset(addr))
	case IWRAM_RANGE.Contains(addr):
		return inter.Iwram.Load32(IWRAM_RANGE.Offset(addr))
	case IO_RANGE.Contains(addr):
		offset := IO_RANGE.Offset(addr) &^ 3
		return uint32(inter.ioLoad16(offset)) | uint32(inter.ioLoad16(offset+2))<<16
	case PALETTE_RANGE.Contains(addr):
		return inter.Palette.Load32(PALETTE_RANGE.Offset(addr))
	case VRAM_RANGE.Contains(addr):
		return inter.Vram.Load32(vramOffset(addr))
	case OAM_RANGE.Contains(addr):
		return inter.Oam.Load32(OAM_RANGE.Offset(addr))
	case ROM_RANGE.Contains(addr):
		if inter.Cart != nil {
			return inter.Cart.Load32(ROM_RANGE.Offset(addr))
		}
		offset := ROM_RANGE.Offset(addr) &^ 3
		return uint32(openBus(offset)) | uint32(openBus(offset+2))<<16
	case SRAM_RANGE.Contains(addr):
		// 8 bit bus, the byte is repeated
		return uint32(inter.Sram.Load8(SRAM_RANGE.Offset(addr))) * 0x01010101
	}
	return 0
}

// Returns a 16bit little endian value at `addr`
func (inter *Interconnect) Load16(addr uint32) uint16 {
	switch {
	case BIOS_RANGE.Contains(addr):
		if inter.Bios != nil {
			return inter.Bios.Load16(BIOS_RANGE.Offset(addr))
		}
	case EWRAM_RANGE.Contains(addr):
		return inter.Ewram.Load16(EWRAM_RANGE.Offset(addr))
	case IWRAM_RANGE.Contains(addr):
		return inter.Iwram.Load16(IWRAM_RANGE.Offset(addr))
	case IO_RANGE.Contains(addr):
		return inter.ioLoad16(IO_RANGE.Offset(addr) &^ 1)
	case PALETTE_RANGE.Contains(addr):
		return inter.Palette.Load16(PALETTE_RANGE.Offset(addr))
	case VRAM_RANGE.Contains(addr):
		return inter.Vram.Load16(vramOffset(addr))
	case OAM_RANGE.Contains(addr):
		return inter.Oam.Load16(OAM_RANGE.Offset(addr))
	case ROM_RANGE.Contains(addr):
		if inter.Cart != nil {
			return inter.Cart.Load16(ROM_RANGE.Offset(addr))
		}
		return openBus(ROM_RANGE.Offset(addr) &^ 1)
	case SRAM_RANGE.Contains(addr):
		return uint16(inter.Sram.Load8(SRAM_RANGE.Offset(addr))) * 0x0101
	}
	return 0
}

// Fetches the byte at `addr`
func (inter *Interconnect) Load8(addr uint32) uint8 {
	switch {
	case BIOS_RANGE.Contains(addr):
		if inter.Bios != nil {
			return inter.Bios.Load8(BIOS_RANGE.Offset(addr))
		}
	case EWRAM_RANGE.Contains(addr):
		return inter.Ewram.Load8(EWRAM_RANGE.Offset(addr))
	case IWRAM_RANGE.Contains(addr):
		return inter.Iwram.Load8(IWRAM_RANGE.Offset(addr))
	case IO_RANGE.Contains(addr):
		offset := IO_RANGE.Offset(addr)
		return uint8(inter.ioLoad16(offset&^1) >> ((offset & 1) * 8))
	case PALETTE_RANGE.Contains(addr):
		return inter.Palette.Load8(PALETTE_RANGE.Offset(addr))
	case VRAM_RANGE.Contains(addr):
		return inter.Vram.Load8(vramOffset(addr))
	case OAM_RANGE.Contains(addr):
		return inter.Oam.Load8(OAM_RANGE.Offset(addr))
	case ROM_RANGE.Contains(addr):
		if inter.Cart != nil {
			return inter.Cart.Load8(ROM_RANGE.Offset(addr))
		}
		offset := ROM_RANGE.Offset(addr)
		return uint8(openBus(offset&^1) >> ((offset & 1) * 8))
	case SRAM_RANGE.Contains(addr):
		return inter.Sram.Load8(SRAM_RANGE.Offset(addr))
	}
	return 0
}

// Stores a 32bit little endian word into `addr`. Writes to read only or
// unmapped areas are ignored
func (inter *Interconnect) Store32(addr uint32, val uint32) {
	switch {
	case EWRAM_RANGE.Contains(addr):
		inter.Ewram.Store32(EWRAM_RANGE.Offset(addr), val)
	case IWRAM_RANGE.Contains(addr):
		inter.Iwram.Store32(IWRAM_RANGE.Offset(addr), val)
	case IO_RANGE.Contains(addr):
		inter.ioStore32(IO_RANGE.Offset(addr)&^3, val)
	case PALETTE_RANGE.Contains(addr):
		inter.Palette.Store32(PALETTE_RANGE.Offset(addr), val)
	case VRAM_RANGE.Contains(addr):
		inter.Vram.Store32(vramOffset(addr), val)
	case OAM_RANGE.Contains(addr):
		inter.Oam.Store32(OAM_RANGE.Offset(addr), val)
	case SRAM_RANGE.Contains(addr):
		inter.Sram.Store8(SRAM_RANGE.Offset(addr), byte(val))
	}
}

// Stores a 16bit little endian value into `addr`
func (inter *Interconnect) Store16(addr uint32, val uint16) {
	switch {
	case EWRAM_RANGE.Contains(addr):
		inter.Ewram.Store16(EWRAM_RANGE.Offset(addr), val)
	case IWRAM_RANGE.Contains(addr):
		inter.Iwram.Store16(IWRAM_RANGE.Offset(addr), val)
	case IO_RANGE.Contains(addr):
		inter.ioStore16(IO_RANGE.Offset(addr)&^1, val)
	case PALETTE_RANGE.Contains(addr):
		inter.Palette.Store16(PALETTE_RANGE.Offset(addr), val)
	case VRAM_RANGE.Contains(addr):
		inter.Vram.Store16(vramOffset(addr), val)
	case OAM_RANGE.Contains(addr):
		inter.Oam.Store16(OAM_RANGE.Offset(addr), val)
	case SRAM_RANGE.Contains(addr):
		inter.Sram.Store8(SRAM_RANGE.Offset(addr), byte(val))
	}
}

// Sets the byte at `addr`. Palette and background VRAM only take 16 bit
// writes, a byte is written to both halves. Byte writes to OAM and object
// VRAM are ignored
func (inter *Interconnect) Store8(addr uint32, val uint8) {
	doubled := uint16(val) * 0x0101

	switch {
	case EWRAM_RANGE.Contains(addr):
		inter.Ewram.Store8(EWRAM_RANGE.Offset(addr), val)
	case IWRAM_RANGE.Contains(addr):
		inter.Iwram.Store8(IWRAM_RANGE.Offset(addr), val)
	case IO_RANGE.Contains(addr):
		inter.ioStore8(IO_RANGE.Offset(addr), val)
	case PALETTE_RANGE.Contains(addr):
		inter.Palette.Store16(PALETTE_RANGE.Offset(addr), doubled)
	case VRAM_RANGE.Contains(addr):
		if offset := vramOffset(addr); offset < 0x10000 {
			inter.Vram.Store16(offset, doubled)
		}
	case SRAM_RANGE.Contains(addr):
		inter.Sram.Store8(SRAM_RANGE.Offset(addr), val)
	}
}

func inRegisters(offset, base, size uint32) bool {
	return offset >= base && offset < base+size
}

// Returns the raw halfword at `offset` in the I/O shadow
func (inter *Interconnect) ioRaw16(offset uint32) uint16 {
	return uint16(inter.IO[offset]) | uint16(inter.IO[offset+1])<<8
}

func (inter *Interconnect) ioLoad16(offset uint32) uint16 {
	switch {
	case offset < 0x8:
		if offset == 0x2 {
			break
		}
		return inter.Lcd.Load16(offset)
	case offset == SOUND_CONTROL:
		return inter.Sound.Control
	case inRegisters(offset, DMA_REGISTERS, 4*DMA_CHANNEL_STRIDE):
		return inter.Dma.Load16(offset - DMA_REGISTERS)
	case inRegisters(offset, TIMER_REGISTERS, 0x10):
		return inter.Timers.Load16(offset - TIMER_REGISTERS)
	case inRegisters(offset, KEYPAD_REGISTERS, 4):
		return inter.Keypad.Load16(offset - KEYPAD_REGISTERS)
	case offset == REG_IE:
		return inter.Irq.Enable
	case offset == REG_IF:
		return inter.Irq.Flags
	case offset == REG_IME:
		return uint16(oneIfTrue(inter.Irq.Master))
	}
	return inter.ioRaw16(offset)
}

func (inter *Interconnect) ioStore16(offset uint32, val uint16) {
	inter.IO[offset] = byte(val)
	inter.IO[offset+1] = byte(val >> 8)

	switch {
	case offset < 0x8:
		inter.Lcd.Store16(offset, val)
	case offset == SOUND_CONTROL:
		inter.Sound.SetControl(val)
	case offset == FIFO_A || offset == FIFO_A+2 || offset == FIFO_B || offset == FIFO_B+2:
		fifo := inter.Sound.A
		if offset >= FIFO_B {
			fifo = inter.Sound.B
		}
		fifo.Push(byte(val))
		fifo.Push(byte(val >> 8))
	case inRegisters(offset, DMA_REGISTERS, 4*DMA_CHANNEL_STRIDE):
		inter.Dma.Store16(offset-DMA_REGISTERS, val)
	case inRegisters(offset, TIMER_REGISTERS, 0x10):
		inter.Timers.Store16(offset-TIMER_REGISTERS, val)
	case inRegisters(offset, KEYPAD_REGISTERS, 4):
		inter.Keypad.Store16(offset-KEYPAD_REGISTERS, val)
	case offset == REG_IE:
		inter.Irq.SetEnable(val)
	case offset == REG_IF:
		inter.Irq.Acknowledge(val)
	case offset == REG_IME:
		inter.Irq.SetMaster(val)
	case offset == REG_POSTFLG:
		// the high byte is HALTCNT
		inter.halt()
	}
}

func (inter *Interconnect) ioStore32(offset uint32, val uint32) {
	if offset == FIFO_A || offset == FIFO_B {
		inter.Sound.Store32(offset, val)
		return
	}
	inter.ioStore16(offset, uint16(val))
	inter.ioStore16(offset+2, uint16(val>>16))
}

func (inter *Interconnect) ioStore8(offset uint32, val uint8) {
	switch {
	case offset == REG_POSTFLG:
		inter.IO[offset] = val
		return
	case offset == REG_HALTCNT:
		inter.IO[offset] = val
		inter.halt()
		return
	case offset&^1 == REG_IF:
		// only the written byte acknowledges
		inter.Irq.Acknowledge(uint16(val) << ((offset & 1) * 8))
		return
	case inRegisters(offset, FIFO_A, 8):
		fifo := inter.Sound.A
		if offset >= FIFO_B {
			fifo = inter.Sound.B
		}
		fifo.Push(val)
		return
	}

	inter.IO[offset] = val
	inter.ioStore16(offset&^1, inter.ioRaw16(offset&^1))
}

func (inter *Interconnect) halt() {
	if inter.OnHalt != nil {
		inter.OnHalt()
	}
}
