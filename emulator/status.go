package emulator

// Processor mode, bits [0:4] of a status register
type Mode uint32

const (
	MODE_USER       Mode = 0x10
	MODE_FIQ        Mode = 0x11
	MODE_IRQ        Mode = 0x12
	MODE_SUPERVISOR Mode = 0x13
	MODE_ABORT      Mode = 0x17
	MODE_UNDEFINED  Mode = 0x1b
	MODE_SYSTEM     Mode = 0x1f
)

// Returns the index of the register bank used by the mode. User and
// system mode share a bank
func (mode Mode) Bank() int {
	switch mode {
	case MODE_FIQ:
		return 1
	case MODE_IRQ:
		return 2
	case MODE_SUPERVISOR:
		return 3
	case MODE_ABORT:
		return 4
	case MODE_UNDEFINED:
		return 5
	}
	return 0
}

// Returns true for the modes that have their own SPSR
func (mode Mode) HasSPSR() bool {
	return mode.Bank() != 0
}

// Represents the value of a program status register (CPSR or SPSR)
type StatusRegister uint32

const (
	FLAG_N      = 1 << 31 // Negative
	FLAG_Z      = 1 << 30 // Zero
	FLAG_C      = 1 << 29 // Carry, or not borrow
	FLAG_V      = 1 << 28 // Overflow
	FLAG_IRQ    = 1 << 7  // IRQs disabled
	FLAG_FIQ    = 1 << 6  // FIQs disabled
	FLAG_THUMB  = 1 << 5  // Thumb state
	MODE_MASK   = 0x1f
	FLAGS_MASK  = 0xf0000000
	CONTROL_MSK = 0xff
)

func (sr StatusRegister) N() bool { return uint32(sr)&FLAG_N != 0 }
func (sr StatusRegister) Z() bool { return uint32(sr)&FLAG_Z != 0 }
func (sr StatusRegister) C() bool { return uint32(sr)&FLAG_C != 0 }
func (sr StatusRegister) V() bool { return uint32(sr)&FLAG_V != 0 }

// Returns true if IRQs are masked
func (sr StatusRegister) IrqDisabled() bool {
	return uint32(sr)&FLAG_IRQ != 0
}

// Returns true if the CPU executes 16 bit Thumb code
func (sr StatusRegister) Thumb() bool {
	return uint32(sr)&FLAG_THUMB != 0
}

func (sr StatusRegister) Mode() Mode {
	return Mode(uint32(sr) & MODE_MASK)
}

func (sr *StatusRegister) set(mask uint32, val bool) {
	if val {
		*sr |= StatusRegister(mask)
	} else {
		*sr &^= StatusRegister(mask)
	}
}

// Sets the N and Z flags from a result
func (sr *StatusRegister) SetNZ(result uint32) {
	sr.set(FLAG_N, result&0x80000000 != 0)
	sr.set(FLAG_Z, result == 0)
}

func (sr *StatusRegister) SetC(val bool) {
	sr.set(FLAG_C, val)
}

func (sr *StatusRegister) SetV(val bool) {
	sr.set(FLAG_V, val)
}

func (sr *StatusRegister) SetThumb(val bool) {
	sr.set(FLAG_THUMB, val)
}

func (sr *StatusRegister) SetIrqDisabled(val bool) {
	sr.set(FLAG_IRQ, val)
}

func (sr *StatusRegister) SetFiqDisabled(val bool) {
	sr.set(FLAG_FIQ, val)
}

func (sr *StatusRegister) setMode(mode Mode) {
	*sr = (*sr &^ MODE_MASK) | StatusRegister(mode)
}
