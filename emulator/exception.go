package emulator

// Exception vector address
type Exception uint32

const (
	EXCEPTION_RESET          Exception = 0x00 // Power on
	EXCEPTION_UNDEFINED      Exception = 0x04 // Undefined instruction
	EXCEPTION_SWI            Exception = 0x08 // Software interrupt (caused by the SWI opcode)
	EXCEPTION_PREFETCH_ABORT Exception = 0x0c // Instruction fetch abort
	EXCEPTION_DATA_ABORT     Exception = 0x10 // Data access abort
	EXCEPTION_IRQ            Exception = 0x18 // Normal interrupt
	EXCEPTION_FIQ            Exception = 0x1c // Fast interrupt
)

// Returns the mode the CPU enters to handle the exception
func (e Exception) Mode() Mode {
	switch e {
	case EXCEPTION_RESET, EXCEPTION_SWI:
		return MODE_SUPERVISOR
	case EXCEPTION_UNDEFINED:
		return MODE_UNDEFINED
	case EXCEPTION_PREFETCH_ABORT, EXCEPTION_DATA_ABORT:
		return MODE_ABORT
	case EXCEPTION_IRQ:
		return MODE_IRQ
	case EXCEPTION_FIQ:
		return MODE_FIQ
	}
	panicFmt("exception: invalid vector 0x%x", uint32(e))
	return 0
}
