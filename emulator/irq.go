package emulator

// State of the interrupt controller
type IrqState struct {
	Enable uint16 // IE: interrupt enable
	Flags  uint16 // IF: interrupt request flags
	Master bool   // IME: master enable
}

// Represents an interrupt source (bit index in IE/IF)
type Interrupt uint16

const (
	INTERRUPT_VBLANK  Interrupt = 0  // LCD entered vertical blanking
	INTERRUPT_HBLANK  Interrupt = 1  // LCD entered horizontal blanking
	INTERRUPT_VCOUNT  Interrupt = 2  // VCOUNT matched the DISPSTAT setting
	INTERRUPT_TIMER0  Interrupt = 3  // Timer 0 overflow
	INTERRUPT_TIMER1  Interrupt = 4  // Timer 1 overflow
	INTERRUPT_TIMER2  Interrupt = 5  // Timer 2 overflow
	INTERRUPT_TIMER3  Interrupt = 6  // Timer 3 overflow
	INTERRUPT_SERIAL  Interrupt = 7  // Serial communication
	INTERRUPT_DMA0    Interrupt = 8  // DMA 0 transfer complete
	INTERRUPT_DMA1    Interrupt = 9  // DMA 1 transfer complete
	INTERRUPT_DMA2    Interrupt = 10 // DMA 2 transfer complete
	INTERRUPT_DMA3    Interrupt = 11 // DMA 3 transfer complete
	INTERRUPT_KEYPAD  Interrupt = 12 // Keypad condition met
	INTERRUPT_GAMEPAK Interrupt = 13 // Cartridge removed
)

// Returns a new interrupt controller instance
func NewIrqState() *IrqState {
	return &IrqState{}
}

// Returns true if an enabled interrupt is requested, regardless of IME. This
// is what wakes the CPU from HALT
func (state *IrqState) Pending() bool {
	return (state.Enable & state.Flags & 0x3fff) != 0
}

// Returns true if the CPU should take the interrupt
func (state *IrqState) Active() bool {
	return state.Master && state.Pending()
}

// Writing 1 to a bit of IF clears it
func (state *IrqState) Acknowledge(ack uint16) {
	state.Flags &= ^ack
}

func (state *IrqState) SetEnable(mask uint16) {
	state.Enable = mask & 0x3fff
}

func (state *IrqState) SetMaster(val uint16) {
	state.Master = val&1 != 0
}

func (state *IrqState) SetHigh(interrupt Interrupt) {
	state.Flags |= 1 << interrupt
}
