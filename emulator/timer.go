package emulator

// Base address of the timer registers, relative to the I/O region
const TIMER_REGISTERS = 0x100

// Represents a timer clock divider
type Prescaler uint8

const (
	PRESCALER_1    Prescaler = iota // System clock at 16.78MHz
	PRESCALER_64   Prescaler = iota // System clock divided by 64 (~262.21kHz)
	PRESCALER_256  Prescaler = iota // System clock divided by 256 (~65.536kHz)
	PRESCALER_1024 Prescaler = iota // System clock divided by 1024 (~16.384kHz)
)

// Number of system clock cycles per counter increment
var PrescalerPeriods = [4]uint32{1, 64, 256, 1024}

func (ps Prescaler) Period() uint32 {
	return PrescalerPeriods[ps&3]
}

type Timer struct {
	Index     int       // 0, 1, 2 or 3
	Counter   uint16    // Timer counter
	Reload    uint16    // Value loaded on enable and on overflow
	Prescaler Prescaler // Clock divider, ignored in count-up mode
	// If true, the timer increments when the previous one overflows instead
	// of following the prescaler. Timer 0 has no previous timer
	CountUp bool
	IrqEn   bool   // Raises an interrupt on overflow
	Enable  bool   // Timer running
	Phase   uint32 // Cycles since the last increment
}

// Returns a new Timer instance
func NewTimer(index int) *Timer {
	return &Timer{Index: index}
}

// Returns the value of the control register
func (timer *Timer) Control() uint16 {
	var r uint16

	r |= uint16(timer.Prescaler)
	r |= uint16(oneIfTrue(timer.CountUp)) << 2
	r |= uint16(oneIfTrue(timer.IrqEn)) << 6
	r |= uint16(oneIfTrue(timer.Enable)) << 7

	return r
}

// Sets the value of the control register
func (timer *Timer) SetControl(val uint16) {
	wasEnabled := timer.Enable

	timer.Prescaler = Prescaler(val & 3)
	timer.CountUp = timer.Index != 0 && (val>>2)&1 != 0
	timer.IrqEn = (val>>6)&1 != 0
	timer.Enable = (val>>7)&1 != 0

	// starting the timer loads the reload value and restarts the prescaler
	if timer.Enable && !wasEnabled {
		timer.Counter = timer.Reload
		timer.Phase = 0
	}
}

// Returns true if the timer follows the system clock
func (timer *Timer) FreeRun() bool {
	return timer.Enable && !timer.CountUp
}

// Interrupt raised on overflow
func (timer *Timer) Interrupt() Interrupt {
	return INTERRUPT_TIMER0 + Interrupt(timer.Index)
}

type Timers struct {
	Timers [4]*Timer
	Irq    *IrqState
	// Called after a timer overflowed, the sound FIFOs are clocked from here
	OnOverflow func(index int)
}

var _ TimerUnit = (*Timers)(nil)

func NewTimers(irq *IrqState) *Timers {
	timers := &Timers{
		Timers: [4]*Timer{
			NewTimer(0),
			NewTimer(1),
			NewTimer(2),
			NewTimer(3),
		},
		Irq: irq,
	}
	return timers
}

// Advances all the timers by one system clock cycle
func (timers *Timers) Run() error {
	for _, timer := range timers.Timers {
		if !timer.FreeRun() {
			continue
		}

		timer.Phase++
		if timer.Phase >= timer.Prescaler.Period() {
			timer.Phase = 0
			timers.increment(timer.Index)
		}
	}
	return nil
}

// Increments a counter, handling the overflow and the cascade into the
// next timer
func (timers *Timers) increment(index int) {
	timer := timers.Timers[index]
	timer.Counter++
	if timer.Counter != 0 {
		return
	}

	timer.Counter = timer.Reload
	if timer.IrqEn {
		timers.Irq.SetHigh(timer.Interrupt())
	}
	if timers.OnOverflow != nil {
		timers.OnOverflow(index)
	}

	if index+1 < len(timers.Timers) {
		next := timers.Timers[index+1]
		if next.Enable && next.CountUp {
			timers.increment(index + 1)
		}
	}
}

// Returns the value of a timer register
func (timers *Timers) Load16(offset uint32) uint16 {
	timer := timers.Timers[(offset>>2)&3]

	switch offset & 3 {
	case 0:
		return timer.Counter
	default:
		return timer.Control()
	}
}

// Sets the value of a timer register. Writing the counter sets the reload
// value, the counter itself is only loaded on enable or overflow
func (timers *Timers) Store16(offset uint32, val uint16) {
	timer := timers.Timers[(offset>>2)&3]

	switch offset & 3 {
	case 0:
		timer.Reload = val
	default:
		timer.SetControl(val)
	}
}
