package emulator

import "time"

// Master clock frequency in Hz
const CLOCK_HZ = 16 * 1024 * 1024

// Number of master clock cycles covered by one scheduler tick. The timers
// advance one cycle per call and are called four times per tick
const CYCLES_PER_TICK = 4

// Keeps track of the emulation time and of how many times each subsystem
// has been advanced
type TimeHandler struct {
	Ticks       uint64    // Completed scheduler ticks
	Cpu         uint64    // CPU dispatches
	Dma         uint64    // DMA transfer steps
	Timer       uint64    // Timer unit advances
	Video       uint64    // Video controller advances
	StartChecks uint64    // DMA start condition evaluations
	Master      BusMaster // Bus master of the last tick
}

// Returns a new instance of TimeHandler
func NewTimeHandler() *TimeHandler {
	return &TimeHandler{Master: BUS_MASTER_CPU}
}

// Returns the current execution time measured in master clock cycles
// (16.78MHz, ~59.6ns)
func (th *TimeHandler) Cycles() uint64 {
	return th.Ticks * CYCLES_PER_TICK
}

// Converts master clock cycles to emulated time
func CyclesToDuration(cycles uint64) time.Duration {
	return time.Duration(float64(cycles) / CLOCK_HZ * float64(time.Second))
}
