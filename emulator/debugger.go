package emulator

import (
	"fmt"
	"log/slog"
)

type Debugger struct {
	Breakpoints      []uint32 // All breakpoint addresses
	ReadWatchpoints  []uint32 // All read watchpoints
	WriteWatchpoints []uint32 // All write watchpoints
	Logger           *slog.Logger
	hit              error // Watchpoint triggered by the current instruction
}

func NewDebugger() *Debugger {
	return &Debugger{Logger: slog.Default()}
}

func addAddress(list []uint32, addr uint32) []uint32 {
	for _, a := range list {
		if a == addr {
			return list
		}
	}
	return append(list, addr)
}

func deleteAddress(list []uint32, addr uint32) []uint32 {
	for idx, a := range list {
		if a == addr {
			return append(list[:idx], list[idx+1:]...)
		}
	}
	return list
}

func containsAddress(list []uint32, addr uint32) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

// Adds a breakpoint when the instruction at `addr` is about to be executed
func (debugger *Debugger) AddBreakpoint(addr uint32) {
	debugger.Breakpoints = addAddress(debugger.Breakpoints, addr)
}

// Deletes a breakpoint at `addr`. Does nothing if it doesn't exist
func (debugger *Debugger) DeleteBreakpoint(addr uint32) {
	debugger.Breakpoints = deleteAddress(debugger.Breakpoints, addr)
}

// Adds a memory read watchpoint for `addr`
func (debugger *Debugger) AddReadWatchpoint(addr uint32) {
	debugger.ReadWatchpoints = addAddress(debugger.ReadWatchpoints, addr)
}

// Adds a memory write watchpoint for `addr`
func (debugger *Debugger) AddWriteWatchpoint(addr uint32) {
	debugger.WriteWatchpoints = addAddress(debugger.WriteWatchpoints, addr)
}

// Deletes a memory read watchpoint at `addr`. Does nothing if it doesn't exist
func (debugger *Debugger) DeleteReadWatchpoint(addr uint32) {
	debugger.ReadWatchpoints = deleteAddress(debugger.ReadWatchpoints, addr)
}

// Deletes a memory write watchpoint at `addr`. Does nothing if it doesn't exist
func (debugger *Debugger) DeleteWriteWatchpoint(addr uint32) {
	debugger.WriteWatchpoints = deleteAddress(debugger.WriteWatchpoints, addr)
}

// Called by the CPU before executing the instruction at `pc`
func (debugger *Debugger) changedPc(pc uint32) error {
	if !containsAddress(debugger.Breakpoints, pc) {
		return nil
	}
	debugger.Logger.Info("debugger: reached breakpoint", "addr", fmt.Sprintf("0x%08x", pc))
	return newFault(COMPONENT_CPU, "pc 0x%08x: %w", pc, ErrBreakpoint)
}

// Called by the CPU when it's about to read a value from memory
func (debugger *Debugger) memoryRead(addr uint32) {
	if debugger.hit == nil && containsAddress(debugger.ReadWatchpoints, addr) {
		debugger.Logger.Info("debugger: triggered read watchpoint", "addr", fmt.Sprintf("0x%08x", addr))
		debugger.hit = newFault(COMPONENT_CPU, "read of 0x%08x: %w", addr, ErrBreakpoint)
	}
}

// Called by the CPU when it's about to write a value to memory
func (debugger *Debugger) memoryWrite(addr uint32) {
	if debugger.hit == nil && containsAddress(debugger.WriteWatchpoints, addr) {
		debugger.Logger.Info("debugger: triggered write watchpoint", "addr", fmt.Sprintf("0x%08x", addr))
		debugger.hit = newFault(COMPONENT_CPU, "write to 0x%08x: %w", addr, ErrBreakpoint)
	}
}

// Returns and clears the watchpoint hit by the last instruction
func (debugger *Debugger) triggered() error {
	err := debugger.hit
	debugger.hit = nil
	return err
}
