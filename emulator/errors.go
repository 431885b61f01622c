package emulator

import (
	"errors"
	"fmt"
)

var (
	// Returned by Scheduler.Run once the scheduler has stopped. A stopped
	// machine is never resumed, a new one has to be built
	ErrHalted = errors.New("scheduler: machine is halted")
	// Returned by NewScheduler when one of the four collaborators is nil
	ErrMissingCollaborator = errors.New("scheduler: missing collaborator")
	// The CPU reached an address registered in the debugger
	ErrBreakpoint = errors.New("breakpoint reached")
	// The emulated hardware hit something this emulator does not implement
	ErrUnimplemented = errors.New("unimplemented")
)

// Identifies the subsystem that raised a fault
type Component string

const (
	COMPONENT_CPU   Component = "cpu"
	COMPONENT_DMA   Component = "dma"
	COMPONENT_TIMER Component = "timer"
	COMPONENT_VIDEO Component = "video"
)

// An unrecoverable hardware fault. This is the only error kind the scheduler
// recognizes: any error returned by a collaborator stops the machine
type HardwareFault struct {
	Component Component // Subsystem that raised the fault
	Tick      uint64    // Zero-based index of the tick the fault happened in
	Err       error     // Underlying cause
}

func (fault *HardwareFault) Error() string {
	return fmt.Sprintf("%s fault at tick %d: %v", fault.Component, fault.Tick, fault.Err)
}

func (fault *HardwareFault) Unwrap() error {
	return fault.Err
}

// Returns a new fault for `component` with a formatted cause. Use %w in
// `format` to keep a sentinel error inspectable
func newFault(component Component, format string, a ...interface{}) *HardwareFault {
	return &HardwareFault{Component: component, Err: fmt.Errorf(format, a...)}
}
