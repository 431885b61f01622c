package emulator

import (
	"context"
	"errors"
	"log/slog"
)

// CPU core as seen by the scheduler. The dispatch granularity is owned by
// the implementation
type CPUCore interface {
	Run() error
}

// DMA controller as seen by the scheduler
type DMAController interface {
	IsEnabled() bool // True if a channel configuration currently permits triggering
	CheckStartCond() // Evaluates the configured start conditions, starting channels
	IsRunning() bool // True while a transfer owns the bus
	Run() error      // Advances the active transfer by one step
}

// Timer unit as seen by the scheduler
type TimerUnit interface {
	Run() error
}

// Video controller as seen by the scheduler
type VideoController interface {
	Run() error
}

// Per-tick multipliers. They approximate the relative rates of the CPU, the
// timers and the dot clock, which share one oscillator on the real hardware
const (
	BUS_STEPS_PER_TICK   = 2 // CPU dispatches or DMA steps
	TIMER_STEPS_PER_TICK = 4
	VIDEO_STEPS_PER_TICK = 1
)

// Number of ticks between two checks of the stop signal. Checking a context
// on every tick is measurably slow
const STOP_CHECK_INTERVAL = 1024

// Drives the CPU, the DMA controller, the timers and the video controller in
// a fixed relative cadence. It owns no hardware state
type Scheduler struct {
	cpu     CPUCore
	dma     DMAController
	timers  TimerUnit
	video   VideoController
	running bool
	Time    *TimeHandler // Advance counters, read them once Run has returned
	Logger  *slog.Logger
}

// Creates a new scheduler. All four collaborators must be valid for the
// whole lifetime of the scheduler
func NewScheduler(
	cpu CPUCore,
	dma DMAController,
	timers TimerUnit,
	video VideoController,
) (*Scheduler, error) {
	if isNil(cpu) || isNil(dma) || isNil(timers) || isNil(video) {
		return nil, ErrMissingCollaborator
	}

	return &Scheduler{
		cpu:     cpu,
		dma:     dma,
		timers:  timers,
		video:   video,
		running: true,
		Time:    NewTimeHandler(),
		Logger:  slog.Default(),
	}, nil
}

// Returns false once the scheduler has stopped
func (s *Scheduler) Running() bool {
	return s.running
}

// Executes ticks until a collaborator faults or `ctx` is done. The returned
// error is either the fault (a *HardwareFault), the context error or
// ErrHalted if the scheduler had already stopped
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running {
		return ErrHalted
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.Logger.Debug("scheduler: running")

	for s.running {
		if s.Time.Ticks%STOP_CHECK_INTERVAL == 0 {
			if err := ctx.Err(); err != nil {
				s.running = false
				s.Logger.Info("scheduler: stopped", "ticks", s.Time.Ticks, "reason", err)
				return err
			}
		}

		if err := s.tick(); err != nil {
			s.running = false
			s.Logger.Error("scheduler: halted", "ticks", s.Time.Ticks, "err", err)
			return err
		}
	}

	return ErrHalted
}

// Runs a single tick
func (s *Scheduler) tick() error {
	// the DMA controller alone decides whether its trigger is satisfied
	if s.dma.IsEnabled() {
		s.dma.CheckStartCond()
		s.Time.StartChecks++
	}

	// an active transfer owns the bus and stalls the CPU for the whole tick
	if s.dma.IsRunning() {
		s.Time.Master = BUS_MASTER_DMA
		for i := 0; i < BUS_STEPS_PER_TICK; i++ {
			if err := s.dma.Run(); err != nil {
				return s.fault(COMPONENT_DMA, err)
			}
			s.Time.Dma++
		}
	} else {
		s.Time.Master = BUS_MASTER_CPU
		for i := 0; i < BUS_STEPS_PER_TICK; i++ {
			if err := s.cpu.Run(); err != nil {
				return s.fault(COMPONENT_CPU, err)
			}
			s.Time.Cpu++
		}
	}

	for i := 0; i < TIMER_STEPS_PER_TICK; i++ {
		if err := s.timers.Run(); err != nil {
			return s.fault(COMPONENT_TIMER, err)
		}
		s.Time.Timer++
	}

	for i := 0; i < VIDEO_STEPS_PER_TICK; i++ {
		if err := s.video.Run(); err != nil {
			return s.fault(COMPONENT_VIDEO, err)
		}
		s.Time.Video++
	}

	s.Time.Ticks++
	return nil
}

// Turns a collaborator error into a fault carrying the current tick. A fault
// raised by the collaborator keeps its component and cause. It is copied
// before the tick is stamped, the collaborator's value is left untouched
func (s *Scheduler) fault(component Component, err error) error {
	var raised *HardwareFault
	if errors.As(err, &raised) {
		fault := *raised
		if fault.Component == "" {
			fault.Component = component
		}
		fault.Tick = s.Time.Ticks
		return &fault
	}
	return &HardwareFault{Component: component, Tick: s.Time.Ticks, Err: err}
}
