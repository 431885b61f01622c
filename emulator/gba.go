package emulator

import (
	"context"
	"log/slog"
)

// Machine configuration
type Options struct {
	Bios        *BIOS      // BIOS image, nil boots the cartridge through a minimal BIOS
	Cart        *Cartridge // Game pak, may be nil
	SkipBIOS    bool       // Start at the cartridge entry point with the BIOS state already set up
	Input       InputSource
	Sink        FrameSink // Receives every completed frame
	Breakpoints []uint32  // PC breakpoints, the machine halts when one is reached
	Logger      *slog.Logger
}

// A complete machine: the hardware collaborators and the scheduler that
// drives them
type GBA struct {
	Irq       *IrqState
	Inter     *Interconnect
	Keypad    *Keypad
	Timers    *Timers
	Dma       *DMA
	Sound     *Sound
	Lcd       *LCD
	Cpu       *CPU
	Debugger  *Debugger
	Scheduler *Scheduler
	sink      FrameSink
}

// Counters describing how far a machine ran
type Stats struct {
	Ticks       uint64 // Completed ticks
	Cycles      uint64 // System clock cycles the ticks stand for
	Cpu         uint64 // CPU dispatches
	Dma         uint64 // DMA steps
	Timer       uint64 // Timer steps
	Video       uint64 // Video steps
	StartChecks uint64 // DMA start condition evaluations
	Frames      uint64 // Completed frames
}

// Builds a machine. The scheduler is created last, once every collaborator
// it drives exists
func NewGBA(opts Options) (*GBA, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bios := opts.Bios
	skip := opts.SkipBIOS
	if bios == nil {
		bios = NewMinimalBIOS()
		skip = true
	}

	gba := &GBA{sink: opts.Sink}

	gba.Irq = NewIrqState()
	gba.Inter = NewInterconnect(bios, opts.Cart)
	gba.Inter.Irq = gba.Irq

	gba.Keypad = NewKeypad(opts.Input, gba.Irq)
	gba.Inter.Keypad = gba.Keypad

	gba.Timers = NewTimers(gba.Irq)
	gba.Inter.Timers = gba.Timers

	gba.Dma = NewDMA(gba.Inter, gba.Irq)
	gba.Dma.Logger = logger
	gba.Inter.Dma = gba.Dma

	gba.Sound = NewSound(gba.Dma)
	gba.Inter.Sound = gba.Sound
	gba.Timers.OnOverflow = gba.Sound.TimerOverflow

	gba.Lcd = NewLCD(gba.Inter.Palette, gba.Inter.Vram, gba.Irq, gba.Dma)
	gba.Lcd.Sink = gba
	gba.Inter.Lcd = gba.Lcd

	gba.Cpu = NewCPU(gba.Inter, gba.Irq)
	gba.Cpu.Logger = logger
	if skip {
		gba.Cpu.SkipBIOS()
	}
	gba.Inter.OnHalt = gba.Cpu.Halt

	if len(opts.Breakpoints) > 0 {
		gba.Debugger = NewDebugger()
		gba.Debugger.Logger = logger
		for _, addr := range opts.Breakpoints {
			gba.Debugger.AddBreakpoint(addr)
		}
		gba.Cpu.Debugger = gba.Debugger
	}

	scheduler, err := NewScheduler(gba.Cpu, gba.Dma, gba.Timers, gba.Lcd)
	if err != nil {
		return nil, err
	}
	scheduler.Logger = logger
	gba.Scheduler = scheduler

	logger.Debug("gba: machine ready", "skip_bios", skip, "cartridge", opts.Cart != nil)
	return gba, nil
}

// Runs the machine until it faults or `ctx` is done
func (gba *GBA) Run(ctx context.Context) error {
	return gba.Scheduler.Run(ctx)
}

// Called by the LCD on every vblank. The keypad is sampled once per frame
// so the keypad interrupt fires without a KEYINPUT read
func (gba *GBA) PresentFrame(frame *Frame) {
	gba.Keypad.Update()
	if gba.sink != nil {
		gba.sink.PresentFrame(frame)
	}
}

func (gba *GBA) Stats() Stats {
	time := gba.Scheduler.Time
	return Stats{
		Ticks:       time.Ticks,
		Cycles:      time.Cycles(),
		Cpu:         time.Cpu,
		Dma:         time.Dma,
		Timer:       time.Timer,
		Video:       time.Video,
		StartChecks: time.StartChecks,
		Frames:      gba.Lcd.Frames,
	}
}
