package emulator

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
)

// Cancels a run after `limit` frames
type cancelSink struct {
	frames int
	limit  int
	cancel context.CancelFunc
}

func (sink *cancelSink) PresentFrame(frame *Frame) {
	sink.frames++
	if sink.frames == sink.limit {
		sink.cancel()
	}
}

// Builds a cartridge with `code` at the entry point and `data` at 0x100
func newTestCartridge(t *testing.T, code []uint32, data []uint32) *Cartridge {
	rom := make([]byte, 0x200)
	for i, op := range code {
		binary.LittleEndian.PutUint32(rom[i*4:], op)
	}
	for i, word := range data {
		binary.LittleEndian.PutUint32(rom[0x100+i*4:], word)
	}

	cart, err := LoadROM(bytes.NewReader(rom))
	if err != nil {
		t.Fatal(err)
	}
	return cart
}

func runFrames(t *testing.T, opts Options, frames int) *GBA {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &cancelSink{limit: frames, cancel: cancel}
	opts.Sink = sink
	gba, err := NewGBA(opts)
	if err != nil {
		t.Fatal(err)
	}

	if err := gba.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("run ended with %v", err)
	}
	if sink.frames != frames {
		t.Errorf("expected %d frames, got %d", frames, sink.frames)
	}
	return gba
}

func TestGBAIdleLoop(t *testing.T) {
	cart := newTestCartridge(t, []uint32{0xeafffffe}, nil) // B .
	gba := runFrames(t, Options{Cart: cart, SkipBIOS: true}, 2)

	stats := gba.Stats()
	if stats.Frames != 2 {
		t.Errorf("stats report %d frames", stats.Frames)
	}
	// frames are presented when line 160 starts, the second one a full
	// frame after the first
	if stats.Ticks < (LINES_PER_FRAME+SCREEN_HEIGHT)*DOTS_PER_LINE {
		t.Errorf("only %d ticks for two frames", stats.Ticks)
	}
	if stats.Ticks%STOP_CHECK_INTERVAL != 0 {
		t.Errorf("stopped between two checks, at tick %d", stats.Ticks)
	}
	if stats.Cpu != 2*stats.Ticks || stats.Dma != 0 {
		t.Errorf("cpu=%d dma=%d for %d ticks", stats.Cpu, stats.Dma, stats.Ticks)
	}
	if stats.Timer != 4*stats.Ticks || stats.Video != stats.Ticks {
		t.Errorf("timer=%d video=%d for %d ticks", stats.Timer, stats.Video, stats.Ticks)
	}
	if stats.Cycles != stats.Ticks*CYCLES_PER_TICK {
		t.Errorf("cycles=%d", stats.Cycles)
	}
	if gba.Cpu.CurrentPC() != ROM_ENTRY {
		t.Errorf("CPU left the loop: %s", gba.Cpu)
	}

	// a stopped machine stays stopped
	if err := gba.Run(context.Background()); !errors.Is(err, ErrHalted) {
		t.Errorf("expected ErrHalted, got %v", err)
	}
}

func TestGBADMATransfer(t *testing.T) {
	code := []uint32{
		0xe3a00301, // MOV r0, #0x04000000
		0xe28000d4, // ADD r0, r0, #0xd4
		0xe3a01408, // MOV r1, #0x08000000
		0xe2811c01, // ADD r1, r1, #0x100
		0xe3a02403, // MOV r2, #0x03000000
		0xe3a03484, // MOV r3, #0x84000000
		0xe3833004, // ORR r3, r3, #4
		0xe880000e, // STMIA r0, {r1, r2, r3}
		0xeafffffe, // B .
	}
	data := []uint32{0x11111111, 0x22222222, 0x33333333, 0x44444444}
	cart := newTestCartridge(t, code, data)

	gba := runFrames(t, Options{Cart: cart}, 1)

	for i, word := range data {
		if v := gba.Inter.Load32(0x03000000 + uint32(i)*4); v != word {
			t.Errorf("word %d: 0x%08x", i, v)
		}
	}

	stats := gba.Stats()
	if stats.Dma != 4 {
		t.Errorf("expected 4 DMA steps, got %d", stats.Dma)
	}
	if stats.Cpu+stats.Dma != 2*stats.Ticks {
		t.Errorf("bus steps %d+%d for %d ticks", stats.Cpu, stats.Dma, stats.Ticks)
	}
	if stats.StartChecks == 0 {
		t.Errorf("start condition never checked")
	}
}

func TestGBABreakpoint(t *testing.T) {
	cart := newTestCartridge(t, []uint32{
		0xe3a00001, // MOV r0, #1
		0xeafffffe, // B .
	}, nil)

	gba, err := NewGBA(Options{Cart: cart, Breakpoints: []uint32{ROM_ENTRY + 4}})
	if err != nil {
		t.Fatal(err)
	}

	err = gba.Run(context.Background())
	var fault *HardwareFault
	if !errors.As(err, &fault) || !errors.Is(err, ErrBreakpoint) {
		t.Fatalf("expected a breakpoint fault, got %v", err)
	}
	if fault.Component != COMPONENT_CPU || fault.Tick != 0 {
		t.Errorf("unexpected fault %v", fault)
	}
	if gba.Cpu.Regs[0] != 1 {
		t.Errorf("instruction before the breakpoint did not run")
	}
}

func TestGBAKeypadInterruptOnVBlank(t *testing.T) {
	pad := NewPad()
	pad.SetButtonState(BUTTON_START, BUTTON_STATE_PRESSED)
	cart := newTestCartridge(t, []uint32{0xeafffffe}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gba, err := NewGBA(Options{Cart: cart, Input: pad, Sink: &cancelSink{limit: 1, cancel: cancel}})
	if err != nil {
		t.Fatal(err)
	}
	gba.Keypad.Store16(2, 1<<14|1<<BUTTON_START)

	if err := gba.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatal(err)
	}
	if gba.Irq.Flags&(1<<INTERRUPT_KEYPAD) == 0 {
		t.Errorf("keypad interrupt not requested on vblank")
	}
}
