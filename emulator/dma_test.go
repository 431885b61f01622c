package emulator

import (
	"errors"
	"testing"
)

func newTestDMA() (*DMA, *Interconnect, *IrqState) {
	irq := NewIrqState()
	inter := NewInterconnect(nil, nil)
	inter.Irq = irq
	dma := NewDMA(inter, irq)
	inter.Dma = dma
	return dma, inter, irq
}

// Programs channel `index` through its registers
func programChannel(dma *DMA, index int, src, dst uint32, count, control uint16) {
	base := uint32(index) * DMA_CHANNEL_STRIDE
	dma.Store16(base+0, uint16(src))
	dma.Store16(base+2, uint16(src>>16))
	dma.Store16(base+4, uint16(dst))
	dma.Store16(base+6, uint16(dst>>16))
	dma.Store16(base+8, count)
	dma.Store16(base+10, control)
}

func runDMA(t *testing.T, dma *DMA) int {
	steps := 0
	for dma.IsRunning() {
		if err := dma.Run(); err != nil {
			t.Fatalf("dma fault: %v", err)
		}
		steps++
	}
	return steps
}

func TestDMAImmediate(t *testing.T) {
	dma, inter, irq := newTestDMA()

	for i := uint32(0); i < 4; i++ {
		inter.Store32(0x02000000+i*4, 0x11111111*(i+1))
	}

	// 32 bit units, IRQ on completion, immediate
	programChannel(dma, 3, 0x02000000, 0x03000000, 4, 1<<15|1<<14|1<<10)
	if !dma.IsEnabled() || dma.IsRunning() {
		t.Fatalf("channel should be enabled and idle until checked")
	}

	dma.CheckStartCond()
	if steps := runDMA(t, dma); steps != 4 {
		t.Errorf("expected 4 steps, got %d", steps)
	}

	for i := uint32(0); i < 4; i++ {
		if v := inter.Load32(0x03000000 + i*4); v != 0x11111111*(i+1) {
			t.Errorf("word %d: got 0x%08x", i, v)
		}
	}
	if dma.IsEnabled() {
		t.Errorf("immediate channel still enabled after the transfer")
	}
	if dma.Load16(3*DMA_CHANNEL_STRIDE+10)&(1<<15) != 0 {
		t.Errorf("enable bit still reads back as set")
	}
	if irq.Flags&(1<<INTERRUPT_DMA3) == 0 {
		t.Errorf("completion interrupt not requested")
	}
}

func TestDMAHalfwordDecrement(t *testing.T) {
	dma, inter, _ := newTestDMA()

	inter.Store16(0x02000000, 0xaaaa)
	inter.Store16(0x02000002, 0xbbbb)

	// 16 bit units, destination decrements
	programChannel(dma, 0, 0x02000000, 0x03000002, 2, 1<<15|uint16(ADDR_DECREMENT)<<5)
	dma.CheckStartCond()
	runDMA(t, dma)

	if v := inter.Load16(0x03000002); v != 0xaaaa {
		t.Errorf("first unit: got 0x%04x", v)
	}
	if v := inter.Load16(0x03000000); v != 0xbbbb {
		t.Errorf("second unit: got 0x%04x", v)
	}
}

func TestDMABlankTiming(t *testing.T) {
	dma, inter, _ := newTestDMA()
	inter.Store16(0x02000000, 0x1234)

	// hblank timing with repeat
	programChannel(dma, 1, 0x02000000, 0x03000000, 1, 1<<15|1<<9|uint16(TIMING_HBLANK)<<12)

	dma.CheckStartCond()
	if dma.IsRunning() {
		t.Fatalf("hblank channel started without a request")
	}

	// a vblank request is not for this channel
	dma.RequestBlank(TIMING_VBLANK)
	dma.CheckStartCond()
	if dma.IsRunning() {
		t.Fatalf("hblank channel started on vblank")
	}

	dma.RequestBlank(TIMING_HBLANK)
	dma.CheckStartCond()
	if steps := runDMA(t, dma); steps != 1 {
		t.Errorf("expected 1 step, got %d", steps)
	}
	if !dma.IsEnabled() {
		t.Errorf("repeating channel disarmed itself")
	}

	// armed again for the next hblank
	dma.RequestBlank(TIMING_HBLANK)
	dma.CheckStartCond()
	if !dma.IsRunning() {
		t.Errorf("repeating channel did not restart")
	}
}

func TestDMADisableStopsTransfer(t *testing.T) {
	dma, _, _ := newTestDMA()

	programChannel(dma, 2, 0x02000000, 0x03000000, 100, 1<<15)
	dma.CheckStartCond()
	if err := dma.Run(); err != nil {
		t.Fatal(err)
	}

	dma.Store16(2*DMA_CHANNEL_STRIDE+10, 0)
	if dma.IsRunning() || dma.IsEnabled() {
		t.Errorf("disabled channel kept running")
	}
}

func TestDMAPriority(t *testing.T) {
	dma, inter, _ := newTestDMA()
	inter.Store16(0x02000000, 0x1111)
	inter.Store16(0x02000100, 0x2222)

	programChannel(dma, 3, 0x02000100, 0x03000100, 1, 1<<15)
	programChannel(dma, 1, 0x02000000, 0x03000000, 1, 1<<15)
	dma.CheckStartCond()

	// channel 1 runs first, channel 3 is still pending after one step
	if err := dma.Run(); err != nil {
		t.Fatal(err)
	}
	if inter.Load16(0x03000000) != 0x1111 || inter.Load16(0x03000100) != 0 {
		t.Errorf("lower priority channel ran first")
	}
	if !dma.IsRunning() {
		t.Errorf("channel 3 should still be running")
	}
	runDMA(t, dma)
	if inter.Load16(0x03000100) != 0x2222 {
		t.Errorf("channel 3 never ran")
	}
}

func TestDMAProhibitedSpecialTiming(t *testing.T) {
	dma, _, _ := newTestDMA()

	programChannel(dma, 0, 0x02000000, 0x03000000, 1, 1<<15|uint16(TIMING_SPECIAL)<<12)
	dma.RequestCapture()
	dma.CheckStartCond()
	if !dma.IsRunning() {
		t.Fatalf("the prohibited configuration should start so it can fault")
	}

	err := dma.Run()
	var fault *HardwareFault
	if !errors.As(err, &fault) || fault.Component != COMPONENT_DMA {
		t.Errorf("expected a DMA fault, got %v", err)
	}
}

func TestDMASoundFIFO(t *testing.T) {
	dma, inter, _ := newTestDMA()
	sound := NewSound(dma)
	inter.Sound = sound

	for i := uint32(0); i < 8; i++ {
		inter.Store32(0x02000000+i*4, 0x01020304)
	}

	// DMA 1 feeds FIFO A, count and unit size are ignored in sound mode
	programChannel(dma, 1, 0x02000000, IO_RANGE.Start+FIFO_A, 0, 1<<15|1<<9|uint16(TIMING_SPECIAL)<<12)

	dma.RequestSound(IO_RANGE.Start + FIFO_B)
	dma.CheckStartCond()
	if dma.IsRunning() {
		t.Fatalf("FIFO B request started the FIFO A channel")
	}

	dma.RequestSound(IO_RANGE.Start + FIFO_A)
	dma.CheckStartCond()
	if steps := runDMA(t, dma); steps != SOUND_FIFO_BURST {
		t.Errorf("expected %d steps, got %d", SOUND_FIFO_BURST, steps)
	}
	if sound.A.Length() != 16 {
		t.Errorf("expected 16 queued bytes, got %d", sound.A.Length())
	}
	if !dma.IsEnabled() {
		t.Errorf("sound channel disarmed after a burst")
	}
}

func TestDMACaptureStops(t *testing.T) {
	dma, _, _ := newTestDMA()

	programChannel(dma, 3, 0x02000000, 0x06000000, 240, 1<<15|1<<9|uint16(TIMING_SPECIAL)<<12)
	dma.StopCapture()
	if dma.IsEnabled() {
		t.Errorf("capture channel still enabled after the last capture line")
	}
}
