package emulator

import (
	"fmt"
	"log/slog"
)

// Base address of the DMA registers, relative to the I/O region
const DMA_REGISTERS = 0xb0

// Size of the register block of a single channel
const DMA_CHANNEL_STRIDE = 12

// Direct Memory Access controller with its 4 channels
type DMA struct {
	Channels [4]*Channel // The 4 channel instances, 0 has the highest priority
	Bus      Bus         // Memory the transfers read from and write to
	Irq      *IrqState
	Logger   *slog.Logger
}

var _ DMAController = (*DMA)(nil)

// Return a new reset DMA instance
func NewDMA(bus Bus, irq *IrqState) *DMA {
	dma := &DMA{
		Bus:    bus,
		Irq:    irq,
		Logger: slog.Default(),
	}

	// allocate channels
	for i := 0; i < len(dma.Channels); i++ {
		dma.Channels[i] = NewChannel(i)
	}

	return dma
}

// Returns true if any channel is enabled, meaning a trigger may start it
func (dma *DMA) IsEnabled() bool {
	for _, ch := range dma.Channels {
		if ch.Enable {
			return true
		}
	}
	return false
}

// Starts every enabled channel whose trigger is satisfied. Immediate
// channels start on the first check after they were enabled, the others
// start once the matching request has been seen
func (dma *DMA) CheckStartCond() {
	for _, ch := range dma.Channels {
		if !ch.Enable || ch.Active {
			continue
		}
		if ch.Timing != TIMING_IMMEDIATE && !ch.Pending {
			continue
		}

		ch.Active = true
		ch.Pending = false
		dma.Logger.Debug(
			"dma: channel started",
			"channel", ch.Index,
			"timing", ch.Timing,
			"src", fmt.Sprintf("0x%08x", ch.src),
			"dst", fmt.Sprintf("0x%08x", ch.dst),
			"units", ch.remaining,
		)
	}
}

// Returns true while a transfer owns the bus
func (dma *DMA) IsRunning() bool {
	for _, ch := range dma.Channels {
		if ch.Active {
			return true
		}
	}
	return false
}

// Moves one unit of the highest priority active transfer
func (dma *DMA) Run() error {
	ch := dma.activeChannel()
	if ch == nil {
		return nil
	}

	if ch.Index == 0 && ch.Timing == TIMING_SPECIAL {
		return newFault(COMPONENT_DMA, "channel 0: special start timing is prohibited")
	}
	if ch.SourceControl == ADDR_INCREMENT_RELOAD {
		return newFault(COMPONENT_DMA, "channel %d: source adjustment 3 is prohibited", ch.Index)
	}
	if ch.GamePakDrq {
		return newFault(COMPONENT_DMA, "channel 3: game pak DRQ transfer: %w", ErrUnimplemented)
	}

	size := ch.UnitSize()
	if size == 4 {
		dma.Bus.Store32(ch.dst&^3, dma.Bus.Load32(ch.src&^3))
	} else {
		dma.Bus.Store16(ch.dst&^1, dma.Bus.Load16(ch.src&^1))
	}

	ch.src = adjust(ch.src, ch.SourceControl, size)
	if !ch.SoundMode() {
		// the FIFO address never moves
		ch.dst = adjust(ch.dst, ch.DestControl, size)
	}

	ch.remaining--
	if ch.remaining == 0 {
		dma.complete(ch)
	}
	return nil
}

func (dma *DMA) complete(ch *Channel) {
	if ch.IrqEn {
		dma.Irq.SetHigh(INTERRUPT_DMA0 + Interrupt(ch.Index))
	}
	armed := ch.Done()
	dma.Logger.Debug("dma: channel done", "channel", ch.Index, "armed", armed)
}

func (dma *DMA) activeChannel() *Channel {
	for _, ch := range dma.Channels {
		if ch.Active {
			return ch
		}
	}
	return nil
}

// Signals the start of a blanking period to the channels waiting for it
func (dma *DMA) RequestBlank(timing Timing) {
	if timing != TIMING_VBLANK && timing != TIMING_HBLANK {
		panicFmt("dma: %s is not a blanking timing", timing)
	}
	for _, ch := range dma.Channels {
		if ch.Waiting(timing) {
			ch.Pending = true
		}
	}
}

// Signals that the sound FIFO at `addr` needs data
func (dma *DMA) RequestSound(addr uint32) {
	for _, ch := range dma.Channels[1:3] {
		if ch.Waiting(TIMING_SPECIAL) && ch.Dest == addr {
			ch.Pending = true
		}
	}
}

// Signals a video capture line to DMA 3. DMA 0 special timing is also
// flagged here so the prohibited configuration surfaces as a fault
func (dma *DMA) RequestCapture() {
	for _, ch := range []*Channel{dma.Channels[0], dma.Channels[3]} {
		if ch.Waiting(TIMING_SPECIAL) {
			ch.Pending = true
		}
	}
}

// Ends video capture, called when the LCD leaves the capture lines
func (dma *DMA) StopCapture() {
	ch := dma.Channels[3]
	if ch.Enable && ch.Timing == TIMING_SPECIAL && !ch.Active {
		ch.Enable = false
		ch.Pending = false
	}
}

// Returns the value of a DMA register. Only the control registers are
// readable
func (dma *DMA) Load16(offset uint32) uint16 {
	ch := dma.Channels[offset/DMA_CHANNEL_STRIDE]
	switch offset % DMA_CHANNEL_STRIDE {
	case 10:
		return ch.Control()
	}
	return 0
}

// Sets the value of a DMA register
func (dma *DMA) Store16(offset uint32, val uint16) {
	ch := dma.Channels[offset/DMA_CHANNEL_STRIDE]
	switch offset % DMA_CHANNEL_STRIDE {
	case 0:
		ch.SetSource((ch.Source &^ 0xffff) | uint32(val))
	case 2:
		ch.SetSource((ch.Source & 0xffff) | uint32(val)<<16)
	case 4:
		ch.SetDest((ch.Dest &^ 0xffff) | uint32(val))
	case 6:
		ch.SetDest((ch.Dest & 0xffff) | uint32(val)<<16)
	case 8:
		ch.SetCount(val)
	case 10:
		if ch.SetControl(val) {
			dma.Logger.Debug("dma: channel enabled", "channel", ch.Index, "timing", ch.Timing)
		}
	}
}
