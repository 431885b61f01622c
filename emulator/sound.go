package emulator

const (
	// SOUNDCNT_H, relative to the I/O region
	SOUND_CONTROL = 0x82
	// Direct sound FIFO registers, relative to the I/O region
	FIFO_A = 0xa0
	FIFO_B = 0xa4
	// A FIFO asks for a refill when it holds this many bytes or less
	FIFO_REFILL_THRESHOLD = 16
)

// Direct sound channels. Only the sample flow is emulated: timers drain the
// FIFOs and DMA refills them, no audio is produced
type Sound struct {
	A       *FIFO
	B       *FIFO
	Control uint16 // SOUNDCNT_H
	SampleA int8   // Last sample played on channel A
	SampleB int8   // Last sample played on channel B
	Dma     *DMA
}

func NewSound(dma *DMA) *Sound {
	return &Sound{
		A:   NewFIFO(),
		B:   NewFIFO(),
		Dma: dma,
	}
}

// Returns the timer clocking FIFO A
func (sound *Sound) TimerA() int {
	return int((sound.Control >> 10) & 1)
}

// Returns the timer clocking FIFO B
func (sound *Sound) TimerB() int {
	return int((sound.Control >> 14) & 1)
}

// Sets SOUNDCNT_H. Bits 11 and 15 reset the FIFOs and read back as zero
func (sound *Sound) SetControl(val uint16) {
	if val&(1<<11) != 0 {
		sound.A.Clear()
	}
	if val&(1<<15) != 0 {
		sound.B.Clear()
	}
	sound.Control = val &^ (1<<11 | 1<<15)
}

// Plays a sample from each FIFO clocked by timer `index`
func (sound *Sound) TimerOverflow(index int) {
	if sound.TimerA() == index {
		sound.SampleA = sound.consume(sound.A, FIFO_A)
	}
	if sound.TimerB() == index {
		sound.SampleB = sound.consume(sound.B, FIFO_B)
	}
}

func (sound *Sound) consume(fifo *FIFO, reg uint32) int8 {
	var sample int8
	if !fifo.IsEmpty() {
		sample = int8(fifo.Pop())
	}
	if fifo.Length() <= FIFO_REFILL_THRESHOLD {
		sound.Dma.RequestSound(IO_RANGE.Start + reg)
	}
	return sample
}

// Queues a word written by the CPU or by DMA
func (sound *Sound) Store32(offset uint32, val uint32) {
	switch offset {
	case FIFO_A:
		sound.A.PushWord(val)
	case FIFO_B:
		sound.B.PushWord(val)
	}
}
