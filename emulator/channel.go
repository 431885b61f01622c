package emulator

// DMA address adjustment after each transferred unit
type AddrControl uint16

const (
	ADDR_INCREMENT        AddrControl = 0
	ADDR_DECREMENT        AddrControl = 1
	ADDR_FIXED            AddrControl = 2
	ADDR_INCREMENT_RELOAD AddrControl = 3 // Destination only: reload on repeat
)

// DMA start timing
type Timing uint16

const (
	// Transfer starts as soon as the channel is enabled
	TIMING_IMMEDIATE Timing = 0
	// Transfer starts at the beginning of vertical blanking
	TIMING_VBLANK Timing = 1
	// Transfer starts at the beginning of each horizontal blanking
	TIMING_HBLANK Timing = 2
	// DMA 1/2: sound FIFO request. DMA 3: video capture. DMA 0: prohibited
	TIMING_SPECIAL Timing = 3
)

func (timing Timing) String() string {
	switch timing {
	case TIMING_IMMEDIATE:
		return "immediate"
	case TIMING_VBLANK:
		return "vblank"
	case TIMING_HBLANK:
		return "hblank"
	case TIMING_SPECIAL:
		return "special"
	}
	return "unknown"
}

// Number of words moved by a sound FIFO request
const SOUND_FIFO_BURST = 4

type Channel struct {
	Index         int         // 0 to 3, also the priority (0 is highest)
	Source        uint32      // Source address register (write only)
	Dest          uint32      // Destination address register (write only)
	Count         uint16      // Word count register (write only)
	DestControl   AddrControl // Destination adjustment
	SourceControl AddrControl // Source adjustment
	Repeat        bool        // Restart on every trigger until disabled
	Word          bool        // 32 bit units when true, 16 bit otherwise
	GamePakDrq    bool        // DMA 3 only, game pak data request
	Timing        Timing      // Start timing
	IrqEn         bool        // Raise an interrupt at the end of the transfer
	Enable        bool        // Channel enabled
	Active        bool        // A transfer is in progress and owns the bus
	Pending       bool        // The trigger fired and the channel waits to start
	src           uint32      // Internal source address
	dst           uint32      // Internal destination address
	remaining     uint32      // Units left in the current transfer
}

// Create a new channel instance
func NewChannel(index int) *Channel {
	return &Channel{Index: index}
}

// Returns the value of the control register
func (ch *Channel) Control() uint16 {
	var r uint16
	r |= uint16(ch.DestControl) << 5
	r |= uint16(ch.SourceControl) << 7
	r |= uint16(oneIfTrue(ch.Repeat)) << 9
	r |= uint16(oneIfTrue(ch.Word)) << 10
	r |= uint16(oneIfTrue(ch.GamePakDrq)) << 11
	r |= uint16(ch.Timing) << 12
	r |= uint16(oneIfTrue(ch.IrqEn)) << 14
	r |= uint16(oneIfTrue(ch.Enable)) << 15
	return r
}

// Sets the control register. Returns true when the write enabled a
// disabled channel, which latches the transfer parameters
func (ch *Channel) SetControl(val uint16) bool {
	wasEnabled := ch.Enable

	ch.DestControl = AddrControl((val >> 5) & 3)
	ch.SourceControl = AddrControl((val >> 7) & 3)
	ch.Repeat = (val>>9)&1 != 0
	ch.Word = (val>>10)&1 != 0
	ch.GamePakDrq = ch.Index == 3 && (val>>11)&1 != 0
	ch.Timing = Timing((val >> 12) & 3)
	ch.IrqEn = (val>>14)&1 != 0
	ch.Enable = (val>>15)&1 != 0

	if !ch.Enable {
		// disabling stops a transfer in progress
		ch.Active = false
		ch.Pending = false
		return false
	}
	if !wasEnabled {
		ch.latch()
		return true
	}
	return false
}

// Only bits [0:27] are significant, DMA 0 can only read internal memory
func (ch *Channel) SetSource(val uint32) {
	if ch.Index == 0 {
		ch.Source = val & 0x07ffffff
	} else {
		ch.Source = val & 0x0fffffff
	}
}

// Only DMA 3 can write to the game pak
func (ch *Channel) SetDest(val uint32) {
	if ch.Index == 3 {
		ch.Dest = val & 0x0fffffff
	} else {
		ch.Dest = val & 0x07ffffff
	}
}

func (ch *Channel) SetCount(val uint16) {
	ch.Count = val
}

// Returns true if the channel feeds one of the sound FIFOs
func (ch *Channel) SoundMode() bool {
	return ch.Timing == TIMING_SPECIAL && (ch.Index == 1 || ch.Index == 2)
}

// Returns the number of units in a transfer. A count of zero is the maximum
func (ch *Channel) TransferSize() uint32 {
	if ch.SoundMode() {
		return SOUND_FIFO_BURST
	}

	if ch.Index == 3 {
		if ch.Count == 0 {
			return 0x10000
		}
		return uint32(ch.Count)
	}

	count := uint32(ch.Count) & 0x3fff
	if count == 0 {
		return 0x4000
	}
	return count
}

// Returns the unit size in bytes
func (ch *Channel) UnitSize() uint32 {
	if ch.Word || ch.SoundMode() {
		return 4
	}
	return 2
}

// Copies the registers into the internal transfer state
func (ch *Channel) latch() {
	ch.src = ch.Source
	ch.dst = ch.Dest
	ch.remaining = ch.TransferSize()
}

// Reloads the transfer state for the next repeat
func (ch *Channel) reload() {
	ch.remaining = ch.TransferSize()
	if ch.DestControl == ADDR_INCREMENT_RELOAD {
		ch.dst = ch.Dest
	}
}

// Returns true if the channel waits for `timing` to start
func (ch *Channel) Waiting(timing Timing) bool {
	return ch.Enable && !ch.Active && ch.Timing == timing
}

func adjust(addr uint32, control AddrControl, size uint32) uint32 {
	switch control {
	case ADDR_INCREMENT, ADDR_INCREMENT_RELOAD:
		return addr + size
	case ADDR_DECREMENT:
		return addr - size
	}
	return addr
}

// Set the channel status to `completed` state. Returns true if the channel
// stays armed for another trigger
func (ch *Channel) Done() bool {
	ch.Active = false
	ch.Pending = false

	if ch.Repeat && ch.Timing != TIMING_IMMEDIATE {
		ch.reload()
		return true
	}

	ch.Enable = false
	return false
}
