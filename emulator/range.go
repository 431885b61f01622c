package emulator

var (
	// System ROM
	BIOS_RANGE = NewRange(0x00000000, BIOS_SIZE)
	// On-board work RAM, 256KB mirrored across the region
	EWRAM_RANGE = NewRange(0x02000000, 0x01000000)
	// In-chip work RAM, 32KB mirrored across the region
	IWRAM_RANGE = NewRange(0x03000000, 0x01000000)
	// Memory mapped I/O registers
	IO_RANGE = NewRange(0x04000000, IO_SIZE)
	// BG and OBJ palettes, 1KB mirrored
	PALETTE_RANGE = NewRange(0x05000000, 0x01000000)
	// Video RAM, 96KB in a 128KB mirror
	VRAM_RANGE = NewRange(0x06000000, 0x01000000)
	// Object attributes, 1KB mirrored
	OAM_RANGE = NewRange(0x07000000, 0x01000000)
	// Game pak ROM and its two wait state mirrors
	ROM_RANGE = NewRange(0x08000000, 0x06000000)
	// Game pak backup SRAM
	SRAM_RANGE = NewRange(0x0e000000, 0x01000000)
)

type Range struct {
	Start  uint32 // Start address
	Length uint32 // Length of the mapping
}

func NewRange(start uint32, length uint32) Range {
	return Range{Start: start, Length: length}
}

// Returns whether `addr` is located inside this range
func (r *Range) Contains(addr uint32) bool {
	return addr >= r.Start && addr-r.Start < r.Length
}

// Returns the offset between `addr` and the `Start` of the range.
// Does not check if the range contains the address, so if `addr`
// is smaller than `Start`, there will be an overflow
func (r *Range) Offset(addr uint32) uint32 {
	return addr - r.Start
}
