package emulator

const (
	EWRAM_SIZE   = 256 * 1024
	IWRAM_SIZE   = 32 * 1024
	PALETTE_SIZE = 1024
	VRAM_SIZE    = 96 * 1024
	OAM_SIZE     = 1024
	SRAM_SIZE    = 64 * 1024
)

// A little endian memory block. Offsets are wrapped with `Mask`, which
// implements the mirroring of the smaller regions
type RAM struct {
	Data []byte // RAM buffer
	Mask uint32 // Offset mask, the size must be a power of two
}

// Creates a new zeroed RAM instance of `size` bytes (a power of two)
func NewRAM(size uint32) *RAM {
	if size == 0 || size&(size-1) != 0 {
		panicFmt("ram: size %d is not a power of two", size)
	}
	return &RAM{
		Data: make([]byte, size),
		Mask: size - 1,
	}
}

// Load a 32 bit little endian word at `offset`. The offset is word aligned
func (ram *RAM) Load32(offset uint32) uint32 {
	offset = (offset &^ 3) & ram.Mask
	d := ram.Data[offset : offset+4]
	return uint32(d[0]) | uint32(d[1])<<8 | uint32(d[2])<<16 | uint32(d[3])<<24
}

// Load a 16 bit little endian value at `offset`. The offset is halfword aligned
func (ram *RAM) Load16(offset uint32) uint16 {
	offset = (offset &^ 1) & ram.Mask
	return uint16(ram.Data[offset]) | uint16(ram.Data[offset+1])<<8
}

// Fetches the byte at `offset`
func (ram *RAM) Load8(offset uint32) byte {
	return ram.Data[offset&ram.Mask]
}

// Store a 32 bit little endian word `val` into `offset`
func (ram *RAM) Store32(offset, val uint32) {
	offset = (offset &^ 3) & ram.Mask
	ram.Data[offset+0] = byte(val)
	ram.Data[offset+1] = byte(val >> 8)
	ram.Data[offset+2] = byte(val >> 16)
	ram.Data[offset+3] = byte(val >> 24)
}

// Stores a 16 bit little endian value into `offset`
func (ram *RAM) Store16(offset uint32, val uint16) {
	offset = (offset &^ 1) & ram.Mask
	ram.Data[offset+0] = byte(val)
	ram.Data[offset+1] = byte(val >> 8)
}

// Sets the byte at `offset`
func (ram *RAM) Store8(offset uint32, val byte) {
	ram.Data[offset&ram.Mask] = val
}
