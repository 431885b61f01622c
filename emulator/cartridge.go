package emulator

import (
	"fmt"
	"io"
	"strings"
)

const (
	ROM_MAX_SIZE    = 32 * 1024 * 1024 // Largest game pak ROM
	ROM_HEADER_SIZE = 0xc0             // Cartridge header, entry point included
)

// Game pak ROM
type Cartridge struct {
	Data     []byte // Raw ROM data
	Title    string // Game title from the header
	GameCode string // Four character game code from the header
}

// Loads a game pak ROM from a reader
func LoadROM(r io.Reader) (*Cartridge, error) {
	data, err := io.ReadAll(io.LimitReader(r, ROM_MAX_SIZE+1))
	if err != nil {
		return nil, fmt.Errorf("reading rom: %w", err)
	}
	if len(data) < ROM_HEADER_SIZE {
		return nil, fmt.Errorf("rom too small (%d bytes, header is %d bytes)", len(data), ROM_HEADER_SIZE)
	}
	if len(data) > ROM_MAX_SIZE {
		return nil, fmt.Errorf("rom too large (more than %d bytes)", ROM_MAX_SIZE)
	}

	return &Cartridge{
		Data:     data,
		Title:    headerString(data[0xa0:0xac]),
		GameCode: headerString(data[0xac:0xb0]),
	}, nil
}

func headerString(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}

// Fetch byte at `offset`. Reads past the end of the ROM return the low
// address bits the way the real bus does
func (cart *Cartridge) Load8(offset uint32) byte {
	offset &= ROM_MAX_SIZE - 1
	if int(offset) < len(cart.Data) {
		return cart.Data[offset]
	}
	return byte(openBus(offset) >> ((offset & 1) * 8))
}

// Returns a 16 bit little endian value at `offset`
func (cart *Cartridge) Load16(offset uint32) uint16 {
	offset = (offset &^ 1) & (ROM_MAX_SIZE - 1)
	if int(offset)+1 < len(cart.Data) {
		return uint16(cart.Data[offset]) | uint16(cart.Data[offset+1])<<8
	}
	return openBus(offset)
}

// Returns a 32 bit little endian value at `offset`
func (cart *Cartridge) Load32(offset uint32) uint32 {
	offset &^= 3
	return uint32(cart.Load16(offset)) | uint32(cart.Load16(offset+2))<<16
}

func openBus(offset uint32) uint16 {
	return uint16(offset >> 1)
}
