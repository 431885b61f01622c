package emulator

import (
	"encoding/binary"
	"fmt"
	"io"
)

const BIOS_SIZE uint32 = 16 * 1024 // BIOS images are always 16KB in length

// This stores the raw BIOS data
type BIOS struct {
	Data []byte // Raw BIOS data
}

// Loads a BIOS from a reader. Note that the BIOS must be 16 * 1024 bytes
// in size
func LoadBIOS(r io.Reader) (*BIOS, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(BIOS_SIZE)+1))
	if err != nil {
		return nil, fmt.Errorf("reading bios: %w", err)
	}
	if len(data) != int(BIOS_SIZE) {
		return nil, fmt.Errorf("invalid BIOS size (expected %d, got %d (bytes))", BIOS_SIZE, len(data))
	}
	// success
	return &BIOS{Data: data}, nil
}

// Returns a 32 bit little endian value at `offset`. Note that `offset` is
// not the absolute address used by the CPU, instead it is an offset in the
// BIOS memory range
func (bios *BIOS) Load32(offset uint32) uint32 {
	offset &^= 3
	b0 := uint32(bios.Data[offset+0])
	b1 := uint32(bios.Data[offset+1])
	b2 := uint32(bios.Data[offset+2])
	b3 := uint32(bios.Data[offset+3])
	return b0 | (b1 << 8) | (b2 << 16) | (b3 << 24)
}

// Returns a 16 bit little endian value at `offset`
func (bios *BIOS) Load16(offset uint32) uint16 {
	offset &^= 1
	return uint16(bios.Data[offset]) | uint16(bios.Data[offset+1])<<8
}

// Fetch byte at `offset`
func (bios *BIOS) Load8(offset uint32) byte {
	return bios.Data[offset]
}

// ARM code of the minimal BIOS, keyed by offset
var minimalBIOSCode = map[uint32][]uint32{
	// SWI vector: MOVS PC, LR. Software interrupts return immediately
	uint32(EXCEPTION_SWI): {0xe1b0f00e},
	// IRQ vector: the BIOS dispatcher that calls the handler stored at
	// 0x03007ffc
	uint32(EXCEPTION_IRQ): {
		0xe92d500f, // STMFD SP!, {R0-R3, R12, LR}
		0xe3a00301, // MOV R0, #0x04000000
		0xe28fe000, // ADD LR, PC, #0
		0xe510f004, // LDR PC, [R0, #-4]
		0xe8bd500f, // LDMFD SP!, {R0-R3, R12, LR}
		0xe25ef004, // SUBS PC, LR, #4
	},
}

// Returns a BIOS image that only implements the interrupt dispatcher. It is
// used to boot cartridges directly when no BIOS dump is available
func NewMinimalBIOS() *BIOS {
	data := make([]byte, BIOS_SIZE)
	for offset, code := range minimalBIOSCode {
		for i, word := range code {
			binary.LittleEndian.PutUint32(data[offset+uint32(i)*4:], word)
		}
	}
	return &BIOS{Data: data}
}
