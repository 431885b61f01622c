package emulator

// A 32 bit ARM instruction
type Instruction uint32

// Return the condition in bits [31:28]
func (op Instruction) Cond() uint32 {
	return uint32(op) >> 28
}

// Return register index in bits [19:16]
func (op Instruction) Rn() uint32 {
	return (uint32(op) >> 16) & 0xf
}

// Return register index in bits [15:12]
func (op Instruction) Rd() uint32 {
	return (uint32(op) >> 12) & 0xf
}

// Return register index in bits [11:8]
func (op Instruction) Rs() uint32 {
	return (uint32(op) >> 8) & 0xf
}

// Return register index in bits [3:0]
func (op Instruction) Rm() uint32 {
	return uint32(op) & 0xf
}

// Return the data processing opcode in bits [24:21]
func (op Instruction) Opcode() uint32 {
	return (uint32(op) >> 21) & 0xf
}

// Returns true if bit `n` is set
func (op Instruction) Bit(n uint) bool {
	return bit(uint32(op), n)
}

// Return the 8 bit immediate in bits [7:0] rotated right by twice bits [11:8]
func (op Instruction) RotatedImm() (uint32, uint32) {
	rotate := ((uint32(op) >> 8) & 0xf) * 2
	return rotateRight(uint32(op)&0xff, rotate), rotate
}

// Return the 12 bit offset of single data transfers
func (op Instruction) Offset12() uint32 {
	return uint32(op) & 0xfff
}

// Return the split 8 bit offset of halfword transfers
func (op Instruction) Offset8() uint32 {
	return ((uint32(op) >> 4) & 0xf0) | (uint32(op) & 0xf)
}

// Branch offset in bits [23:0], sign-extended and converted to bytes
func (op Instruction) BranchOffset() uint32 {
	return signExtend(uint32(op)&0xffffff, 24) << 2
}

// Return the register list of block transfers
func (op Instruction) RegisterList() uint16 {
	return uint16(op)
}
