package emulator

import "math/bits"

// Barrel shifter operations
const (
	SHIFT_LSL = 0
	SHIFT_LSR = 1
	SHIFT_ASR = 2
	SHIFT_ROR = 3
)

// Decodes and executes an ARM instruction whose condition already passed
func (cpu *CPU) DecodeAndExecute(instruction Instruction) error {
	// https://problemkaputt.de/gbatek.htm#armopcodesoverview
	op := uint32(instruction)
	switch {
	case op&0x0ffffff0 == 0x012fff10:
		cpu.OpBX(instruction)
	case (op>>25)&7 == 5:
		cpu.OpB(instruction)
	case (op>>24)&0xf == 0xf:
		cpu.OpSWI(instruction)
	case (op>>25)&7 == 4:
		cpu.OpBlockTransfer(instruction)
	case op&0x0fc000f0 == 0x00000090:
		cpu.OpMultiply(instruction)
	case op&0x0f8000f0 == 0x00800090:
		cpu.OpMultiplyLong(instruction)
	case op&0x0fb00ff0 == 0x01000090:
		cpu.OpSwap(instruction)
	case op&0x0e000090 == 0x00000090 && op&0x60 != 0:
		cpu.OpHalfwordTransfer(instruction)
	case op&0x0fbf0fff == 0x010f0000:
		cpu.OpMRS(instruction)
	case op&0x0db0f000 == 0x0120f000:
		cpu.OpMSR(instruction)
	case (op>>26)&3 == 1:
		if instruction.Bit(25) && instruction.Bit(4) {
			return cpu.unimplemented("undefined ARM", op)
		}
		cpu.OpSingleTransfer(instruction)
	case (op>>26)&3 == 0:
		cpu.OpDataProcessing(instruction)
	default:
		return cpu.unimplemented("ARM", op)
	}
	return nil
}

// Applies a barrel shifter operation, returning the result and the shifter
// carry out. `immediate` selects the encodings where an amount of zero means
// LSR #32, ASR #32 or RRX
func barrelShift(val uint32, kind uint32, amount uint32, carry bool, immediate bool) (uint32, bool) {
	if immediate && amount == 0 {
		switch kind {
		case SHIFT_LSL:
			return val, carry
		case SHIFT_LSR, SHIFT_ASR:
			amount = 32
		case SHIFT_ROR:
			// RRX
			return (oneIfTrue(carry) << 31) | (val >> 1), val&1 != 0
		}
	}
	if amount == 0 {
		return val, carry
	}

	switch kind {
	case SHIFT_LSL:
		switch {
		case amount < 32:
			return val << amount, bit(val, uint(32-amount))
		case amount == 32:
			return 0, val&1 != 0
		}
		return 0, false
	case SHIFT_LSR:
		switch {
		case amount < 32:
			return val >> amount, bit(val, uint(amount-1))
		case amount == 32:
			return 0, bit(val, 31)
		}
		return 0, false
	case SHIFT_ASR:
		if amount < 32 {
			return uint32(int32(val) >> amount), bit(val, uint(amount-1))
		}
		if bit(val, 31) {
			return 0xffffffff, true
		}
		return 0, false
	default:
		amount &= 31
		if amount == 0 {
			return val, bit(val, 31)
		}
		return rotateRight(val, amount), bit(val, uint(amount-1))
	}
}

// Returns the shifted register operand of data processing and single data
// transfer instructions along with the shifter carry out
func (cpu *CPU) shiftedRegister(instruction Instruction) (uint32, bool) {
	op := uint32(instruction)
	kind := (op >> 5) & 3

	if instruction.Bit(4) {
		// shift by register, r15 reads 4 bytes further
		rm := cpu.Reg(instruction.Rm())
		if instruction.Rm() == 15 {
			rm += 4
		}
		amount := cpu.Reg(instruction.Rs()) & 0xff
		return barrelShift(rm, kind, amount, cpu.CPSR.C(), false)
	}

	amount := (op >> 7) & 0x1f
	return barrelShift(cpu.Reg(instruction.Rm()), kind, amount, cpu.CPSR.C(), true)
}

// Branch and Branch with Link
func (cpu *CPU) OpB(instruction Instruction) {
	target := cpu.Reg(15) + instruction.BranchOffset()
	if instruction.Bit(24) {
		cpu.Regs[14] = cpu.Regs[15]
	}
	cpu.branch(target)
}

// Branch and Exchange, bit 0 of the target selects Thumb state
func (cpu *CPU) OpBX(instruction Instruction) {
	target := cpu.Reg(instruction.Rm())
	cpu.CPSR.SetThumb(target&1 != 0)
	cpu.branch(target)
}

// Software Interrupt
func (cpu *CPU) OpSWI(instruction Instruction) {
	cpu.exception(EXCEPTION_SWI, cpu.Regs[15])
}

// Data processing opcodes
const (
	OP_AND = 0x0
	OP_EOR = 0x1
	OP_SUB = 0x2
	OP_RSB = 0x3
	OP_ADD = 0x4
	OP_ADC = 0x5
	OP_SBC = 0x6
	OP_RSC = 0x7
	OP_TST = 0x8
	OP_TEQ = 0x9
	OP_CMP = 0xa
	OP_CMN = 0xb
	OP_ORR = 0xc
	OP_MOV = 0xd
	OP_BIC = 0xe
	OP_MVN = 0xf
)

// AND, EOR, SUB, RSB, ADD, ADC, SBC, RSC, TST, TEQ, CMP, CMN, ORR, MOV, BIC, MVN
func (cpu *CPU) OpDataProcessing(instruction Instruction) {
	var op2 uint32
	var shiftCarry bool
	if instruction.Bit(25) {
		var rotate uint32
		op2, rotate = instruction.RotatedImm()
		shiftCarry = cpu.CPSR.C()
		if rotate != 0 {
			shiftCarry = bit(op2, 31)
		}
	} else {
		op2, shiftCarry = cpu.shiftedRegister(instruction)
	}

	op1 := cpu.Reg(instruction.Rn())
	if instruction.Rn() == 15 && !instruction.Bit(25) && instruction.Bit(4) {
		op1 += 4
	}

	setFlags := instruction.Bit(20)
	rd := instruction.Rd()
	opcode := instruction.Opcode()

	result, carry, overflow, logical := cpu.alu(opcode, op1, op2, shiftCarry)

	if setFlags {
		if rd == 15 {
			// exception return
			cpu.restoreCPSR()
		} else {
			cpu.CPSR.SetNZ(result)
			cpu.CPSR.SetC(carry)
			if !logical {
				cpu.CPSR.SetV(overflow)
			}
		}
	}

	switch opcode {
	case OP_TST, OP_TEQ, OP_CMP, OP_CMN:
		return
	}
	cpu.SetReg(rd, result)
}

// Computes a data processing operation. Returns the result, the carry and
// overflow flags and whether the operation is logical (V unaffected)
func (cpu *CPU) alu(opcode, op1, op2 uint32, shiftCarry bool) (uint32, bool, bool, bool) {
	carryIn := cpu.CPSR.C()
	v := cpu.CPSR.V()

	switch opcode {
	case OP_AND, OP_TST:
		return op1 & op2, shiftCarry, v, true
	case OP_EOR, OP_TEQ:
		return op1 ^ op2, shiftCarry, v, true
	case OP_ORR:
		return op1 | op2, shiftCarry, v, true
	case OP_MOV:
		return op2, shiftCarry, v, true
	case OP_BIC:
		return op1 &^ op2, shiftCarry, v, true
	case OP_MVN:
		return ^op2, shiftCarry, v, true
	case OP_SUB, OP_CMP:
		r, c, o := subWithCarry(op1, op2, true)
		return r, c, o, false
	case OP_RSB:
		r, c, o := subWithCarry(op2, op1, true)
		return r, c, o, false
	case OP_ADD, OP_CMN:
		r, c, o := addWithCarry(op1, op2, false)
		return r, c, o, false
	case OP_ADC:
		r, c, o := addWithCarry(op1, op2, carryIn)
		return r, c, o, false
	case OP_SBC:
		r, c, o := subWithCarry(op1, op2, carryIn)
		return r, c, o, false
	default: // OP_RSC
		r, c, o := subWithCarry(op2, op1, carryIn)
		return r, c, o, false
	}
}

// Move PSR to register
func (cpu *CPU) OpMRS(instruction Instruction) {
	if instruction.Bit(22) {
		cpu.Regs[instruction.Rd()] = uint32(cpu.SPSR())
	} else {
		cpu.Regs[instruction.Rd()] = uint32(cpu.CPSR)
	}
}

// Move register or immediate to PSR fields
func (cpu *CPU) OpMSR(instruction Instruction) {
	var val uint32
	if instruction.Bit(25) {
		val, _ = instruction.RotatedImm()
	} else {
		val = cpu.Reg(instruction.Rm())
	}

	var mask uint32
	if instruction.Bit(19) {
		mask |= FLAGS_MASK
	}
	if instruction.Bit(16) && cpu.CPSR.Mode() != MODE_USER {
		mask |= CONTROL_MSK
	}

	if instruction.Bit(22) {
		if !cpu.CPSR.Mode().HasSPSR() {
			return
		}
		spsr := uint32(cpu.SPSR())
		cpu.setSPSR(StatusRegister((spsr &^ mask) | (val & mask)))
		return
	}

	// the T bit can't be changed with MSR
	mask &^= FLAG_THUMB
	cpsr := uint32(cpu.CPSR)
	cpu.setCPSR(StatusRegister((cpsr &^ mask) | (val & mask)))
}

// MUL and MLA
func (cpu *CPU) OpMultiply(instruction Instruction) {
	// rd and rn are swapped compared to the other instructions
	rd := instruction.Rn()
	result := cpu.Regs[instruction.Rm()] * cpu.Regs[instruction.Rs()]
	if instruction.Bit(21) {
		result += cpu.Regs[instruction.Rd()]
	}
	cpu.Regs[rd] = result

	if instruction.Bit(20) {
		cpu.CPSR.SetNZ(result)
	}
}

// UMULL, UMLAL, SMULL and SMLAL
func (cpu *CPU) OpMultiplyLong(instruction Instruction) {
	rdHi := instruction.Rn()
	rdLo := instruction.Rd()
	rm := cpu.Regs[instruction.Rm()]
	rs := cpu.Regs[instruction.Rs()]

	var result uint64
	if instruction.Bit(22) {
		result = uint64(int64(int32(rm)) * int64(int32(rs)))
	} else {
		hi, lo := bits.Mul32(rm, rs)
		result = uint64(hi)<<32 | uint64(lo)
	}
	if instruction.Bit(21) {
		result += uint64(cpu.Regs[rdHi])<<32 | uint64(cpu.Regs[rdLo])
	}

	cpu.Regs[rdLo] = uint32(result)
	cpu.Regs[rdHi] = uint32(result >> 32)

	if instruction.Bit(20) {
		cpu.CPSR.set(FLAG_N, result>>63 != 0)
		cpu.CPSR.set(FLAG_Z, result == 0)
	}
}

// SWP and SWPB
func (cpu *CPU) OpSwap(instruction Instruction) {
	addr := cpu.Regs[instruction.Rn()]
	src := cpu.Regs[instruction.Rm()]

	if instruction.Bit(22) {
		old := cpu.Load8(addr)
		cpu.Store8(addr, uint8(src))
		cpu.Regs[instruction.Rd()] = uint32(old)
		return
	}

	old := cpu.loadRotated32(addr)
	cpu.Store32(addr&^3, src)
	cpu.Regs[instruction.Rd()] = old
}

// Returns the access address and the written back base of a transfer
func transferAddress(base, offset uint32, pre, up bool) (uint32, uint32) {
	next := base - offset
	if up {
		next = base + offset
	}
	if pre {
		return next, next
	}
	return base, next
}

// LDR, STR, LDRB and STRB
func (cpu *CPU) OpSingleTransfer(instruction Instruction) {
	var offset uint32
	if instruction.Bit(25) {
		offset, _ = cpu.shiftedRegister(instruction)
	} else {
		offset = instruction.Offset12()
	}

	pre := instruction.Bit(24)
	rn := instruction.Rn()
	rd := instruction.Rd()
	addr, next := transferAddress(cpu.Reg(rn), offset, pre, instruction.Bit(23))
	writeBack := !pre || instruction.Bit(21)
	byteAccess := instruction.Bit(22)

	if instruction.Bit(20) {
		var val uint32
		if byteAccess {
			val = uint32(cpu.Load8(addr))
		} else {
			val = cpu.loadRotated32(addr)
		}
		// the loaded value wins over the written back base
		if writeBack {
			cpu.SetReg(rn, next)
		}
		cpu.SetReg(rd, val)
		return
	}

	val := cpu.Reg(rd)
	if rd == 15 {
		val += 4
	}
	if byteAccess {
		cpu.Store8(addr, uint8(val))
	} else {
		cpu.Store32(addr&^3, val)
	}
	if writeBack {
		cpu.SetReg(rn, next)
	}
}

// LDRH, STRH, LDRSB and LDRSH
func (cpu *CPU) OpHalfwordTransfer(instruction Instruction) {
	var offset uint32
	if instruction.Bit(22) {
		offset = instruction.Offset8()
	} else {
		offset = cpu.Reg(instruction.Rm())
	}

	pre := instruction.Bit(24)
	rn := instruction.Rn()
	rd := instruction.Rd()
	addr, next := transferAddress(cpu.Reg(rn), offset, pre, instruction.Bit(23))
	writeBack := !pre || instruction.Bit(21)

	if instruction.Bit(20) {
		var val uint32
		switch (uint32(instruction) >> 5) & 3 {
		case 1:
			val = cpu.loadRotated16(addr)
		case 2:
			val = signExtend(uint32(cpu.Load8(addr)), 8)
		case 3:
			val = cpu.loadSigned16(addr)
		}
		if writeBack {
			cpu.SetReg(rn, next)
		}
		cpu.SetReg(rd, val)
		return
	}

	val := cpu.Reg(rd)
	if rd == 15 {
		val += 4
	}
	cpu.Store16(addr&^1, uint16(val))
	if writeBack {
		cpu.SetReg(rn, next)
	}
}

// LDM and STM
func (cpu *CPU) OpBlockTransfer(instruction Instruction) {
	list := instruction.RegisterList()
	rn := instruction.Rn()
	load := instruction.Bit(20)
	psr := instruction.Bit(22)
	up := instruction.Bit(23)
	pre := instruction.Bit(24)

	count := uint32(bits.OnesCount16(list))
	if list == 0 {
		// empty list: r15 is transferred and the base moves by 16 words
		list = 1 << 15
		count = 16
	}

	base := cpu.Regs[rn]
	var start, final uint32
	if up {
		start = base
		final = base + count*4
		if pre {
			start += 4
		}
	} else {
		start = base - count*4
		final = start
		if !pre {
			start += 4
		}
	}
	writeBack := instruction.Bit(21)

	// with S set and r15 not loaded, the user bank is transferred
	userBank := psr && !(load && list&(1<<15) != 0)
	mode := cpu.CPSR.Mode()
	if userBank {
		cpu.switchMode(MODE_USER)
	}

	addr := start
	if load {
		if writeBack {
			cpu.Regs[rn] = final
		}
		for i := uint32(0); i < 16; i++ {
			if list&(1<<i) == 0 {
				continue
			}
			val := cpu.Load32(addr &^ 3)
			if i == 15 {
				if psr {
					cpu.restoreCPSR()
				}
				cpu.branch(val)
			} else {
				cpu.Regs[i] = val
			}
			addr += 4
		}
	} else {
		first := true
		for i := uint32(0); i < 16; i++ {
			if list&(1<<i) == 0 {
				continue
			}
			val := cpu.Reg(i)
			if i == 15 {
				val += 4
			}
			cpu.Store32(addr&^3, val)
			// the base is written back after the first store
			if first && writeBack {
				cpu.Regs[rn] = final
			}
			first = false
			addr += 4
		}
	}

	if userBank {
		cpu.switchMode(mode)
	}
}
