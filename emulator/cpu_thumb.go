package emulator

import "math/bits"

// Thumb register list bit that adds LR to PUSH or PC to POP
const THUMB_PUSH_POP_EXTRA = 1 << 8

// Decodes and executes a Thumb instruction
func (cpu *CPU) DecodeAndExecuteThumb(op uint16) error {
	// https://problemkaputt.de/gbatek.htm#thumbinstructionsummary
	switch {
	case op>>11 == 0x3:
		cpu.OpThumbAddSub(op)
	case op>>13 == 0:
		cpu.OpThumbShift(op)
	case op>>13 == 1:
		cpu.OpThumbImmediate(op)
	case op>>10 == 0x10:
		cpu.OpThumbALU(op)
	case op>>10 == 0x11:
		cpu.OpThumbHiRegister(op)
	case op>>11 == 0x9:
		cpu.OpThumbLoadPC(op)
	case op>>12 == 0x5:
		if op&(1<<9) != 0 {
			cpu.OpThumbTransferSigned(op)
		} else {
			cpu.OpThumbTransferRegister(op)
		}
	case op>>13 == 0x3:
		cpu.OpThumbTransferImmediate(op)
	case op>>12 == 0x8:
		cpu.OpThumbTransferHalfword(op)
	case op>>12 == 0x9:
		cpu.OpThumbTransferSP(op)
	case op>>12 == 0xa:
		cpu.OpThumbLoadAddress(op)
	case op>>8 == 0xb0:
		cpu.OpThumbAdjustSP(op)
	case op>>12 == 0xb && (op>>9)&3 == 2:
		cpu.OpThumbPushPop(op)
	case op>>12 == 0xc:
		cpu.OpThumbBlockTransfer(op)
	case op>>8 == 0xdf:
		cpu.exception(EXCEPTION_SWI, cpu.Regs[15])
	case op>>12 == 0xd:
		if (op>>8)&0xf == 0xe {
			return cpu.unimplemented("undefined Thumb", uint32(op))
		}
		cpu.OpThumbConditionalBranch(op)
	case op>>11 == 0x1c:
		cpu.OpThumbBranch(op)
	case op>>12 == 0xf:
		cpu.OpThumbLongBranch(op)
	default:
		return cpu.unimplemented("Thumb", uint32(op))
	}
	return nil
}

// Barrel shifter operation of the format 4 shift opcodes
var thumbShiftKinds = [16]uint32{0x2: SHIFT_LSL, 0x3: SHIFT_LSR, 0x4: SHIFT_ASR, 0x7: SHIFT_ROR}

func low3(op uint16, shift uint) uint32 {
	return uint32(op>>shift) & 7
}

func (cpu *CPU) setArithmeticFlags(r uint32, c, v bool) {
	cpu.CPSR.SetNZ(r)
	cpu.CPSR.SetC(c)
	cpu.CPSR.SetV(v)
}

// Format 1: LSL, LSR and ASR by immediate
func (cpu *CPU) OpThumbShift(op uint16) {
	amount := uint32(op>>6) & 0x1f
	kind := uint32(op>>11) & 3
	r, c := barrelShift(cpu.Regs[low3(op, 3)], kind, amount, cpu.CPSR.C(), true)
	cpu.Regs[low3(op, 0)] = r
	cpu.CPSR.SetNZ(r)
	cpu.CPSR.SetC(c)
}

// Format 2: ADD and SUB with a register or a 3 bit immediate
func (cpu *CPU) OpThumbAddSub(op uint16) {
	operand := low3(op, 6)
	if op&(1<<10) == 0 {
		operand = cpu.Regs[operand]
	}
	rs := cpu.Regs[low3(op, 3)]

	var r uint32
	var c, v bool
	if op&(1<<9) != 0 {
		r, c, v = subWithCarry(rs, operand, true)
	} else {
		r, c, v = addWithCarry(rs, operand, false)
	}
	cpu.Regs[low3(op, 0)] = r
	cpu.setArithmeticFlags(r, c, v)
}

// Format 3: MOV, CMP, ADD and SUB with an 8 bit immediate
func (cpu *CPU) OpThumbImmediate(op uint16) {
	rd := low3(op, 8)
	imm := uint32(op & 0xff)

	switch (op >> 11) & 3 {
	case 0: // MOV
		cpu.Regs[rd] = imm
		cpu.CPSR.SetNZ(imm)
	case 1: // CMP
		r, c, v := subWithCarry(cpu.Regs[rd], imm, true)
		cpu.setArithmeticFlags(r, c, v)
	case 2: // ADD
		r, c, v := addWithCarry(cpu.Regs[rd], imm, false)
		cpu.Regs[rd] = r
		cpu.setArithmeticFlags(r, c, v)
	case 3: // SUB
		r, c, v := subWithCarry(cpu.Regs[rd], imm, true)
		cpu.Regs[rd] = r
		cpu.setArithmeticFlags(r, c, v)
	}
}

// Format 4: register to register ALU operations
func (cpu *CPU) OpThumbALU(op uint16) {
	rd := low3(op, 0)
	a := cpu.Regs[rd]
	b := cpu.Regs[low3(op, 3)]
	carry := cpu.CPSR.C()

	switch (op >> 6) & 0xf {
	case 0x0: // AND
		cpu.Regs[rd] = a & b
		cpu.CPSR.SetNZ(a & b)
	case 0x1: // EOR
		cpu.Regs[rd] = a ^ b
		cpu.CPSR.SetNZ(a ^ b)
	case 0x2, 0x3, 0x4, 0x7: // LSL, LSR, ASR, ROR
		r, c := barrelShift(a, thumbShiftKinds[(op>>6)&0xf], b&0xff, carry, false)
		cpu.Regs[rd] = r
		cpu.CPSR.SetNZ(r)
		cpu.CPSR.SetC(c)
	case 0x5: // ADC
		r, c, v := addWithCarry(a, b, carry)
		cpu.Regs[rd] = r
		cpu.setArithmeticFlags(r, c, v)
	case 0x6: // SBC
		r, c, v := subWithCarry(a, b, carry)
		cpu.Regs[rd] = r
		cpu.setArithmeticFlags(r, c, v)
	case 0x8: // TST
		cpu.CPSR.SetNZ(a & b)
	case 0x9: // NEG
		r, c, v := subWithCarry(0, b, true)
		cpu.Regs[rd] = r
		cpu.setArithmeticFlags(r, c, v)
	case 0xa: // CMP
		r, c, v := subWithCarry(a, b, true)
		cpu.setArithmeticFlags(r, c, v)
	case 0xb: // CMN
		r, c, v := addWithCarry(a, b, false)
		cpu.setArithmeticFlags(r, c, v)
	case 0xc: // ORR
		cpu.Regs[rd] = a | b
		cpu.CPSR.SetNZ(a | b)
	case 0xd: // MUL
		cpu.Regs[rd] = a * b
		cpu.CPSR.SetNZ(a * b)
	case 0xe: // BIC
		cpu.Regs[rd] = a &^ b
		cpu.CPSR.SetNZ(a &^ b)
	case 0xf: // MVN
		cpu.Regs[rd] = ^b
		cpu.CPSR.SetNZ(^b)
	}
}

// Format 5: ADD, CMP and MOV on the high registers, and BX
func (cpu *CPU) OpThumbHiRegister(op uint16) {
	rd := low3(op, 0) | uint32(op>>4)&8
	rs := uint32(op>>3) & 0xf
	val := cpu.Reg(rs)

	switch (op >> 8) & 3 {
	case 0: // ADD
		cpu.SetReg(rd, cpu.Reg(rd)+val)
	case 1: // CMP
		r, c, v := subWithCarry(cpu.Reg(rd), val, true)
		cpu.setArithmeticFlags(r, c, v)
	case 2: // MOV
		cpu.SetReg(rd, val)
	case 3: // BX
		cpu.CPSR.SetThumb(val&1 != 0)
		cpu.branch(val)
	}
}

// Format 6: LDR Rd, [PC, #imm]
func (cpu *CPU) OpThumbLoadPC(op uint16) {
	addr := (cpu.Reg(15) &^ 2) + uint32(op&0xff)*4
	cpu.Regs[low3(op, 8)] = cpu.Load32(addr)
}

// Format 7: STR, STRB, LDR and LDRB with a register offset
func (cpu *CPU) OpThumbTransferRegister(op uint16) {
	addr := cpu.Regs[low3(op, 3)] + cpu.Regs[low3(op, 6)]
	rd := low3(op, 0)

	switch (op >> 10) & 3 {
	case 0: // STR
		cpu.Store32(addr&^3, cpu.Regs[rd])
	case 1: // STRB
		cpu.Store8(addr, uint8(cpu.Regs[rd]))
	case 2: // LDR
		cpu.Regs[rd] = cpu.loadRotated32(addr)
	case 3: // LDRB
		cpu.Regs[rd] = uint32(cpu.Load8(addr))
	}
}

// Format 8: STRH, LDSB, LDRH and LDSH
func (cpu *CPU) OpThumbTransferSigned(op uint16) {
	addr := cpu.Regs[low3(op, 3)] + cpu.Regs[low3(op, 6)]
	rd := low3(op, 0)

	switch (op >> 10) & 3 {
	case 0: // STRH
		cpu.Store16(addr&^1, uint16(cpu.Regs[rd]))
	case 1: // LDSB
		cpu.Regs[rd] = signExtend(uint32(cpu.Load8(addr)), 8)
	case 2: // LDRH
		cpu.Regs[rd] = cpu.loadRotated16(addr)
	case 3: // LDSH
		cpu.Regs[rd] = cpu.loadSigned16(addr)
	}
}

// Format 9: STR, LDR, STRB and LDRB with a 5 bit immediate offset
func (cpu *CPU) OpThumbTransferImmediate(op uint16) {
	offset := uint32(op>>6) & 0x1f
	base := cpu.Regs[low3(op, 3)]
	rd := low3(op, 0)
	byteAccess := op&(1<<12) != 0
	load := op&(1<<11) != 0

	if !byteAccess {
		offset *= 4
	}
	addr := base + offset

	switch {
	case load && byteAccess:
		cpu.Regs[rd] = uint32(cpu.Load8(addr))
	case load:
		cpu.Regs[rd] = cpu.loadRotated32(addr)
	case byteAccess:
		cpu.Store8(addr, uint8(cpu.Regs[rd]))
	default:
		cpu.Store32(addr&^3, cpu.Regs[rd])
	}
}

// Format 10: STRH and LDRH with a 5 bit immediate offset
func (cpu *CPU) OpThumbTransferHalfword(op uint16) {
	addr := cpu.Regs[low3(op, 3)] + (uint32(op>>6)&0x1f)*2
	rd := low3(op, 0)

	if op&(1<<11) != 0 {
		cpu.Regs[rd] = cpu.loadRotated16(addr)
	} else {
		cpu.Store16(addr&^1, uint16(cpu.Regs[rd]))
	}
}

// Format 11: SP relative STR and LDR
func (cpu *CPU) OpThumbTransferSP(op uint16) {
	addr := cpu.Regs[13] + uint32(op&0xff)*4
	rd := low3(op, 8)

	if op&(1<<11) != 0 {
		cpu.Regs[rd] = cpu.loadRotated32(addr)
	} else {
		cpu.Store32(addr&^3, cpu.Regs[rd])
	}
}

// Format 12: ADD Rd, PC/SP, #imm
func (cpu *CPU) OpThumbLoadAddress(op uint16) {
	base := cpu.Reg(15) &^ 2
	if op&(1<<11) != 0 {
		base = cpu.Regs[13]
	}
	cpu.Regs[low3(op, 8)] = base + uint32(op&0xff)*4
}

// Format 13: ADD SP, #+/-imm
func (cpu *CPU) OpThumbAdjustSP(op uint16) {
	offset := uint32(op&0x7f) * 4
	if op&(1<<7) != 0 {
		cpu.Regs[13] -= offset
	} else {
		cpu.Regs[13] += offset
	}
}

// Format 14: PUSH {Rlist, LR} and POP {Rlist, PC}
func (cpu *CPU) OpThumbPushPop(op uint16) {
	list := op & 0xff
	extra := op&THUMB_PUSH_POP_EXTRA != 0

	if op&(1<<11) != 0 {
		// POP
		addr := cpu.Regs[13]
		for i := uint32(0); i < 8; i++ {
			if list&(1<<i) != 0 {
				cpu.Regs[i] = cpu.Load32(addr)
				addr += 4
			}
		}
		if extra {
			cpu.branch(cpu.Load32(addr))
			addr += 4
		}
		cpu.Regs[13] = addr
		return
	}

	// PUSH
	count := uint32(bits.OnesCount16(list)) + oneIfTrue(extra)
	addr := cpu.Regs[13] - count*4
	cpu.Regs[13] = addr
	for i := uint32(0); i < 8; i++ {
		if list&(1<<i) != 0 {
			cpu.Store32(addr, cpu.Regs[i])
			addr += 4
		}
	}
	if extra {
		cpu.Store32(addr, cpu.Regs[14])
	}
}

// Format 15: STMIA and LDMIA Rb!
func (cpu *CPU) OpThumbBlockTransfer(op uint16) {
	rb := low3(op, 8)
	list := op & 0xff
	addr := cpu.Regs[rb]

	if list == 0 {
		// empty list: r15 is transferred and the base moves by 16 words
		if op&(1<<11) != 0 {
			cpu.branch(cpu.Load32(addr &^ 3))
		} else {
			cpu.Store32(addr&^3, cpu.Reg(15)+2)
		}
		cpu.Regs[rb] = addr + 0x40
		return
	}

	final := addr + uint32(bits.OnesCount16(list))*4
	if op&(1<<11) != 0 {
		cpu.Regs[rb] = final
		for i := uint32(0); i < 8; i++ {
			if list&(1<<i) != 0 {
				cpu.Regs[i] = cpu.Load32(addr &^ 3)
				addr += 4
			}
		}
		return
	}

	first := true
	for i := uint32(0); i < 8; i++ {
		if list&(1<<i) == 0 {
			continue
		}
		cpu.Store32(addr&^3, cpu.Regs[i])
		if first {
			cpu.Regs[rb] = final
			first = false
		}
		addr += 4
	}
}

// Format 16: B<cond> with an 8 bit offset
func (cpu *CPU) OpThumbConditionalBranch(op uint16) {
	if !cpu.conditionPassed(uint32(op>>8) & 0xf) {
		return
	}
	offset := signExtend(uint32(op&0xff), 8) << 1
	cpu.branch(cpu.Reg(15) + offset)
}

// Format 18: unconditional B with an 11 bit offset
func (cpu *CPU) OpThumbBranch(op uint16) {
	offset := signExtend(uint32(op&0x7ff), 11) << 1
	cpu.branch(cpu.Reg(15) + offset)
}

// Format 19: BL, split in two halves. The first one stores the upper part
// of the offset in LR, the second one branches
func (cpu *CPU) OpThumbLongBranch(op uint16) {
	offset := uint32(op & 0x7ff)

	if op&(1<<11) == 0 {
		cpu.Regs[14] = cpu.Reg(15) + signExtend(offset, 11)<<12
		return
	}

	next := cpu.Regs[15]
	cpu.branch(cpu.Regs[14] + offset<<1)
	cpu.Regs[14] = next | 1
}
