package emulator

import (
	"fmt"
	"log/slog"
)

// Initial stack pointers installed by the BIOS boot code
const (
	SP_USER       = 0x03007f00
	SP_IRQ        = 0x03007fa0
	SP_SUPERVISOR = 0x03007fe0
)

// Entry point of the cartridge
const ROM_ENTRY = 0x08000000

// ARM7TDMI state
type CPU struct {
	Regs   [16]uint32     // Registers visible in the current mode, r15 is the next fetch address
	CPSR   StatusRegister // Current program status register
	Halted bool           // Set by HALTCNT, cleared when an enabled interrupt is requested
	Bus    Bus            // Memory interface
	Irq    *IrqState
	// Optional, checked before every instruction when set
	Debugger *Debugger
	Logger   *slog.Logger

	bankedSP   [6]uint32 // r13 of every bank
	bankedLR   [6]uint32 // r14 of every bank
	spsr       [6]StatusRegister
	userHigh   [5]uint32 // r8-r12 while in FIQ mode
	fiqHigh    [5]uint32 // r8-r12 of FIQ mode while in another mode
	pipelineOp uint32    // Address of the instruction being executed
}

var _ CPUCore = (*CPU)(nil)

// Creates a new CPU state, reset into supervisor mode at the reset vector
func NewCPU(bus Bus, irq *IrqState) *CPU {
	cpu := &CPU{
		Bus:    bus,
		Irq:    irq,
		Logger: slog.Default(),
	}
	cpu.Reset()
	return cpu
}

// Puts the CPU in its power on state: ARM state, supervisor mode, IRQs and
// FIQs masked, PC at the reset vector
func (cpu *CPU) Reset() {
	cpu.Regs = [16]uint32{}
	cpu.bankedSP = [6]uint32{}
	cpu.bankedLR = [6]uint32{}
	cpu.spsr = [6]StatusRegister{}
	cpu.CPSR = StatusRegister(MODE_SUPERVISOR) | FLAG_IRQ | FLAG_FIQ
	cpu.Halted = false
	cpu.Regs[15] = uint32(EXCEPTION_RESET)
}

// Sets up the registers the way the BIOS leaves them before jumping to the
// cartridge entry point
func (cpu *CPU) SkipBIOS() {
	cpu.Reset()
	cpu.bankedSP[MODE_SUPERVISOR.Bank()] = SP_SUPERVISOR
	cpu.bankedSP[MODE_IRQ.Bank()] = SP_IRQ
	cpu.CPSR = StatusRegister(MODE_SYSTEM)
	cpu.Regs[13] = SP_USER
	cpu.Regs[15] = ROM_ENTRY
}

// Stops the CPU until an enabled interrupt is requested
func (cpu *CPU) Halt() {
	cpu.Halted = true
}

// Returns the address of the instruction currently (or last) executed
func (cpu *CPU) CurrentPC() uint32 {
	return cpu.pipelineOp
}

// Returns the SPSR of the current mode. User and system mode have none, the
// CPSR is returned instead
func (cpu *CPU) SPSR() StatusRegister {
	mode := cpu.CPSR.Mode()
	if !mode.HasSPSR() {
		return cpu.CPSR
	}
	return cpu.spsr[mode.Bank()]
}

func (cpu *CPU) setSPSR(val StatusRegister) {
	mode := cpu.CPSR.Mode()
	if mode.HasSPSR() {
		cpu.spsr[mode.Bank()] = val
	}
}

// Switches the visible register bank and the mode bits of the CPSR
func (cpu *CPU) switchMode(mode Mode) {
	old := cpu.CPSR.Mode()
	if old == mode {
		return
	}

	cpu.bankedSP[old.Bank()] = cpu.Regs[13]
	cpu.bankedLR[old.Bank()] = cpu.Regs[14]
	if old == MODE_FIQ {
		copy(cpu.fiqHigh[:], cpu.Regs[8:13])
		copy(cpu.Regs[8:13], cpu.userHigh[:])
	}

	if mode == MODE_FIQ {
		copy(cpu.userHigh[:], cpu.Regs[8:13])
		copy(cpu.Regs[8:13], cpu.fiqHigh[:])
	}
	cpu.Regs[13] = cpu.bankedSP[mode.Bank()]
	cpu.Regs[14] = cpu.bankedLR[mode.Bank()]

	cpu.CPSR.setMode(mode)
}

// Replaces the whole CPSR, switching banks if the mode changes
func (cpu *CPU) setCPSR(val StatusRegister) {
	cpu.switchMode(val.Mode())
	cpu.CPSR = val
}

// Copies the SPSR of the current mode back into the CPSR, used by exception
// returns
func (cpu *CPU) restoreCPSR() {
	if !cpu.CPSR.Mode().HasSPSR() {
		return
	}
	cpu.setCPSR(cpu.SPSR())
}

// Enters an exception. `lr` is the value of r14 in the new mode
func (cpu *CPU) exception(e Exception, lr uint32) {
	old := cpu.CPSR

	cpu.switchMode(e.Mode())
	cpu.setSPSR(old)

	cpu.CPSR.SetThumb(false)
	cpu.CPSR.SetIrqDisabled(true)
	if e == EXCEPTION_RESET || e == EXCEPTION_FIQ {
		cpu.CPSR.SetFiqDisabled(true)
	}

	cpu.Regs[14] = lr
	cpu.Regs[15] = uint32(e)
}

// Returns the value of a register as an operand. Reading r15 gives the
// address of the current instruction plus 8 in ARM state and plus 4 in
// Thumb state
func (cpu *CPU) Reg(index uint32) uint32 {
	if index == 15 {
		if cpu.CPSR.Thumb() {
			return cpu.Regs[15] + 2
		}
		return cpu.Regs[15] + 4
	}
	return cpu.Regs[index]
}

// Sets a register. Writing r15 is a branch
func (cpu *CPU) SetReg(index, val uint32) {
	if index == 15 {
		cpu.branch(val)
		return
	}
	cpu.Regs[index] = val
}

func (cpu *CPU) branch(addr uint32) {
	if cpu.CPSR.Thumb() {
		cpu.Regs[15] = addr &^ 1
	} else {
		cpu.Regs[15] = addr &^ 3
	}
}

// Returns true if the ARM condition `cond` holds for the current flags
func (cpu *CPU) conditionPassed(cond uint32) bool {
	sr := cpu.CPSR
	switch cond {
	case 0x0: // EQ
		return sr.Z()
	case 0x1: // NE
		return !sr.Z()
	case 0x2: // CS
		return sr.C()
	case 0x3: // CC
		return !sr.C()
	case 0x4: // MI
		return sr.N()
	case 0x5: // PL
		return !sr.N()
	case 0x6: // VS
		return sr.V()
	case 0x7: // VC
		return !sr.V()
	case 0x8: // HI
		return sr.C() && !sr.Z()
	case 0x9: // LS
		return !sr.C() || sr.Z()
	case 0xa: // GE
		return sr.N() == sr.V()
	case 0xb: // LT
		return sr.N() != sr.V()
	case 0xc: // GT
		return !sr.Z() && sr.N() == sr.V()
	case 0xd: // LE
		return sr.Z() || sr.N() != sr.V()
	case 0xe: // AL
		return true
	}
	// NV is reserved on ARMv4
	return false
}

// Executes one instruction. A halted CPU only waits for an interrupt
func (cpu *CPU) Run() error {
	if cpu.Halted {
		if !cpu.Irq.Pending() {
			return nil
		}
		cpu.Halted = false
	}

	if cpu.Irq.Active() && !cpu.CPSR.IrqDisabled() {
		// the handler returns with SUBS PC, LR, #4
		cpu.exception(EXCEPTION_IRQ, cpu.Regs[15]+4)
	}

	pc := cpu.Regs[15]
	cpu.pipelineOp = pc
	if cpu.Debugger != nil {
		if err := cpu.Debugger.changedPc(pc); err != nil {
			return err
		}
	}

	var err error
	if cpu.CPSR.Thumb() {
		err = cpu.runThumb(pc)
	} else {
		err = cpu.runArm(pc)
	}
	if err != nil {
		return err
	}

	if cpu.Debugger != nil {
		return cpu.Debugger.triggered()
	}
	return nil
}

func (cpu *CPU) runArm(pc uint32) error {
	pc &^= 3
	instruction := Instruction(cpu.Bus.Load32(pc))
	cpu.Regs[15] = pc + 4

	if !cpu.conditionPassed(instruction.Cond()) {
		return nil
	}
	return cpu.DecodeAndExecute(instruction)
}

func (cpu *CPU) runThumb(pc uint32) error {
	pc &^= 1
	instruction := cpu.Bus.Load16(pc)
	cpu.Regs[15] = pc + 2
	return cpu.DecodeAndExecuteThumb(instruction)
}

// Returns an error for an encoding the CPU does not implement
func (cpu *CPU) unimplemented(kind string, instruction uint32) error {
	return newFault(
		COMPONENT_CPU,
		"%s instruction 0x%08x at 0x%08x: %w",
		kind, instruction, cpu.pipelineOp, ErrUnimplemented,
	)
}

func (cpu *CPU) Load32(addr uint32) uint32 {
	if cpu.Debugger != nil {
		cpu.Debugger.memoryRead(addr)
	}
	return cpu.Bus.Load32(addr)
}

func (cpu *CPU) Load16(addr uint32) uint16 {
	if cpu.Debugger != nil {
		cpu.Debugger.memoryRead(addr)
	}
	return cpu.Bus.Load16(addr)
}

func (cpu *CPU) Load8(addr uint32) uint8 {
	if cpu.Debugger != nil {
		cpu.Debugger.memoryRead(addr)
	}
	return cpu.Bus.Load8(addr)
}

func (cpu *CPU) Store32(addr, val uint32) {
	if cpu.Debugger != nil {
		cpu.Debugger.memoryWrite(addr)
	}
	cpu.Bus.Store32(addr, val)
}

func (cpu *CPU) Store16(addr uint32, val uint16) {
	if cpu.Debugger != nil {
		cpu.Debugger.memoryWrite(addr)
	}
	cpu.Bus.Store16(addr, val)
}

func (cpu *CPU) Store8(addr uint32, val uint8) {
	if cpu.Debugger != nil {
		cpu.Debugger.memoryWrite(addr)
	}
	cpu.Bus.Store8(addr, val)
}

// Word load with the ARM7 rotation of misaligned addresses
func (cpu *CPU) loadRotated32(addr uint32) uint32 {
	return rotateRight(cpu.Load32(addr&^3), (addr&3)*8)
}

// Halfword load, a misaligned address rotates the value by a byte
func (cpu *CPU) loadRotated16(addr uint32) uint32 {
	return rotateRight(uint32(cpu.Load16(addr&^1)), (addr&1)*8)
}

// Signed halfword load, a misaligned address loads a signed byte instead
func (cpu *CPU) loadSigned16(addr uint32) uint32 {
	if addr&1 != 0 {
		return signExtend(uint32(cpu.Load8(addr)), 8)
	}
	return signExtend(uint32(cpu.Load16(addr)), 16)
}

func (cpu *CPU) String() string {
	return fmt.Sprintf(
		"pc=0x%08x cpsr=0x%08x mode=0x%02x thumb=%v halted=%v",
		cpu.pipelineOp, uint32(cpu.CPSR), uint32(cpu.CPSR.Mode()), cpu.CPSR.Thumb(), cpu.Halted,
	)
}
