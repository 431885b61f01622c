package emulator

import (
	"fmt"
	"math/bits"
	"reflect"
)

// Names of the ARM registers
var RegisterNames = []string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7", // 00
	"r8", "r9", "r10", "r11", "r12", "sp", "lr", "pc", // 08
}

// Returns the name of the register index
func GetRegisterName(index uint32) string {
	return RegisterNames[index]
}

// Returns the register index by it's name (in RegisterNames). Returns false
// if the register name does not exist
func GetRegisterIndexByName(name string) (uint32, bool) {
	for idx, n := range RegisterNames {
		if n == name {
			return uint32(idx), true
		}
	}
	return 0, false
}

// Formatted panic(), only used for states the code itself makes impossible
func panicFmt(format string, a ...interface{}) {
	panic(fmt.Sprintf(format, a...))
}

func oneIfTrue(val bool) uint32 {
	if val {
		return 1
	}
	return 0
}

// Returns true if `v` is nil or holds a nil pointer
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Returns bit `n` of `val`
func bit(val uint32, n uint) bool {
	return (val>>n)&1 != 0
}

func rotateRight(val uint32, amount uint32) uint32 {
	return bits.RotateLeft32(val, -int(amount&31))
}

// Sign-extends the low `width` bits of `val`
func signExtend(val uint32, width uint) uint32 {
	shift := 32 - width
	return uint32(int32(val<<shift) >> shift)
}

// Adds `a`, `b` and `carry`, returning the result along with the carry and
// overflow flags
func addWithCarry(a, b uint32, carry bool) (uint32, bool, bool) {
	sum := uint64(a) + uint64(b) + uint64(oneIfTrue(carry))
	r := uint32(sum)
	c := sum > 0xffffffff
	v := (^(a ^ b) & (a ^ r) & 0x80000000) != 0
	return r, c, v
}

// Subtracts `b` from `a` with ARM borrow semantics (carry set means no borrow)
func subWithCarry(a, b uint32, carry bool) (uint32, bool, bool) {
	return addWithCarry(a, ^b, carry)
}
