/*
 * rvcore - Atomic instructions
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package exec

import (
	"github.com/rcornwell/rvcore/emu/bits"
	"github.com/rcornwell/rvcore/emu/except"
)

const opAmo = 0x2f

// amoKind identifies the read-modify-write operation an AMO* instruction
// performs once it has loaded the old value.
type amoKind uint8

const (
	amoSwap amoKind = iota
	amoAdd
	amoXor
	amoAnd
	amoOr
	amoMin
	amoMax
	amoMinu
	amoMaxu
)

// funct5 values for the AMO opcode (bits [31:27]).
const (
	f5Add   = 0b00000
	f5Swap  = 0b00001
	f5LR    = 0b00010
	f5SC    = 0b00011
	f5Xor   = 0b00100
	f5Or    = 0b01000
	f5And   = 0b01100
	f5Min   = 0b10000
	f5Max   = 0b10100
	f5Minu  = 0b11000
	f5Maxu  = 0b11100
)

// Atomic dispatches the A-extension opcode: LR.W/D, SC.W/D, and the
// AMO*.W/D read-modify-write family.
func Atomic(c Core, instr uint32) except.Code {
	var size uint
	switch funct3(instr) {
	case 2:
		size = 4
	case 3:
		if c.XLen() != 64 {
			return except.IllegalInstr
		}
		size = 8
	default:
		return except.IllegalInstr
	}

	switch funct5(instr) {
	case f5LR:
		return lrExec(c, instr, size)
	case f5SC:
		return scExec(c, instr, size)
	case f5Swap:
		return amoExec(c, instr, size, amoSwap)
	case f5Add:
		return amoExec(c, instr, size, amoAdd)
	case f5Xor:
		return amoExec(c, instr, size, amoXor)
	case f5And:
		return amoExec(c, instr, size, amoAnd)
	case f5Or:
		return amoExec(c, instr, size, amoOr)
	case f5Min:
		return amoExec(c, instr, size, amoMin)
	case f5Max:
		return amoExec(c, instr, size, amoMax)
	case f5Minu:
		return amoExec(c, instr, size, amoMinu)
	case f5Maxu:
		return amoExec(c, instr, size, amoMaxu)
	}
	return except.IllegalInstr
}

// lrExec loads XLEN (size 8) or sign-extended 32 bits (size 4), and on
// success establishes the hart's reservation on the physical word. Any
// read failure or misalignment unregisters instead.
func lrExec(c Core, instr uint32, size uint) except.Code {
	hart := c.HartID()
	virt := effAddr(c, c.Reg(rs1(instr)))

	phys, code := translateAddr(c, virt, except.AccessLoad)
	if code != except.None {
		c.Reservation().Unregister(hart)
		return code
	}
	if !bits.IsAligned(virt, uint64(size)) {
		c.CSR().TValNext = virt
		c.Reservation().Unregister(hart)
		return except.LoadMisaligned
	}

	var v uint64
	if size == 4 {
		v = bits.SignExtend(c.Mem().Read32(hart, phys, true), 32)
	} else {
		v = c.Mem().Read64(hart, phys, true)
	}
	c.Reservation().Register(hart, phys)
	return setRd(c, instr, v)
}

// scExec always unregisters the hart's reservation first. If it was
// never valid, rd <- 1 with no memory effect. Otherwise the address is
// translated and alignment-checked; either failure still writes 1 to
// rd before propagating the fault (the source's literal behaviour).
// Success requires the store address to match the reserved word.
func scExec(c Core, instr uint32, size uint) except.Code {
	hart := c.HartID()
	reg := c.Reservation()
	reservedAddr, wasValid := reg.ReservedAddr(hart)
	reg.Unregister(hart)

	if !wasValid {
		c.SetReg(rd(instr), 1)
		return except.None
	}

	virt := effAddr(c, c.Reg(rs1(instr)))
	phys, code := translateAddr(c, virt, except.AccessStore)
	if code != except.None {
		c.SetReg(rd(instr), 1)
		return code
	}
	if !bits.IsAligned(virt, uint64(size)) {
		c.CSR().TValNext = virt
		c.SetReg(rd(instr), 1)
		return except.StoreMisaligned
	}

	if phys&^uint64(3) != reservedAddr {
		c.SetReg(rd(instr), 1)
		return except.None
	}

	val := c.Reg(rs2(instr))
	var ok bool
	if size == 4 {
		ok = c.Mem().Write32(hart, phys, val, true)
	} else {
		ok = c.Mem().Write64(hart, phys, val, true)
	}
	if !ok {
		c.CSR().TValNext = virt
		c.SetReg(rd(instr), 1)
		return except.StoreAccessFault
	}
	c.SetReg(rd(instr), 0)
	return except.None
}

// amoExec checks write permission via translation, then alignment,
// reads the old value into rd, computes kind(old, rs2), and stores the
// result. 32-bit variants on RV64 sign-extend the loaded value into rd.
func amoExec(c Core, instr uint32, size uint, kind amoKind) except.Code {
	hart := c.HartID()
	virt := effAddr(c, c.Reg(rs1(instr)))

	phys, code := translateAddr(c, virt, except.AccessStore)
	if code != except.None {
		return code
	}
	if !bits.IsAligned(virt, uint64(size)) {
		c.CSR().TValNext = virt
		return except.StoreMisaligned
	}

	var old uint64
	if size == 4 {
		old = c.Mem().Read32(hart, phys, true)
	} else {
		old = c.Mem().Read64(hart, phys, true)
	}
	val := c.Reg(rs2(instr))
	result := amoCompute(kind, size, old, val)

	var ok bool
	if size == 4 {
		ok = c.Mem().Write32(hart, phys, result, true)
	} else {
		ok = c.Mem().Write64(hart, phys, result, true)
	}
	if !ok {
		c.CSR().TValNext = virt
		return except.StoreAccessFault
	}
	if size == 4 {
		return setRd(c, instr, bits.SignExtend(old, 32))
	}
	return setRd(c, instr, old)
}

func amoCompute(kind amoKind, size uint, old, val uint64) uint64 {
	if size == 4 {
		oldV, valV := int32(uint32(old)), int32(uint32(val))
		switch kind {
		case amoSwap:
			return uint64(uint32(val))
		case amoAdd:
			return uint64(uint32(oldV + valV))
		case amoXor:
			return uint64(uint32(old) ^ uint32(val))
		case amoAnd:
			return uint64(uint32(old) & uint32(val))
		case amoOr:
			return uint64(uint32(old) | uint32(val))
		case amoMin:
			if oldV < valV {
				return uint64(uint32(oldV))
			}
			return uint64(uint32(valV))
		case amoMax:
			if oldV > valV {
				return uint64(uint32(oldV))
			}
			return uint64(uint32(valV))
		case amoMinu:
			if uint32(old) < uint32(val) {
				return uint64(uint32(old))
			}
			return uint64(uint32(val))
		default: // amoMaxu
			if uint32(old) > uint32(val) {
				return uint64(uint32(old))
			}
			return uint64(uint32(val))
		}
	}

	oldV, valV := int64(old), int64(val)
	switch kind {
	case amoSwap:
		return val
	case amoAdd:
		return uint64(oldV + valV)
	case amoXor:
		return old ^ val
	case amoAnd:
		return old & val
	case amoOr:
		return old | val
	case amoMin:
		if oldV < valV {
			return old
		}
		return val
	case amoMax:
		if oldV > valV {
			return old
		}
		return val
	case amoMinu:
		if old < val {
			return old
		}
		return val
	default: // amoMaxu
		if old > val {
			return old
		}
		return val
	}
}
