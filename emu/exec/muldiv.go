/*
 * rvcore - Multiply and divide instructions
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
	"math"
	stdbits "math/bits"

	"github.com/rcornwell/rvcore/emu/except"
)

// MulDiv executes the M-extension OP-encoded family (funct7==1):
// MUL/MULH/MULHSU/MULHU/DIV/DIVU/REM/REMU.
func MulDiv(c Core, instr uint32) except.Code {
	switch funct3(instr) {
	case 0:
		return setRd(c, instr, mulLow(c, instr))
	case 1:
		return setRd(c, instr, mulHigh(c, instr, true, true))
	case 2:
		return setRd(c, instr, mulHigh(c, instr, true, false))
	case 3:
		return setRd(c, instr, mulHigh(c, instr, false, false))
	case 4:
		return setRd(c, instr, divRem(c, instr, true, false))
	case 5:
		return setRd(c, instr, divRem(c, instr, false, false))
	case 6:
		return setRd(c, instr, divRem(c, instr, true, true))
	default:
		return setRd(c, instr, divRem(c, instr, false, true))
	}
}

// MulDiv32 executes the RV64-only OP-32 M-extension family (funct7==1):
// MULW/DIVW/DIVUW/REMW/REMUW, always operating on the low 32 bits of
// each operand.
func MulDiv32(c Core, instr uint32) except.Code {
	if c.XLen() != 64 {
		return except.IllegalInstr
	}
	switch funct3(instr) {
	case 0:
		return setRd(c, instr, mulLow32(c, instr))
	case 4:
		return setRd(c, instr, divRem32(c, instr, true, false))
	case 5:
		return setRd(c, instr, divRem32(c, instr, false, false))
	case 6:
		return setRd(c, instr, divRem32(c, instr, true, true))
	case 7:
		return setRd(c, instr, divRem32(c, instr, false, true))
	default:
		return except.IllegalInstr
	}
}

func mulLow(c Core, instr uint32) uint64 {
	a := c.Reg(rs1(instr))
	b := c.Reg(rs2(instr))
	return xval(c, a*b)
}

func mulLow32(c Core, instr uint32) uint64 {
	a := uint32(c.Reg(rs1(instr)))
	b := uint32(c.Reg(rs2(instr)))
	prod := a * b
	return uint64(int64(int32(prod)))
}

// mulHigh returns the top XLEN bits of the 2*XLEN-bit product, using
// the widen-unsigned-then-correct-for-sign identity: mulh(a,b) =
// mulhu(a,b) - (a<0 ? b : 0) - (b<0 ? a : 0), which collapses MULH/
// MULHSU/MULHU to one routine parameterised by which operand is signed.
func mulHigh(c Core, instr uint32, signedA, signedB bool) uint64 {
	if c.XLen() != 64 {
		a32 := uint32(c.Reg(rs1(instr)))
		b32 := uint32(c.Reg(rs2(instr)))
		hi := uint32((uint64(a32) * uint64(b32)) >> 32)
		if signedA && int32(a32) < 0 {
			hi -= b32
		}
		if signedB && int32(b32) < 0 {
			hi -= a32
		}
		return xval(c, uint64(hi))
	}
	a := c.Reg(rs1(instr))
	b := c.Reg(rs2(instr))
	hi, _ := stdbits.Mul64(a, b)
	if signedA && int64(a) < 0 {
		hi -= b
	}
	if signedB && int64(b) < 0 {
		hi -= a
	}
	return hi
}

// divRem implements DIV/DIVU/REM/REMU: division by zero yields -1 (DIV)
// or MAX (DIVU) with the remainder equal to the dividend; signed
// overflow (MinInt / -1) yields MinInt (quotient) or 0 (remainder).
func divRem(c Core, instr uint32, signed, wantRem bool) uint64 {
	if c.XLen() != 64 {
		a := uint32(c.Reg(rs1(instr)))
		b := uint32(c.Reg(rs2(instr)))
		if signed {
			as, bs := int32(a), int32(b)
			switch {
			case bs == 0:
				if wantRem {
					return xval(c, uint64(uint32(as)))
				}
				return xval(c, uint64(^uint32(0)))
			case as == math.MinInt32 && bs == -1:
				if wantRem {
					return xval(c, 0)
				}
				return xval(c, uint64(uint32(as)))
			case wantRem:
				return xval(c, uint64(uint32(as%bs)))
			default:
				return xval(c, uint64(uint32(as/bs)))
			}
		}
		if b == 0 {
			if wantRem {
				return xval(c, uint64(a))
			}
			return xval(c, uint64(^uint32(0)))
		}
		if wantRem {
			return xval(c, uint64(a%b))
		}
		return xval(c, uint64(a/b))
	}

	a := c.Reg(rs1(instr))
	b := c.Reg(rs2(instr))
	if signed {
		as, bs := int64(a), int64(b)
		switch {
		case bs == 0:
			if wantRem {
				return uint64(as)
			}
			return ^uint64(0)
		case as == math.MinInt64 && bs == -1:
			if wantRem {
				return 0
			}
			return uint64(as)
		case wantRem:
			return uint64(as % bs)
		default:
			return uint64(as / bs)
		}
	}
	if b == 0 {
		if wantRem {
			return a
		}
		return ^uint64(0)
	}
	if wantRem {
		return a % b
	}
	return a / b
}

func divRem32(c Core, instr uint32, signed, wantRem bool) uint64 {
	a := uint32(c.Reg(rs1(instr)))
	b := uint32(c.Reg(rs2(instr)))
	if signed {
		as, bs := int32(a), int32(b)
		switch {
		case bs == 0:
			if wantRem {
				return uint64(int64(as))
			}
			return ^uint64(0)
		case as == math.MinInt32 && bs == -1:
			if wantRem {
				return 0
			}
			return uint64(int64(as))
		case wantRem:
			return uint64(int64(as % bs))
		default:
			return uint64(int64(as / bs))
		}
	}
	if b == 0 {
		if wantRem {
			return uint64(int64(int32(a)))
		}
		return ^uint64(0)
	}
	if wantRem {
		return uint64(int64(int32(a % b)))
	}
	return uint64(int64(int32(a / b)))
}
