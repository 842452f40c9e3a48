/*
 * rvcore - Branch and jump instructions
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

const (
	opBranch = 0x63
	opJal    = 0x6f
	opJalr   = 0x67
)

// Branch executes BEQ/BNE/BLT/BGE/BLTU/BGEU. Target = pc +
// signext(B-imm); if taken and the target is 4-misaligned, raises
// instruction_address_misaligned with tval_next = target instead of
// jumping.
func Branch(c Core, instr uint32) except.Code {
	a := c.Reg(rs1(instr))
	b := c.Reg(rs2(instr))

	var taken bool
	switch funct3(instr) {
	case 0: // BEQ
		taken = a == b
	case 1: // BNE
		taken = a != b
	case 4: // BLT
		taken = int64(a) < int64(b)
	case 5: // BGE
		taken = int64(a) >= int64(b)
	case 6: // BLTU
		taken = a < b
	case 7: // BGEU
		taken = a >= b
	default:
		return except.IllegalInstr
	}

	if !taken {
		return except.None
	}

	target := effAddr(c, c.PC()+bits.ImmB(instr))
	if !bits.IsAligned(target, 4) {
		c.CSR().TValNext = target
		return except.InstrMisaligned
	}
	c.SetNextPC(target)
	return except.None
}

// Jal: link = pc+4, target = pc + signext(J-imm), same alignment rule
// as Branch.
func Jal(c Core, instr uint32) except.Code {
	target := effAddr(c, c.PC()+bits.ImmJ(instr))
	if !bits.IsAligned(target, 4) {
		c.CSR().TValNext = target
		return except.InstrMisaligned
	}
	c.SetReg(rd(instr), xval(c, c.PC()+4))
	c.SetNextPC(target)
	return except.None
}

// Jalr: target = (rs1 + signext(imm12)) &^ 1.
func Jalr(c Core, instr uint32) except.Code {
	target := effAddr(c, c.Reg(rs1(instr))+bits.ImmI(instr)) &^ 1
	if !bits.IsAligned(target, 4) {
		c.CSR().TValNext = target
		return except.InstrMisaligned
	}
	link := c.PC() + 4
	c.SetReg(rd(instr), xval(c, link))
	c.SetNextPC(target)
	return except.None
}
