/*
 * rvcore - Integer arithmetic and logical instructions
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

// Opcodes handled by this file.
const (
	opOpImm   = 0x13
	opOp      = 0x33
	opLui     = 0x37
	opAuiPc   = 0x17
	opOpImm32 = 0x1b
	opOp32    = 0x3b
)

// alt reports whether bit 30 (the ADD/SUB and SRL/SRA discriminator) is
// set in instr's funct7 field.
func alt(instr uint32) bool { return instr&(1<<30) != 0 }

func shamt(c Core, instr uint32) uint {
	return uint((instr >> 20) & uint32(shiftMask(c)))
}

func shiftMask(c Core) uint64 {
	if c.XLen() == 32 {
		return 0x1f
	}
	return 0x3f
}

// OpImm executes the OP-IMM family: ADDI/SLTI/SLTIU/XORI/ORI/ANDI/
// SLLI/SRLI/SRAI.
func OpImm(c Core, instr uint32) except.Code {
	a := int64(c.Reg(rs1(instr)))
	imm := int64(bits.ImmI(instr))

	switch funct3(instr) {
	case 0: // ADDI
		return setRd(c, instr, uint64(a+imm))
	case 1: // SLLI
		return setRd(c, instr, uint64(a)<<shamt(c, instr))
	case 2: // SLTI
		return setRd(c, instr, boolToU64(a < imm))
	case 3: // SLTIU
		return setRd(c, instr, boolToU64(uint64(a) < uint64(imm)))
	case 4: // XORI
		return setRd(c, instr, uint64(a^imm))
	case 5: // SRLI / SRAI
		if alt(instr) {
			return setRd(c, instr, uint64(a>>shamt(c, instr)))
		}
		return setRd(c, instr, uval(c, uint64(a))>>shamt(c, instr))
	case 6: // ORI
		return setRd(c, instr, uint64(a|imm))
	default: // ANDI
		return setRd(c, instr, uint64(a&imm))
	}
}

// Op executes the OP (R-type) base-integer family: ADD/SUB/SLL/SLT/
// SLTU/XOR/SRL/SRA/OR/AND. Callers must route funct7==1 (the M
// extension) to MulDiv before reaching here.
func Op(c Core, instr uint32) except.Code {
	a := int64(c.Reg(rs1(instr)))
	b := int64(c.Reg(rs2(instr)))

	switch funct3(instr) {
	case 0: // ADD / SUB
		if alt(instr) {
			return setRd(c, instr, uint64(a-b))
		}
		return setRd(c, instr, uint64(a+b))
	case 1: // SLL
		return setRd(c, instr, uint64(a)<<(uint64(b)&shiftMask(c)))
	case 2: // SLT
		return setRd(c, instr, boolToU64(a < b))
	case 3: // SLTU
		return setRd(c, instr, boolToU64(uint64(a) < uint64(b)))
	case 4: // XOR
		return setRd(c, instr, uint64(a^b))
	case 5: // SRL / SRA
		if alt(instr) {
			return setRd(c, instr, uint64(a>>(uint64(b)&shiftMask(c))))
		}
		return setRd(c, instr, uval(c, uint64(a))>>(uint64(b)&shiftMask(c)))
	case 6: // OR
		return setRd(c, instr, uint64(a|b))
	default: // AND
		return setRd(c, instr, uint64(a&b))
	}
}

// Lui: rd <- sign_extend(imm[31:12] << 12, XLEN).
func Lui(c Core, instr uint32) except.Code {
	return setRd(c, instr, bits.ImmU(instr))
}

// AuiPc: rd <- pc + sign_extend(imm[31:12] << 12, XLEN).
func AuiPc(c Core, instr uint32) except.Code {
	return setRd(c, instr, c.PC()+bits.ImmU(instr))
}

// OpImm32 executes the RV64-only ADDIW/SLLIW/SRLIW/SRAIW family:
// truncate to 32 bits, operate, sign-extend the result back to 64.
func OpImm32(c Core, instr uint32) except.Code {
	if c.XLen() != 64 {
		return except.IllegalInstr
	}
	a := int32(uint32(c.Reg(rs1(instr))))
	imm := int32(bits.ImmI(instr))
	sh := uint(instr>>20) & 0x1f

	var res int32
	switch funct3(instr) {
	case 0: // ADDIW
		res = a + imm
	case 1: // SLLIW
		res = a << sh
	case 5: // SRLIW / SRAIW
		if alt(instr) {
			res = a >> sh
		} else {
			res = int32(uint32(a) >> sh)
		}
	default:
		return except.IllegalInstr
	}
	c.SetReg(rd(instr), uint64(int64(res)))
	return except.None
}

// Op32 executes the RV64-only ADDW/SUBW/SLLW/SRLW/SRAW family.
func Op32(c Core, instr uint32) except.Code {
	if c.XLen() != 64 {
		return except.IllegalInstr
	}
	a := int32(uint32(c.Reg(rs1(instr))))
	b := int32(uint32(c.Reg(rs2(instr))))
	sh := uint(uint32(b)) & 0x1f

	var res int32
	switch funct3(instr) {
	case 0:
		if alt(instr) {
			res = a - b
		} else {
			res = a + b
		}
	case 1:
		res = a << sh
	case 5:
		if alt(instr) {
			res = a >> sh
		} else {
			res = int32(uint32(a) >> sh)
		}
	default:
		return except.IllegalInstr
	}
	c.SetReg(rd(instr), uint64(int64(res)))
	return except.None
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
