/*
 * rvcore - System and CSR instructions
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
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/except"
	"github.com/rcornwell/rvcore/emu/trap"
)

const opSystem = 0x73

// funct12 values for the zero-operand privileged instructions.
const (
	f12ECall = 0x000
	f12EBreak = 0x001
	f12SRet  = 0x102
	f12MRet  = 0x302
	f12WFI   = 0x105

	f7SfenceVMA = 0b0001001
)

// System dispatches the SYSTEM opcode: funct3==0 selects ECALL/EBREAK/
// MRET/SRET/WFI/SFENCE.VMA by its funct7/funct12 encoding; every other
// funct3 is a CSR* instruction.
func System(c Core, instr uint32) except.Code {
	if funct3(instr) == 0 {
		return systemPriv(c, instr)
	}
	return csrInstr(c, instr)
}

func systemPriv(c Core, instr uint32) except.Code {
	if funct7(instr) == f7SfenceVMA {
		return sfenceVMA(c, instr)
	}
	if rs1(instr) != 0 || rd(instr) != 0 {
		return except.IllegalInstr
	}
	switch instr >> 20 {
	case f12ECall:
		return ecall(c)
	case f12EBreak:
		return ebreak(c)
	case f12SRet:
		return sret(c)
	case f12MRet:
		return mret(c)
	case f12WFI:
		return wfi(c)
	}
	return except.IllegalInstr
}

func ecall(c Core) except.Code {
	switch c.Mode() {
	case csr.ModeUser:
		return except.ECallFromU
	case csr.ModeSupervisor:
		return except.ECallFromS
	default:
		return except.ECallFromM
	}
}

// ebreak sets an interactive flag observable by the host harness when a
// terminal is attached, or a halt flag otherwise; it never raises an
// exception.
func ebreak(c Core) except.Code {
	if c.TerminalAttached() {
		c.SetInteractive()
	} else {
		c.SetHalt()
	}
	return except.None
}

func mret(c Core) except.Code {
	if c.Mode() != csr.ModeMachine {
		return except.IllegalInstr
	}
	newMode, newPC := trap.Return(c.CSR(), csr.ModeMachine)
	c.SetMode(newMode)
	c.SetNextPC(newPC)
	return except.None
}

func sret(c Core) except.Code {
	if c.Mode() < csr.ModeSupervisor {
		return except.IllegalInstr
	}
	if c.Mode() == csr.ModeSupervisor && c.CSR().TSR() {
		return except.IllegalInstr
	}
	newMode, newPC := trap.Return(c.CSR(), csr.ModeSupervisor)
	c.SetMode(newMode)
	c.SetNextPC(newPC)
	return except.None
}

func wfi(c Core) except.Code {
	if c.Mode() == csr.ModeUser {
		return except.IllegalInstr
	}
	if c.Mode() == csr.ModeSupervisor && c.CSR().TW() {
		return except.IllegalInstr
	}
	c.SetStandby(true)
	return except.None
}

// sfenceVMA flushes the TLB by the (rs1==0, rs2==0) combination: full,
// by-ASID, by-address, or combined.
func sfenceVMA(c Core, instr uint32) except.Code {
	if c.Mode() < csr.ModeSupervisor {
		return except.IllegalInstr
	}
	if c.Mode() == csr.ModeSupervisor && c.CSR().TVM() {
		return except.IllegalInstr
	}

	rs1Zero := rs1(instr) == 0
	rs2Zero := rs2(instr) == 0
	vpn := effAddr(c, c.Reg(rs1(instr))) >> 12
	asid := c.Reg(rs2(instr))
	t := c.TLB()

	switch {
	case rs1Zero && rs2Zero:
		t.FlushAll()
	case rs1Zero && !rs2Zero:
		t.FlushASID(asid)
	case !rs1Zero && rs2Zero:
		t.FlushAddress(vpn)
	default:
		t.FlushCombined(asid, vpn)
	}
	return except.None
}

// csrInstr executes CSRRW/CSRRS/CSRRC and their immediate forms.
// csrrw reads only if rd!=0; csrrs/csrrc write only if rs1 names a
// register other than x0 (or, for the -I forms, only if the 5-bit
// immediate is non-zero) — the standard RISC-V "x0 suppresses the
// side-effecting write" rule, checked on the register/immediate
// identity rather than on the runtime value it happens to hold.
func csrInstr(c Core, instr uint32) except.Code {
	csrNum := uint16(instr >> 20)
	mode := c.Mode()
	f := c.CSR()
	f3 := funct3(instr)
	isImm := f3 >= 5

	var srcVal uint64
	if isImm {
		srcVal = uint64(rs1(instr)) // 5-bit uimm, zero-extended
	} else {
		srcVal = c.Reg(rs1(instr))
	}
	dest := rd(instr)

	switch f3 {
	case 1, 5: // CSRRW / CSRRWI
		var old uint64
		if dest != 0 {
			v, ok := f.Read(csrNum, mode)
			if !ok {
				return except.IllegalInstr
			}
			old = v
		}
		if !f.Write(csrNum, srcVal, mode) {
			return except.IllegalInstr
		}
		if dest != 0 {
			c.SetReg(dest, xval(c, old))
		}
		return except.None

	case 2, 6: // CSRRS / CSRRSI
		return csrReadModify(c, csrNum, mode, dest, srcVal, !isImm && rs1(instr) == 0, isImm && srcVal == 0, true)

	case 3, 7: // CSRRC / CSRRCI
		return csrReadModify(c, csrNum, mode, dest, srcVal, !isImm && rs1(instr) == 0, isImm && srcVal == 0, false)
	}
	return except.IllegalInstr
}

// csrReadModify implements the shared CSRRS/CSRRC body: always read,
// conditionally write old|mask (set=true) or old&^mask (set=false).
func csrReadModify(c Core, csrNum uint16, mode csr.Mode, dest uint, mask uint64, skipWriteReg, skipWriteImm bool, set bool) except.Code {
	f := c.CSR()
	old, ok := f.Read(csrNum, mode)
	if !ok {
		return except.IllegalInstr
	}
	if !skipWriteReg && !skipWriteImm {
		var newVal uint64
		if set {
			newVal = old | mask
		} else {
			newVal = old &^ mask
		}
		if !f.Write(csrNum, newVal, mode) {
			return except.IllegalInstr
		}
	}
	c.SetReg(dest, xval(c, old))
	return except.None
}
