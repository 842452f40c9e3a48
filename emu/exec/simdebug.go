/*
 * rvcore - Simulator escape-hatch instructions
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
)

// opCustom2 (0x5b, RISC-V's "custom-2" major opcode) carries this
// simulator's escape-hatch instructions: EHALT/EDUMP/ETRACE/ECSRRD,
// grounded on the teacher's own diagnose-instruction handling in
// cpu_system.go, which reserves a slice of its opcode space for
// simulator-specific control rather than emulated hardware behaviour.
// The decoder only ever reaches this family when its MachineSpecific
// flag is enabled; otherwise the encoding decodes to illegal.
const opCustom2 = 0x5b

// SimDebug dispatches EHALT/EDUMP/ETRACE/ECSRRD by funct3. None of
// these ever fault (§7: "debugger paths never fault").
func SimDebug(c Core, instr uint32) except.Code {
	switch funct3(instr) {
	case 0: // EHALT
		c.SetHalt()
		return except.None
	case 1: // EDUMP
		c.DebugDump()
		return except.None
	case 2: // ETRACE
		c.SetDebugTrace(rs1(instr) != 0)
		return except.None
	case 3: // ECSRRD: read any CSR, bypassing privilege gating
		csrNum := uint16(instr >> 20)
		val, ok := c.CSR().Read(csrNum, csr.ModeMachine)
		if !ok {
			val = 0
		}
		return setRd(c, instr, val)
	}
	return except.IllegalInstr
}
