/*
 * rvcore - Load and store instructions
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
	"github.com/rcornwell/rvcore/emu/walk"
)

const (
	opLoad  = 0x03
	opStore = 0x23
)

// translateAddr runs the page walker when translation is active for
// this access, or passes virt through unchanged otherwise (satp Bare,
// or an M-mode fetch). noisy is always true here: every load/store/
// fetch through this path is an ordinary, tval-propagating access.
func translateAddr(c Core, virt uint64, kind except.AccessKind) (uint64, except.Code) {
	f := c.CSR()
	mode := c.Mode()
	if !walk.Active(f, mode, kind) {
		return virt, except.None
	}
	res, code := walk.Translate(f, c.Mem(), c.HartID(), c.TLB(), mode, virt, kind, true)
	if code != except.None {
		return 0, code
	}
	return res.Phys, except.None
}

// Load executes LB/LH/LW/LD/LBU/LHU/LWU. Translation errors are checked
// before alignment, per the priority rule in spec.md's error-handling
// design; LD/LWU are RV64-only.
func Load(c Core, instr uint32) except.Code {
	size, signed, rv64Only := loadShape(funct3(instr))
	if size == 0 {
		return except.IllegalInstr
	}
	if rv64Only && c.XLen() != 64 {
		return except.IllegalInstr
	}

	virt := effAddr(c, c.Reg(rs1(instr))+bits.ImmI(instr))
	phys, code := translateAddr(c, virt, except.AccessLoad)
	if code != except.None {
		return code
	}
	if !bits.IsAligned(virt, uint64(size)) {
		c.CSR().TValNext = virt
		return except.LoadMisaligned
	}

	var v uint64
	switch size {
	case 1:
		v = c.Mem().Read8(c.HartID(), phys, true)
	case 2:
		v = c.Mem().Read16(c.HartID(), phys, true)
	case 4:
		v = c.Mem().Read32(c.HartID(), phys, true)
	case 8:
		v = c.Mem().Read64(c.HartID(), phys, true)
	}
	if signed {
		v = bits.SignExtend(v, size*8)
	} else {
		v = bits.ZeroExtend(v, size*8)
	}
	return setRd(c, instr, v)
}

func loadShape(f3 uint32) (size uint, signed bool, rv64Only bool) {
	switch f3 {
	case 0:
		return 1, true, false // LB
	case 1:
		return 2, true, false // LH
	case 2:
		return 4, true, false // LW
	case 3:
		return 8, true, true // LD
	case 4:
		return 1, false, false // LBU
	case 5:
		return 2, false, false // LHU
	case 6:
		return 4, false, true // LWU
	}
	return 0, false, false
}

// Store executes SB/SH/SW/SD; SD is RV64-only.
func Store(c Core, instr uint32) except.Code {
	size, rv64Only := storeShape(funct3(instr))
	if size == 0 {
		return except.IllegalInstr
	}
	if rv64Only && c.XLen() != 64 {
		return except.IllegalInstr
	}

	virt := effAddr(c, c.Reg(rs1(instr))+bits.ImmS(instr))
	phys, code := translateAddr(c, virt, except.AccessStore)
	if code != except.None {
		return code
	}
	if !bits.IsAligned(virt, uint64(size)) {
		c.CSR().TValNext = virt
		return except.StoreMisaligned
	}

	val := c.Reg(rs2(instr))
	var ok bool
	switch size {
	case 1:
		ok = c.Mem().Write8(c.HartID(), phys, val, true)
	case 2:
		ok = c.Mem().Write16(c.HartID(), phys, val, true)
	case 4:
		ok = c.Mem().Write32(c.HartID(), phys, val, true)
	case 8:
		ok = c.Mem().Write64(c.HartID(), phys, val, true)
	}
	if !ok {
		// Only reachable with strict store faults enabled; the default
		// build reports success for unbacked writes.
		c.CSR().TValNext = virt
		return except.StoreAccessFault
	}
	return except.None
}

func storeShape(f3 uint32) (size uint, rv64Only bool) {
	switch f3 {
	case 0:
		return 1, false // SB
	case 1:
		return 2, false // SH
	case 2:
		return 4, false // SW
	case 3:
		return 8, true // SD
	}
	return 0, false
}
