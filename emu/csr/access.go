/*
 * rvcore - CSR access dispatch
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

package csr

import "github.com/rcornwell/rvcore/emu/bits"

// Read, Write, Set and Clear are the four CSR operations this package
// requires for every numbered register: each checks the accessing mode
// against the CSR's minimum privilege (and any additional gating the
// CSR defines) before touching state, so a rejected access never
// mutates anything.

// alwaysIllegal is the set of CSRs this build implements as permanently
// unavailable: debug-trigger and PMP/PMA registers (both explicit
// non-goals) plus the two reserved trap-info registers this simulator
// never populates.
func alwaysIllegal(csrNum uint16) bool {
	switch {
	case csrNum >= Pmpcfg0 && csrNum <= Pmpcfg15:
		return true
	case csrNum >= Pmpaddr0 && csrNum <= Pmpaddr63:
		return true
	case csrNum >= Tselect && csrNum <= Tdata3:
		return true
	case csrNum >= Dcsr && csrNum <= Dscratch1:
		return true
	case csrNum == Mtinst || csrNum == Mtval2:
		return true
	}
	return false
}

// isHVariant reports whether csrNum is one of the RV32-only upper-half
// registers; RV64 builds never expose them.
func isHVariant(csrNum uint16) bool {
	switch {
	case csrNum == Mstatush || csrNum == Menvcfgh || csrNum == Mseccfgh:
		return true
	case csrNum == Mcycleh || csrNum == Minstreth:
		return true
	case csrNum >= Mhpmcounter3h && csrNum <= Mhpmcounter31h:
		return true
	case csrNum == Cycleh || csrNum == Timeh || csrNum == Instreth:
		return true
	case csrNum >= Hpmcounter3h && csrNum <= Hpmcounter31h:
		return true
	}
	return false
}

func splitLow(old, val uint64) uint64  { return (old &^ 0xffffffff) | (val & 0xffffffff) }
func splitHigh(old, val uint64) uint64 { return (old & 0xffffffff) | (val&0xffffffff)<<32 }

// Read returns the CSR's current value, or ok=false for illegal_instruction.
func (f *File) Read(csrNum uint16, mode Mode) (uint64, bool) {
	if !f.gate(csrNum, mode) {
		return 0, false
	}
	return f.readRaw(csrNum)
}

// Write installs val, or returns ok=false without touching any state.
func (f *File) Write(csrNum uint16, val uint64, mode Mode) bool {
	if !f.gate(csrNum, mode) {
		return false
	}
	return f.writeRaw(csrNum, val, mode)
}

// Set performs a read-modify-write OR (csrrs/csrrsi), returning the
// pre-update value for rd.
func (f *File) Set(csrNum uint16, mask uint64, mode Mode) (uint64, bool) {
	old, ok := f.Read(csrNum, mode)
	if !ok {
		return 0, false
	}
	if mask == 0 {
		return old, true // csrrsi x0 form: read-only, no write attempted
	}
	if !f.Write(csrNum, old|mask, mode) {
		return 0, false
	}
	return old, true
}

// Clear performs a read-modify-write AND-NOT (csrrc/csrrci).
func (f *File) Clear(csrNum uint16, mask uint64, mode Mode) (uint64, bool) {
	old, ok := f.Read(csrNum, mode)
	if !ok {
		return 0, false
	}
	if mask == 0 {
		return old, true
	}
	if !f.Write(csrNum, old&^mask, mode) {
		return 0, false
	}
	return old, true
}

// gate applies the static minimum-privilege check plus the per-CSR
// extra rules each CSR defines under its own gating.
func (f *File) gate(csrNum uint16, mode Mode) bool {
	if alwaysIllegal(csrNum) {
		return false
	}
	if f.XLen != bits.XLen32 && isHVariant(csrNum) {
		return false
	}
	if mode < minPriv(csrNum) {
		return false
	}
	if csrNum == Satp && mode == ModeSupervisor && f.TVM() {
		return false
	}
	if bit, isCounter := counterShadowBit(csrNum); isCounter && !f.counterEnabled(mode, bit) {
		return false
	}
	return true
}

// counterShadowBit maps a U-mode-visible counter CSR to its
// mcounteren/scounteren gate bit ("reading
// cycle/time/instret/hpmcounterN from S or U mode additionally requires
// the corresponding mcounteren (and, from U, scounteren) bit set").
func counterShadowBit(csrNum uint16) (uint32, bool) {
	switch {
	case csrNum == Cycle || csrNum == Cycleh:
		return counterCY, true
	case csrNum == Time || csrNum == Timeh:
		return counterTM, true
	case csrNum == Instret || csrNum == Instreth:
		return counterIR, true
	case csrNum >= Hpmcounter3 && csrNum <= Hpmcounter31:
		return hpmBit(int(csrNum-Hpmcounter3) + 3), true
	case csrNum >= Hpmcounter3h && csrNum <= Hpmcounter31h:
		return hpmBit(int(csrNum-Hpmcounter3h) + 3), true
	}
	return 0, false
}

// readRaw dispatches a privilege-cleared read.
func (f *File) readRaw(csrNum uint16) (uint64, bool) {
	switch csrNum {
	case Mstatus:
		return f.readMstatus(), true
	case Mstatush:
		return f.MStatus >> 32, true
	case Sstatus:
		return f.readSstatus(), true
	case Misa:
		return f.Misa, true
	case Medeleg:
		return f.Medeleg, true
	case Mideleg:
		return f.Mideleg, true
	case Mie:
		return f.Mie, true
	case Sie:
		return f.readSie(), true
	case Mip:
		return f.readMip(), true
	case Sip:
		return f.readSip(), true
	case Mtvec:
		return f.Mtvec, true
	case Stvec:
		return f.Stvec, true
	case Mcounteren:
		return uint64(f.Mcounteren), true
	case Scounteren:
		return uint64(f.Scounteren), true
	case Mcountinhibit:
		return uint64(f.Mcountinhibit), true
	case Menvcfg:
		return f.Menvcfg, true
	case Menvcfgh:
		return f.Menvcfg >> 32, true
	case Senvcfg:
		return f.Senvcfg, true
	case Mscratch:
		return f.Mscratch, true
	case Sscratch:
		return f.Sscratch, true
	case Mepc:
		return f.Mepc, true
	case Sepc:
		return f.Sepc, true
	case Mcause:
		return f.Mcause, true
	case Scause:
		return f.Scause, true
	case Mtval:
		return f.Mtval, true
	case Stval:
		return f.Stval, true
	case Satp:
		return f.Satp, true
	case ScCycleCmp:
		return f.ScCycleCmp, true
	case Mseccfg:
		return f.MSeccfg, true
	case Mseccfgh:
		return f.MSeccfg >> 32, true
	case Mvendorid:
		return f.MVendorID, true
	case Marchid:
		return f.MArchID, true
	case Mimpid:
		return f.MImpID, true
	case Mhartid:
		return f.MHartID, true
	case Mconfigptr:
		return f.MConfigPtr, true

	case Mcycle:
		if f.XLen == bits.XLen32 {
			return f.Cycle & 0xffffffff, true
		}
		return f.Cycle, true
	case Mcycleh:
		return f.Cycle >> 32, true
	case Minstret:
		if f.XLen == bits.XLen32 {
			return f.Instret & 0xffffffff, true
		}
		return f.Instret, true
	case Minstreth:
		return f.Instret >> 32, true

	case Cycle:
		return f.shadowCycle(), true
	case Time:
		return f.shadowTime(), true
	case Instret:
		return f.shadowInstret(), true
	case Cycleh:
		return f.Cycle >> 32, true
	case Timeh:
		return f.MTime >> 32, true
	case Instreth:
		return f.Instret >> 32, true
	}

	if csrNum >= Mhpmevent3 && csrNum <= Mhpmevent31 {
		return uint64(f.HPMEvent[csrNum-Mhpmevent3]), true
	}
	if csrNum >= Mhpmcounter3 && csrNum <= Mhpmcounter31 {
		idx := csrNum - Mhpmcounter3
		if f.XLen == bits.XLen32 {
			return f.HPMCounter[idx] & 0xffffffff, true
		}
		return f.HPMCounter[idx], true
	}
	if csrNum >= Mhpmcounter3h && csrNum <= Mhpmcounter31h {
		return f.HPMCounter[csrNum-Mhpmcounter3h] >> 32, true
	}
	if csrNum >= Hpmcounter3 && csrNum <= Hpmcounter31 {
		idx := csrNum - Hpmcounter3
		if f.XLen == bits.XLen32 {
			return f.HPMCounter[idx] & 0xffffffff, true
		}
		return f.HPMCounter[idx], true
	}
	if csrNum >= Hpmcounter3h && csrNum <= Hpmcounter31h {
		return f.HPMCounter[csrNum-Hpmcounter3h] >> 32, true
	}

	return 0, false
}

func (f *File) shadowCycle() uint64 {
	if f.XLen == bits.XLen32 {
		return f.Cycle & 0xffffffff
	}
	return f.Cycle
}

func (f *File) shadowTime() uint64 {
	if f.XLen == bits.XLen32 {
		return f.MTime & 0xffffffff
	}
	return f.MTime
}

func (f *File) shadowInstret() uint64 {
	if f.XLen == bits.XLen32 {
		return f.Instret & 0xffffffff
	}
	return f.Instret
}

// writeRaw dispatches a privilege-cleared write. Read-only shadow views
// (cycle/time/instret/hpmcounterN and their h-halves) fall through to
// the default case and report illegal_instruction.
func (f *File) writeRaw(csrNum uint16, val uint64, mode Mode) bool {
	switch csrNum {
	case Mstatus:
		f.writeMstatus(val)
		return true
	case Mstatush:
		return true // every implemented upper-half bit is read-only zero
	case Sstatus:
		f.writeSstatus(val)
		return true
	case Misa:
		return true // WARL, implementation fixes the set; writes are no-ops
	case Medeleg:
		f.writeMedeleg(val)
		return true
	case Mideleg:
		f.writeMideleg(val)
		return true
	case Mie:
		f.Mie = val & mieMask
		return true
	case Sie:
		f.writeSieMasked(val, ^uint64(0))
		return true
	case Mip:
		f.writeMipMasked(val, ^uint64(0))
		return true
	case Sip:
		f.writeSipMasked(val, ^uint64(0))
		return true
	case Mtvec:
		f.Mtvec = val &^ 2 // mode field WARL: direct or vectored only
		return true
	case Stvec:
		f.Stvec = val &^ 2
		return true
	case Mcounteren:
		f.Mcounteren = uint32(val)
		return true
	case Scounteren:
		f.Scounteren = uint32(val)
		return true
	case Mcountinhibit:
		f.Mcountinhibit = uint32(val)
		return true
	case Menvcfg:
		f.Menvcfg = val & envcfgMask
		return true
	case Menvcfgh:
		return true // PBMTE/STCE not implemented; upper half read-only zero
	case Senvcfg:
		f.Senvcfg = val & envcfgMask
		return true
	case Mscratch:
		f.Mscratch = val
		return true
	case Sscratch:
		f.Sscratch = val
		return true
	case Mepc:
		f.Mepc = val &^ 1 // IALIGN=16 support not offered; clear bit 0 only
		return true
	case Sepc:
		f.Sepc = val &^ 1
		return true
	case Mcause:
		if !f.isKnownCause(val) {
			return false
		}
		f.Mcause = val
		return true
	case Scause:
		if !f.isKnownCause(val) {
			return false
		}
		f.Scause = val
		return true
	case Mtval:
		f.Mtval = val
		return true
	case Stval:
		f.Stval = val
		return true
	case Satp:
		return f.writeSatp(val, mode)
	case ScCycleCmp:
		f.writeScCycleCmp(val)
		return true
	case Mseccfg:
		f.MSeccfg = val & mseccfgMask
		return true
	case Mseccfgh:
		return true // upper half read-only zero

	case Mcycle:
		if f.XLen == bits.XLen32 {
			f.Cycle = splitLow(f.Cycle, val)
		} else {
			f.Cycle = val
		}
		return true
	case Mcycleh:
		f.Cycle = splitHigh(f.Cycle, val)
		return true
	case Minstret:
		if f.XLen == bits.XLen32 {
			f.Instret = splitLow(f.Instret, val)
		} else {
			f.Instret = val
		}
		return true
	case Minstreth:
		f.Instret = splitHigh(f.Instret, val)
		return true
	}

	if csrNum >= Mhpmevent3 && csrNum <= Mhpmevent31 {
		f.HPMEvent[csrNum-Mhpmevent3] = uint8(val) & 0x7
		return true
	}
	if csrNum >= Mhpmcounter3 && csrNum <= Mhpmcounter31 {
		idx := csrNum - Mhpmcounter3
		if f.XLen == bits.XLen32 {
			f.HPMCounter[idx] = splitLow(f.HPMCounter[idx], val)
		} else {
			f.HPMCounter[idx] = val
		}
		return true
	}
	if csrNum >= Mhpmcounter3h && csrNum <= Mhpmcounter31h {
		idx := csrNum - Mhpmcounter3h
		f.HPMCounter[idx] = splitHigh(f.HPMCounter[idx], val)
		return true
	}

	return false // includes Mvendorid..Mconfigptr and every read-only shadow
}

// mieMask is the set of interrupt-enable bits this build implements.
const mieMask = SSIBit | MSIBit | STIBit | MTIBit | SEIBit | MEIBit

// envcfgMask keeps the FIOM and cache-block-operation enable fields;
// everything else in menvcfg/senvcfg is WPRI here and reads as zero.
const envcfgMask = 0xf1

// mseccfgMask keeps MML/MMWP/RLB; the rest of mseccfg is WPRI.
const mseccfgMask = 0x7
