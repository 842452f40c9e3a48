/*
 * rvcore - Trap delivery
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

// Package trap implements interrupt/exception classification and trap
// delivery: medeleg/mideleg-gated delegation to S-mode, the
// MEI/MSI/MTI/SEI/SSI/STI priority scan, vectored-vs-direct mtvec/stvec
// dispatch, and the xPP/xPIE/xIE bookkeeping shared by trap entry and
// xRET. Grounded on the old/new-PSW swap sequence the teacher runs on
// every interrupt in its main CPU loop, generalized from a single PSW
// pair to per-mode CSR bookkeeping.
package trap

import (
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/except"
)

// priorityOrder is the fixed scan order for simultaneously pending
// interrupts: MEI, MSI, MTI, SEI, SSI, STI.
var priorityOrder = [...]except.Code{
	except.IntMEI, except.IntMSI, except.IntMTI,
	except.IntSEI, except.IntSSI, except.IntSTI,
}

func bitFor(code except.Code) uint64 {
	switch code {
	case except.IntSSI:
		return csr.SSIBit
	case except.IntMSI:
		return csr.MSIBit
	case except.IntSTI:
		return csr.STIBit
	case except.IntMTI:
		return csr.MTIBit
	case except.IntSEI:
		return csr.SEIBit
	case except.IntMEI:
		return csr.MEIBit
	}
	return 0
}

// sDefined reports whether code is one of the three S-mode-defined
// interrupt lines mideleg is permitted to delegate.
func sDefined(code except.Code) bool {
	return code == except.IntSSI || code == except.IntSTI || code == except.IntSEI
}

func mTrapEnabled(f *csr.File, mode csr.Mode) bool {
	return mode < csr.ModeMachine || (mode == csr.ModeMachine && f.MIE())
}

func sTrapEnabled(f *csr.File, mode csr.Mode) bool {
	return mode < csr.ModeSupervisor || (mode == csr.ModeSupervisor && f.SIE())
}

// PickInterrupt selects the pending, enabled interrupt to deliver for
// mode, or reports ok=false if none is currently deliverable. The scan
// runs in two passes: first every undelegated pending bit is considered
// for the M-mode path in priority order, and only when that entire pass
// fires nothing are the delegated S-defined bits considered for the
// S-mode path — "S-level taken only when delegated and the M gate does
// not fire first". This build follows the source behaviour for Open
// Question #2: an M-level code (MEI/MSI/MTI) never delegates to S
// regardless of mideleg, since mideleg's write path already restricts
// itself to the S-defined bits.
func PickInterrupt(f *csr.File, mode csr.Mode) (except.Code, bool) {
	pending := f.PendingInterrupts() & f.Mie

	if mTrapEnabled(f, mode) {
		for _, code := range priorityOrder {
			bit := bitFor(code)
			if pending&bit == 0 {
				continue
			}
			if sDefined(code) && f.Mideleg&bit != 0 {
				continue // delegated: belongs to the S pass
			}
			return code, true
		}
	}

	if sTrapEnabled(f, mode) {
		for _, code := range priorityOrder {
			bit := bitFor(code)
			if pending&bit == 0 || !sDefined(code) || f.Mideleg&bit == 0 {
				continue
			}
			return code, true
		}
	}
	return except.None, false
}

// delegatedException reports whether code should trap to S rather than M.
func delegatedException(f *csr.File, mode csr.Mode, code except.Code) bool {
	if mode == csr.ModeMachine {
		return false
	}
	return f.Medeleg&(uint64(1)<<uint(code)) != 0
}

// target picks the mode a trap enters, given the delegation predicate.
func target(delegated bool) csr.Mode {
	if delegated {
		return csr.ModeSupervisor
	}
	return csr.ModeMachine
}

// enter performs the shared xepc/xcause/xtval/xPIE/xIE/xPP bookkeeping
// for trap entry into tgt, from curMode, for the given raw cause value
// (without the interrupt bit; isInterrupt sets it).
func enter(f *csr.File, curMode, tgt csr.Mode, code except.Code, pcOrNext uint64, isInterrupt bool) {
	cause := uint64(code)
	if isInterrupt {
		cause |= f.CauseInterruptBit()
	}
	switch tgt {
	case csr.ModeMachine:
		f.Mepc = pcOrNext
		f.Mcause = cause
		f.Mtval = f.TValNext
		f.SetMPIE(f.MIE())
		f.SetMIE(false)
		f.SetMPP(curMode)
	default: // ModeSupervisor
		f.Sepc = pcOrNext
		f.Scause = cause
		f.Stval = f.TValNext
		f.SetSPIE(f.SIE())
		f.SetSIE(false)
		f.SetSPP(curMode)
	}
}

// dispatchPC computes pc_next for trap entry into tgt: xtvec.base in
// direct mode (mode field 0), or xtvec.base + 4*code in vectored mode
// (mode field 1, interrupts only).
func dispatchPC(f *csr.File, tgt csr.Mode, code except.Code, isInterrupt bool) uint64 {
	var tvec uint64
	if tgt == csr.ModeMachine {
		tvec = f.Mtvec
	} else {
		tvec = f.Stvec
	}
	base := tvec &^ uint64(0x3)
	vectored := tvec&0x3 == 1
	if isInterrupt && vectored {
		return base + 4*uint64(code)
	}
	return base
}

// TakeException delivers exception code, saving pc as xepc. Returns the
// new privilege mode and pc_next.
func TakeException(f *csr.File, curMode csr.Mode, code except.Code, pc uint64) (csr.Mode, uint64) {
	tgt := target(delegatedException(f, curMode, code))
	enter(f, curMode, tgt, code, pc, false)
	return tgt, dispatchPC(f, tgt, code, false)
}

// TakeInterrupt delivers interrupt code, saving pcNext (the PC the hart
// would otherwise have executed next) as xepc. Returns the new privilege
// mode and pc_next.
func TakeInterrupt(f *csr.File, curMode csr.Mode, code except.Code, pcNext uint64) (csr.Mode, uint64) {
	delegated := sDefined(code) && curMode != csr.ModeMachine && f.Mideleg&bitFor(code) != 0
	tgt := target(delegated)
	enter(f, curMode, tgt, code, pcNext, true)
	return tgt, dispatchPC(f, tgt, code, true)
}

// Return implements MRET/SRET's shared restore sequence: xIE <- xPIE,
// xPIE <- 1, priv_mode <- xPP, xPP <- U (smallest), and MPRV cleared if
// the restored privilege is below M. fromMode is the mode the xRET
// instruction executed in (M for mret, S for sret).
func Return(f *csr.File, fromMode csr.Mode) (newMode csr.Mode, newPC uint64) {
	switch fromMode {
	case csr.ModeMachine:
		newMode = f.MPP()
		newPC = f.Mepc
		f.SetMIE(f.MPIE())
		f.SetMPIE(true)
		f.SetMPP(csr.ModeUser)
	default: // ModeSupervisor
		newMode = f.SPP()
		newPC = f.Sepc
		f.SetSIE(f.SPIE())
		f.SetSPIE(true)
		f.SetSPP(csr.ModeUser)
	}
	if newMode != csr.ModeMachine {
		f.SetMPRV(false)
	}
	return newMode, newPC
}
