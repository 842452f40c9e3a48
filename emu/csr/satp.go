/*
 * rvcore - Address translation control
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

// satp layout: Sv32 MODE[31] ASID[30:22] PPN[21:0]; Sv39
// MODE[63:60] ASID[59:44] PPN[43:0].
const (
	satp32ModeShift = 31
	satp32AsidShift = 22
	satp32AsidMask  = 0x1ff << satp32AsidShift
	satp32PPNMask   = 0x3fffff

	satp64ModeShift = 60
	satp64AsidShift = 44
	satp64AsidMask  = uint64(0xffff) << satp64AsidShift
	satp64PPNMask   = uint64(0xfffffffffff)

	SatpModeBare uint64 = 0
	SatpModeSv32 uint64 = 1
	SatpModeSv39 uint64 = 8
)

// SetTLBFlushHook installs h, which, when set, is invoked whenever a satp write or an asid_len
// change requires a full TLB flush.
func (f *File) SetTLBFlushHook(h func()) { f.onTLBFlush = h }

// SatpMode extracts the translation mode from the stored satp value.
func (f *File) SatpMode() uint64 {
	if f.XLen == bits.XLen32 {
		return f.Satp >> satp32ModeShift
	}
	return f.Satp >> satp64ModeShift
}

// SatpASID extracts the ASID field from the stored satp value.
func (f *File) SatpASID() uint64 {
	if f.XLen == bits.XLen32 {
		return (f.Satp & satp32AsidMask) >> satp32AsidShift
	}
	return (f.Satp & satp64AsidMask) >> satp64AsidShift
}

// SatpPPN extracts the root page-table PPN from the stored satp value.
func (f *File) SatpPPN() uint64 {
	if f.XLen == bits.XLen32 {
		return f.Satp & satp32PPNMask
	}
	return f.Satp & satp64PPNMask
}

// writeSatp installs val, narrowing ASID to AsidLen bits and zeroing the
// whole register when mode is Bare.
func (f *File) writeSatp(val uint64, mode Mode) bool {
	if f.TVM() && mode == ModeSupervisor {
		return false // illegal_instruction
	}

	var modeField uint64
	if f.XLen == bits.XLen32 {
		modeField = val >> satp32ModeShift
	} else {
		modeField = val >> satp64ModeShift
	}

	if modeField == SatpModeBare {
		f.Satp = 0
		if f.onTLBFlush != nil {
			f.onTLBFlush()
		}
		return true
	}
	if f.XLen == bits.XLen64 && modeField != SatpModeSv39 {
		return true // unsupported mode: WARL, retain the prior value
	}

	// A non-Bare install does not flush by itself: cached translations
	// stay tagged by their ASID, and sfence.vma (or a Bare transition,
	// or an asid_len change) is what invalidates them.
	if f.XLen == bits.XLen32 {
		asid := (val & satp32AsidMask) >> satp32AsidShift
		asid = narrowAsid(asid, f.AsidLen)
		f.Satp = (val &^ satp32AsidMask) | (asid << satp32AsidShift)
	} else {
		asid := (val & satp64AsidMask) >> satp64AsidShift
		asid = narrowAsid(asid, f.AsidLen)
		f.Satp = (val &^ satp64AsidMask) | (asid << satp64AsidShift)
	}
	return true
}

func narrowAsid(asid uint64, asidLen uint) uint64 {
	if asidLen >= 16 {
		return asid
	}
	return asid & ((uint64(1) << asidLen) - 1)
}

// SetAsidLen changes the number of ASID bits honoured, zeroing the
// now-inactive bits in satp and fully flushing the TLB.
func (f *File) SetAsidLen(n uint) {
	f.AsidLen = n
	if f.XLen == bits.XLen32 {
		asid := (f.Satp & satp32AsidMask) >> satp32AsidShift
		asid = narrowAsid(asid, n)
		f.Satp = (f.Satp &^ satp32AsidMask) | (asid << satp32AsidShift)
	} else {
		asid := (f.Satp & satp64AsidMask) >> satp64AsidShift
		asid = narrowAsid(asid, n)
		f.Satp = (f.Satp &^ satp64AsidMask) | (asid << satp64AsidShift)
	}
	if f.onTLBFlush != nil {
		f.onTLBFlush()
	}
}
