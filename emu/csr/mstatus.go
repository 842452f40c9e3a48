/*
 * rvcore - mstatus register
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

// mstatus bit positions (RV64 layout; the RV32 mstatush upper half is kept
// packed into the same 64-bit field at bits [63:32] so one field serves
// both builds ("64-bit logical union including mstatush
// for RV32").
const (
	mstatusSIE  = 1 << 1
	mstatusMIE  = 1 << 3
	mstatusSPIE = 1 << 5
	mstatusUBE  = 1 << 6
	mstatusMPIE = 1 << 7
	mstatusSPP  = 1 << 8
	mstatusVSshift = 9
	mstatusVSmask  = 0x3 << mstatusVSshift
	mstatusMPPshift = 11
	mstatusMPPmask  = 0x3 << mstatusMPPshift
	mstatusFSshift  = 13
	mstatusFSmask   = 0x3 << mstatusFSshift
	mstatusXSshift  = 15
	mstatusXSmask   = 0x3 << mstatusXSshift
	mstatusMPRV = 1 << 17
	mstatusSUM  = 1 << 18
	mstatusMXR  = 1 << 19
	mstatusTVM  = 1 << 20
	mstatusTW   = 1 << 21
	mstatusTSR  = 1 << 22
	mstatusUXLshift = 32
	mstatusUXLmask  = uint64(0x3) << mstatusUXLshift
	mstatusSXLshift = 34
	mstatusSXLmask  = uint64(0x3) << mstatusSXLshift
	mstatusSBE  = uint64(1) << 36
	mstatusMBE  = uint64(1) << 37
	mstatusSD   = uint64(1) << 63

	// sstatusMask is the set of bits visible/writable through the
	// `sstatus` CSR view ("mask writes to sstatus_mask when
	// written via sstatus"). FS/VS/XS are hardwired zero (no F or V
	// extension in this build), so they are left out of the mask.
	sstatusMask = mstatusSIE | mstatusSPIE | mstatusSPP |
		mstatusSUM | mstatusMXR

	// mstatusWriteMask is every bit a direct mstatus write may change.
	// UBE/SBE/MBE (little-endian only), FS/VS/XS/SD (no F/V extension),
	// and UXL/SXL are read-only in this implementation; the remainder
	// is WPRI and must read back zero.
	mstatusWriteMask = mstatusSIE | mstatusMIE | mstatusSPIE | mstatusMPIE |
		mstatusSPP | uint64(mstatusMPPmask) |
		mstatusMPRV | mstatusSUM | mstatusMXR |
		mstatusTVM | mstatusTW | mstatusTSR
)

func (f *File) MPRV() bool { return f.MStatus&mstatusMPRV != 0 }
func (f *File) SUM() bool  { return f.MStatus&mstatusSUM != 0 }
func (f *File) MXR() bool  { return f.MStatus&mstatusMXR != 0 }
func (f *File) TVM() bool  { return f.MStatus&mstatusTVM != 0 }
func (f *File) TW() bool   { return f.MStatus&mstatusTW != 0 }
func (f *File) TSR() bool  { return f.MStatus&mstatusTSR != 0 }

func (f *File) MIE() bool  { return f.MStatus&mstatusMIE != 0 }
func (f *File) SIE() bool  { return f.MStatus&mstatusSIE != 0 }
func (f *File) MPIE() bool { return f.MStatus&mstatusMPIE != 0 }
func (f *File) SPIE() bool { return f.MStatus&mstatusSPIE != 0 }

func (f *File) setBit(bit uint64, v bool) {
	if v {
		f.MStatus |= bit
	} else {
		f.MStatus &^= bit
	}
}

func (f *File) SetMIE(v bool)  { f.setBit(mstatusMIE, v) }
func (f *File) SetSIE(v bool)  { f.setBit(mstatusSIE, v) }
func (f *File) SetMPIE(v bool) { f.setBit(mstatusMPIE, v) }
func (f *File) SetSPIE(v bool) { f.setBit(mstatusSPIE, v) }
func (f *File) SetMPRV(v bool) { f.setBit(mstatusMPRV, v) }

// MPP returns the machine previous-privilege field.
func (f *File) MPP() Mode {
	return Mode((f.MStatus & mstatusMPPmask) >> mstatusMPPshift)
}

// SetMPP installs mode into MPP. Value 2 is reserved and silently
// discarded (the invariant: "MPP ∈ {U, S, M}").
func (f *File) SetMPP(mode Mode) {
	if mode == 2 {
		return
	}
	f.MStatus = (f.MStatus &^ mstatusMPPmask) | (uint64(mode) << mstatusMPPshift)
}

// SPP returns the supervisor previous-privilege field (U or S only).
func (f *File) SPP() Mode {
	if f.MStatus&mstatusSPP != 0 {
		return ModeSupervisor
	}
	return ModeUser
}

func (f *File) SetSPP(mode Mode) {
	f.setBit(mstatusSPP, mode == ModeSupervisor)
}

// readMstatus returns the logical mstatus value, masked of WPRI bits.
func (f *File) readMstatus() uint64 {
	return f.MStatus
}

// writeMstatus installs the writable bits of val into mstatus,
// discarding any attempt to set MPP=2 and leaving the WPRI and
// read-only bits at zero.
func (f *File) writeMstatus(val uint64) {
	mpp := Mode((val & mstatusMPPmask) >> mstatusMPPshift)
	if mpp == 2 {
		val &^= mstatusMPPmask
		val |= uint64(f.MPP()) << mstatusMPPshift
	}
	f.MStatus = (f.MStatus &^ mstatusWriteMask) | (val & mstatusWriteMask)
}

func (f *File) readSstatus() uint64 {
	return f.MStatus & sstatusMask
}

func (f *File) writeSstatus(val uint64) {
	f.MStatus = (f.MStatus &^ sstatusMask) | (val & sstatusMask)
}
