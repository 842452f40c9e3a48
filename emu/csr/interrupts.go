/*
 * rvcore - Interrupt pending and enable state
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

// Interrupt cause bits, shared by mip/mie/sip/sie and the trap-delivery
// package.
const (
	SSIBit = 1 << 1
	MSIBit = 1 << 3
	STIBit = 1 << 5
	MTIBit = 1 << 7
	SEIBit = 1 << 9
	MEIBit = 1 << 11

	// sipMask / sieMask are the S-mode-defined interrupt bits: the only
	// ones visible through the `sip`/`sie` views and the only ones
	// `mideleg` may delegate.
	sipMask = SSIBit | STIBit | SEIBit

	// mipWritableMask is the set of "S-mode-originated" bits this build
	// §4.D calls out as writable via mip_write; MSIP/MTIP/MEIP come from
	// the platform (interrupt_up/down, mtimecmp) and are never installed
	// by a CSR write.
	mipWritableMask = SSIBit | STIBit | SEIBit
)

// PendingInterrupts returns the live mip value (stored bits OR'd with the
// externally-driven SEIP/STIP pins), for trap delivery's priority scan.
func (f *File) PendingInterrupts() uint64 {
	return f.readMip()
}

// readMip returns the live mip value: stored bits OR'd with the
// externally-driven SEIP/STIP pins.
func (f *File) readMip() uint64 {
	v := f.Mip
	if f.ExternalSEIP {
		v |= SEIBit
	}
	if f.ExternalSTIP {
		v |= STIBit
	}
	return v
}

func (f *File) writeMipMasked(val, mask uint64) {
	f.Mip = (f.Mip &^ (mask & mipWritableMask)) | (val & mask & mipWritableMask)
}

func (f *File) readSip() uint64 {
	return f.readMip() & sipMask
}

func (f *File) writeSipMasked(val, mask uint64) {
	f.writeMipMasked(val, mask&sipMask)
}

func (f *File) readSie() uint64 {
	return f.Mie & sipMask
}

func (f *File) writeSieMasked(val, mask uint64) {
	m := mask & sipMask
	f.Mie = (f.Mie &^ m) | (val & m)
}

// writeMedeleg installs val into medeleg, with the M-mode ECALL bit
// (code 11) hard-wired to zero.
func (f *File) writeMedeleg(val uint64) {
	f.Medeleg = val &^ (1 << 11)
}

// writeMideleg installs val into mideleg, restricted to S-mode-defined
// interrupt bits.
func (f *File) writeMideleg(val uint64) {
	f.Mideleg = val & sipMask
}

// RaiseExternal sets external_SEIP, or an mip bit directly for the
// hardware-only (M-level) interrupt lines, per the interrupt number
// mapping; STI and MTI are never driven by this pin (they come solely
// from the mtimecmp/scyclecmp comparisons), so, like every other
// unrecognised number, they default to MEI.
func (f *File) RaiseExternal(no uint) {
	switch no {
	case 1:
		f.Mip |= SSIBit
	case 3:
		f.Mip |= MSIBit
	case 9:
		f.ExternalSEIP = true
	default:
		f.Mip |= MEIBit
	}
}

func (f *File) LowerExternal(no uint) {
	switch no {
	case 1:
		f.Mip &^= SSIBit
	case 3:
		f.Mip &^= MSIBit
	case 9:
		f.ExternalSEIP = false
	default:
		f.Mip &^= MEIBit
	}
}

// known exception/interrupt codes (the mcause/scause writable set).
var knownExceptionCodes = map[uint64]bool{
	0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true,
	8: true, 9: true, 11: true, 12: true, 13: true, 15: true,
}

var knownInterruptCodes = map[uint64]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 11: true,
}

// CauseInterruptBit returns the MSB that separates interrupts from
// exceptions in xcause for this build's XLEN.
func (f *File) CauseInterruptBit() uint64 {
	return uint64(1) << (uint(f.XLen) - 1)
}

func (f *File) isKnownCause(val uint64) bool {
	intBit := f.CauseInterruptBit()
	code := val &^ intBit
	if val&intBit != 0 {
		return knownInterruptCodes[code]
	}
	return knownExceptionCodes[code]
}
