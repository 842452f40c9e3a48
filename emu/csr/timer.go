/*
 * rvcore - Timer registers
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

// MTIME/MTIMECMP and the simulator-specific scyclecmp accounting. Each
// hart's CSR file owns its own mtime/mtimecmp pair; the memory façade
// (component B) routes the fixed MTIME address to whichever hart
// performs the access, and each MTIMECMP slot to the hart it indexes.

func (f *File) ReadMTime() uint64    { return f.MTime }
func (f *File) ReadMTimeCmp() uint64 { return f.MTimeCmp }

// WriteMTime installs val and immediately recomputes mip.MTIP; reached
// only through the memory-mapped register, never a CSR number.
func (f *File) WriteMTime(val uint64) {
	f.MTime = val
	f.recomputeMTIP()
}

// WriteMTimeCmp installs val and immediately recomputes mip.MTIP.
func (f *File) WriteMTimeCmp(val uint64) {
	f.MTimeCmp = val
	f.recomputeMTIP()
}

func (f *File) recomputeMTIP() {
	if f.MTime >= f.MTimeCmp {
		f.Mip |= MTIBit
	} else {
		f.Mip &^= MTIBit
	}
}

func (f *File) writeScCycleCmp(val uint64) {
	f.ScCycleCmp = val
	f.recomputeSTIP()
}

func (f *File) recomputeSTIP() {
	f.ExternalSTIP = uint32(f.Cycle) >= uint32(f.ScCycleCmp)
}

// AdvanceMTime adds delta to mtime and recomputes MTIP, grounded on
// ("mtime += now() - last_tick_time" then
// "Recompute ... mip.MTIP from mtime >= mtimecmp").
func (f *File) AdvanceMTime(delta uint64) {
	f.MTime += delta
	f.recomputeMTIP()
}

// TickAccounting performs the per-step accounting:
// cycle/instret/HPM bookkeeping and the scyclecmp-derived pending bit.
// event is the HPM category this step belongs to (EventUCycles etc, or
// EventWCycles while in standby).
func (f *File) TickAccounting(exceptionRaised, standby bool, event uint8) {
	if f.Mcountinhibit&counterCY == 0 {
		f.Cycle++
	}
	if !standby && !exceptionRaised && f.Mcountinhibit&counterIR == 0 {
		f.Instret++
	}
	f.TickHPM(event)
	f.recomputeSTIP()
}
