/*
 * rvcore - Control and status register file
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

// CSR numbers, standard RISC-V allocation plus one simulator-specific
// addition (ScCycleCmp).
const (
	Sstatus    uint16 = 0x100
	Sie        uint16 = 0x104
	Stvec      uint16 = 0x105
	Scounteren uint16 = 0x106
	Senvcfg    uint16 = 0x10A
	Sscratch   uint16 = 0x140
	Sepc       uint16 = 0x141
	Scause     uint16 = 0x142
	Stval      uint16 = 0x143
	Sip        uint16 = 0x144
	Satp       uint16 = 0x180
	ScCycleCmp uint16 = 0x5C8 // simulator-specific S-mode CSR

	Mstatus       uint16 = 0x300
	Misa          uint16 = 0x301
	Medeleg       uint16 = 0x302
	Mideleg       uint16 = 0x303
	Mie           uint16 = 0x304
	Mtvec         uint16 = 0x305
	Mcounteren    uint16 = 0x306
	Mstatush      uint16 = 0x310
	Menvcfg       uint16 = 0x30A
	Menvcfgh      uint16 = 0x31A
	Mcountinhibit uint16 = 0x320
	Mhpmevent3    uint16 = 0x323 // .. Mhpmevent31 = 0x33F
	Mhpmevent31   uint16 = 0x33F
	Mscratch      uint16 = 0x340
	Mepc          uint16 = 0x341
	Mcause        uint16 = 0x342
	Mtval         uint16 = 0x343
	Mip           uint16 = 0x344
	Mtinst        uint16 = 0x34A
	Mtval2        uint16 = 0x34B
	Pmpcfg0       uint16 = 0x3A0
	Pmpcfg15      uint16 = 0x3AF
	Pmpaddr0      uint16 = 0x3B0
	Pmpaddr63     uint16 = 0x3EF
	Mseccfg       uint16 = 0x747
	Mseccfgh      uint16 = 0x757
	Tselect       uint16 = 0x7A0
	Tdata1        uint16 = 0x7A1
	Tdata2        uint16 = 0x7A2
	Tdata3        uint16 = 0x7A3
	Dcsr          uint16 = 0x7B0
	Dpc           uint16 = 0x7B1
	Dscratch0     uint16 = 0x7B2
	Dscratch1     uint16 = 0x7B3
	Mcycle        uint16 = 0xB00
	Minstret      uint16 = 0xB02
	Mhpmcounter3  uint16 = 0xB03 // .. Mhpmcounter31 = 0xB1F
	Mhpmcounter31 uint16 = 0xB1F
	Mcycleh       uint16 = 0xB80
	Minstreth     uint16 = 0xB82
	Mhpmcounter3h uint16 = 0xB83 // .. Mhpmcounter31h = 0xB9F
	Mhpmcounter31h uint16 = 0xB9F
	Mvendorid     uint16 = 0xF11
	Marchid       uint16 = 0xF12
	Mimpid        uint16 = 0xF13
	Mhartid       uint16 = 0xF14
	Mconfigptr    uint16 = 0xF15

	Cycle        uint16 = 0xC00
	Time         uint16 = 0xC01
	Instret      uint16 = 0xC02
	Hpmcounter3  uint16 = 0xC03 // .. Hpmcounter31 = 0xC1F
	Hpmcounter31 uint16 = 0xC1F
	Cycleh       uint16 = 0xC80
	Timeh        uint16 = 0xC81
	Instreth     uint16 = 0xC82
	Hpmcounter3h uint16 = 0xC83 // .. Hpmcounter31h = 0xC9F
	Hpmcounter31h uint16 = 0xC9F
)

// HPM event selectors.
const (
	EventNone    uint8 = 0
	EventUCycles uint8 = 1
	EventSCycles uint8 = 2
	EventMCycles uint8 = 3
	EventWCycles uint8 = 4 // stdby (WFI) cycles
)

const hpmCount = 29 // hpmcounter3..hpmcounter31

// File aggregates every CSR as an explicit field, an exhaustively-named
// struct rather than a generic indexed array.
type File struct {
	XLen bits.XLen

	MStatus    uint64 // includes mstatush's bits for RV32 in the upper word
	Misa       uint64
	MVendorID  uint64
	MArchID    uint64
	MImpID     uint64
	MHartID    uint64
	MConfigPtr uint64

	Medeleg uint64
	Mideleg uint64
	Mie     uint64
	Mip     uint64

	Mtvec uint64
	Stvec uint64

	Scounteren    uint32
	Mcounteren    uint32
	Mcountinhibit uint32

	Senvcfg uint64
	Menvcfg uint64

	Mscratch uint64
	Sscratch uint64
	Mepc     uint64
	Sepc     uint64
	Mcause   uint64
	Scause   uint64
	Mtval    uint64
	Stval    uint64

	Satp uint64

	MTime        uint64
	MTimeCmp     uint64
	LastTickTime int64 // wall-clock snapshot, UnixNano

	Cycle   uint64
	Instret uint64

	HPMCounter [hpmCount]uint64
	HPMEvent   [hpmCount]uint8

	ScCycleCmp uint64

	MSeccfg uint64

	// TValNext is the scratch register used to propagate xtval across the
	// step: instruction semantics stamp it, the trap handler copies it
	// into xepc's sibling xtval on entry.
	TValNext uint64

	ExternalSEIP bool
	ExternalSTIP bool

	AsidLen uint // number of ASID bits honoured; 0..defaultAsidLen(XLen)

	onTLBFlush func()
}

// DefaultAsidLen returns the default ASID width for the given XLEN
// (XLEN==32 gets 9 bits, XLEN==64 gets 16).
func DefaultAsidLen(xlen bits.XLen) uint {
	if xlen == bits.XLen32 {
		return 9
	}
	return 16
}

// New creates a CSR file reset to its power-on state for the given build.
func New(xlen bits.XLen, hartID uint64, misa uint64) *File {
	f := &File{
		XLen:      xlen,
		Misa:      misa,
		MHartID:   hartID,
		AsidLen:   DefaultAsidLen(xlen),
	}
	return f
}
