/*
 * rvcore - Page table walker
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

// Package walk implements the Sv32/Sv39 page walker:
// TLB-first lookup, a generic multi-level walk with in-place A/D update,
// superpage misalignment detection, and permission checking. It is a
// free function parameterized by (CSR view, TLB handle, memory façade)
// rather than a method the MMU owns jointly with the CSR file, avoiding
// the circular CSR/MMU back-pointer the original machine used.
package walk

import (
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/except"
	"github.com/rcornwell/rvcore/emu/memory"
	"github.com/rcornwell/rvcore/emu/tlb"
)

// PTE bit positions, common to Sv32 and Sv39.
const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7

	ppnShift = 10
)

// scheme describes one translation layout (Sv32 or Sv39).
type scheme struct {
	levels       int
	bitsPerLevel uint
	totalPPNBits uint
	pteSize      uint
}

var sv32 = scheme{levels: 2, bitsPerLevel: 10, totalPPNBits: 22, pteSize: 4}
var sv39 = scheme{levels: 3, bitsPerLevel: 9, totalPPNBits: 44, pteSize: 8}

func schemeFor(satpMode uint64) (scheme, bool) {
	switch satpMode {
	case csr.SatpModeSv32:
		return sv32, true
	case csr.SatpModeSv39:
		return sv39, true
	}
	return scheme{}, false
}

func (s scheme) vpn(vpnFull uint64, level int) uint64 {
	mask := (uint64(1) << s.bitsPerLevel) - 1
	return (vpnFull >> (uint(level) * s.bitsPerLevel)) & mask
}

// effectivePriv computes the privilege level a translation should be
// checked against: "MPRV=1 ? MPP : current",
// with the fetch-specific carve-out that instruction fetches never
// honor MPRV.
func effectivePriv(f *csr.File, mode csr.Mode, kind except.AccessKind) csr.Mode {
	if kind == except.AccessFetch {
		return mode
	}
	if f.MPRV() {
		return f.MPP()
	}
	return mode
}

// Active reports whether address translation applies to this access.
func Active(f *csr.File, mode csr.Mode, kind except.AccessKind) bool {
	if kind == except.AccessFetch && mode == csr.ModeMachine {
		return false
	}
	if f.SatpMode() == csr.SatpModeBare {
		return false
	}
	return effectivePriv(f, mode, kind) <= csr.ModeSupervisor
}

// Result is the outcome of a successful translation.
type Result struct {
	Phys  uint64
	Class tlb.PageClass
}

// Translate converts virt to a physical address, consulting and
// maintaining the TLB. noisy selects the ordinary mutating walk: a TLB
// hit is bubbled to the LRU head, a resulting exception carries
// tval_next = virt, A/D bits are updated in the backing PTE, and the
// leaf is inserted into the TLB. With noisy=false the walk is a pure
// probe (debugger use) that touches nothing.
func Translate(f *csr.File, mem *memory.Memory, hartNum uint, t *tlb.TLB, mode csr.Mode, virt uint64, kind except.AccessKind, noisy bool) (Result, except.Code) {
	sc, ok := schemeFor(f.SatpMode())
	if !ok {
		// satp.mode neither Sv32 nor Sv39 while Active() said translation
		// applies: treat as a fault rather than silently passing through.
		return Result{}, faultFor(kind, virt, f, noisy)
	}

	eff := effectivePriv(f, mode, kind)
	asid := f.SatpASID()
	vpnFull := virt >> 12

	if pte, class, ok := t.GetMapping(asid, vpnFull, noisy); ok {
		level := int(class)
		if !checkPermissions(pte, eff, kind, f) {
			return Result{}, faultFor(kind, virt, f, noisy)
		}
		if !noisy || (pte&pteA != 0 && (kind != except.AccessStore || pte&pteD != 0)) {
			return Result{Phys: composePhys(sc, pte, vpnFull, level, virt), Class: class}, except.None
		}
		// A=0, or a store without D=1: stale entry, discard and re-walk so
		// the walk below can set A/D in the backing PTE.
		t.RemoveMapping(asid, vpnFull)
	}

	base := f.SatpPPN() << 12
	walkGlobal := false
	for level := sc.levels - 1; level >= 0; level-- {
		idx := sc.vpn(vpnFull, level)
		pteAddr := base + idx*uint64(sc.pteSize)

		var pte uint64
		if sc.pteSize == 4 {
			pte = mem.Read32(hartNum, pteAddr, false)
		} else {
			pte = mem.Read64(hartNum, pteAddr, false)
		}

		if pte&pteV == 0 || (pte&pteW != 0 && pte&pteR == 0) {
			return Result{}, faultFor(kind, virt, f, noisy)
		}
		if pte&pteG != 0 {
			walkGlobal = true
		}

		isLeaf := pte&(pteR|pteX) != 0
		if !isLeaf {
			if level == 0 {
				return Result{}, faultFor(kind, virt, f, noisy) // non-leaf at last level
			}
			base = ((pte >> ppnShift) & ((uint64(1) << sc.totalPPNBits) - 1)) << 12
			continue
		}

		// Superpage misalignment: subordinate PPN fields must be zero.
		if level > 0 {
			lowMask := (uint64(1) << (uint(level) * sc.bitsPerLevel)) - 1
			ppnFull := (pte >> ppnShift) & ((uint64(1) << sc.totalPPNBits) - 1)
			if ppnFull&lowMask != 0 {
				return Result{}, faultFor(kind, virt, f, noisy)
			}
		}

		if !checkPermissions(pte, eff, kind, f) {
			return Result{}, faultFor(kind, virt, f, noisy)
		}

		if noisy {
			pte |= pteA
			if kind == except.AccessStore {
				pte |= pteD
			}
			if sc.pteSize == 4 {
				mem.Write32(hartNum, pteAddr, pte, false)
			} else {
				mem.Write64(hartNum, pteAddr, pte, false)
			}

			// The cached entry carries the effective global flag: the OR of
			// the G bits seen along the walk, not just the leaf's own.
			ignoreBits := uint(level) * sc.bitsPerLevel
			t.AddMapping(asid, vpnFull, ignoreBits, walkGlobal, tlb.PageClass(level), pte)
		}

		return Result{Phys: composePhys(sc, pte, vpnFull, level, virt), Class: tlb.PageClass(level)}, except.None
	}

	return Result{}, faultFor(kind, virt, f, noisy)
}

// checkPermissions enforces read/write/execute and U/S-mode access rules.
func checkPermissions(pte uint64, eff csr.Mode, kind except.AccessKind, f *csr.File) bool {
	switch kind {
	case except.AccessFetch:
		if pte&pteX == 0 {
			return false
		}
	case except.AccessStore:
		if pte&pteW == 0 {
			return false
		}
	default: // load
		if pte&pteR == 0 {
			if !(f.MXR() && pte&pteX != 0) {
				return false
			}
		}
	}

	u := pte&pteU != 0
	switch eff {
	case csr.ModeUser:
		if !u {
			return false
		}
	case csr.ModeSupervisor:
		if u {
			if kind == except.AccessFetch {
				return false
			}
			if !f.SUM() {
				return false
			}
		}
	}
	return true
}

// composePhys builds the physical address from the PTE's PPN fields at
// and above the leaf level and virt's lower bits at and below.
func composePhys(sc scheme, pte, vpnFull uint64, level int, virt uint64) uint64 {
	ppnFull := (pte >> ppnShift) & ((uint64(1) << sc.totalPPNBits) - 1)
	lowBits := uint(level) * sc.bitsPerLevel
	lowMask := (uint64(1) << lowBits) - 1

	ppn := (ppnFull &^ lowMask) | (vpnFull & lowMask)
	return (ppn << 12) | (virt & pageOffsetMask)
}

const pageOffsetMask = 1<<12 - 1

func faultFor(kind except.AccessKind, virt uint64, f *csr.File, noisy bool) except.Code {
	if noisy {
		f.TValNext = virt
	}
	return kind.PageFault()
}
