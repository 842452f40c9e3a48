/*
 * rvcore - Translation lookaside buffer
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

// Package tlb implements the per-hart translation lookaside buffer: a
// fixed-size array of entries threaded onto two intrusive doubly-linked
// lists (LRU and free), the same head/tail splice idiom the event
// scheduler uses for its time-ordered queue, retargeted here to age and
// recycle translations instead of timed callbacks.
package tlb

import "github.com/rcornwell/rvcore/emu/bits"

// PageClass distinguishes the three RISC-V leaf granularities a TLB
// entry may cache.
type PageClass uint8

const (
	ClassPage     PageClass = iota // 4 KiB
	ClassMegapage                  // 2 MiB (Sv39) or 4 MiB (Sv32)
	ClassGigapage                  // 1 GiB (Sv39 only)
)

// DefaultSize returns the default entry count for a build:
// "256 RV32, 96 RV64").
func DefaultSize(xlen bits.XLen) int {
	if xlen == bits.XLen32 {
		return 256
	}
	return 96
}

// entry is one cached translation. It is either threaded onto the LRU
// list (valid) or the free list (invalid); never both.
type entry struct {
	valid   bool
	vpn     uint64 // VPN already masked to this entry's page-class granularity
	vpnMask uint64 // bits a lookup VPN must share with vpn to match
	asid    uint64
	global  bool
	class   PageClass
	pte     uint64

	prev, next *entry
}

// TLB is one hart's translation cache.
type TLB struct {
	entries  []entry
	lruHead  *entry
	lruTail  *entry
	freeHead *entry
}

// New allocates a TLB with the given number of entries, all initially
// on the free list.
func New(size int) *TLB {
	t := &TLB{entries: make([]entry, size)}
	t.initFreeList()
	return t
}

func (t *TLB) initFreeList() {
	t.lruHead, t.lruTail = nil, nil
	t.freeHead = nil
	for i := range t.entries {
		t.entries[i] = entry{}
		e := &t.entries[i]
		e.next = t.freeHead
		t.freeHead = e
	}
}

// Resize reinitializes both lists at the new size, mirroring the
// teacher's flat-array "drop and reallocate" pattern for memory resize.
func (t *TLB) Resize(size int) {
	t.entries = make([]entry, size)
	t.initFreeList()
}

func vpnMaskForIgnoreBits(ignoreBits uint) uint64 {
	if ignoreBits == 0 {
		return ^uint64(0)
	}
	return ^((uint64(1) << ignoreBits) - 1)
}

// lruUnlink removes e from the LRU list; e.prev/e.next are left stale,
// overwritten by whoever re-splices e next.
func (t *TLB) lruUnlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		t.lruHead = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		t.lruTail = e.prev
	}
}

func (t *TLB) lruPushHead(e *entry) {
	e.prev = nil
	e.next = t.lruHead
	if t.lruHead != nil {
		t.lruHead.prev = e
	}
	t.lruHead = e
	if t.lruTail == nil {
		t.lruTail = e
	}
}

func (t *TLB) freeToInvalid(e *entry) {
	*e = entry{next: t.freeHead}
	t.freeHead = e
}

// AddMapping installs a translation, taking a slot from the free list
// or evicting the LRU tail, and splices it at the LRU head (
// §4.E: "add_mapping takes an entry from the free list or evicts the
// LRU tail; it inserts at the LRU head"). ignoreBits is the number of
// low VPN bits this page class spans (0 for a plain page).
func (t *TLB) AddMapping(asid, vpn uint64, ignoreBits uint, global bool, class PageClass, pte uint64) {
	var e *entry
	if t.freeHead != nil {
		e = t.freeHead
		t.freeHead = e.next
	} else {
		e = t.lruTail
		t.lruUnlink(e)
	}

	mask := vpnMaskForIgnoreBits(ignoreBits)
	*e = entry{
		valid:   true,
		vpn:     vpn & mask,
		vpnMask: mask,
		asid:    asid,
		global:  global,
		class:   class,
		pte:     pte,
	}
	t.lruPushHead(e)
}

func (e *entry) matchesAddr(vpn uint64) bool {
	return vpn&e.vpnMask == e.vpn
}

func (e *entry) matchesASID(asid uint64) bool {
	return e.global || e.asid == asid
}

// GetMapping scans the LRU list linearly for the first entry whose ASID
// matches (or is global) and whose class-scaled VPN matches vpn. When
// noisy is true the hit is moved to the LRU head.
func (t *TLB) GetMapping(asid, vpn uint64, noisy bool) (pte uint64, class PageClass, ok bool) {
	for e := t.lruHead; e != nil; e = e.next {
		if e.matchesASID(asid) && e.matchesAddr(vpn) {
			if noisy && e != t.lruHead {
				t.lruUnlink(e)
				t.lruPushHead(e)
			}
			return e.pte, e.class, true
		}
	}
	return 0, 0, false
}

// RemoveMapping invalidates the first entry matching (asid, vpn),
// honoring the "at most one valid entry per tuple" invariant.
func (t *TLB) RemoveMapping(asid, vpn uint64) {
	for e := t.lruHead; e != nil; e = e.next {
		if e.matchesASID(asid) && e.matchesAddr(vpn) {
			t.lruUnlink(e)
			t.freeToInvalid(e)
			return
		}
	}
}

// FlushAll invalidates every entry.
func (t *TLB) FlushAll() {
	for e := t.lruHead; e != nil; {
		next := e.next
		t.freeToInvalid(e)
		e = next
	}
	t.lruHead, t.lruTail = nil, nil
}

// removeWhere unlinks every LRU entry for which keep returns false.
func (t *TLB) removeWhere(keep func(*entry) bool) {
	for e := t.lruHead; e != nil; {
		next := e.next
		if !keep(e) {
			t.lruUnlink(e)
			t.freeToInvalid(e)
		}
		e = next
	}
}

// FlushASID invalidates every non-global entry for asid (
// "by-ASID (skip globals)").
func (t *TLB) FlushASID(asid uint64) {
	t.removeWhere(func(e *entry) bool {
		return e.global || e.asid != asid
	})
}

// FlushAddress invalidates every entry whose class-scaled VPN matches
// vpn, across all three page classes.
func (t *TLB) FlushAddress(vpn uint64) {
	t.removeWhere(func(e *entry) bool {
		return !e.matchesAddr(vpn)
	})
}

// FlushCombined invalidates non-global entries matching both the ASID
// and address predicates — the `sfence.vma rs1,rs2` non-zero/non-zero
// case. Global entries survive, as with FlushASID.
func (t *TLB) FlushCombined(asid, vpn uint64) {
	t.removeWhere(func(e *entry) bool {
		return e.global || e.asid != asid || !e.matchesAddr(vpn)
	})
}
