/*
 * rvcore - TLB test cases
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

package tlb

import "testing"

func TestAddAndGetMappingRoundTrip(t *testing.T) {
	tb := New(8)
	tb.AddMapping(1, 0x12345, 0, false, ClassPage, 0x9)

	pte, class, ok := tb.GetMapping(1, 0x12345, false)
	if !ok || pte != 0x9 || class != ClassPage {
		t.Fatalf("GetMapping = %#x, %v, %v", pte, class, ok)
	}
}

func TestGetMappingMissesWrongASIDUnlessGlobal(t *testing.T) {
	tb := New(8)
	tb.AddMapping(1, 0x1000, 0, false, ClassPage, 0xaaa)

	if _, _, ok := tb.GetMapping(2, 0x1000, false); ok {
		t.Fatal("non-global entry matched the wrong ASID")
	}

	tb.AddMapping(1, 0x2000, 0, true, ClassPage, 0xbbb)
	if _, _, ok := tb.GetMapping(2, 0x2000, false); !ok {
		t.Fatal("global entry should match any ASID")
	}
}

func TestSuperpageIgnoreBitsMatchWithinRange(t *testing.T) {
	tb := New(8)
	// Sv39 megapage: low 9 VPN-index bits are don't-care.
	tb.AddMapping(0, 0x1000&^uint64(0x1ff), 9, false, ClassMegapage, 0x77)

	if _, class, ok := tb.GetMapping(0, 0x1000|0x050, false); !ok || class != ClassMegapage {
		t.Fatalf("megapage lookup within range failed: ok=%v class=%v", ok, class)
	}
	if _, _, ok := tb.GetMapping(0, 0x1000+0x200, false); ok {
		t.Fatal("megapage lookup matched an address outside its range")
	}
}

func TestNoisyLookupPromotesToLRUHead(t *testing.T) {
	tb := New(2)
	tb.AddMapping(0, 1, 0, false, ClassPage, 0x1)
	tb.AddMapping(0, 2, 0, false, ClassPage, 0x2)

	// Touch vpn=1 so it becomes MRU; vpn=2 becomes the eviction candidate.
	if _, _, ok := tb.GetMapping(0, 1, true); !ok {
		t.Fatal("expected hit on vpn=1")
	}

	tb.AddMapping(0, 3, 0, false, ClassPage, 0x3) // must evict vpn=2, the LRU tail

	if _, _, ok := tb.GetMapping(0, 1, false); !ok {
		t.Fatal("vpn=1 should have survived eviction")
	}
	if _, _, ok := tb.GetMapping(0, 2, false); ok {
		t.Fatal("vpn=2 should have been evicted as the LRU tail")
	}
	if _, _, ok := tb.GetMapping(0, 3, false); !ok {
		t.Fatal("vpn=3 should be present")
	}
}

func TestSilentPeekDoesNotReorder(t *testing.T) {
	tb := New(2)
	tb.AddMapping(0, 1, 0, false, ClassPage, 0x1)
	tb.AddMapping(0, 2, 0, false, ClassPage, 0x2)

	tb.GetMapping(0, 1, false) // noisy=false: must not promote vpn=1

	tb.AddMapping(0, 3, 0, false, ClassPage, 0x3) // still evicts vpn=1 (LRU tail)

	if _, _, ok := tb.GetMapping(0, 1, false); ok {
		t.Fatal("silent peek should not have protected vpn=1 from eviction")
	}
}

// TestFlushASIDLeavesGlobals checks that flushing by ASID never drops a
// global entry.
func TestFlushASIDLeavesGlobals(t *testing.T) {
	tb := New(8)
	tb.AddMapping(7, 0x100, 0, false, ClassPage, 0x1)
	tb.AddMapping(7, 0x200, 0, true, ClassPage, 0x2)

	tb.FlushASID(7)

	if _, _, ok := tb.GetMapping(7, 0x100, false); ok {
		t.Fatal("flush by ASID left a non-global entry behind")
	}
	if _, _, ok := tb.GetMapping(7, 0x200, false); !ok {
		t.Fatal("flush by ASID removed a global entry")
	}
}

// TestFlushAddressMatchesAllPageClasses checks that flushing by address
// matches page, megapage, and gigapage entries alike.
func TestFlushAddressMatchesAllPageClasses(t *testing.T) {
	tb := New(8)
	base := uint64(0x40000)
	tb.AddMapping(0, base, 0, false, ClassPage, 0x1)
	tb.AddMapping(0, base&^uint64(0x1ff), 9, false, ClassMegapage, 0x2)
	tb.AddMapping(0, base&^uint64(0x3ffff), 18, false, ClassGigapage, 0x3)

	tb.FlushAddress(base)

	if _, _, ok := tb.GetMapping(0, base, false); ok {
		t.Fatal("page entry survived FlushAddress")
	}
	if _, _, ok := tb.GetMapping(0, base+1, false); ok {
		t.Fatal("megapage entry survived FlushAddress")
	}
	if _, _, ok := tb.GetMapping(0, base+2, false); ok {
		t.Fatal("gigapage entry survived FlushAddress")
	}
}

// TestSFenceCombinedScenario exercises the combined flush used by
// sfence.vma with both rs1 and rs2 non-zero: scoped to one ASID and one
// address, leaving global entries untouched.
func TestSFenceCombinedScenario(t *testing.T) {
	tb := New(8)
	tb.AddMapping(7, 0x12345, 0, false, ClassPage, 0x9)
	tb.AddMapping(7, 0x22222, 0, true, ClassPage, 0xa)

	tb.FlushCombined(7, 0x12345)

	if _, _, ok := tb.GetMapping(7, 0x12345, false); ok {
		t.Fatal("first mapping should be absent after a combined flush of ASID 7, VPN 0x12345")
	}
	if _, _, ok := tb.GetMapping(7, 0x22222, false); !ok {
		t.Fatal("second (global) mapping should survive an ASID-scoped sfence.vma")
	}
}

func TestRemoveMapping(t *testing.T) {
	tb := New(4)
	tb.AddMapping(0, 5, 0, false, ClassPage, 0x5)
	tb.RemoveMapping(0, 5)
	if _, _, ok := tb.GetMapping(0, 5, false); ok {
		t.Fatal("RemoveMapping did not invalidate the entry")
	}
}

func TestResizeClearsAllEntries(t *testing.T) {
	tb := New(4)
	tb.AddMapping(0, 1, 0, false, ClassPage, 0x1)
	tb.Resize(16)
	if _, _, ok := tb.GetMapping(0, 1, false); ok {
		t.Fatal("resize should have dropped the prior mapping")
	}
	// Refill past the old size to confirm the new capacity is usable.
	for i := uint64(0); i < 16; i++ {
		tb.AddMapping(0, i, 0, false, ClassPage, i)
	}
	for i := uint64(0); i < 16; i++ {
		if _, _, ok := tb.GetMapping(0, i, false); !ok {
			t.Fatalf("vpn=%d missing after resize fill", i)
		}
	}
}

func TestDefaultSize(t *testing.T) {
	if DefaultSize(32) != 256 {
		t.Errorf("RV32 default size = %d, want 256", DefaultSize(32))
	}
	if DefaultSize(64) != 96 {
		t.Errorf("RV64 default size = %d, want 96", DefaultSize(64))
	}
}
