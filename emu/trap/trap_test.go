/*
 * rvcore - Trap delivery test cases
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

package trap

import (
	"testing"

	"github.com/rcornwell/rvcore/emu/bits"
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/except"
)

// TestMretRestoresFromTrap covers scenario S5: ECALL from S, mcause=9,
// then mret. Afterwards priv=S, MIE restored to 1, MPIE=1, MPP=U.
func TestMretRestoresFromTrap(t *testing.T) {
	f := csr.New(bits.XLen32, 0, 0)
	f.SetMIE(true)

	newMode, pcNext := TakeException(f, csr.ModeSupervisor, except.ECallFromS, 0x1000)
	if newMode != csr.ModeMachine {
		t.Fatalf("ecall from S should trap to M by default (medeleg=0), got %v", newMode)
	}
	if f.Mcause != uint64(except.ECallFromS) {
		t.Fatalf("mcause = %#x, want %d", f.Mcause, except.ECallFromS)
	}
	if f.Mepc != 0x1000 {
		t.Fatalf("mepc = %#x, want 0x1000", f.Mepc)
	}
	if f.MIE() {
		t.Fatal("MIE should be cleared on trap entry")
	}
	if !f.MPIE() {
		t.Fatal("MPIE should hold the pre-trap MIE value (1)")
	}
	if f.MPP() != csr.ModeSupervisor {
		t.Fatalf("MPP = %v, want S", f.MPP())
	}
	_ = pcNext

	retMode, retPC := Return(f, csr.ModeMachine)
	if retMode != csr.ModeSupervisor {
		t.Fatalf("mret restored mode = %v, want S", retMode)
	}
	if retPC != 0x1000 {
		t.Fatalf("mret restored pc = %#x, want 0x1000", retPC)
	}
	if !f.MIE() {
		t.Fatal("MIE should be restored to 1 after mret")
	}
	if !f.MPIE() {
		t.Fatal("MPIE should be set to 1 after mret")
	}
	if f.MPP() != csr.ModeUser {
		t.Fatalf("MPP after mret = %v, want U", f.MPP())
	}
}

// TestDelegatedExceptionEntersSupervisor checks that medeleg routes a
// delegated exception to S instead of M.
func TestDelegatedExceptionEntersSupervisor(t *testing.T) {
	f := csr.New(bits.XLen64, 0, 0)
	f.Write(csr.Medeleg, uint64(1)<<uint(except.LoadPageFault), csr.ModeMachine)
	f.SetSIE(true)

	mode, _ := TakeException(f, csr.ModeUser, except.LoadPageFault, 0x2000)
	if mode != csr.ModeSupervisor {
		t.Fatalf("delegated load page fault should enter S, got %v", mode)
	}
	if f.Scause != uint64(except.LoadPageFault) {
		t.Fatalf("scause = %#x", f.Scause)
	}
	if f.SIE() {
		t.Fatal("SIE should be cleared on trap entry")
	}
}

// TestMModeECallNeverDelegated checks medeleg's hard-wired-zero ECALL bit:
// writeMedeleg already masks it, so setting every bit still traps to M.
func TestMModeECallNeverDelegated(t *testing.T) {
	f := csr.New(bits.XLen64, 0, 0)
	f.Write(csr.Medeleg, ^uint64(0), csr.ModeMachine)

	mode, _ := TakeException(f, csr.ModeMachine, except.ECallFromM, 0x3000)
	if mode != csr.ModeMachine {
		t.Fatalf("M-mode ECALL must never delegate, got %v", mode)
	}
}

// TestVectoredInterruptDispatch checks pc_next = base + 4*code for a
// vectored mtvec on an interrupt, and base (unvectored) for direct mode.
func TestVectoredInterruptDispatch(t *testing.T) {
	f := csr.New(bits.XLen64, 0, 0)
	f.Write(csr.Mtvec, 0x8000_0001, csr.ModeMachine) // vectored, base=0x80000000

	_, pc := TakeInterrupt(f, csr.ModeUser, except.IntMTI, 0x100)
	want := uint64(0x8000_0000) + 4*uint64(except.IntMTI)
	if pc != want {
		t.Fatalf("vectored dispatch pc = %#x, want %#x", pc, want)
	}

	f2 := csr.New(bits.XLen64, 0, 0)
	f2.Write(csr.Mtvec, 0x8000_0000, csr.ModeMachine) // direct
	_, pc2 := TakeInterrupt(f2, csr.ModeUser, except.IntMTI, 0x100)
	if pc2 != 0x8000_0000 {
		t.Fatalf("direct dispatch pc = %#x, want base", pc2)
	}
}

// TestPickInterruptPriority checks that MEI outranks MSI/MTI/SEI/SSI/STI
// when several are simultaneously pending and enabled.
func TestPickInterruptPriority(t *testing.T) {
	f := csr.New(bits.XLen64, 0, 0)
	f.Write(csr.Mie, ^uint64(0), csr.ModeMachine)
	f.RaiseExternal(11) // MEI
	f.Mip |= csr.MTIBit // MTI, driven by mtimecmp rather than a pin
	f.RaiseExternal(1)  // SSI

	code, ok := PickInterrupt(f, csr.ModeUser)
	if !ok || code != except.IntMEI {
		t.Fatalf("PickInterrupt = %v, %v; want MEI", code, ok)
	}
}

// TestPickInterruptUndelegatedScanRunsFirst checks the two-pass order:
// a pending undelegated interrupt fires via M even when a
// higher-priority delegated one is pending too, because the whole
// undelegated scan completes before delegation is considered.
func TestPickInterruptUndelegatedScanRunsFirst(t *testing.T) {
	f := csr.New(bits.XLen64, 0, 0)
	f.Write(csr.Mideleg, csr.SEIBit, csr.ModeMachine)
	f.Write(csr.Mie, csr.SEIBit|csr.STIBit, csr.ModeMachine)
	f.Mip |= csr.SEIBit | csr.STIBit
	f.SetSIE(true)

	code, ok := PickInterrupt(f, csr.ModeUser)
	if !ok || code != except.IntSTI {
		t.Fatalf("PickInterrupt = %v, %v; want undelegated STI via M, not delegated SEI", code, ok)
	}

	// With STI gone the delegated SEI is finally eligible, via S.
	f.Mip &^= csr.STIBit
	code, ok = PickInterrupt(f, csr.ModeUser)
	if !ok || code != except.IntSEI {
		t.Fatalf("PickInterrupt = %v, %v; want delegated SEI once the M scan is empty", code, ok)
	}
}

// TestPickInterruptNoneEnabled checks that a pending-but-masked
// interrupt is never selected.
func TestPickInterruptNoneEnabled(t *testing.T) {
	f := csr.New(bits.XLen64, 0, 0)
	f.Mip |= csr.MTIBit // MTI pending, but mie never set

	if _, ok := PickInterrupt(f, csr.ModeUser); ok {
		t.Fatal("PickInterrupt should not select an interrupt disabled in mie")
	}
}

// TestPickInterruptDelegatedSModeGating checks that a delegated S-mode
// interrupt is gated by SIE while in S-mode, not by MIE.
func TestPickInterruptDelegatedSModeGating(t *testing.T) {
	f := csr.New(bits.XLen64, 0, 0)
	f.Write(csr.Mideleg, csr.SEIBit, csr.ModeMachine)
	f.Write(csr.Mie, csr.SEIBit, csr.ModeMachine)
	f.RaiseExternal(9) // SEI
	f.SetSIE(false)

	if _, ok := PickInterrupt(f, csr.ModeSupervisor); ok {
		t.Fatal("delegated SEI with SIE=0 in S-mode must not be taken")
	}

	f.SetSIE(true)
	code, ok := PickInterrupt(f, csr.ModeSupervisor)
	if !ok || code != except.IntSEI {
		t.Fatalf("delegated SEI with SIE=1 in S-mode should be taken, got %v %v", code, ok)
	}
}
