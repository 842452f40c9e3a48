/*
 * rvcore - Hart step loop test cases
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

package hart

import (
	"testing"

	"github.com/rcornwell/rvcore/emu/bits"
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/decode"
	"github.com/rcornwell/rvcore/emu/except"
	"github.com/rcornwell/rvcore/emu/memory"
	"github.com/rcornwell/rvcore/emu/reservation"
	"github.com/rcornwell/rvcore/emu/tlb"
)

func newTestHart(t *testing.T, xlen bits.XLen) (*Hart, *memory.Memory) {
	t.Helper()
	mem := memory.New()
	mem.AddRAM(0, 0x10000)
	mem.AddRAM(ResetAddress, 0x10000)
	res := reservation.New()
	cache := decode.NewCache(mem, decode.Config{}, 16)
	h := New(0, mem, res, cache, xlen)
	h.Init()
	return h, mem
}

func storeInstr(mem *memory.Memory, addr uint64, instr uint32) {
	mem.Write32(0, addr, uint64(instr), false)
}

// encodeI builds an I-type word.
func encodeI(imm int32, rs1, funct3, rd, opcode uint32) uint32 {
	return (uint32(imm)&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func TestStepS1Addi(t *testing.T) {
	h, mem := newTestHart(t, 32)
	h.SetReg(5, 0x7FFFFFFE)
	storeInstr(mem, ResetAddress, encodeI(3, 5, 0, 6, 0x13)) // addi x6, x5, 3

	trapped := h.Step()
	if trapped {
		t.Fatal("unexpected trap")
	}
	// RV32 registers are held sign-extended; compare the 32-bit view.
	if got := bits.Trunc64(h.Reg(6), bits.XLen32); got != 0x80000001 {
		t.Fatalf("x6 = %#x, want 0x80000001", got)
	}
	if h.PC() != ResetAddress+4 {
		t.Fatalf("pc = %#x, want %#x", h.PC(), ResetAddress+4)
	}
}

func TestStepS2LoadMisaligned(t *testing.T) {
	h, mem := newTestHart(t, 32)
	h.SetReg(1, 0x10000001)
	storeInstr(mem, ResetAddress, encodeI(0, 1, 2, 2, 0x03)) // lw x2, 0(x1)
	h.CSR().Mtvec = 0x2000                                   // direct mode

	trapped := h.Step()
	if !trapped {
		t.Fatal("expected a trap")
	}
	if h.CSR().Mcause != uint64(except.LoadMisaligned) {
		t.Fatalf("mcause = %d, want %d", h.CSR().Mcause, except.LoadMisaligned)
	}
	if h.CSR().Mtval != 0x10000001 {
		t.Fatalf("mtval = %#x, want 0x10000001", h.CSR().Mtval)
	}
	if h.PC() != 0x2000 {
		t.Fatalf("pc = %#x, want 0x2000 (trap vector)", h.PC())
	}
}

func TestStepS5MretRestoresFromTrap(t *testing.T) {
	h, mem := newTestHart(t, 32)
	h.SetMode(csr.ModeSupervisor)
	h.CSR().SetSIE(true)
	h.CSR().SetMIE(true)

	// ecall from S-mode.
	storeInstr(mem, ResetAddress, encodeI(0, 0, 0, 0, 0x73))
	if trapped := h.Step(); !trapped {
		t.Fatal("expected ecall to trap")
	}
	if h.CSR().Mcause != uint64(except.ECallFromS) {
		t.Fatalf("mcause = %d, want %d", h.CSR().Mcause, except.ECallFromS)
	}
	if h.Mode() != csr.ModeMachine {
		t.Fatalf("mode after ecall = %v, want M", h.Mode())
	}

	// mret at the trap vector (mtvec defaults to 0, direct mode).
	storeInstr(mem, h.PC(), 0x30200073) // mret
	h.Step()

	if h.Mode() != csr.ModeSupervisor {
		t.Fatalf("mode after mret = %v, want S", h.Mode())
	}
	if !h.CSR().MIE() {
		t.Fatal("MIE not restored to 1")
	}
	if !h.CSR().MPIE() {
		t.Fatal("MPIE not set to 1")
	}
	if h.CSR().MPP() != csr.ModeUser {
		t.Fatalf("MPP after mret = %v, want U", h.CSR().MPP())
	}
}

func TestRegisterZeroNeverStickyAcrossSteps(t *testing.T) {
	h, mem := newTestHart(t, 32)
	storeInstr(mem, ResetAddress, encodeI(5, 0, 0, 0, 0x13)) // addi x0, x0, 5
	h.Step()
	if h.Reg(0) != 0 {
		t.Fatalf("x0 = %d, want 0", h.Reg(0))
	}
}

func TestSetPCRejectsMisalignedSilently(t *testing.T) {
	h, _ := newTestHart(t, 32)
	before := h.PC()
	h.SetPC(0x1001)
	if h.PC() != before {
		t.Fatalf("pc mutated by misaligned SetPC: %#x", h.PC())
	}
	h.SetPC(0x2000)
	if h.PC() != 0x2000 || h.NextPC() != 0x2004 {
		t.Fatalf("aligned SetPC did not take: pc=%#x next=%#x", h.PC(), h.NextPC())
	}
}

func TestWFIStandbyWakesOnPendingInterrupt(t *testing.T) {
	h, mem := newTestHart(t, 32)
	h.CSR().SetMIE(true)
	h.CSR().Mie |= csr.MEIBit
	h.CSR().Mtvec = 0x3000

	storeInstr(mem, ResetAddress, 0x10500073) // wfi
	h.Step()
	if h.PC() != ResetAddress {
		t.Fatalf("pc advanced past a pending wfi: %#x", h.PC())
	}

	// Idle tick: still asleep, no interrupt pending.
	h.Step()

	h.InterruptUp(11) // MEI
	if trapped := h.Step(); !trapped {
		t.Fatal("pending enabled interrupt did not wake the standby hart")
	}
	if h.PC() != 0x3000 {
		t.Fatalf("pc = %#x, want trap vector 0x3000", h.PC())
	}
	if h.CSR().Mepc != ResetAddress+4 {
		t.Fatalf("mepc = %#x, want resume point after wfi", h.CSR().Mepc)
	}
	if want := uint64(except.IntMEI) | uint64(1)<<31; h.CSR().Mcause != want {
		t.Fatalf("mcause = %#x, want %#x", h.CSR().Mcause, want)
	}
}

func TestIllegalInstructionRecordsEncodingInTval(t *testing.T) {
	h, mem := newTestHart(t, 32)
	instr := uint32(0xffffffff) // not a valid major opcode
	storeInstr(mem, ResetAddress, instr)
	if trapped := h.Step(); !trapped {
		t.Fatal("expected illegal-instruction trap")
	}
	if h.CSR().Mcause != uint64(except.IllegalInstr) {
		t.Fatalf("mcause = %d, want illegal-instruction", h.CSR().Mcause)
	}
	if h.CSR().Mtval != uint64(instr) {
		t.Fatalf("mtval = %#x, want the raw encoding %#x", h.CSR().Mtval, instr)
	}
}

func TestSatpBareWriteFlushesHartTLB(t *testing.T) {
	h, _ := newTestHart(t, 32)
	h.TLB().AddMapping(1, 0x123, 0, false, tlb.ClassPage, 0xf)

	// A non-Bare install leaves the ASID-tagged entries alone.
	if !h.CSR().Write(csr.Satp, (csr.SatpModeSv32<<31)|0x1, csr.ModeMachine) {
		t.Fatal("satp write rejected")
	}
	if _, _, ok := h.TLB().GetMapping(1, 0x123, false); !ok {
		t.Fatal("non-Bare satp write should not flush the TLB")
	}

	if !h.CSR().Write(csr.Satp, 0, csr.ModeMachine) {
		t.Fatal("satp Bare write rejected")
	}
	if _, _, ok := h.TLB().GetMapping(1, 0x123, false); ok {
		t.Fatal("Bare transition did not flush the TLB")
	}
}

func TestAsidLenChangeFlushesHartTLB(t *testing.T) {
	h, _ := newTestHart(t, 32)
	h.TLB().AddMapping(1, 0x123, 0, false, tlb.ClassPage, 0xf)
	h.CSR().SetAsidLen(4)
	if _, _, ok := h.TLB().GetMapping(1, 0x123, false); ok {
		t.Fatal("asid_len change did not flush the TLB")
	}
}

func TestInterruptUpDefaultsUnrecognisedToMEI(t *testing.T) {
	h, _ := newTestHart(t, 32)
	h.InterruptUp(99)
	if h.CSR().Mip&csr.MEIBit == 0 {
		t.Fatal("unrecognised interrupt number did not set MEIP")
	}
}
