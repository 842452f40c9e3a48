/*
 * rvcore - System test cases
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

package system

import (
	"testing"

	"github.com/rcornwell/rvcore/emu/bits"
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/decode"
	"github.com/rcornwell/rvcore/emu/memory"
)

func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(imm int32, rs1, funct3, rd, opcode uint32) uint32 {
	return (uint32(imm)&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(imm int32, rs1, rs2, funct3, opcode uint32) uint32 {
	u := uint32(imm) & 0xfff
	lo := u & 0x1f
	hi := (u >> 5) & 0x7f
	return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode
}

func TestSystemInitCreatesHarts(t *testing.T) {
	s := New(2, bits.XLen32, 16, decode.Config{})
	s.Init()
	if len(s.Harts()) != 2 {
		t.Fatalf("len(Harts()) = %d, want 2", len(s.Harts()))
	}
}

// TestScenarioS4CrossHartReservation replicates spec.md's S4: hart 0
// reserves address 0x4000 with LR.W, hart 1 stores to it, then hart 0's
// SC.W must fail (rd=1) and observe hart 1's stored value in memory.
func TestScenarioS4CrossHartReservation(t *testing.T) {
	s := New(2, bits.XLen32, 16, decode.Config{})
	s.Init()
	s.Mem.AddRAM(0, 0x10000)
	s.Mem.AddRAM(hartResetAddr(), 0x10000)

	h0, h1 := s.Harts()[0], s.Harts()[1]

	h0.SetReg(2, 0x4000)          // x2 = addr
	h1.SetReg(2, 0x4000)
	h1.SetReg(3, 0xCAFEBABE)      // x3 = store value
	h0.SetReg(5, 0x11111111)      // x5 = sc store value (should not land)

	// hart0: lr.w x1, (x2)
	s.Mem.Write32(0, h0.PC(), uint64(encodeR(0b00010<<2, 0, 2, 2, 1, 0x2f)), false)
	h0.Step()

	// hart1: sw x3, 0(x2)
	s.Mem.Write32(1, h1.PC(), uint64(encodeS(0, 2, 3, 2, 0x23)), false)
	h1.Step()

	// hart0: sc.w x4, x5, (x2)
	s.Mem.Write32(0, h0.PC(), uint64(encodeR(0b00011<<2, 5, 2, 2, 4, 0x2f)), false)
	h0.Step()

	if h0.Reg(4) != 1 {
		t.Fatalf("sc.w result = %d, want 1 (failed, reservation invalidated)", h0.Reg(4))
	}
	stored := s.Mem.Read32(0, 0x4000, true)
	if stored != 0xCAFEBABE {
		t.Fatalf("memory at 0x4000 = %#x, want hart1's stored value 0xCAFEBABE", stored)
	}
}

func hartResetAddr() uint64 { return 0x80000000 }

// TestMemoryMappedTimerRoutesToHartCSR checks that the fixed MTIME and
// per-hart MTIMECMP addresses reach the owning hart's CSR block, and
// that writing the compare register recomputes MTIP.
func TestMemoryMappedTimerRoutesToHartCSR(t *testing.T) {
	s := New(2, bits.XLen32, 16, decode.Config{})
	s.Init()

	h1 := s.Harts()[1]
	h1.CSR().MTime = 500

	slot1 := uint64(memory.MTimeCmpDefaultAddr) + 8
	s.Mem.Write64(1, slot1, 200, true)
	if h1.CSR().MTimeCmp != 200 {
		t.Fatalf("mtimecmp[1] = %d, want 200", h1.CSR().MTimeCmp)
	}
	if h1.CSR().Mip&csr.MTIBit == 0 {
		t.Fatal("mtimecmp write with mtime >= cmp should raise MTIP")
	}

	if v := s.Mem.Read64(1, memory.MTimeDefaultAddr, true); v != 500 {
		t.Fatalf("mapped mtime read = %d, want 500", v)
	}
	s.Mem.Write64(1, memory.MTimeDefaultAddr, 100, true)
	if h1.CSR().MTime != 100 {
		t.Fatalf("mapped mtime write = %d, want 100", h1.CSR().MTime)
	}
	if h1.CSR().Mip&csr.MTIBit != 0 {
		t.Fatal("winding mtime back below mtimecmp should clear MTIP")
	}

	// The registers exist only at effective privilege M with MPRV clear:
	// an S-mode access sees the plain memory map (unmapped here).
	h1.SetMode(csr.ModeSupervisor)
	if v := s.Mem.Read64(1, memory.MTimeDefaultAddr, true); v == h1.CSR().MTime {
		t.Fatal("S-mode access reached the M-mode-only mtime register")
	}
	h1.SetMode(csr.ModeMachine)
}

func TestRunStopsWhenAllHartsHalt(t *testing.T) {
	s := New(1, bits.XLen32, 16, decode.Config{MachineSpecific: true})
	s.Init()
	s.Mem.AddRAM(0, 0x10000)
	s.Mem.AddRAM(hartResetAddr(), 0x10000)

	h := s.Harts()[0]
	// ehalt: opcode 0x5b, funct3=0
	s.Mem.Write32(0, h.PC(), uint64(0x5b), false)

	ticks := s.Run(10, nil)
	if ticks == 0 {
		t.Fatal("expected at least one tick")
	}
	if !h.Halted() {
		t.Fatal("hart did not halt")
	}
}
