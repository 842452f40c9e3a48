/*
 * rvcore - Instruction execution core interface
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

// Package exec implements RISC-V instruction semantics: the base
// integer ALU and control-flow ops, the M (multiply/divide) and A
// (atomic) extensions, loads/stores, the SYSTEM opcode (ECALL/EBREAK/
// MRET/SRET/WFI/SFENCE.VMA/CSR*), and a small set of simulator-only
// escape-hatch instructions. Grouped the way the teacher splits CPU
// behavior across cpu_standard.go (arithmetic/logical/branch),
// cpu_system.go (privileged/system opcodes, including its own
// diagnose-instruction escape hatch) and cpu_decimal.go (extension ops)
// rather than one monolithic file.
package exec

import (
	"github.com/rcornwell/rvcore/emu/bits"
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/except"
	"github.com/rcornwell/rvcore/emu/memory"
	"github.com/rcornwell/rvcore/emu/reservation"
	"github.com/rcornwell/rvcore/emu/tlb"
)

// Core is the narrow surface instruction semantics need from a hart:
// the register file, the PC pair, privilege mode, and the shared CSR/
// memory/TLB/reservation handles. It is defined here, not in the hart
// package that owns Step, so the decoder's dispatch table can name
// instruction handlers without an import cycle back to the package that
// drives the step loop.
type Core interface {
	Reg(n uint) uint64
	SetReg(n uint, v uint64)
	PC() uint64
	SetPC(v uint64)
	NextPC() uint64
	SetNextPC(v uint64)
	Mode() csr.Mode
	SetMode(m csr.Mode)
	CSR() *csr.File
	Mem() *memory.Memory
	TLB() *tlb.TLB
	Reservation() *reservation.Registry
	HartID() uint
	XLen() bits.XLen
	SetStandby(b bool)
	// SetInteractive and SetHalt record EBREAK's host-visible outcome;
	// TerminalAttached reports which of the two applies.
	SetInteractive()
	SetHalt()
	TerminalAttached() bool
	// DebugDump and SetDebugTrace back the EDUMP/ETRACE simulator-only
	// escape-hatch instructions (disabled entirely unless the decoder's
	// MachineSpecific flag is set).
	DebugDump()
	SetDebugTrace(on bool)
}

// Handler is the decoded-instruction execute function: given the hart
// core and the raw 32-bit word, it performs the instruction's effect
// and returns the exception it raised (except.None on success).
type Handler func(c Core, instr uint32) except.Code

// Field extractors, shared by every instruction family.
func opcode(instr uint32) uint32 { return instr & 0x7f }
func rd(instr uint32) uint       { return uint((instr >> 7) & 0x1f) }
func funct3(instr uint32) uint32 { return (instr >> 12) & 0x7 }
func rs1(instr uint32) uint      { return uint((instr >> 15) & 0x1f) }
func rs2(instr uint32) uint      { return uint((instr >> 20) & 0x1f) }
func funct7(instr uint32) uint32 { return (instr >> 25) & 0x7f }
func funct5(instr uint32) uint32 { return (instr >> 27) & 0x1f }

// xval normalises a freshly computed value to c's native width before
// it is written back to a register.
func xval(c Core, v uint64) uint64 { return bits.ToXLen(v, c.XLen()) }

// effAddr truncates a computed virtual address (or jump target) to the
// hart's native width: RV32 registers are held sign-extended, so a sum
// like rs1+imm can carry stray copies of bit 31 into the upper word.
func effAddr(c Core, v uint64) uint64 { return bits.Trunc64(v, c.XLen()) }

// uval reads a register as an unsigned XLEN-wide value, dropping the
// RV32 sign-extension held in the upper word.
func uval(c Core, v uint64) uint64 { return bits.Trunc64(v, c.XLen()) }

// setRd writes rd <- v (subject to the x0-is-always-zero invariant,
// enforced centrally by Core.SetReg) for the common single-destination
// instruction shape.
func setRd(c Core, instr uint32, v uint64) except.Code {
	c.SetReg(rd(instr), xval(c, v))
	return except.None
}
