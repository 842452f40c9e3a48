/*
 * rvcore - Instruction decoder
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

// Package decode turns a raw 32-bit instruction word into the
// exec.Handler that implements it, and caches that mapping per physical
// page so the step loop only pays the decode cost once per instruction
// image. The dispatch here mirrors the teacher's opcode-then-subfield
// switch shape in its own instruction decoder, just over RISC-V's
// opcode/funct3/funct7 fields instead of S/370's op-byte layout.
package decode

import (
	"github.com/rcornwell/rvcore/emu/exec"
)

// Config selects build-time decoder behaviour.
type Config struct {
	// TreatUndefinedAsNop makes unrecognised encodings execute as a
	// no-op instead of raising illegal-instruction. Off by default;
	// RISC-V conformance requires the fault.
	TreatUndefinedAsNop bool

	// MachineSpecific enables the custom-2 (0x5b) simulator escape
	// hatch (EHALT/EDUMP/ETRACE/ECSRRD). Off by default so a
	// conformance build never exposes it.
	MachineSpecific bool
}

const (
	opLoad    = 0x03
	opMiscMem = 0x0f
	opOpImm   = 0x13
	opAuiPc   = 0x17
	opOpImm32 = 0x1b
	opStore   = 0x23
	opAmo     = 0x2f
	opOp      = 0x33
	opLui     = 0x37
	opOp32    = 0x3b
	opBranch  = 0x63
	opJalr    = 0x67
	opJal     = 0x6f
	opSystem  = 0x73
	opCustom2 = 0x5b
)

func opcode(instr uint32) uint32 { return instr & 0x7f }
func funct7(instr uint32) uint32 { return (instr >> 25) & 0x7f }

// Decode maps instr to the handler that implements it. It never
// inspects hart state; the same word always decodes to the same
// handler for a given Config, which is what makes the per-page cache
// in cache.go valid.
func Decode(instr uint32, cfg Config) exec.Handler {
	switch opcode(instr) {
	case opLoad:
		return exec.Load
	case opMiscMem:
		return exec.Fence
	case opOpImm:
		return exec.OpImm
	case opAuiPc:
		return exec.AuiPc
	case opOpImm32:
		return exec.OpImm32
	case opStore:
		return exec.Store
	case opAmo:
		return exec.Atomic
	case opOp:
		if funct7(instr) == 1 {
			return exec.MulDiv
		}
		return exec.Op
	case opLui:
		return exec.Lui
	case opOp32:
		if funct7(instr) == 1 {
			return exec.MulDiv32
		}
		return exec.Op32
	case opBranch:
		return exec.Branch
	case opJalr:
		return exec.Jalr
	case opJal:
		return exec.Jal
	case opSystem:
		return exec.System
	case opCustom2:
		if cfg.MachineSpecific {
			return exec.SimDebug
		}
	}
	if cfg.TreatUndefinedAsNop {
		return exec.Nop
	}
	return exec.Illegal
}
