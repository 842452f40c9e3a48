/*
 * rvcore - Hart state and step loop
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

// Package hart implements the per-hart state struct and its step loop:
// fetch through the decode cache, execute, deliver a trap or a pending
// interrupt, then the five-step accounting sequence (cycle/mtime/
// instret/HPM/STIP-MTIP recompute) before advancing pc. Grounded on the
// teacher's per-cycle CPU loop (`cpu.CycleCPU` in emu/cpu/cpu.go) and its
// init/shutdown pair (`cpu.InitializeCPU`/`cpu.Shutdown`).
package hart

import (
	"time"

	"github.com/rcornwell/rvcore/emu/bits"
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/decode"
	"github.com/rcornwell/rvcore/emu/except"
	"github.com/rcornwell/rvcore/emu/exec"
	"github.com/rcornwell/rvcore/emu/memory"
	"github.com/rcornwell/rvcore/emu/reservation"
	"github.com/rcornwell/rvcore/emu/tlb"
	"github.com/rcornwell/rvcore/emu/trap"
)

// ResetAddress is the physical address every hart's pc is set to on
// init, the conventional RV32/RV64 mask-ROM reset vector.
const ResetAddress = 0x80000000

// misaIMASU is the default misa value this build installs: extensions
// I, M, A, S, U, with base field set from XLEN.
func misaIMASU(xlen bits.XLen) uint64 {
	ext := uint64(1<<8 | 1<<12 | 1<<0 | 1<<18 | 1<<20) // I, M, A, S, U
	if xlen == bits.XLen64 {
		return uint64(2)<<62 | ext
	}
	return uint64(1)<<30 | ext
}

// Hart is one RISC-V processor's architectural state plus the handles
// it shares with the rest of the machine: physical memory, the
// reservation registry, and the process-wide decode cache.
type Hart struct {
	id   uint
	xlen bits.XLen

	regs   [32]uint64
	pc     uint64
	nextPC uint64
	mode   csr.Mode

	standby bool
	halt    bool
	interactive bool
	debugTrace  bool

	f     *csr.File
	t     *tlb.TLB
	mem   *memory.Memory
	res   *reservation.Registry
	cache *decode.Cache

	terminalAttached bool
}

// New builds a hart bound to the shared memory, reservation registry,
// and decode cache of one system. Call Init before stepping it.
func New(id uint, mem *memory.Memory, res *reservation.Registry, cache *decode.Cache, xlen bits.XLen) *Hart {
	return &Hart{
		id:    id,
		xlen:  xlen,
		mem:   mem,
		res:   res,
		cache: cache,
	}
}

// SetTerminalAttached controls whether EBREAK drops the hart into an
// interactive-stop state (terminal attached) or a hard halt (no
// terminal), mirroring the demo CLI's two run modes.
func (h *Hart) SetTerminalAttached(attached bool) { h.terminalAttached = attached }

// Init resets h to its power-on state: §4.K.
func (h *Hart) Init() {
	h.regs = [32]uint64{}
	h.pc = ResetAddress
	h.nextPC = ResetAddress + 4
	h.mode = csr.ModeMachine
	h.standby = false
	h.halt = false
	h.interactive = false

	h.f = csr.New(h.xlen, uint64(h.id), misaIMASU(h.xlen))
	h.f.LastTickTime = time.Now().UnixNano()
	h.t = tlb.New(tlb.DefaultSize(h.xlen))
	h.f.SetTLBFlushHook(h.t.FlushAll)
}

// Close releases h's TLB; it leaves the decode cache untouched. The
// decode cache is process-global and owned
// by emu/system; §4.K's "flush the decode cache" happens there.
func (h *Hart) Close() {
	h.t = nil
}

// Halted reports whether EBREAK (with no terminal attached) or EHALT
// stopped this hart.
func (h *Hart) Halted() bool { return h.halt }

// Interactive reports whether EBREAK (with a terminal attached)
// requested a drop into the interactive console.
func (h *Hart) Interactive() bool { return h.interactive }

// ClearInteractive lets the console harness resume the hart after
// servicing an EBREAK stop.
func (h *Hart) ClearInteractive() { h.interactive = false }

// Exec.Core implementation.

func (h *Hart) Reg(n uint) uint64 {
	if n == 0 {
		return 0
	}
	return h.regs[n&0x1f]
}

func (h *Hart) SetReg(n uint, v uint64) {
	if n == 0 {
		return
	}
	h.regs[n&0x1f] = v
}

func (h *Hart) PC() uint64         { return h.pc }
func (h *Hart) SetNextPC(v uint64) { h.nextPC = v }
func (h *Hart) NextPC() uint64     { return h.nextPC }
func (h *Hart) Mode() csr.Mode     { return h.mode }
func (h *Hart) SetMode(m csr.Mode) { h.mode = m }
func (h *Hart) CSR() *csr.File     { return h.f }
func (h *Hart) Mem() *memory.Memory { return h.mem }
func (h *Hart) TLB() *tlb.TLB       { return h.t }
func (h *Hart) Reservation() *reservation.Registry { return h.res }
func (h *Hart) HartID() uint { return h.id }
func (h *Hart) XLen() bits.XLen { return h.xlen }
func (h *Hart) SetStandby(b bool) { h.standby = b }

func (h *Hart) SetInteractive() { h.interactive = true }
func (h *Hart) SetHalt()        { h.halt = true }
func (h *Hart) TerminalAttached() bool { return h.terminalAttached }

func (h *Hart) DebugDump() {
	// No-op by default; a host harness that wants rich inspection can
	// wrap Hart and override the decoded handler instead, since the
	// exec.Core interface is what SimDebug actually calls through.
}

func (h *Hart) SetDebugTrace(on bool) { h.debugTrace = on }

var _ exec.Core = (*Hart)(nil)

// SetPC installs addr as both pc and pc_next, silently refusing
// misaligned values by leaving the hart's pc pair untouched instead —
// the "rejects misaligned addresses silently" rule from spec §6.
func (h *Hart) SetPC(addr uint64) {
	if !bits.IsAligned(addr, 4) {
		return
	}
	h.pc = addr
	h.nextPC = addr + 4
}

// InterruptUp/InterruptDown wrap the CSR file's external-pin plumbing;
// unrecognised interrupt numbers default to MEI per spec §6.
func (h *Hart) InterruptUp(no uint)   { h.f.RaiseExternal(no) }
func (h *Hart) InterruptDown(no uint) { h.f.LowerExternal(no) }

// ScAccess reports whether [phys, phys+size) overlapped h's reservation,
// for the caller's own instrumentation; it does not itself invalidate
// anything (OnWrite, called from the memory façade, does that).
func (h *Hart) ScAccess(phys uint64, size uint) bool {
	return h.res.ScAccess(h.id, phys, size)
}

// ConvertAddr performs a non-trapping, non-mutating translation for
// debugger use: it never touches the TLB's LRU order semantics beyond a
// plain lookup, and never raises an exception.
func (h *Hart) ConvertAddr(virt uint64, write bool) (phys uint64, ok bool) {
	kind := except.AccessLoad
	if write {
		kind = except.AccessStore
	}
	res, code := translateNoisy(h, virt, kind, false)
	if code != except.None {
		return 0, false
	}
	return res, true
}

// Step executes one instruction (or, in standby, none) and performs the
// per-step accounting in spec §4.J's order. A hart in standby still
// checks for a pending, enabled interrupt each step: that is what wakes
// it out of WFI.
func (h *Hart) Step() (trapped bool) {
	exceptionRaised := false
	wasStandby := h.standby

	if !h.standby {
		code := h.fetchAndExecute()
		if code != except.None {
			h.enterTrap(code)
			exceptionRaised = true
			trapped = true
		} else if intCode, ok := trap.PickInterrupt(h.f, h.mode); ok {
			h.enterInterrupt(intCode)
			trapped = true
		}
	} else if intCode, ok := trap.PickInterrupt(h.f, h.mode); ok {
		h.enterInterrupt(intCode)
		trapped = true
	}

	now := time.Now().UnixNano()
	delta := uint64(0)
	if now > h.f.LastTickTime {
		delta = uint64(now - h.f.LastTickTime)
	}
	h.f.LastTickTime = now
	h.f.AdvanceMTime(delta)

	event := csr.EventUCycles
	switch {
	case h.standby:
		event = csr.EventWCycles
	case h.mode == csr.ModeSupervisor:
		event = csr.EventSCycles
	case h.mode == csr.ModeMachine:
		event = csr.EventMCycles
	}
	h.f.TickAccounting(exceptionRaised, wasStandby, event)

	if !h.standby {
		h.pc = h.nextPC
		h.nextPC = h.pc + 4
	}
	h.regs[0] = 0
	h.f.TValNext = 0
	return trapped
}

// fetchAndExecute translates pc for instruction fetch, decodes the
// resident word through the process-wide decode cache, and executes it.
// A fetch-time translation fault short-circuits before decode. An
// illegal-instruction result stamps the raw encoding into tval_next
// here, centrally, so individual handlers only have to return the code.
func (h *Hart) fetchAndExecute() except.Code {
	phys, code := translateNoisy(h, h.pc, except.AccessFetch, true)
	if code != except.None {
		return code
	}
	instr := uint32(h.mem.Read32(h.id, phys, true))
	handler := h.cache.Fetch(h.id, phys)
	code = handler(h, instr)
	if code == except.IllegalInstr {
		h.f.TValNext = uint64(instr)
	}
	return code
}

func (h *Hart) enterTrap(code except.Code) {
	newMode, newPC := trap.TakeException(h.f, h.mode, code, h.pc)
	h.mode = newMode
	h.nextPC = newPC
	h.standby = false
}

func (h *Hart) enterInterrupt(code except.Code) {
	newMode, newPC := trap.TakeInterrupt(h.f, h.mode, code, h.nextPC)
	h.mode = newMode
	h.nextPC = newPC
	h.standby = false
}
