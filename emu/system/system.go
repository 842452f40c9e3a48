/*
 * rvcore - System owner and scheduler
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

// Package system owns the pieces every hart shares: physical memory,
// the reservation registry, and the process-wide decode cache, and
// drives the fixed-order cooperative scheduler across the hart slice.
// Grounded on the teacher's `emu/core.core.Start` loop — a single
// goroutine-free round-robin driver here, since this core has no
// channel-based master/device traffic to interleave — retaining its
// "advance devices, then drain pending work" shape.
package system

import (
	"log/slog"

	"github.com/rcornwell/rvcore/emu/bits"
	"github.com/rcornwell/rvcore/emu/csr"
	"github.com/rcornwell/rvcore/emu/decode"
	"github.com/rcornwell/rvcore/emu/hart"
	"github.com/rcornwell/rvcore/emu/memory"
	"github.com/rcornwell/rvcore/emu/reservation"
)

// DeviceTicker is driven once per system tick, after every hart has
// stepped: it advances MTIME and raises or lowers external interrupt
// lines (timers, consoles, DMA completion) against the harts it owns.
type DeviceTicker interface {
	Tick(harts []*hart.Hart)
}

// System is the process-global owner spec.md §9 asks for in place of
// singletons: one memory façade, one reservation registry, one decode
// cache, and the ordered slice of harts that share them.
type System struct {
	Mem   *memory.Memory
	Res   *reservation.Registry
	Cache *decode.Cache

	harts   []*hart.Hart
	tickers []DeviceTicker
}

// New builds an empty system with hartCount harts of width xlen, all
// sharing one memory façade, reservation registry, and decode cache.
// maxCachePages bounds the decode cache (see decode.NewCache).
func New(hartCount uint, xlen bits.XLen, maxCachePages int, cfg decode.Config) *System {
	mem := memory.New()
	res := reservation.New()
	cache := decode.NewCache(mem, cfg, maxCachePages)
	mem.SetReservationInvalidator(func(addr uint64, size uint) {
		res.OnWrite(addr, size)
	})

	s := &System{Mem: mem, Res: res, Cache: cache}
	for i := uint(0); i < hartCount; i++ {
		s.harts = append(s.harts, hart.New(i, mem, res, cache, xlen))
	}
	mem.SetTimerBackend(s, memory.MTimeDefaultAddr, memory.MTimeCmpDefaultAddr, hartCount)
	return s
}

// memory.TimerBackend implementation: the memory-mapped MTIME/MTIMECMP
// registers route to the CSR block of the hart the slot (or access)
// belongs to. The registers are visible only to an access whose
// effective privilege is M with MPRV clear; anything else sees the
// ordinary memory map at those addresses.

func (s *System) TimerAccessible(hartNum uint) bool {
	if hartNum >= uint(len(s.harts)) {
		return false
	}
	h := s.harts[hartNum]
	f := h.CSR()
	return f != nil && h.Mode() == csr.ModeMachine && !f.MPRV()
}

func (s *System) ReadMTime(hartNum uint) uint64 {
	if f := s.csrOf(hartNum); f != nil {
		return f.ReadMTime()
	}
	return 0
}

func (s *System) WriteMTime(hartNum uint, val uint64) {
	if f := s.csrOf(hartNum); f != nil {
		f.WriteMTime(val)
	}
}

func (s *System) ReadMTimeCmp(hartNum uint) uint64 {
	if f := s.csrOf(hartNum); f != nil {
		return f.ReadMTimeCmp()
	}
	return 0
}

func (s *System) WriteMTimeCmp(hartNum uint, val uint64) {
	if f := s.csrOf(hartNum); f != nil {
		f.WriteMTimeCmp(val)
	}
}

func (s *System) csrOf(hartNum uint) *csr.File {
	if hartNum >= uint(len(s.harts)) {
		return nil
	}
	return s.harts[hartNum].CSR()
}

var _ memory.TimerBackend = (*System)(nil)

// Harts returns the system's harts in scheduling order.
func (s *System) Harts() []*hart.Hart { return s.harts }

// AddDeviceTicker registers d to be driven once per tick, after all
// harts have stepped.
func (s *System) AddDeviceTicker(d DeviceTicker) {
	s.tickers = append(s.tickers, d)
}

// Init resets every hart to its power-on state.
func (s *System) Init() {
	for _, h := range s.harts {
		h.Init()
	}
	slog.Info("system initialized", "harts", len(s.harts))
}

// Close tears every hart down and drops the process-wide decode cache,
// completing spec.md §4.K's "flush the decode cache ... free the TLB".
func (s *System) Close() {
	for _, h := range s.harts {
		h.Close()
	}
	s.Cache.Flush()
	slog.Info("system shut down")
}

// Tick steps every hart exactly once, in ascending hart-ID order, then
// drives the registered device tickers. It returns true if any hart
// reported a hard halt (EHALT or EBREAK with no terminal attached).
func (s *System) Tick() (anyHalted bool) {
	for _, h := range s.harts {
		h.Step()
		if h.Halted() {
			anyHalted = true
		}
	}
	for _, d := range s.tickers {
		d.Tick(s.harts)
	}
	return anyHalted
}

// Run drives Tick in a loop, either forever (maxTicks<=0) or for at
// most maxTicks ticks, stopping early if every hart halts or if stopFn
// (when non-nil) reports true. It returns the number of ticks executed.
func (s *System) Run(maxTicks int, stopFn func() bool) int {
	ticks := 0
	for maxTicks <= 0 || ticks < maxTicks {
		halted := s.Tick()
		ticks++
		if halted && allHalted(s.harts) {
			break
		}
		if stopFn != nil && stopFn() {
			break
		}
	}
	return ticks
}

func allHalted(harts []*hart.Hart) bool {
	for _, h := range harts {
		if !h.Halted() {
			return false
		}
	}
	return true
}
