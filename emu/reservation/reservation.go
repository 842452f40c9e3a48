/*
 * rvcore - LR/SC reservation registry
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

// Package reservation implements the process-wide LR/SC reservation
// registry: one reserved physical word per hart,
// invalidated by any overlapping write from any hart or device.
package reservation

// wordSize is the granularity at which reservations are tracked: an LR/SC
// reservation always covers exactly one 4-byte-aligned word, regardless of
// XLEN.
const wordSize = 4

type entry struct {
	valid bool
	addr  uint64
}

// Registry is the cross-hart reservation table. It is safe to call
// Register/Unregister/OnWrite from within a write path: OnWrite must run,
// and complete, before the data it guards is mutated, so that a hart
// observing the write also observes the loss of its own reservation.
type Registry struct {
	harts map[uint]*entry
}

// New creates an empty reservation registry.
func New() *Registry {
	return &Registry{harts: make(map[uint]*entry)}
}

func (r *Registry) slot(hart uint) *entry {
	e, ok := r.harts[hart]
	if !ok {
		e = &entry{}
		r.harts[hart] = e
	}
	return e
}

// Register establishes hart's reservation on the word containing addr.
func (r *Registry) Register(hart uint, addr uint64) {
	e := r.slot(hart)
	e.valid = true
	e.addr = addr &^ (wordSize - 1)
}

// Unregister clears hart's reservation, if any.
func (r *Registry) Unregister(hart uint) {
	e := r.slot(hart)
	e.valid = false
}

// Valid reports whether hart currently holds a reservation.
func (r *Registry) Valid(hart uint) bool {
	return r.slot(hart).valid
}

// ReservedAddr returns the physical word hart has reserved, if any.
func (r *Registry) ReservedAddr(hart uint) (addr uint64, ok bool) {
	e := r.slot(hart)
	return e.addr, e.valid
}

// OnWrite invalidates every hart's reservation whose 4-byte word overlaps
// [addr, addr+size). Must be called before the write is committed.
func (r *Registry) OnWrite(addr uint64, size uint) {
	lo := addr
	hi := addr + uint64(size)
	for _, e := range r.harts {
		if !e.valid {
			continue
		}
		wlo := e.addr
		whi := wlo + wordSize
		if lo < whi && hi > wlo {
			e.valid = false
		}
	}
}

// ScAccess reports whether [phys, phys+size) overlaps hart's reservation,
// without mutating state — used for instrumentation.
func (r *Registry) ScAccess(hart uint, phys uint64, size uint) bool {
	e := r.slot(hart)
	if !e.valid {
		return false
	}
	lo, hi := phys, phys+uint64(size)
	wlo, whi := e.addr, e.addr+wordSize
	return lo < whi && hi > wlo
}
