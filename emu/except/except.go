/*
 * rvcore - Exception and interrupt cause codes
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

// Package except defines the exception-code vocabulary shared by the
// page walker, the instruction semantics, and trap delivery: a single
// numeric type every instruction handler returns, mirroring the
// teacher's `ircXxx` return-code constants in `emu/cpu/cpudefs.go`
// (`ircSeg`, `ircPage`, `ircAddr`, …) — a flat set of named codes
// instead of a typed error hierarchy.
package except

// Code is an exception cause ("MSB separates interrupts" from exception
// codes in the combined xcause encoding;
// Code never carries the interrupt bit — trap delivery ORs it in).
type Code uint8

const (
	None Code = 0xff // no exception: the instruction completed normally

	InstrMisaligned  Code = 0
	InstrAccessFault Code = 1 // unused by this simulator; reserved for completeness
	IllegalInstr     Code = 2
	Breakpoint       Code = 3
	LoadMisaligned   Code = 4
	LoadAccessFault  Code = 5
	StoreMisaligned  Code = 6
	StoreAccessFault Code = 7
	ECallFromU       Code = 8
	ECallFromS       Code = 9
	ECallFromM       Code = 11
	InstrPageFault   Code = 12
	LoadPageFault    Code = 13
	StorePageFault   Code = 15
)

// Interrupt cause numbers, used by trap delivery once it
// has picked a pending interrupt to take; unrelated to Code's numbering
// even where values coincide.
const (
	IntSSI Code = 1
	IntMSI Code = 3
	IntSTI Code = 5
	IntMTI Code = 7
	IntSEI Code = 9
	IntMEI Code = 11
)

// AccessKind distinguishes the three ways a virtual address can be
// touched, used to pick the right page-fault/access-fault/misaligned
// variant.
type AccessKind uint8

const (
	AccessFetch AccessKind = iota
	AccessLoad
	AccessStore
)

// PageFault returns the page-fault code for kind.
func (k AccessKind) PageFault() Code {
	switch k {
	case AccessFetch:
		return InstrPageFault
	case AccessStore:
		return StorePageFault
	default:
		return LoadPageFault
	}
}

// AccessFault returns the access-fault code for kind.
func (k AccessKind) AccessFault() Code {
	switch k {
	case AccessFetch:
		return InstrAccessFault
	case AccessStore:
		return StoreAccessFault
	default:
		return LoadAccessFault
	}
}

// Misaligned returns the misaligned-access code for kind: InstrMisaligned
// for fetches, StoreMisaligned for stores, LoadMisaligned for loads.
// Loads, stores, LR/SC and AMOs whose address is not aligned to
// their access size raise these codes.
func (k AccessKind) Misaligned() Code {
	switch k {
	case AccessFetch:
		return InstrMisaligned
	case AccessStore:
		return StoreMisaligned
	default:
		return LoadMisaligned
	}
}
