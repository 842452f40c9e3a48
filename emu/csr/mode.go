/*
 * rvcore - Privilege modes
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

// Package csr implements the control-and-status register file: typed
// read/write/set/clear per CSR with minimum-privilege gating, WARL/WPRI
// masking, counter delegation, ASID-width constraints, and timer-compare
// side effects.
package csr

// Mode is the three-valued privilege-mode enum. Value 2 is
// reserved; nothing in this package ever produces it.
type Mode uint8

const (
	ModeUser       Mode = 0
	ModeSupervisor Mode = 1
	ModeMachine    Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "U"
	case ModeSupervisor:
		return "S"
	case ModeMachine:
		return "M"
	default:
		return "?"
	}
}

// minPriv extracts the minimum required privilege mode from bits [9:8] of
// a 12-bit CSR number, the standard RISC-V CSR-numbering convention.
func minPriv(csrNum uint16) Mode {
	switch (csrNum >> 8) & 0x3 {
	case 0:
		return ModeUser
	case 1:
		return ModeSupervisor
	default:
		return ModeMachine
	}
}
