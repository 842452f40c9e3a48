/*
 * rvcore - Performance counters
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

package csr

// Counter access gating and the cycle/time/instret/hpm shadow views.

func (f *File) counterEnabled(mode Mode, bit uint32) bool {
	switch mode {
	case ModeMachine:
		return true
	case ModeSupervisor:
		return f.Mcounteren&bit != 0
	default: // User
		return f.Mcounteren&bit != 0 && f.Scounteren&bit != 0
	}
}

const (
	counterCY uint32 = 1 << 0
	counterTM uint32 = 1 << 1
	counterIR uint32 = 1 << 2
)

func hpmBit(n int) uint32 { return 1 << uint(n) }

// TickHPM advances every HPM counter whose event selector matches the
// current accounting category.
func (f *File) TickHPM(eventNow uint8) {
	for i := range f.HPMEvent {
		if f.HPMEvent[i] == eventNow && f.HPMEvent[i] != EventNone {
			f.HPMCounter[i]++
		}
	}
}
