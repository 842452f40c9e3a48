/*
 * rvcore - Reservation registry test cases
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

package reservation

import "testing"

func TestRegisterAndValid(t *testing.T) {
	r := New()
	r.Register(0, 0x4002)
	if !r.Valid(0) {
		t.Fatalf("expected hart 0 to hold a reservation")
	}
	addr, ok := r.ReservedAddr(0)
	if !ok || addr != 0x4000 {
		t.Errorf("reserved addr = %#x, want word-aligned 0x4000", addr)
	}
}

func TestCrossHartWriteInvalidates(t *testing.T) {
	r := New()
	r.Register(0, 0x4000)
	r.OnWrite(0x4000, 4)
	if r.Valid(0) {
		t.Errorf("overlapping write from another agent must invalidate the reservation")
	}
}

func TestNonOverlappingWriteDoesNotInvalidate(t *testing.T) {
	r := New()
	r.Register(0, 0x4000)
	r.OnWrite(0x5000, 4)
	if !r.Valid(0) {
		t.Errorf("non-overlapping write must not invalidate the reservation")
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register(0, 0x4000)
	r.Unregister(0)
	if r.Valid(0) {
		t.Errorf("expected reservation cleared after Unregister")
	}
}

func TestScAccess(t *testing.T) {
	r := New()
	r.Register(1, 0x8000)
	if !r.ScAccess(1, 0x8000, 4) {
		t.Errorf("expected overlap to be reported")
	}
	if r.ScAccess(1, 0x9000, 4) {
		t.Errorf("expected no overlap for a different word")
	}
}

// S4 end-to-end scenario: hart 0 holds a reservation, hart 1 writes the
// same word, hart 0's SC must observe the loss.
func TestS4CrossHartSC(t *testing.T) {
	r := New()
	r.Register(0, 0x4000)
	r.OnWrite(0x4000, 4) // hart 1's store
	if r.Valid(0) {
		t.Fatalf("hart 0's SC should fail after hart 1's overlapping store")
	}
}
