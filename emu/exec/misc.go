/*
 * rvcore - Fence and decode sentinels
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

package exec

import "github.com/rcornwell/rvcore/emu/except"

const opMiscMem = 0x0f

// Fence executes FENCE/FENCE.I as a no-op: execution is deterministic
// and single-threaded, so both instructions' ordering guarantees
// already hold.
func Fence(_ Core, _ uint32) except.Code { return except.None }

// Illegal is the decode-miss sentinel every unrecognised encoding lands
// on; it records the raw word into tval_next per the error-handling
// design's "illegal-instruction records the raw encoding" rule.
func Illegal(c Core, instr uint32) except.Code {
	c.CSR().TValNext = uint64(instr)
	return except.IllegalInstr
}

// Nop is used instead of Illegal when the build is configured to treat
// undefined encodings as no-ops.
func Nop(_ Core, _ uint32) except.Code { return except.None }
