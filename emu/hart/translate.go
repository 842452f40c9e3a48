/*
 * rvcore - Hart address translation helper
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

package hart

import (
	"github.com/rcornwell/rvcore/emu/except"
	"github.com/rcornwell/rvcore/emu/walk"
)

// translateNoisy runs the page walker when translation is active for
// this access, or returns virt unchanged otherwise (satp.mode==Bare, or
// the access is exempt per walk.Active). noisy controls whether a fault
// stamps tval_next, consulted by walk.Translate.
func translateNoisy(h *Hart, virt uint64, kind except.AccessKind, noisy bool) (uint64, except.Code) {
	if !walk.Active(h.f, h.mode, kind) {
		return virt, except.None
	}
	res, code := walk.Translate(h.f, h.mem, h.id, h.t, h.mode, virt, kind, noisy)
	if code != except.None {
		return 0, code
	}
	return res.Phys, except.None
}
