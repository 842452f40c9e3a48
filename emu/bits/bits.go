/*
 * rvcore - Bit manipulation and immediate decoding
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

// Package bits provides XLEN-parameterised sign/zero extension and the
// RISC-V immediate-field decoders shared by the decoder and instruction
// semantics packages.
package bits

// XLen is the native integer width of a hart, either 32 or 64.
type XLen uint8

const (
	XLen32 XLen = 32
	XLen64 XLen = 64
)

// ShiftMask returns the mask applied to a shift amount: 0x1f for RV32,
// 0x3f for RV64.
func ShiftMask(xlen XLen) uint64 {
	if xlen == XLen32 {
		return 0x1f
	}
	return 0x3f
}

// SignExtend sign-extends the low `width` bits of v to 64 bits.
func SignExtend(v uint64, width uint) uint64 {
	shift := 64 - width
	return uint64(int64(v<<shift) >> shift)
}

// ZeroExtend masks v to its low `width` bits.
func ZeroExtend(v uint64, width uint) uint64 {
	if width >= 64 {
		return v
	}
	return v & ((uint64(1) << width) - 1)
}

// ToXLen normalises a computed value to a hart's native width: RV64
// keeps all 64 bits, RV32 sign-extends the low 32 bits to 64 so every
// register always holds a sign-extended XLEN-wide value regardless of
// build, letting the rest of the core do arithmetic in plain uint64/
// int64 without separate 32/64-bit code paths.
func ToXLen(v uint64, xlen XLen) uint64 {
	if xlen == XLen32 {
		return SignExtend(v, 32)
	}
	return v
}

// Trunc64 truncates a value to XLEN bits, as read back at an XLEN boundary.
func Trunc64(v uint64, xlen XLen) uint64 {
	if xlen == XLen32 {
		return v & 0xffffffff
	}
	return v
}

// IsAligned reports whether addr is a multiple of n, where n is a power of two.
func IsAligned(addr uint64, n uint64) bool {
	return addr&(n-1) == 0
}

// ImmI decodes the I-type immediate (loads, OP-IMM, JALR), sign-extended.
func ImmI(instr uint32) uint64 {
	return SignExtend(uint64(instr)>>20, 12)
}

// ImmS decodes the S-type immediate (stores), sign-extended.
func ImmS(instr uint32) uint64 {
	imm := ((instr >> 25) << 5) | ((instr >> 7) & 0x1f)
	return SignExtend(uint64(imm), 12)
}

// ImmB decodes the B-type immediate (branches), sign-extended, LSB forced zero.
func ImmB(instr uint32) uint64 {
	imm := ((instr >> 31 & 0x1) << 12) |
		((instr >> 7 & 0x1) << 11) |
		((instr >> 25 & 0x3f) << 5) |
		((instr >> 8 & 0xf) << 1)
	return SignExtend(uint64(imm), 13)
}

// ImmU decodes the U-type immediate (LUI, AUIPC): top 20 bits, low 12 zero.
func ImmU(instr uint32) uint64 {
	return SignExtend(uint64(instr)&0xfffff000, 32)
}

// ImmJ decodes the J-type immediate (JAL), sign-extended, LSB forced zero.
func ImmJ(instr uint32) uint64 {
	imm := ((instr >> 31 & 0x1) << 20) |
		((instr >> 12 & 0xff) << 12) |
		((instr >> 20 & 0x1) << 11) |
		((instr >> 21 & 0x3ff) << 1)
	return SignExtend(uint64(imm), 21)
}

// MinI64 and MaxI64 are XLEN-agnostic signed integer helpers used by
// instruction semantics (MIN/MAX style comparisons, bounds checks).
func MinI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func MaxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
