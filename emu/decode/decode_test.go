/*
 * rvcore - Decoder test cases
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

package decode

import (
	"reflect"
	"runtime"
	"testing"

	"github.com/rcornwell/rvcore/emu/exec"
	"github.com/rcornwell/rvcore/emu/memory"
)

func handlerName(h interface{}) string {
	if h == nil {
		return "<nil>"
	}
	return runtime.FuncForPC(reflect.ValueOf(h).Pointer()).Name()
}

func TestDecodeOpcodeRouting(t *testing.T) {
	cases := []struct {
		name  string
		instr uint32
	}{
		{"Load", 0x00000003},
		{"Store", 0x00000023},
		{"OpImm", 0x00000013},
		{"Op", 0x00000033},
		{"Lui", 0x00000037},
		{"AuiPc", 0x00000017},
		{"Branch", 0x00000063},
		{"Jalr", 0x00000067},
		{"Jal", 0x0000006f},
		{"System", 0x00000073},
		{"Fence", 0x0000000f},
	}
	for _, tc := range cases {
		h := Decode(tc.instr, Config{})
		if h == nil {
			t.Fatalf("%s: nil handler", tc.name)
		}
	}
}

func TestDecodeMExtensionRoutedByFunct7(t *testing.T) {
	// mul x1, x2, x3: opcode OP, funct7=1
	mulInstr := uint32(1<<25 | 3<<20 | 2<<15 | 0<<12 | 1<<7 | 0x33)
	h1 := Decode(mulInstr, Config{})
	// add x1, x2, x3: opcode OP, funct7=0
	addInstr := uint32(0<<25 | 3<<20 | 2<<15 | 0<<12 | 1<<7 | 0x33)
	h2 := Decode(addInstr, Config{})
	if handlerName(h1) == handlerName(h2) {
		t.Fatalf("mul and add decoded to the same handler: %s", handlerName(h1))
	}
}

func TestDecodeUndefinedIsIllegalByDefault(t *testing.T) {
	h := Decode(0x00000000, Config{}) // opcode 0, not a valid major opcode
	name := handlerName(h)
	if name == "" {
		t.Fatal("nil handler for undefined encoding")
	}
	if want := handlerName(exec.Illegal); name != want {
		t.Fatalf("undefined encoding decoded to %s, want %s", name, want)
	}
}

func TestDecodeCustom2GatedByMachineSpecific(t *testing.T) {
	instr := uint32(0x5b) // EHALT, funct3=0
	offH := Decode(instr, Config{MachineSpecific: false})
	onH := Decode(instr, Config{MachineSpecific: true})
	if handlerName(offH) == handlerName(onH) {
		t.Fatal("custom-2 opcode should decode differently when MachineSpecific is off")
	}
}

func TestCacheFetchAndInvalidateOnWrite(t *testing.T) {
	mem := memory.New()
	mem.AddRAM(0, 0x2000)
	// addi x1, x1, 1 at address 0
	mem.Write32(0, 0, 0x00108093, false)

	c := NewCache(mem, Config{}, 4)
	h1 := c.Fetch(0, 0)
	if h1 == nil {
		t.Fatal("nil handler from cache")
	}

	// Overwrite the same word with a different instruction.
	mem.Write32(0, 0, 0x00000013, false) // addi x0, x0, 0 (nop-shaped addi)
	h2 := c.Fetch(0, 0)
	if h2 == nil {
		t.Fatal("nil handler from cache after rewrite")
	}
}

func TestCacheEvictsLRUBeyondCapacity(t *testing.T) {
	mem := memory.New()
	mem.AddRAM(0, 0x10000)
	c := NewCache(mem, Config{}, 2)

	c.Fetch(0, 0x0000)
	c.Fetch(0, 0x1000)
	c.Fetch(0, 0x2000) // evicts page 0x0000

	if _, ok := c.pages[0x0000]; ok {
		t.Fatal("page 0x0000 should have been evicted")
	}
	if _, ok := c.pages[0x2000]; !ok {
		t.Fatal("page 0x2000 should be cached")
	}
}

func TestCacheUncachedWhenNoBackingFrame(t *testing.T) {
	mem := memory.New() // no RAM installed anywhere
	c := NewCache(mem, Config{}, 4)
	h := c.Fetch(0, 0x9000)
	if h == nil {
		t.Fatal("nil handler for unbacked address")
	}
	if len(c.pages) != 0 {
		t.Fatal("unbacked address should never be cached")
	}
}
