/*
 * rvcore - Interactive step console
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

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/rcornwell/rvcore/emu/hart"
	"github.com/rcornwell/rvcore/emu/system"
)

var consoleCommands = []string{"step", "regs", "break", "continue", "quit", "help"}

// runConsole drives an interactive single-step session over s, grounded
// on the teacher's liner-based command reader: a prompt, line history,
// and a small verb set dispatched against the public System/Hart API.
func runConsole(s *system.System) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var matches []string
		for _, c := range consoleCommands {
			if strings.HasPrefix(c, partial) {
				matches = append(matches, c)
			}
		}
		return matches
	})

	breakpoints := map[uint64]bool{}
	cur := 0

	for {
		command, err := line.Prompt("rvstep> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("reading console line", "error", err)
			return
		}
		line.AppendHistory(command)

		fields := strings.Fields(command)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "step", "s":
			n := 1
			if len(fields) > 1 {
				if v, err := strconv.Atoi(fields[1]); err == nil {
					n = v
				}
			}
			for i := 0; i < n; i++ {
				if s.Tick() {
					fmt.Println("all harts halted")
					break
				}
				if hitBreakpoint(s.Harts(), breakpoints) {
					fmt.Println("breakpoint hit")
					break
				}
			}
		case "regs", "r":
			printRegs(s.Harts()[cur])
		case "hart":
			if len(fields) > 1 {
				if v, err := strconv.Atoi(fields[1]); err == nil && v >= 0 && v < len(s.Harts()) {
					cur = v
				}
			}
		case "break", "b":
			if len(fields) > 1 {
				addr, err := strconv.ParseUint(fields[1], 0, 64)
				if err == nil {
					breakpoints[addr] = true
				}
			}
		case "continue", "c":
			for {
				if s.Tick() {
					fmt.Println("all harts halted")
					break
				}
				if hitBreakpoint(s.Harts(), breakpoints) {
					fmt.Println("breakpoint hit")
					break
				}
			}
		case "quit", "q":
			return
		case "help", "h":
			fmt.Println(strings.Join(consoleCommands, " "))
		default:
			fmt.Println("unknown command: " + fields[0])
		}
	}
}

func hitBreakpoint(harts []*hart.Hart, breakpoints map[uint64]bool) bool {
	for _, h := range harts {
		if breakpoints[h.PC()] {
			return true
		}
	}
	return false
}

func printRegs(h *hart.Hart) {
	fmt.Printf("pc=%#016x next=%#016x mode=%v\n", h.PC(), h.NextPC(), h.Mode())
	for i := uint(0); i < 32; i++ {
		fmt.Printf("x%-2d=%#016x ", i, h.Reg(i))
		if i%4 == 3 {
			fmt.Println()
		}
	}
}
