/*
 * rvcore - Machine description parser
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

// Package machine loads the demo CLI's machine description: hart count,
// XLEN, RAM/ROM regions, and the machine_specific_instructions flag.
// Grounded on the teacher's config/configparser line-oriented parser
// style (bufio-driven, '#' comments), simplified from its device-model
// registry (this core has no plugin device catalogue to drive) down to
// a flat key=value format.
package machine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// RAMRegion describes one RAM area to install.
type RAMRegion struct {
	Base uint64
	Size uint64
}

// ROMRegion describes one ROM image to load from disk.
type ROMRegion struct {
	Base uint64
	Path string
}

// Config is the parsed machine description.
type Config struct {
	Harts               uint
	XLen                uint
	MachineSpecific     bool
	TreatUndefinedAsNop bool
	RAM                 []RAMRegion
	ROM                 []ROMRegion
}

// Default returns the configuration the demo CLI falls back to when no
// file is given: one RV64 hart with 64 KiB of RAM at the reset address.
func Default() Config {
	return Config{
		Harts: 1,
		XLen:  64,
		RAM:   []RAMRegion{{Base: 0x80000000, Size: 0x10000}},
	}
}

// Load reads a machine description file. Lines are `key=value` or
// `key value`; leading/trailing space is ignored; '#' starts a
// comment that runs to end of line; blank lines are ignored.
//
// Recognised keys: harts, xlen, machine_specific_instructions,
// undefined_as_nop, ram (base,size), rom (base,path).
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()
	return parse(file)
}

func parse(r io.Reader) (Config, error) {
	cfg := Default()
	cfg.RAM = nil

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, err := splitKeyValue(line)
		if err != nil {
			return Config{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := cfg.apply(key, value); err != nil {
			return Config{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, err
	}
	if len(cfg.RAM) == 0 {
		cfg.RAM = Default().RAM
	}
	return cfg, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// splitKeyValue accepts either "key=value" or "key value".
func splitKeyValue(line string) (key, value string, err error) {
	if i := strings.IndexByte(line, '='); i >= 0 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), nil
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("malformed line %q", line)
	}
	return fields[0], strings.Join(fields[1:], " "), nil
}

func (cfg *Config) apply(key, value string) error {
	switch strings.ToLower(key) {
	case "harts":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("harts: %w", err)
		}
		cfg.Harts = uint(n)
	case "xlen":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil || (n != 32 && n != 64) {
			return fmt.Errorf("xlen must be 32 or 64, got %q", value)
		}
		cfg.XLen = uint(n)
	case "machine_specific_instructions":
		cfg.MachineSpecific = parseBool(value)
	case "undefined_as_nop":
		cfg.TreatUndefinedAsNop = parseBool(value)
	case "ram":
		region, err := parseRAM(value)
		if err != nil {
			return fmt.Errorf("ram: %w", err)
		}
		cfg.RAM = append(cfg.RAM, region)
	case "rom":
		region, err := parseROM(value)
		if err != nil {
			return fmt.Errorf("rom: %w", err)
		}
		cfg.ROM = append(cfg.ROM, region)
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// parseRAM accepts "base,size", e.g. "0x80000000,0x10000".
func parseRAM(v string) (RAMRegion, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return RAMRegion{}, fmt.Errorf("expected base,size, got %q", v)
	}
	base, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 0, 64)
	if err != nil {
		return RAMRegion{}, err
	}
	size, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 0, 64)
	if err != nil {
		return RAMRegion{}, err
	}
	return RAMRegion{Base: base, Size: size}, nil
}

// parseROM accepts "base,path", e.g. "0x1000,boot.rom".
func parseROM(v string) (ROMRegion, error) {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) != 2 {
		return ROMRegion{}, fmt.Errorf("expected base,path, got %q", v)
	}
	base, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 0, 64)
	if err != nil {
		return ROMRegion{}, err
	}
	return ROMRegion{Base: base, Path: strings.TrimSpace(parts[1])}, nil
}
