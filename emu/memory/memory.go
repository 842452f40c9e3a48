/*
 * rvcore - Physical memory
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

// Package memory implements the physical-memory façade:
// a two-level frame table mapping physical addresses to backing RAM/ROM
// areas, typed sized reads/writes with endianness conversion, a
// memory-mapped MTIME/MTIMECMP intercept, a device fallback chain, and a
// breakpoint table. It is the single owner of physical memory; the
// reservation registry is notified on every successful write so that
// LR/SC semantics hold across harts.
package memory

import "encoding/binary"

const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1

	l2Bits = 10
	l2Size = 1 << l2Bits
	l2Mask = l2Size - 1

	// DefaultMemoryValue is returned for reads to addresses with no
	// backing frame and no device that claims the access.
	DefaultMemoryValue = ^uint64(0)
)

// Device is the narrow interface the memory façade uses to delegate
// accesses that fall outside every registered area.
type Device interface {
	// Claims reports whether this device handles addr.
	Claims(addr uint64) bool
	ReadDevice(addr uint64, size uint) uint64
	WriteDevice(addr uint64, value uint64, size uint)
}

// Default physical addresses for the MTIME/MTIMECMP memory-mapped
// registers, matching the conventional CLINT layout.
const (
	MTimeDefaultAddr    = 0x0200bff8
	MTimeCmpDefaultAddr = 0x02004000
)

// TimerBackend lets the physical-memory façade route the memory-mapped
// MTIME register to the hart that is performing the access, and each
// MTIMECMP slot to the hart whose id is the slot index, since each
// hart's CSR block owns its own mtime/mtimecmp pair. Writing
// either register recomputes the MTIP pending bit. TimerAccessible
// gates the whole intercept: the registers exist only for an access
// whose effective privilege is M with MPRV clear; any other access
// falls through to whatever ordinary memory sits at those addresses.
type TimerBackend interface {
	TimerAccessible(hart uint) bool
	ReadMTime(hart uint) uint64
	WriteMTime(hart uint, val uint64)
	ReadMTimeCmp(hart uint) uint64
	WriteMTimeCmp(hart uint, val uint64)
}

// BreakKind identifies which kind of access a breakpoint should fire on.
type BreakKind uint8

const (
	BreakRead BreakKind = 1 << iota
	BreakWrite
	BreakExec
)

type breakpoint struct {
	lo, hi uint64
	kind   BreakKind
}

// BreakHit is invoked when a protected access intersects a registered
// breakpoint range with a matching kind.
type BreakHit func(hart uint, addr uint64, kind BreakKind)

type frame struct {
	area *area
	data []byte // pageSize bytes, slice into area.data
	// valid is repurposed by the decoder (component G) to mean: the
	// decoded-instruction page image cached for this frame is current.
	valid bool
}

type area struct {
	base      uint64
	size      uint64
	data      []byte
	protected bool // ROM: writes succeed silently without mutation
}

// Memory is the physical-memory façade shared by every hart in a System.
type Memory struct {
	l1 map[uint64]*[l2Size]*frame

	areas   []*area
	devices []Device

	mtimeAddr     uint64
	mtimeCmpBase  uint64
	mtimeCmpSlots uint
	hasMTime      bool
	timer         TimerBackend
	invalidator   func(addr uint64, size uint)
	breakpoints   []breakpoint
	onBreak       BreakHit
	strictFaults  bool // Open Question #1: raise store_amo_access_fault on rejected writes
}

// New creates an empty physical memory façade.
func New() *Memory {
	return &Memory{
		l1: make(map[uint64]*[l2Size]*frame),
	}
}

// SetStrictStoreFaults toggles Open Question #1's redesigned behaviour:
// when true, a write to unmapped/device-rejected memory reports failure
// instead of silently succeeding.
func (m *Memory) SetStrictStoreFaults(strict bool) {
	m.strictFaults = strict
}

// SetReservationInvalidator installs the callback invoked before every
// successful write, so the reservation registry (component C) can clear
// overlapping reservations prior to the data actually changing.
func (m *Memory) SetReservationInvalidator(f func(addr uint64, size uint)) {
	m.invalidator = f
}

// SetTimerBackend installs the per-hart MTIME/MTIMECMP routing used by the
// memory-mapped register intercept, and the fixed addresses for MTIME and
// the per-hart MTIMECMP array (8 bytes apart, one slot per hart id, slots
// entries in total).
func (m *Memory) SetTimerBackend(tb TimerBackend, mtimeAddr, mtimeCmpBase uint64, slots uint) {
	m.timer = tb
	m.mtimeAddr = mtimeAddr
	m.mtimeCmpBase = mtimeCmpBase
	m.mtimeCmpSlots = slots
	m.hasMTime = true
}

// SetBreakHit installs the callback fired when a protected access
// intersects a registered breakpoint of a matching kind.
func (m *Memory) SetBreakHit(f BreakHit) {
	m.onBreak = f
}

// AddBreakpoint registers a [lo, hi) byte range to watch for the given
// access kinds.
func (m *Memory) AddBreakpoint(lo, hi uint64, kind BreakKind) {
	m.breakpoints = append(m.breakpoints, breakpoint{lo: lo, hi: hi, kind: kind})
}

// RemoveBreakpoints clears every registered breakpoint.
func (m *Memory) RemoveBreakpoints() {
	m.breakpoints = nil
}

// AddDevice registers a device consulted, in registration order, whenever
// an access falls outside every backing area.
func (m *Memory) AddDevice(d Device) {
	m.devices = append(m.devices, d)
}

// AddRAM installs a writable area of size bytes starting at base, both
// page-aligned.
func (m *Memory) AddRAM(base, size uint64) {
	a := &area{base: base, size: size, data: make([]byte, size)}
	m.installArea(a)
}

// AddROM installs a read-only area backed by data, starting at base.
// Writes to a ROM area succeed from the caller's point of view but never
// change the contents.
func (m *Memory) AddROM(base uint64, data []byte) {
	a := &area{base: base, size: uint64(len(data)), data: data, protected: true}
	m.installArea(a)
}

func (m *Memory) installArea(a *area) {
	m.areas = append(m.areas, a)
	for off := uint64(0); off < a.size; off += pageSize {
		addr := a.base + off
		end := off + pageSize
		if end > a.size {
			end = a.size
		}
		f := &frame{area: a, data: a.data[off:end], valid: false}
		m.putFrame(addr, f)
	}
}

func (m *Memory) frameKey(addr uint64) (l1key uint64, l2idx uint64) {
	idx := addr >> pageShift
	return idx >> l2Bits, idx & l2Mask
}

func (m *Memory) putFrame(addr uint64, f *frame) {
	l1key, l2idx := m.frameKey(addr)
	tbl, ok := m.l1[l1key]
	if !ok {
		tbl = &[l2Size]*frame{}
		m.l1[l1key] = tbl
	}
	tbl[l2idx] = f
}

func (m *Memory) getFrame(addr uint64) *frame {
	l1key, l2idx := m.frameKey(addr)
	tbl, ok := m.l1[l1key]
	if !ok {
		return nil
	}
	return tbl[l2idx]
}

// FrameValid reports the per-frame decode-cache freshness flag for the
// page containing addr (component G consults this on every fetch).
func (m *Memory) FrameValid(addr uint64) bool {
	f := m.getFrame(addr)
	return f != nil && f.valid
}

// HasFrame reports whether addr is backed by an installed RAM/ROM area, as
// opposed to a device or an unmapped hole. The decode cache uses this to
// decide whether a fetched word is worth caching at all.
func (m *Memory) HasFrame(addr uint64) bool {
	return m.getFrame(addr) != nil
}

// SetFrameValid marks the page containing addr as having a current decoded
// image (cleared automatically by every write through this façade).
func (m *Memory) SetFrameValid(addr uint64, valid bool) {
	if f := m.getFrame(addr); f != nil {
		f.valid = valid
	}
}

func (m *Memory) checkBreak(hart uint, addr uint64, size uint, kind BreakKind) {
	if m.onBreak == nil {
		return
	}
	end := addr + uint64(size)
	for _, bp := range m.breakpoints {
		if bp.kind&kind == 0 {
			continue
		}
		if addr < bp.hi && end > bp.lo {
			m.onBreak(hart, addr, kind)
		}
	}
}

func (m *Memory) isMTime(accessor uint, addr uint64, size uint) (isTime, isCmp bool, hart uint) {
	if !m.hasMTime || !m.timer.TimerAccessible(accessor) {
		return false, false, 0
	}
	if addr == m.mtimeAddr && size == 8 {
		return true, false, 0
	}
	if addr >= m.mtimeCmpBase && addr < m.mtimeCmpBase+uint64(m.mtimeCmpSlots)*8 {
		if (addr-m.mtimeCmpBase)%8 == 0 && size == 8 {
			return false, true, uint((addr - m.mtimeCmpBase) / 8)
		}
	}
	return false, false, 0
}

func (m *Memory) readBytes(addr uint64, size uint) (uint64, bool) {
	var buf [8]byte
	n := 0
	for n < int(size) {
		f := m.getFrame(addr + uint64(n))
		if f == nil {
			for _, d := range m.devices {
				if d.Claims(addr) {
					return d.ReadDevice(addr, size), true
				}
			}
			return 0, false
		}
		off := (addr + uint64(n)) & pageMask
		buf[n] = f.data[off]
		n++
	}
	switch size {
	case 1:
		return uint64(buf[0]), true
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf[:2])), true
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf[:4])), true
	case 8:
		return binary.LittleEndian.Uint64(buf[:8]), true
	}
	return 0, false
}

func (m *Memory) writeBytes(addr uint64, value uint64, size uint) bool {
	var buf [8]byte
	switch size {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf[:2], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf[:4], uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(buf[:8], value)
	}

	// Verify every byte in range is backed (or device-claimed) before
	// mutating any of it, and collect protected-area status.
	frames := make([]*frame, size)
	for n := uint(0); n < size; n++ {
		f := m.getFrame(addr + uint64(n))
		if f == nil {
			for _, d := range m.devices {
				if d.Claims(addr) {
					d.WriteDevice(addr, value, size)
					return true
				}
			}
			return false
		}
		frames[n] = f
	}

	if frames[0].area.protected {
		// ROM: observed success, contents unchanged.
		return true
	}

	for n := uint(0); n < size; n++ {
		off := (addr + uint64(n)) & pageMask
		frames[n].data[off] = buf[n]
		frames[n].valid = false
	}
	return true
}

func (m *Memory) doRead(hart uint, addr uint64, size uint, protected bool) uint64 {
	if protected {
		m.checkBreak(hart, addr, size, BreakRead)
	}
	if isTime, isCmp, slot := m.isMTime(hart, addr, size); isTime || isCmp {
		if isTime {
			return m.timer.ReadMTime(hart)
		}
		return m.timer.ReadMTimeCmp(slot)
	}
	if v, ok := m.readBytes(addr, size); ok {
		return v
	}
	return DefaultMemoryValue
}

func (m *Memory) doWrite(hart uint, addr uint64, value uint64, size uint, protected bool) bool {
	if protected {
		m.checkBreak(hart, addr, size, BreakWrite)
	}
	if isTime, isCmp, slot := m.isMTime(hart, addr, size); isTime || isCmp {
		if isCmp {
			m.timer.WriteMTimeCmp(slot, value)
		} else {
			// The memory-mapped register is mtime's only writable path
			// ("time has no writable M-mirror").
			m.timer.WriteMTime(hart, value)
		}
		return true
	}
	if m.invalidator != nil {
		m.invalidator(addr, size)
	}
	ok := m.writeBytes(addr, value, size)
	if !ok && !m.strictFaults {
		// Open Question #1 default: unmapped/device-rejected writes
		// succeed silently from the instruction's point of view.
		return true
	}
	return ok
}

func (m *Memory) Read8(hart uint, addr uint64, protected bool) uint64 {
	return m.doRead(hart, addr, 1, protected)
}

func (m *Memory) Read16(hart uint, addr uint64, protected bool) uint64 {
	return m.doRead(hart, addr, 2, protected)
}

func (m *Memory) Read32(hart uint, addr uint64, protected bool) uint64 {
	return m.doRead(hart, addr, 4, protected)
}

func (m *Memory) Read64(hart uint, addr uint64, protected bool) uint64 {
	return m.doRead(hart, addr, 8, protected)
}

func (m *Memory) Write8(hart uint, addr uint64, val uint64, protected bool) bool {
	return m.doWrite(hart, addr, val, 1, protected)
}

func (m *Memory) Write16(hart uint, addr uint64, val uint64, protected bool) bool {
	return m.doWrite(hart, addr, val, 2, protected)
}

func (m *Memory) Write32(hart uint, addr uint64, val uint64, protected bool) bool {
	return m.doWrite(hart, addr, val, 4, protected)
}

func (m *Memory) Write64(hart uint, addr uint64, val uint64, protected bool) bool {
	return m.doWrite(hart, addr, val, 8, protected)
}
