/*
 * rvcore - Decoded instruction page cache
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
	"github.com/rcornwell/rvcore/emu/exec"
	"github.com/rcornwell/rvcore/emu/memory"
)

// pageShift/pageSize mirror the memory package's own frame granularity;
// the cache is keyed one entry per physical page so a single write
// invalidates every decoded instruction on that page at once via
// Memory's FrameValid/SetFrameValid flag.
const (
	pageShift = 12
	pageSize  = 1 << pageShift
	wordsPerPage = pageSize / 4
)

// page holds the decoded handlers for one physical page, plus the raw
// words they were decoded from (needed to tell a stale page apart from
// one simply never visited). It is the intrusive doubly linked list
// node used for LRU eviction, in the same move-to-head/free-on-evict
// style as the teacher's event list.
type page struct {
	base    uint64
	words   [wordsPerPage]uint32
	present [wordsPerPage]bool
	handler [wordsPerPage]exec.Handler
	prev    *page
	next    *page
}

// Cache is a bounded-size, per-physical-page decode cache. Entries are
// evicted LRU when the configured page limit is exceeded; a page whose
// backing memory reports FrameValid==false (because something wrote to
// it since it was decoded) is dropped and re-decoded on next use rather
// than trusted stale.
type Cache struct {
	cfg      Config
	mem      *memory.Memory
	maxPages int
	pages    map[uint64]*page
	head     *page // most recently used
	tail     *page // least recently used
}

// NewCache builds a decode cache backed by mem, holding at most
// maxPages decoded pages at a time.
func NewCache(mem *memory.Memory, cfg Config, maxPages int) *Cache {
	if maxPages <= 0 {
		maxPages = 64
	}
	return &Cache{
		cfg:      cfg,
		mem:      mem,
		maxPages: maxPages,
		pages:    make(map[uint64]*page),
	}
}

func pageOf(addr uint64) uint64 { return addr &^ uint64(pageSize-1) }
func wordIndex(addr uint64) uint64 { return (addr & uint64(pageSize-1)) / 4 }

// Fetch returns the handler for the instruction word at phys, decoding
// and caching it on a miss. Addresses with no backing RAM/ROM frame are
// decoded on the fly every time and never cached, since there is
// nothing for Memory to invalidate against.
func (c *Cache) Fetch(hart uint, phys uint64) exec.Handler {
	if !c.mem.HasFrame(phys) {
		word := uint32(c.mem.Read32(hart, phys, true))
		return Decode(word, c.cfg)
	}

	base := pageOf(phys)
	p, ok := c.pages[base]
	if ok && !c.mem.FrameValid(phys) {
		c.evict(p)
		ok = false
	}
	if !ok {
		p = c.load(hart, base)
	} else {
		c.moveToFront(p)
	}

	idx := wordIndex(phys)
	word := uint32(c.mem.Read32(hart, phys, true))
	if p.present[idx] && p.words[idx] == word {
		return p.handler[idx]
	}
	h := Decode(word, c.cfg)
	p.words[idx] = word
	p.present[idx] = true
	p.handler[idx] = h
	return h
}

// Invalidate drops any cached page covering addr, forcing the next
// Fetch there to re-decode. Memory already tracks per-page freshness
// itself; this lets callers outside the fetch path (a debugger write,
// a device DMA) force the same effect without routing through Fetch.
func (c *Cache) Invalidate(addr uint64) {
	if p, ok := c.pages[pageOf(addr)]; ok {
		c.evict(p)
	}
}

// Flush drops every cached page, for system teardown or a full
// invalidation sweep.
func (c *Cache) Flush() {
	c.pages = make(map[uint64]*page)
	c.head, c.tail = nil, nil
}

func (c *Cache) load(hart uint, base uint64) *page {
	p := &page{base: base}
	c.mem.SetFrameValid(base, true)
	c.pages[base] = p
	c.pushFront(p)
	if len(c.pages) > c.maxPages {
		c.evict(c.tail)
	}
	return p
}

func (c *Cache) pushFront(p *page) {
	p.prev = nil
	p.next = c.head
	if c.head != nil {
		c.head.prev = p
	}
	c.head = p
	if c.tail == nil {
		c.tail = p
	}
}

func (c *Cache) unlink(p *page) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		c.head = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	} else {
		c.tail = p.prev
	}
	p.prev, p.next = nil, nil
}

func (c *Cache) moveToFront(p *page) {
	if c.head == p {
		return
	}
	c.unlink(p)
	c.pushFront(p)
}

func (c *Cache) evict(p *page) {
	c.unlink(p)
	delete(c.pages, p.base)
}
