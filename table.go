// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

package rxh

import (
	"fmt"
	"strings"
)

// maxCodeLen is the longest codeword a table can decode: eight bits for the
// primary table and at most eight more for a subtable.
const maxCodeLen = 16

type entryKind uint8

const (
	entryInvalid entryKind = iota
	entryMap
	entrySubtable
)

// An entry is one slot of a decode table.
//
// For entryMap, sym is the decoded symbol and nbits the full length of its
// codeword. For entrySubtable, offset is the start of the subtable in
// table.entries and nbits its depth: the subtable is indexed by the nbits
// bits that follow the first eight.
type entry struct {
	kind   entryKind
	nbits  uint8
	sym    byte
	offset int
}

// A table decodes a prefix code by lookup instead of walking the tree.
//
// The first 256 entries are indexed by the next eight bits of input. Codes
// of up to eight bits occupy every slot that begins with them. Longer codes
// share a subtable per eight-bit prefix, appended after the primary entries.
type table struct {
	entries []entry
}

type longCode struct {
	sym byte
	cw  *Codeword
}

// newTable builds the decode table for t. It fails with ErrUnsupportedCode
// if a codeword of t is longer than maxCodeLen.
func newTable(t *Tree) (*table, error) {
	codewords := t.Codewords()
	tab := &table{entries: make([]entry, 256)}
	var long []longCode
	for s := range 256 {
		sym := byte(s)
		cw, ok := codewords[sym]
		if !ok {
			continue
		}
		switch n := cw.Len(); {
		case n <= 8:
			tab.fill(int(cw.bytes[0]), 8-n, entry{kind: entryMap, sym: sym, nbits: uint8(n)})
		case n <= maxCodeLen:
			long = append(long, longCode{sym, cw})
		default:
			return nil, fmt.Errorf("symbol %d has a %d-bit code: %w", sym, n, ErrUnsupportedCode)
		}
	}

	// Each subtable is deep enough for the longest code sharing its prefix.
	depths := map[byte]int{}
	for _, lc := range long {
		root := lc.cw.bytes[0]
		depths[root] = max(depths[root], lc.cw.Len()-8)
	}
	for _, lc := range long {
		root := lc.cw.bytes[0]
		depth := depths[root]
		e := tab.entries[root]
		switch e.kind {
		case entryInvalid:
			e = entry{kind: entrySubtable, offset: len(tab.entries), nbits: uint8(depth)}
			tab.entries = append(tab.entries, make([]entry, 1<<depth)...)
			tab.entries[root] = e
		case entryMap:
			// Impossible for a prefix code.
			return nil, fmt.Errorf("symbol %d shares its prefix with symbol %d: %w", lc.sym, e.sym, ErrFormatMismatch)
		}
		extra := lc.cw.Len() - 8
		local := int(lc.cw.bytes[1]) >> (8 - depth)
		tab.fill(e.offset+local, depth-extra, entry{kind: entryMap, sym: lc.sym, nbits: uint8(lc.cw.Len())})
	}
	return tab, nil
}

// fill stores e in the 2^free slots starting at i.
func (t *table) fill(i, free int, e entry) {
	for j := range 1 << free {
		t.entries[i+j] = e
	}
}

// decode reads one symbol from c. Each consume goes through take, which
// checks the stream boundary.
func (t *table) decode(c *BitCursor, take func(int) error) (byte, error) {
	e := t.entries[c.Peek(8)]
	if e.kind == entrySubtable {
		if err := take(8); err != nil {
			return 0, err
		}
		e = t.entries[e.offset+int(c.Peek(int(e.nbits)))]
		switch e.kind {
		case entryMap:
			// Only the bits beyond the first eight remain.
			return e.sym, take(int(e.nbits) - 8)
		case entrySubtable:
			return 0, fmt.Errorf("nested subtable: %w", ErrFormatMismatch)
		}
	}
	if e.kind != entryMap {
		return 0, fmt.Errorf("input is not a codeword: %w", ErrFormatMismatch)
	}
	return e.sym, take(int(e.nbits))
}

// String lists the primary table and each subtable.
func (t *table) String() string {
	var sb strings.Builder
	for i, e := range t.entries[:256] {
		switch e.kind {
		case entryMap:
			fmt.Fprintf(&sb, "%08b: byte=%d, takes %d bits\n", i, e.sym, e.nbits)
		case entrySubtable:
			fmt.Fprintf(&sb, "%08b: %dbit subtable at %d\n", i, e.nbits, e.offset)
			for j, se := range t.entries[e.offset : e.offset+1<<e.nbits] {
				// Show the local index in the high bits.
				fmt.Fprintf(&sb, "\t\t%08b: byte=%d, takes %d bits\n", j<<(8-e.nbits), se.sym, se.nbits)
			}
		default:
			fmt.Fprintf(&sb, "%08b: invalid\n", i)
		}
	}
	return sb.String()
}
