// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

package rxh

import (
	"bufio"
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustTable(t *testing.T, tree *Tree) *table {
	t.Helper()
	tab, err := newTable(tree)
	require.NoError(t, err)
	return tab
}

func TestTableLayout(t *testing.T) {
	tab := mustTable(t, chainTree(11))
	require.Len(t, tab.entries, 256+4)

	mapped := func(sym byte, n int) entry { return entry{kind: entryMap, sym: sym, nbits: uint8(n)} }
	for _, test := range []struct {
		index int
		want  entry
	}{
		{0x00, mapped('a', 1)},
		{0x7f, mapped('a', 1)},
		{0x80, mapped('b', 2)},
		{0xbf, mapped('b', 2)},
		{0xc0, mapped('c', 3)},
		{0xfe, mapped('h', 8)},
		{0xff, entry{kind: entrySubtable, offset: 256, nbits: 2}},
		// Subtable for the prefix 11111111.
		{256, mapped('i', 9)},
		{257, mapped('i', 9)},
		{258, mapped('j', 10)},
		{259, mapped('k', 10)},
	} {
		assert.Equal(t, test.want, tab.entries[test.index], "entry %d", test.index)
	}
}

func TestTableNoSubtables(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	tab := mustTable(t, treeFor(data))
	assert.Len(t, tab.entries, 256)
	for i, e := range tab.entries {
		assert.Equal(t, entry{kind: entryMap, sym: byte(i), nbits: 8}, e)
	}
}

func TestTableUnsupported(t *testing.T) {
	_, err := newTable(chainTree(19))
	assert.ErrorIs(t, err, ErrUnsupportedCode)

	_, err = newTable(treeFor(fibonacci(20)))
	assert.ErrorIs(t, err, ErrUnsupportedCode)

	// Sixteen bits is the limit.
	tab := mustTable(t, chainTree(17))
	assert.Len(t, tab.entries, 256+256)
}

// decodeOne decodes a single codeword with tab.
func decodeOne(t *testing.T, tab *table, cw *Codeword) (byte, int) {
	t.Helper()
	c := newTestCursor(t, cw.Bytes())
	used := 0
	sym, err := tab.decode(c, func(n int) error {
		used += n
		_, err := c.Consume(n)
		return err
	})
	require.NoError(t, err)
	return sym, used
}

// A table lookup and a tree walk agree on every codeword.
func TestTableMatchesTree(t *testing.T) {
	trees := []*Tree{
		chainTree(2),
		chainTree(11),
		chainTree(17),
		treeFor(fibonacci(14)),
		treeFor([]byte("abracadabra")),
	}
	for range 30 {
		data := make([]byte, 1+rand.IntN(3000))
		alphabet := 1 + rand.IntN(256)
		for i := range data {
			r := rand.Float64()
			data[i] = byte(int(r * r * r * float64(alphabet)))
		}
		if tree := treeFor(data); tree.MaxLen() <= maxCodeLen {
			trees = append(trees, tree)
		}
	}
	for _, tree := range trees {
		tab := mustTable(t, tree)
		for _, cw := range tree.Codewords() {
			wantSym, wantLen := walk(tree, cw)
			gotSym, gotLen := decodeOne(t, tab, cw)
			require.Equal(t, wantSym, gotSym, "codeword %s", cw)
			require.Equal(t, wantLen, gotLen, "codeword %s", cw)
		}
	}
}

// The payload "kai" under chainTree(11) uses a 10-bit, a 1-bit and a 9-bit
// code, so both subtable lookups consume only the bits after the first byte.
func TestTableGolden(t *testing.T) {
	tree := chainTree(11)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	require.NoError(t, encode(bw, tree, []byte("kai"), zap.NewNop()))
	require.NoError(t, bw.Flush())
	header := buf.Len() - 4
	assert.Equal(t, []byte{4, 0xff, 0xdf, 0xe0}, buf.Bytes()[header:])

	payload := []byte{0xff, 0xdf, 0xe0}
	for _, test := range []struct {
		pad     int
		want    string
		wantErr error
	}{
		{pad: 4, want: "kai"},
		{pad: 5, wantErr: ErrNotEnoughBits},
		{pad: 6, wantErr: ErrNotEnoughBits},
	} {
		var out bytes.Buffer
		_, err := decodeStream(bytes.NewReader(payload), &out, mustTable(t, tree), test.pad)
		if test.wantErr != nil {
			assert.ErrorIs(t, err, test.wantErr, "pad %d", test.pad)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, test.want, out.String())
	}
}

func TestTableBadEntries(t *testing.T) {
	take := func(c *BitCursor) func(int) error {
		return func(n int) error {
			_, err := c.Consume(n)
			return err
		}
	}

	tab := &table{entries: make([]entry, 258)}
	tab.entries[0xff] = entry{kind: entrySubtable, offset: 256, nbits: 1}
	tab.entries[256] = entry{kind: entrySubtable, offset: 256, nbits: 1}

	c := newTestCursor(t, []byte{0xff, 0x00})
	_, err := tab.decode(c, take(c))
	assert.ErrorIs(t, err, ErrFormatMismatch)

	c = newTestCursor(t, []byte{0x00})
	_, err = tab.decode(c, take(c))
	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestTableString(t *testing.T) {
	s := mustTable(t, chainTree(11)).String()
	lines := strings.Split(s, "\n")
	assert.Equal(t, "00000000: byte=97, takes 1 bits", lines[0])
	assert.Contains(t, s, "11111110: byte=104, takes 8 bits\n")
	assert.Contains(t, s, "11111111: 2bit subtable at 256\n")
	assert.Contains(t, s, "\t\t10000000: byte=106, takes 10 bits\n")
}
