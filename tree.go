// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

package rxh

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Frequencies counts the occurrences of each byte value.
// It is an [io.Writer]: every byte written is counted.
type Frequencies [256]int

func (f *Frequencies) Write(data []byte) (int, error) {
	for _, b := range data {
		f[b]++
	}
	return len(data), nil
}

// Symbols returns the number of distinct byte values counted.
func (f *Frequencies) Symbols() int {
	n := 0
	for _, c := range f {
		if c > 0 {
			n++
		}
	}
	return n
}

// Tree builds the Huffman tree for the counted bytes.
//
// If fewer than two distinct bytes were counted, zero-weight leaves for the
// smallest absent byte values are added so the tree still has two leaves.
// A single repeated byte then gets a one-bit code, and empty input
// still has a tree that can be stored.
func (f *Frequencies) Tree() *Tree {
	var leaves []*Node
	for b, c := range f {
		if c > 0 {
			leaves = append(leaves, &Node{Symbol: byte(b), Weight: c})
		}
	}
	for b := 0; len(leaves) < 2; b++ {
		if f[b] == 0 {
			leaves = append(leaves, &Node{Symbol: byte(b)})
		}
	}
	// Keep the leaves in byte order, so the tree does not depend on
	// where the fillers were added.
	slices.SortFunc(leaves, func(a, b *Node) int { return int(a.Symbol) - int(b.Symbol) })
	return NewTree(leaves)
}

// A Node is a node of a [Tree]. A Node with no children is a leaf.
// Each interior node has exactly two children, which it does not share.
type Node struct {
	Left, Right *Node
	Symbol      byte // valid only for leaves
	Weight      int  // used during construction; not stored
}

func (n *Node) isLeaf() bool { return n.Left == nil }

// A Tree is the root of a complete prefix code: a full binary tree whose
// leaves hold the symbols. A *Tree always has two children.
type Tree struct {
	Left, Right *Node
}

// NewTree builds a Huffman tree from leaves, which must hold at least two
// nodes. It repeatedly joins the two lightest nodes, the lighter one on the
// left. Ties go to the node that comes first in the list; joined nodes are
// added at the end.
//
// NewTree panics if len(leaves) < 2.
func NewTree(leaves []*Node) *Tree {
	if len(leaves) < 2 {
		panic("rxh.NewTree: need at least two leaves")
	}
	nodes := slices.Clone(leaves)
	for {
		// Indexes of the smallest and second smallest weights.
		small, big := -1, -1
		for i, n := range nodes {
			if big >= 0 && n.Weight >= nodes[big].Weight {
				continue
			}
			if small < 0 || n.Weight < nodes[small].Weight {
				big, small = small, i
			} else {
				big = i
			}
		}
		left, right := nodes[small], nodes[big]
		nodes = slices.Delete(nodes, max(small, big), max(small, big)+1)
		nodes = slices.Delete(nodes, min(small, big), min(small, big)+1)
		if len(nodes) == 0 {
			return &Tree{Left: left, Right: right}
		}
		nodes = append(nodes, &Node{Left: left, Right: right, Weight: left.Weight + right.Weight})
	}
}

// Codewords returns the code for every leaf of t: the path from the root to
// the leaf, with 0 for each left edge and 1 for each right edge.
func (t *Tree) Codewords() map[byte]*Codeword {
	m := map[byte]*Codeword{}
	left := &Codeword{}
	left.AppendBit(false)
	fillCodewords(t.Left, left, m)
	right := &Codeword{}
	right.AppendBit(true)
	fillCodewords(t.Right, right, m)
	return m
}

// fillCodewords takes ownership of prefix.
func fillCodewords(n *Node, prefix *Codeword, m map[byte]*Codeword) {
	if n.isLeaf() {
		m[n.Symbol] = prefix
		return
	}
	left := prefix.Clone()
	left.AppendBit(false)
	fillCodewords(n.Left, left, m)
	prefix.AppendBit(true)
	fillCodewords(n.Right, prefix, m)
}

// MaxLen returns the length of the longest codeword in t.
func (t *Tree) MaxLen() int {
	return 1 + max(depth(t.Left), depth(t.Right))
}

func depth(n *Node) int {
	if n.isLeaf() {
		return 0
	}
	return 1 + max(depth(n.Left), depth(n.Right))
}

// Leaves returns the number of leaves in t.
func (t *Tree) Leaves() int {
	return countLeaves(t.Left) + countLeaves(t.Right)
}

func countLeaves(n *Node) int {
	if n.isLeaf() {
		return 1
	}
	return countLeaves(n.Left) + countLeaves(n.Right)
}

const (
	treeStart = "----- rxh tree start V1-----\n"
	treeEnd   = "\n----- rxh tree end V1-----\n"
)

// Tree body tags.
const (
	tagNode = 0x00
	tagLeaf = 0x01
	tagRoot = 0xff
)

// maxTreeDepth bounds recursion when reading a tree. A tree with at most
// 256 leaves is never deeper than 255.
const maxTreeDepth = 256

// WriteTo writes the serialized form of t to w.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(t.appendBinary(nil))
	return int64(n), err
}

func (t *Tree) appendBinary(buf []byte) []byte {
	buf = append(buf, treeStart...)
	buf = append(buf, tagRoot)
	buf = appendNode(buf, t.Left)
	buf = appendNode(buf, t.Right)
	return append(buf, treeEnd...)
}

func appendNode(buf []byte, n *Node) []byte {
	if n.isLeaf() {
		return append(buf, tagLeaf, n.Symbol)
	}
	buf = append(buf, tagNode)
	buf = appendNode(buf, n.Left)
	return appendNode(buf, n.Right)
}

// A byteReader is the kind of source ReadTree needs.
// A [*bufio.Reader] is one.
type byteReader interface {
	io.Reader
	io.ByteReader
}

var _ byteReader = (*bufio.Reader)(nil)

// ReadTree reads a tree written by [Tree.WriteTo].
// It returns an error wrapping ErrFormatMismatch if the data is not a valid tree.
func ReadTree(r byteReader) (*Tree, error) {
	if err := readMarker(r, treeStart); err != nil {
		return nil, err
	}
	tag, err := readHeaderByte(r)
	if err != nil {
		return nil, err
	}
	if tag != tagRoot {
		return nil, fmt.Errorf("tree starts with tag %#02x, not the root tag: %w", tag, ErrFormatMismatch)
	}
	left, err := readNode(r, 1)
	if err != nil {
		return nil, err
	}
	right, err := readNode(r, 1)
	if err != nil {
		return nil, err
	}
	if err := readMarker(r, treeEnd); err != nil {
		return nil, err
	}
	return &Tree{Left: left, Right: right}, nil
}

func readNode(r byteReader, depth int) (*Node, error) {
	if depth > maxTreeDepth {
		return nil, fmt.Errorf("tree deeper than %d: %w", maxTreeDepth, ErrFormatMismatch)
	}
	tag, err := readHeaderByte(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNode:
		left, err := readNode(r, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := readNode(r, depth+1)
		if err != nil {
			return nil, err
		}
		return &Node{Left: left, Right: right}, nil
	case tagLeaf:
		sym, err := readHeaderByte(r)
		if err != nil {
			return nil, err
		}
		return &Node{Symbol: sym}, nil
	default:
		return nil, fmt.Errorf("invalid tree tag %#02x: %w", tag, ErrFormatMismatch)
	}
}

func readMarker(r io.Reader, marker string) error {
	buf := make([]byte, len(marker))
	if _, err := io.ReadFull(r, buf); err != nil {
		return truncated(err)
	}
	if string(buf) != marker {
		return fmt.Errorf("missing tree marker %q: %w", strings.TrimSpace(marker), ErrFormatMismatch)
	}
	return nil
}

func readHeaderByte(r io.ByteReader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, truncated(err)
	}
	return b, nil
}

// truncated reports a header that ends early as a format error. Other
// errors are returned unchanged.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("truncated header: %w: %w", ErrFormatMismatch, io.ErrUnexpectedEOF)
	}
	return err
}

// String returns an indented listing of the nodes of t.
func (t *Tree) String() string {
	var sb strings.Builder
	sb.WriteString("root\n")
	writeNode(&sb, t.Left, 1)
	writeNode(&sb, t.Right, 1)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat(" ", depth)
	if n.isLeaf() {
		fmt.Fprintf(sb, "%sleaf %d weight %d\n", indent, n.Symbol, n.Weight)
		return
	}
	fmt.Fprintf(sb, "%snode weight %d\n", indent, n.Weight)
	writeNode(sb, n.Left, depth+1)
	writeNode(sb, n.Right, depth+1)
}
