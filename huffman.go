// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

// Package rxh compresses byte streams with a Huffman code.
//
// A compressed stream is a container with these fields, in order:
//
//   - the marker "----- rxh tree start V1-----\n";
//   - the code tree in pre-order: the byte 0xff for the root, followed by its
//     two subtrees, where 0x00 introduces an interior node and 0x01 is
//     followed by the symbol of a leaf;
//   - the marker "\n----- rxh tree end V1-----\n";
//   - one padding byte: the number of unused low-order bits in the last byte
//     of the payload, from 0 to 7;
//   - the payload: the codewords of the input bytes, packed most-significant
//     bit first.
//
// The whole input is read before the code is built, so neither [Encode] nor
// [Decode] is incremental.
package rxh

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Encode compresses everything read from r and writes the container to w.
func Encode(r io.Reader, w io.Writer, opts ...Option) error {
	o := newOptions(opts)
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var freqs Frequencies
	freqs.Write(raw)
	bw := bufio.NewWriter(w)
	if err := encode(bw, freqs.Tree(), raw, o.log); err != nil {
		return err
	}
	return bw.Flush()
}

// encode writes the container for raw using tree, which must have a
// codeword for every byte of raw.
func encode(w *bufio.Writer, tree *Tree, raw []byte, log *zap.Logger) error {
	maxLen := tree.MaxLen()
	if maxLen > maxCodeLen {
		return fmt.Errorf("code needs %d bits: %w", maxLen, ErrUnsupportedCode)
	}
	var codes [256]*Codeword
	for sym, cw := range tree.Codewords() {
		codes[sym] = cw
	}
	payload := newCodeword(len(raw))
	for _, b := range raw {
		cw := codes[b]
		if cw == nil {
			return fmt.Errorf("rxh: no codeword for byte %d", b)
		}
		payload.Append(cw)
	}
	pad := padding(payload)
	log.Debug("encode",
		zap.Int("input", len(raw)),
		zap.Int("symbols", tree.Leaves()),
		zap.Int("maxCodeLen", maxLen),
		zap.Int("payload", len(payload.Bytes())),
		zap.Int("padding", pad))

	if _, err := tree.WriteTo(w); err != nil {
		return err
	}
	if err := w.WriteByte(byte(pad)); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// padding returns the number of unused bits at the end of payload's last byte.
func padding(payload *Codeword) int {
	if payload.BitPos() == 0 {
		return 0
	}
	return 8 - payload.BitPos()
}

// Decode reads a container from r and writes the decompressed bytes to w.
//
// Nothing is written to w unless the header is valid. If an error occurs
// after that, w may hold part of the output.
func Decode(r io.Reader, w io.Writer, opts ...Option) error {
	o := newOptions(opts)
	br := bufferedReader(r)
	tree, err := ReadTree(br)
	if err != nil {
		return err
	}
	tab, err := newTable(tree)
	if err != nil {
		return err
	}
	pad, err := readPadding(br)
	if err != nil {
		return err
	}
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			// The original input was empty.
			o.log.Debug("decode", zap.Int("output", 0))
			return nil
		}
		return err
	}

	bw := bufio.NewWriter(w)
	n, err := decodeStream(br, bw, tab, pad)
	if err != nil {
		return err
	}
	o.log.Debug("decode",
		zap.Int("symbols", tree.Leaves()),
		zap.Int("subtableEntries", len(tab.entries)-256),
		zap.Int("padding", pad),
		zap.Int("output", n))
	return bw.Flush()
}

func bufferedReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(r)
}

func readPadding(r io.ByteReader) (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, truncated(err)
	}
	if b >= 8 {
		return 0, fmt.Errorf("padding byte %d out of range: %w", b, ErrFormatMismatch)
	}
	return int(b), nil
}

// decodeStream decodes the payload read from src until pad bits remain,
// and returns the number of bytes written to w.
func decodeStream(src io.ByteReader, w io.ByteWriter, tab *table, pad int) (int, error) {
	c, err := NewBitCursor(src)
	if err != nil {
		return 0, err
	}
	take := func(n int) error {
		eof, err := c.Consume(n)
		if err != nil {
			return err
		}
		if eof && c.Initialized() < pad {
			return fmt.Errorf("codeword runs into the %d padding bits: %w", pad, ErrNotEnoughBits)
		}
		return nil
	}
	n := 0
	for {
		b, err := tab.decode(c, take)
		if err != nil {
			return n, err
		}
		if err := w.WriteByte(b); err != nil {
			return n, err
		}
		n++
		if c.Initialized() == pad {
			return n, nil
		}
	}
}

// Stats describes a container.
type Stats struct {
	HeaderBytes  int64 // markers and tree
	PayloadBytes int64
	Padding      int
	Symbols      int // leaves in the tree
	MaxCodeLen   int
}

// Size returns the total size of the container.
func (s *Stats) Size() int64 { return s.HeaderBytes + 1 + s.PayloadBytes }

// PayloadBits returns the number of meaningful payload bits.
func (s *Stats) PayloadBits() int64 {
	if s.PayloadBytes == 0 {
		return 0
	}
	return s.PayloadBytes*8 - int64(s.Padding)
}

// Inspect reads a container from r and describes it without decoding the payload.
func Inspect(r io.Reader, opts ...Option) (*Stats, error) {
	o := newOptions(opts)
	br := bufferedReader(r)
	tree, err := ReadTree(br)
	if err != nil {
		return nil, err
	}
	pad, err := readPadding(br)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(io.Discard, br)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		HeaderBytes:  int64(len(tree.appendBinary(nil))),
		PayloadBytes: n,
		Padding:      pad,
		Symbols:      tree.Leaves(),
		MaxCodeLen:   tree.MaxLen(),
	}
	o.log.Debug("inspect", zap.Int64("size", s.Size()), zap.Int("symbols", s.Symbols))
	return s, nil
}

// Dump reads the header of a container from r and writes its tree and
// decode table to w.
func Dump(r io.Reader, w io.Writer) error {
	tree, err := ReadTree(bufferedReader(r))
	if err != nil {
		return err
	}
	tab, err := newTable(tree)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s", tree, tab)
	return err
}
