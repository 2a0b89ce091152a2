// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

package rxh

import (
	"fmt"
	"io"
	"strings"
)

// A Codeword is an append-only sequence of bits, stored most-significant bit
// first. It holds the code for a single symbol, and is also used to
// accumulate an entire encoded payload.
//
// The zero Codeword is empty and ready to use.
type Codeword struct {
	bytes []byte
	// bitpos is the number of valid bits in the last byte of bytes.
	// It is in [1, 8] unless bytes is empty, in which case it is 0.
	// The unused low-order bits of the last byte are always zero.
	bitpos int
}

// newCodeword returns an empty Codeword with room for n bytes.
func newCodeword(n int) *Codeword {
	return &Codeword{bytes: make([]byte, 0, n)}
}

// Len returns the number of bits in c.
func (c *Codeword) Len() int {
	if len(c.bytes) == 0 {
		return 0
	}
	return (len(c.bytes)-1)*8 + c.bitpos
}

// Bytes returns the bits of c packed into bytes. If Len is not a multiple of 8,
// the last byte is padded with zeros on the low side.
// The result aliases c's storage.
func (c *Codeword) Bytes() []byte { return c.bytes }

// BitPos returns the number of bits used in the last byte of c,
// or 0 if c is empty.
func (c *Codeword) BitPos() int { return c.bitpos }

// Bit reports whether the i'th bit of c is set.
func (c *Codeword) Bit(i int) bool {
	return c.bytes[i/8]&(0x80>>(i%8)) != 0
}

// Clone returns a copy of c that shares no storage with it.
func (c *Codeword) Clone() *Codeword {
	return &Codeword{bytes: append([]byte(nil), c.bytes...), bitpos: c.bitpos}
}

// AppendBit appends a single bit.
func (c *Codeword) AppendBit(bit bool) {
	if len(c.bytes) == 0 || c.bitpos == 8 {
		c.grow()
	}
	if bit {
		c.bytes[len(c.bytes)-1] |= 0x80 >> c.bitpos
	}
	c.bitpos++
}

// Append appends all the bits of d to c.
func (c *Codeword) Append(d *Codeword) {
	if len(d.bytes) == 0 {
		return
	}
	last := len(d.bytes) - 1
	for _, b := range d.bytes[:last] {
		c.appendBits(b, 8)
	}
	c.appendBits(d.bytes[last], d.bitpos)
}

// appendBits appends the n high-order bits of b.
// The low-order 8-n bits of b must be zero.
func (c *Codeword) appendBits(b byte, n int) {
	for n > 0 {
		if len(c.bytes) == 0 || c.bitpos == 8 {
			c.grow()
		}
		free := 8 - c.bitpos
		c.bytes[len(c.bytes)-1] |= b >> c.bitpos
		if n <= free {
			c.bitpos += n
			return
		}
		// The last byte is full; carry the rest into the next one.
		b <<= free
		n -= free
		c.bitpos = 8
	}
}

func (c *Codeword) grow() {
	c.bytes = append(c.bytes, 0)
	c.bitpos = 0
}

// String formats c as its bits, for example "1011".
func (c *Codeword) String() string {
	var sb strings.Builder
	for i := range c.Len() {
		if c.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

const (
	// registerBits is the width of a BitCursor's register.
	registerBits = 64
	// readahead is the low-water mark: a consume that leaves this many
	// valid bits or fewer loads another byte.
	readahead = 8
	// MaxPeek is the largest number of bits that can be passed to [BitCursor.Peek].
	MaxPeek = 32
)

// A refill adds a byte below at most readahead valid bits, and a peek must
// fit in the register.
const (
	_ uint = registerBits - readahead - 8
	_ uint = registerBits - MaxPeek
)

// A BitCursor reads bits most-significant first from a byte source.
// Bits can be examined with Peek before they are committed to with Consume,
// which lets a decoder use a lookahead to choose how many bits to take.
//
// A BitCursor loads bytes one at a time. It keeps more than readahead bits
// available until the source is exhausted, after which Initialized reports
// exactly how many bits remain.
type BitCursor struct {
	src io.ByteReader
	// reg holds the unread bits, left-justified. Bits below the n valid
	// ones are zero.
	reg uint64
	n   int // number of valid bits in reg
}

// NewBitCursor returns a BitCursor reading from src. It loads the first byte
// immediately. If src is already empty the cursor behaves as if it held a
// single zero byte.
func NewBitCursor(src io.ByteReader) (*BitCursor, error) {
	b, err := src.ReadByte()
	if err != nil && err != io.EOF {
		return nil, err
	}
	// On io.EOF, b is zero.
	c := &BitCursor{src: src}
	c.appendByte(b)
	return c, nil
}

// Peek returns the next n bits as the low-order bits of the result,
// without consuming them. If fewer than n bits are valid, the missing
// low-order bits read as zero.
// Peek panics if n is negative or larger than MaxPeek.
func (c *BitCursor) Peek(n int) uint64 {
	if n < 0 || n > MaxPeek {
		panic(fmt.Sprintf("rxh: bad peek width %d", n))
	}
	// A shift by 64 yields 0, which is the right answer for n == 0.
	return c.reg >> (registerBits - n)
}

// Consume discards the next n bits. If that leaves readahead or fewer valid
// bits, it tries to load one more byte from the source, and reports whether
// the source had none left.
//
// Consuming more than Initialized bits fails with ErrNotEnoughBits and leaves
// the cursor unchanged. Errors from the source other than io.EOF are returned
// as is.
func (c *BitCursor) Consume(n int) (eof bool, err error) {
	if n < 0 || n > c.n {
		return false, fmt.Errorf("consume %d bits with %d available: %w", n, c.n, ErrNotEnoughBits)
	}
	c.reg <<= n
	c.n -= n
	if c.n > readahead {
		return false, nil
	}
	return c.load()
}

// Initialized returns the number of valid bits held by the cursor.
// A value below readahead means the source is exhausted.
func (c *BitCursor) Initialized() int { return c.n }

// load reads one byte from the source into the register.
// It must only be called when c.n <= readahead.
func (c *BitCursor) load() (bool, error) {
	b, err := c.src.ReadByte()
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	c.appendByte(b)
	return false, nil
}

// appendByte puts b just below the valid bits of the register.
func (c *BitCursor) appendByte(b byte) {
	c.reg |= uint64(b) << (registerBits - 8 - c.n)
	c.n += 8
}
