// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

package rxh

import "errors"

var (
	// ErrNotEnoughBits is returned when more bits are consumed than the
	// cursor holds, or when a stream runs into the filler bits of its last byte.
	ErrNotEnoughBits = errors.New("rxh: not enough bits")
	// ErrFormatMismatch is returned for input that is not a well-formed rxh container.
	ErrFormatMismatch = errors.New("rxh: format mismatch")
	// ErrUnsupportedCode is returned when a codeword is longer than the decode table can represent.
	ErrUnsupportedCode = errors.New("rxh: codeword longer than 16 bits")
)
