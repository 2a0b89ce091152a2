// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

package rxh

import "go.uber.org/zap"

type options struct {
	log *zap.Logger
}

// An Option configures [Encode], [Decode] and [Inspect].
type Option func(*options)

// WithLogger sets the logger that receives debug output.
// By default nothing is logged.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
