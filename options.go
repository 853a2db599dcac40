// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"io"
	"log/slog"
	"os"
)

// Option configures a store, or the reading and writing of a
// checkpoint.  Options that don't apply to what is being configured
// are ignored.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	file           *os.File
	presenceBitmap bool
	sortCheck      bool
	bloomFP        float64
	compress       bool
}

func newOptions(opts []Option) options {
	var o options
	o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets an optional logger for growth, sort and checkpoint
// progress.  If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithFile stores entries in an mmap'd file instead of on the Go heap.
// Existing contents of f (for example from a previous store's Close)
// become the store's initial contents.  The caller keeps ownership of
// f and should close it after closing the store.
func WithFile(f *os.File) Option {
	return func(o *options) {
		o.file = f
	}
}

// WithPresenceBitmap makes a Dense store track set slots in a bitmap
// (one bit per slot) rather than treating the zero value as absent.
// This allows storing the zero value.  Not available with WithFile.
func WithPresenceBitmap() Option {
	return func(o *options) {
		o.presenceBitmap = true
	}
}

// WithSortCheck makes Sparse.Get return ErrNotSorted instead of a
// possibly-wrong answer when called after Set without a Sort.
func WithSortCheck() Option {
	return func(o *options) {
		o.sortCheck = true
	}
}

// WithBloomFilter makes Sparse.Sort build a bloom filter over the keys
// with the given false-positive rate, so Gets of absent keys usually
// skip the binary search.  Costs about 10 bits per entry at 1%.
func WithBloomFilter(falsePositiveRate float64) Option {
	return func(o *options) {
		o.bloomFP = falsePositiveRate
	}
}

// WithCompression compresses checkpoint records with snappy.
func WithCompression() Option {
	return func(o *options) {
		o.compress = true
	}
}
