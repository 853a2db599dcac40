// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/bpowers/idmap/internal/layout"
	"github.com/bpowers/idmap/internal/rawio"
)

// DumpAsList writes the store's entries to fd as raw memory: packed
// Entry structs in their current order, with no header.  The result is
// only readable by LoadSparseList on a build with the same K, V and
// platform; use WriteCheckpoint for a portable format.
func (s *Sparse[K, V]) DumpAsList(fd int) error {
	b := s.vec.Bytes()
	if err := rawio.WriteFull(fd, b); err != nil {
		return fmt.Errorf("rawio.WriteFull(%d bytes): %w", len(b), err)
	}
	s.logger.Debug("dumped sparse index", "fd", fd, "entries", s.vec.Len(), "bytes", len(b))
	return nil
}

// LoadSparseList reads fd to EOF and builds a store from a DumpAsList
// dump.
func LoadSparseList[K constraints.Unsigned, V comparable](fd int, opts ...Option) (*Sparse[K, V], error) {
	b, err := rawio.ReadAll(fd, 0)
	if err != nil {
		return nil, fmt.Errorf("rawio.ReadAll: %w", err)
	}
	return NewSparseFromBytes[K, V](b, opts...)
}

// NewSparseFromBytes builds a store holding a copy of the entries in a
// DumpAsList dump.  If the entries are already in key order the store
// is ready for Get without a Sort.
func NewSparseFromBytes[K constraints.Unsigned, V comparable](b []byte, opts ...Option) (*Sparse[K, V], error) {
	entrySize := layout.SizeOf[Entry[K, V]]()
	if len(b)%entrySize != 0 {
		return nil, fmt.Errorf("%w: %d bytes, entry size %d", ErrBadDump, len(b), entrySize)
	}
	s, err := NewSparse[K, V](opts...)
	if err != nil {
		return nil, err
	}
	n := len(b) / entrySize
	if n == 0 {
		return s, nil
	}
	if err := s.vec.Resize(s.vec.Len() + n); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("vector.Resize: %w", err)
	}
	dst := s.vec.Bytes()
	copy(dst[len(dst)-len(b):], b)
	s.adopt()
	return s, nil
}
