// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"github.com/bpowers/idmap/internal/layout"
	"github.com/bpowers/idmap/internal/vector"
)

// Entry is a single key/value pair in a Sparse store.
type Entry[K constraints.Unsigned, V comparable] struct {
	Key   K
	Value V
}

// Sparse is an append-only list of entries.  Set appends without
// checking for duplicates; Sort orders the list by key so Get can
// binary search it.  Get is only meaningful after Sort, and a Set
// after Sort invalidates the ordering until the next Sort.
type Sparse[K constraints.Unsigned, V comparable] struct {
	vec       vector.Vector[Entry[K, V]]
	file      *vector.File[Entry[K, V]]
	entrySize int
	dirty     bool
	sortCheck bool
	bloomFP   float64
	filter    *bloom.BloomFilter
	logger    *slog.Logger
}

var _ Map[uint32, uint64] = (*Sparse[uint32, uint64])(nil)

// NewSparse returns an empty Sparse store, or with WithFile one holding
// the file's previous contents.
func NewSparse[K constraints.Unsigned, V comparable](opts ...Option) (*Sparse[K, V], error) {
	o := newOptions(opts)
	if err := layout.CheckPointerFree[V](); err != nil {
		return nil, err
	}
	if o.bloomFP < 0 || o.bloomFP >= 1 {
		return nil, fmt.Errorf("bloom filter false positive rate %v not in [0, 1)", o.bloomFP)
	}

	s := &Sparse[K, V]{
		entrySize: layout.SizeOf[Entry[K, V]](),
		sortCheck: o.sortCheck,
		bloomFP:   o.bloomFP,
		logger:    o.logger,
	}
	if o.file != nil {
		fv, err := vector.NewFile[Entry[K, V]](o.file, o.logger)
		if err != nil {
			return nil, fmt.Errorf("vector.NewFile: %w", err)
		}
		s.vec = fv
		s.file = fv
		s.adopt()
	} else {
		s.vec = vector.NewHeap[Entry[K, V]]()
	}
	return s, nil
}

// NewSparseFile is NewSparse backed by f.
func NewSparseFile[K constraints.Unsigned, V comparable](f *os.File, opts ...Option) (*Sparse[K, V], error) {
	return NewSparse[K, V](append(opts, WithFile(f))...)
}

// adopt marks entries that arrived already ordered (from a file or a
// dump) as sorted, so a redundant Sort isn't needed before Get.
func (s *Sparse[K, V]) adopt() {
	if s.vec.Len() == 0 {
		return
	}
	if slices.IsSortedFunc(s.vec.Slice(), compareEntries[K, V]) {
		s.dirty = false
		s.buildFilter()
	} else {
		s.dirty = true
	}
}

func compareEntries[K constraints.Unsigned, V comparable](a, b Entry[K, V]) int {
	return cmp.Compare(a.Key, b.Key)
}

func (s *Sparse[K, V]) Reserve(n int) error {
	if n <= s.vec.Cap() {
		return nil
	}
	if err := s.vec.Reserve(n); err != nil {
		return fmt.Errorf("vector.Reserve: %w", err)
	}
	return nil
}

// Set appends (key, value).  Setting a key twice stores both entries;
// which one Get returns afterwards is unspecified.
func (s *Sparse[K, V]) Set(key K, value V) error {
	if err := s.vec.Append(Entry[K, V]{Key: key, Value: value}); err != nil {
		return fmt.Errorf("vector.Append: %w", err)
	}
	s.dirty = true
	s.filter = nil
	return nil
}

// Sort orders the entries by key.  Entries with equal keys keep their
// insertion order.
func (s *Sparse[K, V]) Sort() {
	start := time.Now()
	slices.SortStableFunc(s.vec.Slice(), compareEntries[K, V])
	s.dirty = false
	s.logger.Debug("sorted sparse index",
		"entries", s.vec.Len(),
		"duration", time.Since(start))
	s.buildFilter()
}

func (s *Sparse[K, V]) buildFilter() {
	if s.bloomFP == 0 || s.vec.Len() == 0 {
		s.filter = nil
		return
	}
	filter := bloom.NewWithEstimates(uint(s.vec.Len()), s.bloomFP)
	var buf [8]byte
	for _, e := range s.vec.Slice() {
		binary.LittleEndian.PutUint64(buf[:], uint64(e.Key))
		filter.Add(buf[:])
	}
	s.filter = filter
	s.logger.Debug("built bloom filter",
		"entries", s.vec.Len(),
		"bits", filter.Cap(),
		"hashes", filter.K())
}

// Get binary searches for key.  The result is only defined if Sort has
// been called since the last Set; with WithSortCheck, Get reports
// ErrNotSorted instead.
func (s *Sparse[K, V]) Get(key K) (V, error) {
	var zero V
	if s.sortCheck && s.dirty {
		return zero, ErrNotSorted
	}
	if s.filter != nil {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(key))
		if !s.filter.Test(buf[:]) {
			return zero, ErrKeyNotFound
		}
	}
	entries := s.vec.Slice()
	i, found := slices.BinarySearchFunc(entries, key, func(e Entry[K, V], k K) int {
		return cmp.Compare(e.Key, k)
	})
	if !found {
		return zero, ErrKeyNotFound
	}
	return entries[i].Value, nil
}

// Sorted reports whether Get can be called, that is, whether no Set
// has happened since the last Sort.
func (s *Sparse[K, V]) Sorted() bool {
	return !s.dirty
}

// Size is the number of entries, counting duplicates.
func (s *Sparse[K, V]) Size() int {
	return s.vec.Len()
}

// ByteSize is the size of the entries in bytes, which is also the size
// of a DumpAsList of this store.
func (s *Sparse[K, V]) ByteSize() int {
	return s.vec.Len() * s.entrySize
}

// UsedMemory is ByteSize plus the bloom filter, if one has been built.
func (s *Sparse[K, V]) UsedMemory() int {
	n := s.ByteSize()
	if s.filter != nil {
		n += int(s.filter.Cap() / 8)
	}
	return n
}

func (s *Sparse[K, V]) Clear() error {
	if err := s.vec.Clear(); err != nil {
		return fmt.Errorf("vector.Clear: %w", err)
	}
	if err := s.vec.ShrinkToFit(); err != nil {
		return fmt.Errorf("vector.ShrinkToFit: %w", err)
	}
	s.dirty = false
	s.filter = nil
	return nil
}

// Entries returns the entries in their current order.  Changing a
// Value in place is fine; changing a Key requires another Sort.  The
// slice aliases the store's buffer and is only valid until the next
// Set, Reserve, Clear or Close.
func (s *Sparse[K, V]) Entries() []Entry[K, V] {
	return s.vec.Slice()
}

// All iterates over the entries in their current order.  Each step
// reads the store afresh, so a Set, Sort or Clear from within the loop
// changes which entries are seen but is otherwise safe.
func (s *Sparse[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := 0; i < s.vec.Len(); i++ {
			e := s.vec.Get(i)
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Iter returns an iterator positioned before the first entry.
func (s *Sparse[K, V]) Iter() *Iter[K, V] {
	return &Iter[K, V]{s: s, i: -1}
}

// Iter walks a Sparse store's entries by position.  It is a view of the
// live store, not a snapshot: Next reads the entry at the next position
// as of that call, and stops once the position passes the store's
// current Size.  Modifying the store mid-walk can skip or repeat
// entries but never invalidates the iterator.
type Iter[K constraints.Unsigned, V comparable] struct {
	s   *Sparse[K, V]
	i   int
	cur Entry[K, V]
}

// Next advances to the next entry, returning false at the end.
func (it *Iter[K, V]) Next() bool {
	n := it.s.vec.Len()
	if it.i < n {
		it.i++
	}
	if it.i >= n {
		it.cur = Entry[K, V]{}
		return false
	}
	it.cur = it.s.vec.Get(it.i)
	return true
}

// Entry returns the entry read by the last successful Next.
func (it *Iter[K, V]) Entry() Entry[K, V] {
	return it.cur
}

func (it *Iter[K, V]) Key() K   { return it.cur.Key }
func (it *Iter[K, V]) Value() V { return it.cur.Value }

// Sync flushes a file-backed store to disk.  It is a no-op otherwise.
func (s *Sparse[K, V]) Sync() error {
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

func (s *Sparse[K, V]) Close() error {
	s.filter = nil
	return s.vec.Close()
}
