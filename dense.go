// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"os"

	"golang.org/x/exp/constraints"

	"github.com/bpowers/idmap/internal/bitset"
	"github.com/bpowers/idmap/internal/layout"
	"github.com/bpowers/idmap/internal/vector"
)

// Dense is a direct-addressed index: the value for key k lives in slot
// k of a contiguous array.  The array grows to cover the largest key
// set so far, and unset slots hold the zero value of V.
type Dense[K constraints.Unsigned, V comparable] struct {
	vec       vector.Vector[V]
	file      *vector.File[V]
	present   *bitset.Bitset
	valueSize int
	maxSlots  uint64
	logger    *slog.Logger
}

var _ Map[uint32, uint64] = (*Dense[uint32, uint64])(nil)

// NewDense returns an empty Dense store, or with WithFile one holding
// the file's previous contents.
func NewDense[K constraints.Unsigned, V comparable](opts ...Option) (*Dense[K, V], error) {
	o := newOptions(opts)
	if err := layout.CheckPointerFree[V](); err != nil {
		return nil, err
	}
	valueSize := layout.SizeOf[V]()
	if valueSize == 0 {
		return nil, errors.New("zero-sized value type")
	}

	d := &Dense[K, V]{
		valueSize: valueSize,
		maxSlots:  uint64(math.MaxInt / valueSize),
		logger:    o.logger,
	}
	if o.file != nil {
		if o.presenceBitmap {
			return nil, errors.New("a presence bitmap can't be combined with a file-backed dense index")
		}
		fv, err := vector.NewFile[V](o.file, o.logger)
		if err != nil {
			return nil, fmt.Errorf("vector.NewFile: %w", err)
		}
		if err := fv.AdviseRandom(); err != nil {
			_ = fv.Close()
			return nil, err
		}
		d.vec = fv
		d.file = fv
	} else {
		d.vec = vector.NewHeap[V]()
	}
	if o.presenceBitmap {
		d.present = bitset.New(0)
	}
	return d, nil
}

// NewDenseFile is NewDense backed by f.
func NewDenseFile[K constraints.Unsigned, V comparable](f *os.File, opts ...Option) (*Dense[K, V], error) {
	return NewDense[K, V](append(opts, WithFile(f))...)
}

func (d *Dense[K, V]) Reserve(n int) error {
	if n <= d.vec.Cap() {
		return nil
	}
	if err := d.vec.Reserve(n); err != nil {
		return fmt.Errorf("vector.Reserve: %w", err)
	}
	return nil
}

// Set stores value in slot key, growing the array if needed.  Without
// a presence bitmap the zero value can't be stored and ErrZeroValue is
// returned.
func (d *Dense[K, V]) Set(key K, value V) error {
	var zero V
	if d.present == nil && value == zero {
		return ErrZeroValue
	}
	if uint64(key) >= d.maxSlots {
		return fmt.Errorf("%w: %d", ErrKeyOutOfRange, uint64(key))
	}
	i := int(key)
	if i >= d.vec.Len() {
		oldCap := d.vec.Cap()
		if err := d.vec.Resize(i + 1); err != nil {
			return fmt.Errorf("vector.Resize: %w", err)
		}
		if newCap := d.vec.Cap(); newCap != oldCap {
			d.logger.Debug("grew dense index",
				"key", uint64(key),
				"old_cap", oldCap,
				"new_cap", newCap)
		}
		if d.present != nil {
			d.present.Resize(int64(d.vec.Len()))
		}
	}
	d.vec.Set(i, value)
	if d.present != nil {
		d.present.Set(int64(i))
	}
	return nil
}

// Get returns the value in slot key, or ErrKeyNotFound if the key is
// past the end of the array or its slot was never set.
func (d *Dense[K, V]) Get(key K) (V, error) {
	var zero V
	if uint64(key) >= uint64(d.vec.Len()) {
		return zero, ErrKeyNotFound
	}
	i := int(key)
	if d.present != nil && !d.present.IsSet(int64(i)) {
		return zero, ErrKeyNotFound
	}
	v := d.vec.Get(i)
	if d.present == nil && v == zero {
		return zero, ErrKeyNotFound
	}
	return v, nil
}

// Size is one more than the largest key ever set, or 0.
func (d *Dense[K, V]) Size() int {
	return d.vec.Len()
}

// Count walks the array and returns the number of set slots.
func (d *Dense[K, V]) Count() int {
	n := 0
	for range d.All() {
		n++
	}
	return n
}

// UsedMemory is Size times the value size, plus the presence bitmap
// if there is one.
func (d *Dense[K, V]) UsedMemory() int {
	n := d.vec.Len() * d.valueSize
	if d.present != nil {
		n += int(d.present.MemoryUsage())
	}
	return n
}

func (d *Dense[K, V]) Clear() error {
	if err := d.vec.Clear(); err != nil {
		return fmt.Errorf("vector.Clear: %w", err)
	}
	if err := d.vec.ShrinkToFit(); err != nil {
		return fmt.Errorf("vector.ShrinkToFit: %w", err)
	}
	if d.present != nil {
		d.present.Reset()
	}
	return nil
}

// Sort is a no-op; a Dense store is always ready for Get.
func (d *Dense[K, V]) Sort() {}

// All iterates over the set slots in key order.  Each step reads the
// store afresh, so it is safe to Set from within the loop.
func (d *Dense[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var zero V
		for i := 0; i < d.vec.Len(); i++ {
			v := d.vec.Get(i)
			if d.present != nil {
				if !d.present.IsSet(int64(i)) {
					continue
				}
			} else if v == zero {
				continue
			}
			if !yield(K(i), v) {
				return
			}
		}
	}
}

// Values returns the underlying array, indexed by key.  Writes to it
// are writes to the store until the next Set that grows the store, or
// Reserve, Clear or Close, after which the slice must not be used.
func (d *Dense[K, V]) Values() []V {
	return d.vec.Slice()
}

// Sync flushes a file-backed store to disk.  It is a no-op otherwise.
func (d *Dense[K, V]) Sync() error {
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

func (d *Dense[K, V]) Close() error {
	d.present = nil
	return d.vec.Close()
}
