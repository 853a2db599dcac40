// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/bpowers/idmap/internal/layout"
)

// Map is an index from unsigned integer keys to fixed-size values.
type Map[K constraints.Unsigned, V comparable] interface {
	// Reserve is a capacity hint for n entries.  It never shrinks the
	// store and doesn't change its contents.
	Reserve(n int) error
	// Set associates value with key.
	Set(key K, value V) error
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key K) (V, error)
	// Size is the extent of a Dense store or the entry count of a
	// Sparse one.
	Size() int
	// UsedMemory estimates the bytes held by the store's buffers.
	UsedMemory() int
	// Clear removes everything and releases capacity.
	Clear() error
	// Sort prepares a Sparse store for Get; it is a no-op for Dense.
	Sort()
	// Close releases the store's buffer, syncing it first if it is
	// file-backed.
	Close() error
}

// Strategy selects a Map implementation.
type Strategy int

const (
	StrategyDense Strategy = iota
	StrategySparse
)

func (s Strategy) String() string {
	switch s {
	case StrategyDense:
		return "dense"
	case StrategySparse:
		return "sparse"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "dense":
		return StrategyDense, nil
	case "sparse":
		return StrategySparse, nil
	}
	return 0, fmt.Errorf("unknown strategy %q (want dense or sparse)", s)
}

// New returns an empty store using the given strategy.
func New[K constraints.Unsigned, V comparable](s Strategy, opts ...Option) (Map[K, V], error) {
	switch s {
	case StrategyDense:
		d, err := NewDense[K, V](opts...)
		if err != nil {
			return nil, err
		}
		return d, nil
	case StrategySparse:
		sp, err := NewSparse[K, V](opts...)
		if err != nil {
			return nil, err
		}
		return sp, nil
	}
	return nil, fmt.Errorf("unknown strategy %v", s)
}

// ChooseStrategy returns the strategy expected to use less memory for
// expectedCount distinct keys no larger than maxKey.
func ChooseStrategy[K constraints.Unsigned, V comparable](expectedCount int, maxKey K) Strategy {
	denseBytes, ok := DenseMemory[K, V](maxKey)
	if !ok {
		return StrategySparse
	}
	if denseBytes <= SparseMemory[K, V](expectedCount) {
		return StrategyDense
	}
	return StrategySparse
}

// DenseMemory estimates the bytes a Dense store needs to hold maxKey.
// ok is false if that doesn't fit in an int.
func DenseMemory[K constraints.Unsigned, V comparable](maxKey K) (bytes int, ok bool) {
	valueSize := uint64(layout.SizeOf[V]())
	if valueSize == 0 {
		return 0, true
	}
	slots := uint64(maxKey)
	if slots >= math.MaxInt/valueSize {
		return 0, false
	}
	return int((slots + 1) * valueSize), true
}

// SparseMemory estimates the bytes a Sparse store needs for count entries.
func SparseMemory[K constraints.Unsigned, V comparable](count int) int {
	if count < 0 {
		count = 0
	}
	return count * layout.SizeOf[Entry[K, V]]()
}
