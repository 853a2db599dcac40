// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package vector provides growable, contiguous arrays of fixed-size
// values.  Two implementations exist: Heap, backed by a Go slice, and
// File, backed by an mmap'd file.  Both zero-fill slots exposed by
// growth and both expose their storage as raw bytes.
package vector

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange = errors.New("index out of range")
	ErrClosed     = errors.New("vector closed")
	ErrTooLarge   = errors.New("requested length too large")
)

// Vector is a growable linear array.  Get and Set are unchecked (they
// panic like slice indexing on a bad index); At is the bounds-checked
// accessor.
type Vector[T any] interface {
	// Len is the logical number of elements.
	Len() int
	// Cap is the number of elements that fit without reallocating.
	Cap() int
	// Reserve ensures Cap() >= n.  It never shrinks.
	Reserve(n int) error
	// Resize sets Len() to n.  New elements are zero.
	Resize(n int) error
	// At returns the element at i, or ErrOutOfRange.
	At(i int) (T, error)
	Get(i int) T
	Set(i int, v T)
	Append(v T) error
	// Clear sets Len() to 0 without releasing capacity.
	Clear() error
	// ShrinkToFit releases capacity beyond Len().
	ShrinkToFit() error
	// Slice returns a live view of the first Len() elements.  It is
	// invalidated by any operation that changes capacity.
	Slice() []T
	// Bytes returns a live raw view of the first Len() elements.
	Bytes() []byte
	Close() error
}

// grownCap returns the capacity to allocate when growing from
// oldCap to hold at least needed elements.
func grownCap(oldCap, needed int) int {
	newCap := 2 * oldCap
	if newCap < needed {
		newCap = needed
	}
	if newCap < minCap {
		newCap = minCap
	}
	return newCap
}

const minCap = 8

func outOfRange(i, n int) error {
	return fmt.Errorf("%w: %d (len %d)", ErrOutOfRange, i, n)
}
