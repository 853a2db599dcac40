// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package vector

import (
	"github.com/bpowers/idmap/internal/layout"
	"github.com/bpowers/idmap/internal/zero"
)

// Heap is a Vector backed by a Go slice.
type Heap[T any] struct {
	s []T
}

// NewHeap returns an empty heap-backed vector.
func NewHeap[T any]() *Heap[T] {
	return &Heap[T]{}
}

// NewHeapFrom adopts s as the vector's contents.
func NewHeapFrom[T any](s []T) *Heap[T] {
	return &Heap[T]{s: s}
}

func (h *Heap[T]) Len() int { return len(h.s) }
func (h *Heap[T]) Cap() int { return cap(h.s) }

func (h *Heap[T]) Reserve(n int) error {
	if n <= cap(h.s) {
		return nil
	}
	h.realloc(n)
	return nil
}

func (h *Heap[T]) realloc(newCap int) {
	s := make([]T, len(h.s), newCap)
	copy(s, h.s)
	h.s = s
}

func (h *Heap[T]) Resize(n int) error {
	if n < 0 {
		return outOfRange(n, len(h.s))
	}
	oldLen := len(h.s)
	if n > cap(h.s) {
		h.realloc(grownCap(cap(h.s), n))
	}
	h.s = h.s[:n]
	if n > oldLen {
		// the region between the old length and the capacity may
		// hold values from before a Clear
		zero.Slice(h.s[oldLen:n])
	}
	return nil
}

func (h *Heap[T]) At(i int) (T, error) {
	if i < 0 || i >= len(h.s) {
		var z T
		return z, outOfRange(i, len(h.s))
	}
	return h.s[i], nil
}

func (h *Heap[T]) Get(i int) T    { return h.s[i] }
func (h *Heap[T]) Set(i int, v T) { h.s[i] = v }

func (h *Heap[T]) Append(v T) error {
	if len(h.s) == cap(h.s) {
		h.realloc(grownCap(cap(h.s), len(h.s)+1))
	}
	h.s = append(h.s, v)
	return nil
}

func (h *Heap[T]) Clear() error {
	h.s = h.s[:0]
	return nil
}

func (h *Heap[T]) ShrinkToFit() error {
	if len(h.s) == cap(h.s) {
		return nil
	}
	if len(h.s) == 0 {
		h.s = nil
		return nil
	}
	h.realloc(len(h.s))
	return nil
}

func (h *Heap[T]) Slice() []T    { return h.s }
func (h *Heap[T]) Bytes() []byte { return layout.Bytes(h.s) }
func (h *Heap[T]) Close() error  { h.s = nil; return nil }

var _ Vector[uint64] = (*Heap[uint64])(nil)
