// Copyright 2021 The idmap Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import (
	"github.com/bpowers/idmap/internal/zero"
)

// Bitset is an in-memory bitmap that is conceptually similar to []bool, but more memory efficient.
// Unlike a fixed-size bitmap it can be resized, which lets it track presence for a growing array.
type Bitset struct {
	bits   []uint64
	length int64
}

func getOffsets(off int64) (sliceOff int64, bitOff uint64) {
	sliceOff = off / 64
	bitOff = uint64(off) % 64
	return
}

func wordsFor(length int64) int64 {
	return (length + 63) / 64
}

// Set sets the bit at position `off` to 1.
func (b *Bitset) Set(off int64) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	u64 := &b.bits[sliceOff]
	*u64 |= 1 << bitOff
}

// Clear sets the bit at position `off` to 0.
func (b *Bitset) Clear(off int64) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	u64 := &b.bits[sliceOff]
	*u64 &= ^(1 << bitOff)
}

// IsSet returns true if the bit at position `off` is 1.
func (b *Bitset) IsSet(off int64) bool {
	if off < 0 || off >= b.length {
		return false
	}
	sliceOff, bitOff := getOffsets(off)
	u64 := &b.bits[sliceOff]
	return *u64&(1<<bitOff) != 0
}

// Len returns the number of addressable bits.
func (b *Bitset) Len() int64 {
	return b.length
}

// Resize changes the number of addressable bits.  Growing preserves
// existing bits and the new bits are 0; shrinking drops the bits past
// the new length so that a later grow doesn't resurrect them.
func (b *Bitset) Resize(length int64) {
	if length < 0 {
		length = 0
	}
	words := wordsFor(length)
	if words > int64(cap(b.bits)) {
		newCap := 2 * int64(cap(b.bits))
		if newCap < words {
			newCap = words
		}
		bits := make([]uint64, words, newCap)
		copy(bits, b.bits)
		b.bits = bits
	} else {
		oldWords := int64(len(b.bits))
		b.bits = b.bits[:words]
		if words > oldWords {
			zero.Uint64(b.bits[oldWords:])
		}
	}
	if length < b.length && words > 0 {
		// clear the tail of the last word
		if tail := uint64(length) % 64; tail != 0 {
			b.bits[words-1] &= (1 << tail) - 1
		}
	}
	b.length = length
}

// Reset drops all bits and releases the backing memory.
func (b *Bitset) Reset() {
	b.bits = nil
	b.length = 0
}

// MemoryUsage returns the number of bytes held by the bitmap words.
func (b *Bitset) MemoryUsage() int64 {
	return int64(cap(b.bits)) * 8
}

// New returns a new in-memory bitset where you can set, clear and test for individual bits.
func New(length int64) *Bitset {
	return &Bitset{
		bits:   make([]uint64, wordsFor(length)),
		length: length,
	}
}
