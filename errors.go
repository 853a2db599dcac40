// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"errors"

	"github.com/bpowers/idmap/internal/checkpoint"
)

var (
	// ErrKeyNotFound is returned by Get when a key has no value.
	ErrKeyNotFound = errors.New("key not found")
	// ErrZeroValue is returned by Dense.Set when asked to store the zero
	// value, which would be indistinguishable from an unset slot.
	ErrZeroValue = errors.New("can't store the zero value without a presence bitmap")
	// ErrKeyOutOfRange is returned by Dense.Set for keys too large to
	// address in memory.
	ErrKeyOutOfRange = errors.New("key too large for a dense index")
	// ErrNotSorted is returned by Sparse.Get on a store created WithSortCheck
	// when entries were added after the last Sort.
	ErrNotSorted = errors.New("sparse index read before Sort")
	// ErrBadDump is returned when a raw list dump isn't a whole number of entries.
	ErrBadDump = errors.New("raw dump length isn't a multiple of the entry size")

	// ErrBadCheckpoint is returned when a checkpoint's header or records
	// are malformed or don't match the codec and key type being read.
	ErrBadCheckpoint = checkpoint.ErrBadCheckpoint
	// ErrChecksum is returned when a checkpoint's records don't match the
	// checksum in its header.
	ErrChecksum = checkpoint.ErrChecksum
)
