// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package vector

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bpowers/idmap/internal/layout"
	"github.com/bpowers/idmap/internal/zero"
)

// File is a Vector stored in an mmap'd file.  The file is grown with
// ftruncate and re-mapped whenever capacity changes, so the file on
// disk may be longer than Len() while the vector is open; Close
// truncates it back to exactly Len() elements, which is what a later
// NewFile adopts as the vector's contents.
//
// File does not take ownership of the *os.File: the caller closes it
// after closing the vector.
type File[T any] struct {
	f        *os.File
	data     []byte // mmap'd region, cap*elemSize bytes
	elems    []T    // typed view of data, len == cap
	n        int
	elemSize int
	random   bool
	closed   bool
	logger   *slog.Logger
}

// NewFile maps the contents of f as a vector of T.  An empty file
// gives an empty vector; otherwise the file size must be a multiple of
// the element size.  T must be pointer-free.
func NewFile[T any](f *os.File, logger *slog.Logger) (*File[T], error) {
	if err := layout.CheckPointerFree[T](); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	elemSize := layout.SizeOf[T]()
	if elemSize == 0 {
		return nil, fmt.Errorf("zero-sized element type")
	}
	stats, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	size := stats.Size()
	if size%int64(elemSize) != 0 {
		return nil, fmt.Errorf("file %s size %d not a multiple of element size %d", f.Name(), size, elemSize)
	}
	v := &File[T]{
		f:        f,
		elemSize: elemSize,
		logger:   logger,
	}
	n := int(size / int64(elemSize))
	if err := v.remap(n); err != nil {
		return nil, err
	}
	v.n = n
	return v, nil
}

// AdviseRandom tells the kernel to expect random access, turning off
// readahead for the mapping (and every later re-mapping).
func (v *File[T]) AdviseRandom() error {
	v.random = true
	if len(v.data) == 0 {
		return nil
	}
	if err := unix.Madvise(v.data, unix.MADV_RANDOM); err != nil {
		return fmt.Errorf("madvise: %w", err)
	}
	return nil
}

// remap resizes the file and its mapping to newCap elements.  The new
// mapping is established before the old one is released, so on error
// the vector is left exactly as it was.
func (v *File[T]) remap(newCap int) error {
	if newCap < 0 || newCap > math.MaxInt/v.elemSize {
		return fmt.Errorf("%w: %d elements of %d bytes", ErrTooLarge, newCap, v.elemSize)
	}
	oldCap := len(v.elems)
	stats, err := v.f.Stat()
	if err != nil {
		return fmt.Errorf("f.Stat: %w", err)
	}
	oldLen := stats.Size()
	byteLen := newCap * v.elemSize
	if int64(byteLen) > oldLen {
		if err := v.f.Truncate(int64(byteLen)); err != nil {
			return fmt.Errorf("f.Truncate(%d): %w", byteLen, err)
		}
	}
	// undo a grow of the file if the new mapping can't be made
	restore := func() {
		if int64(byteLen) > oldLen {
			_ = v.f.Truncate(oldLen)
		}
	}

	var data []byte
	var elems []T
	if newCap > 0 {
		data, err = unix.Mmap(int(v.f.Fd()), 0, byteLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			restore()
			return fmt.Errorf("mmap(%d bytes): %w", byteLen, err)
		}
		if elems, err = layout.Cast[T](data); err != nil {
			_ = unix.Munmap(data)
			restore()
			return fmt.Errorf("layout.Cast: %w", err)
		}
		if v.random {
			if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
				_ = unix.Munmap(data)
				restore()
				return fmt.Errorf("madvise: %w", err)
			}
		}
	}

	if v.data != nil {
		if err := unix.Munmap(v.data); err != nil {
			if data != nil {
				_ = unix.Munmap(data)
			}
			restore()
			return fmt.Errorf("munmap: %w", err)
		}
	}
	v.data = data
	v.elems = elems
	if int64(byteLen) < oldLen {
		if err := v.f.Truncate(int64(byteLen)); err != nil {
			return fmt.Errorf("f.Truncate(%d): %w", byteLen, err)
		}
	}
	v.logger.Debug("remapped file vector",
		"file", v.f.Name(),
		"old_cap", oldCap,
		"new_cap", newCap,
		"bytes", byteLen)
	return nil
}

func (v *File[T]) Len() int {
	if v.closed {
		return 0
	}
	return v.n
}

func (v *File[T]) Cap() int { return len(v.elems) }

func (v *File[T]) Reserve(n int) error {
	if v.closed {
		return ErrClosed
	}
	if n <= len(v.elems) {
		return nil
	}
	return v.remap(n)
}

func (v *File[T]) Resize(n int) error {
	if v.closed {
		return ErrClosed
	}
	if n < 0 {
		return outOfRange(n, v.n)
	}
	if n > len(v.elems) {
		if err := v.remap(grownCap(len(v.elems), n)); err != nil {
			return err
		}
	}
	if n > v.n {
		zero.Slice(v.elems[v.n:n])
	}
	v.n = n
	return nil
}

func (v *File[T]) At(i int) (T, error) {
	var z T
	if v.closed {
		return z, ErrClosed
	}
	if i < 0 || i >= v.n {
		return z, outOfRange(i, v.n)
	}
	return v.elems[i], nil
}

func (v *File[T]) Get(i int) T {
	return v.elems[:v.n][i]
}

func (v *File[T]) Set(i int, value T) {
	v.elems[:v.n][i] = value
}

func (v *File[T]) Append(value T) error {
	if v.closed {
		return ErrClosed
	}
	if v.n == len(v.elems) {
		if err := v.remap(grownCap(len(v.elems), v.n+1)); err != nil {
			return err
		}
	}
	v.elems[v.n] = value
	v.n++
	return nil
}

func (v *File[T]) Clear() error {
	if v.closed {
		return ErrClosed
	}
	v.n = 0
	return nil
}

func (v *File[T]) ShrinkToFit() error {
	if v.closed {
		return ErrClosed
	}
	if v.n == len(v.elems) {
		return nil
	}
	return v.remap(v.n)
}

func (v *File[T]) Slice() []T {
	if v.closed {
		return nil
	}
	return v.elems[:v.n]
}

func (v *File[T]) Bytes() []byte {
	if v.closed {
		return nil
	}
	return v.data[:v.n*v.elemSize]
}

// Sync flushes dirty pages of the mapping to the file.
func (v *File[T]) Sync() error {
	if v.closed || len(v.data) == 0 {
		return nil
	}
	if err := unix.Msync(v.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync: %w", err)
	}
	return nil
}

// Close syncs and unmaps the vector, then truncates the file to the
// vector's length.  It is safe to call more than once.
func (v *File[T]) Close() error {
	if v.closed {
		return nil
	}
	if err := v.Sync(); err != nil {
		return err
	}
	if v.data != nil {
		if err := unix.Munmap(v.data); err != nil {
			return fmt.Errorf("munmap: %w", err)
		}
		v.data = nil
		v.elems = nil
	}
	v.closed = true
	if err := v.f.Truncate(int64(v.n * v.elemSize)); err != nil {
		return fmt.Errorf("f.Truncate: %w", err)
	}
	return nil
}

var _ Vector[uint64] = (*File[uint64])(nil)
