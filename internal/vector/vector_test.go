// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package vector

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type location struct {
	X, Y int32
}

// createUnlinkedTestFile creates a test file that is already removed from the
// file system -- just close it (or exit the program) and it will be cleaned up.
func createUnlinkedTestFile(t *testing.T) *os.File {
	f, err := os.CreateTemp("", "idmap-vector.*.test")
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.Name()))
	t.Cleanup(func() {
		_ = f.Close()
	})
	return f
}

func forEachImpl(t *testing.T, fn func(t *testing.T, v Vector[location])) {
	t.Run("heap", func(t *testing.T) {
		fn(t, NewHeap[location]())
	})
	t.Run("file", func(t *testing.T) {
		v, err := NewFile[location](createUnlinkedTestFile(t), nil)
		require.NoError(t, err)
		defer func() {
			require.NoError(t, v.Close())
		}()
		fn(t, v)
	})
}

func TestVector_ResizeZeroFills(t *testing.T) {
	forEachImpl(t, func(t *testing.T, v Vector[location]) {
		require.Equal(t, 0, v.Len())
		require.NoError(t, v.Resize(4))
		require.Equal(t, 4, v.Len())
		for i := 0; i < 4; i++ {
			require.Equal(t, location{}, v.Get(i))
			v.Set(i, location{int32(i), int32(i) * 2})
		}

		// shrink and grow back within capacity: old values must be gone
		require.NoError(t, v.Resize(1))
		require.NoError(t, v.Resize(4))
		require.Equal(t, location{0, 0}, v.Get(0))
		for i := 1; i < 4; i++ {
			require.Equal(t, location{}, v.Get(i))
		}
	})
}

func TestVector_At(t *testing.T) {
	forEachImpl(t, func(t *testing.T, v Vector[location]) {
		require.NoError(t, v.Resize(3))
		v.Set(2, location{7, 8})

		got, err := v.At(2)
		require.NoError(t, err)
		assert.Equal(t, location{7, 8}, got)

		_, err = v.At(3)
		require.ErrorIs(t, err, ErrOutOfRange)
		_, err = v.At(-1)
		require.ErrorIs(t, err, ErrOutOfRange)

		require.Error(t, v.Resize(-1))
	})
}

func TestVector_AppendGrowsAmortized(t *testing.T) {
	forEachImpl(t, func(t *testing.T, v Vector[location]) {
		const n = 10000
		reallocs := 0
		lastCap := v.Cap()
		for i := 0; i < n; i++ {
			require.NoError(t, v.Append(location{int32(i), -int32(i)}))
			if v.Cap() != lastCap {
				reallocs++
				lastCap = v.Cap()
			}
		}
		require.Equal(t, n, v.Len())
		// doubling growth: ~log2(n) reallocations, not n
		assert.Less(t, reallocs, 20)
		s := v.Slice()
		require.Len(t, s, n)
		for i := 0; i < n; i++ {
			require.Equal(t, location{int32(i), -int32(i)}, s[i])
		}
		assert.Len(t, v.Bytes(), n*8)
	})
}

func TestVector_ReserveClearShrink(t *testing.T) {
	forEachImpl(t, func(t *testing.T, v Vector[location]) {
		require.NoError(t, v.Reserve(0))
		require.Equal(t, 0, v.Len())

		require.NoError(t, v.Reserve(100))
		require.GreaterOrEqual(t, v.Cap(), 100)
		require.Equal(t, 0, v.Len())

		// reserve never shrinks
		require.NoError(t, v.Reserve(10))
		require.GreaterOrEqual(t, v.Cap(), 100)

		require.NoError(t, v.Append(location{1, 1}))
		require.NoError(t, v.Clear())
		require.Equal(t, 0, v.Len())
		require.NoError(t, v.ShrinkToFit())
		require.Equal(t, 0, v.Cap())

		// clearing twice is fine
		require.NoError(t, v.Clear())
		require.NoError(t, v.ShrinkToFit())
		require.Equal(t, 0, v.Len())
		require.Empty(t, v.Bytes())
	})
}

func TestFile_Reopen(t *testing.T) {
	f := createUnlinkedTestFile(t)
	v, err := NewFile[location](f, nil)
	require.NoError(t, err)
	require.NoError(t, v.AdviseRandom())

	for i := 0; i < 1000; i++ {
		require.NoError(t, v.Append(location{int32(i), 1}))
	}
	require.NoError(t, v.Close())
	// double close is a no-op
	require.NoError(t, v.Close())

	stats, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(1000*8), stats.Size())

	v2, err := NewFile[location](f, nil)
	require.NoError(t, err)
	require.Equal(t, 1000, v2.Len())
	for i := 0; i < 1000; i++ {
		got, err := v2.At(i)
		require.NoError(t, err)
		require.Equal(t, location{int32(i), 1}, got)
	}
	require.NoError(t, v2.Close())

	_, err = v2.At(0)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, v2.Append(location{}), ErrClosed)
}

func TestFile_Errors(t *testing.T) {
	f := createUnlinkedTestFile(t)
	_, err := f.Write([]byte{1, 2, 3})
	require.NoError(t, err)

	// 3 bytes isn't a whole number of 8-byte elements
	_, err = NewFile[location](f, nil)
	require.Error(t, err)

	_, err = NewFile[string](createUnlinkedTestFile(t), nil)
	require.Error(t, err)

	// if we close a file, we expect errors
	f2 := createUnlinkedTestFile(t)
	require.NoError(t, f2.Close())
	_, err = NewFile[location](f2, nil)
	require.Error(t, err)
}

func TestFile_FailedGrowKeepsContents(t *testing.T) {
	f := createUnlinkedTestFile(t)
	v, err := NewFile[location](f, nil)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		require.NoError(t, v.Append(location{int32(i), 1}))
	}
	oldCap := v.Cap()

	// 2^61 bytes can't be mapped in a 64-bit address space
	require.Error(t, v.Reserve(1<<58))
	require.Equal(t, 6, v.Len())
	require.Equal(t, oldCap, v.Cap())
	require.Len(t, v.Slice(), 6)
	for i := 0; i < 6; i++ {
		got, err := v.At(i)
		require.NoError(t, err)
		require.Equal(t, location{int32(i), 1}, got)
	}
	stats, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(oldCap*8), stats.Size())

	require.NoError(t, v.Append(location{6, 1}))
	require.NoError(t, v.Close())
	stats, err = f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(7*8), stats.Size())
}
