// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	locA = location{X: 1, Y: 10}
	locB = location{X: 2, Y: 20}
	locC = location{X: 3, Y: 30}
	locX = location{X: -1, Y: -10}
	locY = location{X: -2, Y: -20}
	locZ = location{X: -3, Y: -30}
)

func newTestDense(t *testing.T, opts ...Option) *Dense[uint64, location] {
	d, err := NewDense[uint64, location](opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestDense_SetGet(t *testing.T) {
	d := newTestDense(t)
	require.NoError(t, d.Set(3, locA))
	require.NoError(t, d.Set(1, locB))
	require.NoError(t, d.Set(7, locC))

	require.Equal(t, 8, d.Size())
	require.Equal(t, 8*8, d.UsedMemory())

	v, err := d.Get(1)
	require.NoError(t, err)
	require.Equal(t, locB, v)
	v, err = d.Get(3)
	require.NoError(t, err)
	require.Equal(t, locA, v)
	v, err = d.Get(7)
	require.NoError(t, err)
	require.Equal(t, locC, v)

	for _, missing := range []uint64{0, 5, 8, 1 << 40, math.MaxUint64} {
		v, err := d.Get(missing)
		require.ErrorIs(t, err, ErrKeyNotFound)
		require.Zero(t, v)
	}

	// overwrite in place
	require.NoError(t, d.Set(3, locC))
	v, err = d.Get(3)
	require.NoError(t, err)
	require.Equal(t, locC, v)
	require.Equal(t, 8, d.Size())
	require.Equal(t, 3, d.Count())
}

func TestDense_SizeCoversLargestKey(t *testing.T) {
	d := newTestDense(t)
	require.NoError(t, d.Set(1000, locA))
	require.GreaterOrEqual(t, d.Size(), 1001)
	require.NoError(t, d.Set(10, locB))
	require.GreaterOrEqual(t, d.Size(), 1001)

	v, err := d.Get(1000)
	require.NoError(t, err)
	require.Equal(t, locA, v)

	// slots exposed by growth read as unset
	for k := uint64(11); k < 1000; k++ {
		_, err := d.Get(k)
		require.ErrorIs(t, err, ErrKeyNotFound)
	}
}

func TestDense_ZeroValue(t *testing.T) {
	d := newTestDense(t)
	require.ErrorIs(t, d.Set(1, location{}), ErrZeroValue)
	require.Equal(t, 0, d.Size())

	b := newTestDense(t, WithPresenceBitmap())
	require.NoError(t, b.Set(4, location{}))
	require.NoError(t, b.Set(2, locA))
	require.Equal(t, 5, b.Size())

	v, err := b.Get(4)
	require.NoError(t, err)
	require.Zero(t, v)
	v, err = b.Get(2)
	require.NoError(t, err)
	require.Equal(t, locA, v)
	_, err = b.Get(3)
	require.ErrorIs(t, err, ErrKeyNotFound)
	_, err = b.Get(0)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.Greater(t, b.UsedMemory(), 5*8)
	require.Equal(t, 2, b.Count())

	require.NoError(t, b.Clear())
	_, err = b.Get(4)
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, b.Set(1, locB))
	_, err = b.Get(4)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestDense_KeyOutOfRange(t *testing.T) {
	d := newTestDense(t)
	err := d.Set(math.MaxUint64, locA)
	require.ErrorIs(t, err, ErrKeyOutOfRange)
	err = d.Set(math.MaxInt64/8, locA)
	require.ErrorIs(t, err, ErrKeyOutOfRange)
	require.Equal(t, 0, d.Size())
}

func TestDense_Clear(t *testing.T) {
	d := newTestDense(t)

	// reserve(0) and clear on an empty store are no-ops
	require.NoError(t, d.Reserve(0))
	require.NoError(t, d.Clear())
	require.Equal(t, 0, d.Size())
	require.Equal(t, 0, d.UsedMemory())

	require.NoError(t, d.Reserve(100))
	require.Equal(t, 0, d.Size())

	for k := uint64(1); k <= 50; k++ {
		require.NoError(t, d.Set(k, location{X: int32(k)}))
	}
	require.NoError(t, d.Clear())
	require.Equal(t, 0, d.Size())
	require.Equal(t, 0, d.UsedMemory())
	require.NoError(t, d.Clear())
	require.Equal(t, 0, d.Size())

	_, err := d.Get(1)
	require.ErrorIs(t, err, ErrKeyNotFound)

	// a cleared store is reusable, and old values don't reappear
	require.NoError(t, d.Set(60, locA))
	for k := uint64(0); k < 60; k++ {
		_, err := d.Get(k)
		require.ErrorIs(t, err, ErrKeyNotFound)
	}
}

func TestDense_All(t *testing.T) {
	d := newTestDense(t)
	require.NoError(t, d.Set(7, locC))
	require.NoError(t, d.Set(3, locA))
	require.NoError(t, d.Set(1, locB))

	var keys []uint64
	var values []location
	for k, v := range d.All() {
		keys = append(keys, k)
		values = append(values, v)
	}
	require.Equal(t, []uint64{1, 3, 7}, keys)
	require.Equal(t, []location{locB, locA, locC}, values)

	// stop early
	n := 0
	for range d.All() {
		n++
		break
	}
	require.Equal(t, 1, n)

	require.Len(t, d.Values(), 8)
	require.Equal(t, locA, d.Values()[3])
}

func TestDense_File(t *testing.T) {
	f := createUnlinkedTestFile(t)

	d, err := NewDenseFile[uint32, location](f)
	require.NoError(t, err)
	require.Equal(t, 0, d.Size())
	for k := uint32(1); k <= 1000; k += 3 {
		require.NoError(t, d.Set(k, location{X: int32(k), Y: 1}))
	}
	require.NoError(t, d.Sync())
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	// closed stores are empty
	require.Equal(t, 0, d.Size())
	_, err = d.Get(1)
	require.ErrorIs(t, err, ErrKeyNotFound)

	stat, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(1001*8), stat.Size())

	d2, err := NewDenseFile[uint32, location](f)
	require.NoError(t, err)
	require.Equal(t, 1001, d2.Size())
	for k := uint32(0); k < 1001; k++ {
		v, err := d2.Get(k)
		if k%3 == 1 {
			require.NoError(t, err)
			require.Equal(t, location{X: int32(k), Y: 1}, v)
		} else {
			require.ErrorIs(t, err, ErrKeyNotFound)
		}
	}
	require.NoError(t, d2.Clear())
	require.NoError(t, d2.Close())

	stat, err = f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(0), stat.Size())
}

func TestDense_Errors(t *testing.T) {
	_, err := NewDense[uint32, *int]()
	require.Error(t, err)

	_, err = NewDense[uint32, struct{}]()
	require.Error(t, err)

	f := createUnlinkedTestFile(t)
	_, err = NewDenseFile[uint32, location](f, WithPresenceBitmap())
	require.Error(t, err)
}

func TestDense_FileFailedGrow(t *testing.T) {
	d, err := NewDenseFile[uint64, location](createUnlinkedTestFile(t))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, d.Close())
	}()
	require.NoError(t, d.Set(5, locA))

	require.Error(t, d.Reserve(1<<58))
	require.Equal(t, 6, d.Size())
	v, err := d.Get(5)
	require.NoError(t, err)
	require.Equal(t, locA, v)
	_, err = d.Get(4)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, d.Set(6, locB))
	v, err = d.Get(6)
	require.NoError(t, err)
	require.Equal(t, locB, v)
}

func TestDense_AllWhileGrowing(t *testing.T) {
	d, err := NewDenseFile[uint64, location](createUnlinkedTestFile(t))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, d.Close())
	}()
	for k := uint64(1); k <= 3; k++ {
		require.NoError(t, d.Set(k, location{X: int32(k)}))
	}

	var keys []uint64
	for k := range d.All() {
		keys = append(keys, k)
		if k == 1 {
			// grows past capacity and remaps the file
			require.NoError(t, d.Set(100, locC))
		}
	}
	require.Equal(t, []uint64{1, 2, 3, 100}, keys)
}
