// Copyright 2023 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// memFile is an in-memory CheckpointWriter.
type memFile struct {
	buf []byte
}

func (m *memFile) Write(p []byte) (int, error) {
	m.buf = append(m.buf, p...)
	return len(p), nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		return 0, io.ErrShortWrite
	}
	copy(m.buf[off:], p)
	return len(p), nil
}

func (m *memFile) Reader() io.Reader {
	return bytes.NewReader(m.buf)
}

func locationCodec(t testing.TB) ValueCodec[location] {
	codec, err := BinaryCodec[location]()
	require.NoError(t, err)
	return codec
}

func TestBinaryCodec(t *testing.T) {
	codec := locationCodec(t)
	require.Equal(t, 8, codec.Size())

	buf := make([]byte, codec.Size())
	codec.Put(buf, location{X: 1, Y: -1})
	require.Equal(t, []byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}, buf)
	require.Equal(t, location{X: 1, Y: -1}, codec.Get(buf))

	u64, err := BinaryCodec[uint64]()
	require.NoError(t, err)
	require.Equal(t, 8, u64.Size())

	_, err = BinaryCodec[int]()
	require.Error(t, err)
	_, err = BinaryCodec[struct{ P *int }]()
	require.Error(t, err)
}

func TestCheckpoint_Dense(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(fmt.Sprintf("compress=%v", compress), func(t *testing.T) {
			codec := locationCodec(t)
			d := newTestDense(t)
			for k := uint64(1); k < 5000; k += 5 {
				require.NoError(t, d.Set(k, location{X: int32(k), Y: 7}))
			}

			var opts []Option
			if compress {
				opts = append(opts, WithCompression())
			}
			var f memFile
			require.NoError(t, d.WriteCheckpoint(&f, codec, opts...))

			info, err := ReadCheckpointInfo(f.Reader())
			require.NoError(t, err)
			require.Equal(t, CheckpointInfo{Records: 1000, ValueSize: 8, Compressed: compress}, info)

			d2, err := ReadDenseCheckpoint[uint64](f.Reader(), codec)
			require.NoError(t, err)
			require.Equal(t, d.Size(), d2.Size())
			require.Equal(t, d.Values(), d2.Values())

			// records from a dense store are in key order
			s, err := ReadSparseCheckpoint[uint64](f.Reader(), codec, WithSortCheck())
			require.NoError(t, err)
			require.True(t, s.Sorted())
			require.Equal(t, 1000, s.Size())
			for k, expected := range d.All() {
				v, err := s.Get(k)
				require.NoError(t, err)
				require.Equal(t, expected, v)
			}
		})
	}
}

func TestCheckpoint_Sparse(t *testing.T) {
	codec := locationCodec(t)
	s := newTestSparse(t)
	require.NoError(t, s.Set(100, locX))
	require.NoError(t, s.Set(5, location{}))
	require.NoError(t, s.Set(50, locZ))

	var f memFile
	require.NoError(t, s.WriteCheckpoint(&f, codec))

	// stored order is preserved, and an unsorted store stays unsorted
	s2, err := ReadSparseCheckpoint[uint64](f.Reader(), codec)
	require.NoError(t, err)
	require.Equal(t, s.Entries(), s2.Entries())
	require.False(t, s2.Sorted())
	s2.Sort()
	v, err := s2.Get(5)
	require.NoError(t, err)
	require.Zero(t, v)

	// as a generic Map
	m, err := ReadCheckpoint[uint64](f.Reader(), StrategySparse, codec)
	require.NoError(t, err)
	require.Equal(t, 3, m.Size())

	// the zero value needs a presence bitmap in a dense store
	_, err = ReadDenseCheckpoint[uint64](f.Reader(), codec)
	require.ErrorIs(t, err, ErrZeroValue)
	m, err = ReadCheckpoint[uint64](f.Reader(), StrategyDense, codec, WithPresenceBitmap())
	require.NoError(t, err)
	require.Equal(t, 101, m.Size())
	v, err = m.Get(5)
	require.NoError(t, err)
	require.Zero(t, v)
	_, err = m.Get(6)
	require.ErrorIs(t, err, ErrKeyNotFound)

	_, err = ReadCheckpoint[uint64](f.Reader(), Strategy(9), codec)
	require.Error(t, err)
}

func TestCheckpoint_Errors(t *testing.T) {
	codec := locationCodec(t)
	s := newTestSparse(t)
	require.NoError(t, s.Set(1<<40, locA))
	require.NoError(t, s.Set(3, locB))

	var f memFile
	require.NoError(t, s.WriteCheckpoint(&f, codec))

	// keys that don't fit the key type
	_, err := ReadSparseCheckpoint[uint32](f.Reader(), codec)
	require.ErrorIs(t, err, ErrBadCheckpoint)

	// a codec of the wrong size
	u32, err := BinaryCodec[uint32]()
	require.NoError(t, err)
	_, err = ReadSparseCheckpoint[uint64](f.Reader(), u32)
	require.ErrorIs(t, err, ErrBadCheckpoint)

	// not a checkpoint
	_, err = ReadSparseCheckpoint[uint64](bytes.NewReader(make([]byte, 100)), codec)
	require.ErrorIs(t, err, ErrBadCheckpoint)
	_, err = ReadCheckpointInfo(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrBadCheckpoint)

	// flipped payload bit
	corrupt := append([]byte(nil), f.buf...)
	corrupt[len(corrupt)-1] ^= 1
	_, err = ReadSparseCheckpoint[uint64](bytes.NewReader(corrupt), codec)
	require.ErrorIs(t, err, ErrChecksum)

	// truncated payload
	_, err = ReadSparseCheckpoint[uint64](bytes.NewReader(f.buf[:len(f.buf)-3]), codec)
	require.ErrorIs(t, err, ErrBadCheckpoint)
}

func TestCheckpoint_File(t *testing.T) {
	codec := locationCodec(t)
	m, known, err := openTestFile("testdata.small", StrategySparse)
	require.NoError(t, err)
	s := m.(*Sparse[uint64, location])

	f := createUnlinkedTestFile(t)
	require.NoError(t, s.WriteCheckpoint(f, codec, WithCompression()))

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	d, err := ReadDenseCheckpoint[uint64](f, codec, WithFile(createUnlinkedTestFile(t)))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, d.Close())
	}()
	require.Equal(t, len(known), d.Count())
	for k, expected := range known {
		v, err := d.Get(k)
		require.NoError(t, err)
		require.Equal(t, expected, v)
	}
}
