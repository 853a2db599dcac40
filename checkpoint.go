// Copyright 2023 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package idmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"golang.org/x/exp/constraints"

	"github.com/bpowers/idmap/internal/checkpoint"
)

const (
	keySize = 8
	// cap on how much a checkpoint header can make us preallocate
	maxReserveHint = 1 << 20
)

// CheckpointWriter is usually an *os.File positioned at offset 0, but
// specified as an interface for easier testing.
type CheckpointWriter interface {
	io.Writer
	io.WriterAt
}

// ValueCodec encodes values as fixed-size byte strings for checkpoints.
type ValueCodec[V any] interface {
	// Size is the number of bytes every encoded value occupies.
	Size() int
	// Put encodes v into dst[:Size()].
	Put(dst []byte, v V)
	// Get decodes a value from src[:Size()].
	Get(src []byte) V
}

type binaryCodec[V any] struct {
	size int
}

// BinaryCodec returns a little-endian ValueCodec for V built on
// encoding/binary.  V must be a fixed-size type in the sense of
// binary.Size: no int, uint, pointers, slices or strings.
func BinaryCodec[V any]() (ValueCodec[V], error) {
	var v V
	size := binary.Size(v)
	if size <= 0 {
		return nil, fmt.Errorf("type %T has no fixed-size binary encoding", v)
	}
	return binaryCodec[V]{size: size}, nil
}

func (c binaryCodec[V]) Size() int {
	return c.size
}

func (c binaryCodec[V]) Put(dst []byte, v V) {
	if _, err := binary.Encode(dst[:c.size], binary.LittleEndian, v); err != nil {
		panic(fmt.Sprintf("binary.Encode: %v", err))
	}
}

func (c binaryCodec[V]) Get(src []byte) V {
	var v V
	if _, err := binary.Decode(src[:c.size], binary.LittleEndian, &v); err != nil {
		panic(fmt.Sprintf("binary.Decode: %v", err))
	}
	return v
}

// CheckpointInfo summarizes a checkpoint's header.
type CheckpointInfo struct {
	Records    uint64
	ValueSize  int
	Compressed bool
}

// ReadCheckpointInfo reads just the header of a checkpoint.
func ReadCheckpointInfo(r io.Reader) (CheckpointInfo, error) {
	cr, err := checkpoint.NewReader(r)
	if err != nil {
		return CheckpointInfo{}, fmt.Errorf("checkpoint.NewReader: %w", err)
	}
	h := cr.Header()
	return CheckpointInfo{
		Records:    h.RecordCount,
		ValueSize:  int(h.RecordSize) - keySize,
		Compressed: h.Compressed(),
	}, nil
}

// WriteCheckpoint writes the set slots in key order to w in the
// portable checkpoint format.  WithCompression compresses the records.
func (d *Dense[K, V]) WriteCheckpoint(w CheckpointWriter, codec ValueCodec[V], opts ...Option) error {
	o := newOptions(append([]Option{WithLogger(d.logger)}, opts...))
	return writeCheckpoint(w, codec, d.All(), "dense", o)
}

// WriteCheckpoint writes the entries in their current order to w in
// the portable checkpoint format.  WithCompression compresses the
// records.
func (s *Sparse[K, V]) WriteCheckpoint(w CheckpointWriter, codec ValueCodec[V], opts ...Option) error {
	o := newOptions(append([]Option{WithLogger(s.logger)}, opts...))
	return writeCheckpoint(w, codec, s.All(), "sparse", o)
}

func writeCheckpoint[K constraints.Unsigned, V any](w CheckpointWriter, codec ValueCodec[V], entries iter.Seq2[K, V], kind string, o options) error {
	valueSize := codec.Size()
	cw, err := checkpoint.NewWriter(w, keySize+valueSize, o.compress)
	if err != nil {
		return fmt.Errorf("checkpoint.NewWriter: %w", err)
	}
	record := make([]byte, keySize+valueSize)
	for k, v := range entries {
		binary.LittleEndian.PutUint64(record[:keySize], uint64(k))
		codec.Put(record[keySize:], v)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("checkpoint.Write: %w", err)
		}
	}
	if err := cw.Finish(); err != nil {
		return fmt.Errorf("checkpoint.Finish: %w", err)
	}
	o.logger.Info("wrote checkpoint",
		"kind", kind,
		"records", cw.Count(),
		"record_size", keySize+valueSize,
		"compressed", o.compress)
	return nil
}

// ReadDenseCheckpoint builds a Dense store from a checkpoint.  Records
// holding the zero value fail with ErrZeroValue unless
// WithPresenceBitmap is given.
func ReadDenseCheckpoint[K constraints.Unsigned, V comparable](r io.Reader, codec ValueCodec[V], opts ...Option) (*Dense[K, V], error) {
	d, err := NewDense[K, V](opts...)
	if err != nil {
		return nil, err
	}
	if err := readCheckpoint[K, V](r, codec, d, d.logger); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// ReadSparseCheckpoint builds a Sparse store from a checkpoint.  If the
// records are in key order, as they are in checkpoints written after a
// Sort or from a Dense store, the result is ready for Get.
func ReadSparseCheckpoint[K constraints.Unsigned, V comparable](r io.Reader, codec ValueCodec[V], opts ...Option) (*Sparse[K, V], error) {
	s, err := NewSparse[K, V](opts...)
	if err != nil {
		return nil, err
	}
	if err := readCheckpoint[K, V](r, codec, s, s.logger); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.adopt()
	return s, nil
}

// ReadCheckpoint builds a store of the given strategy from a checkpoint.
func ReadCheckpoint[K constraints.Unsigned, V comparable](r io.Reader, strategy Strategy, codec ValueCodec[V], opts ...Option) (Map[K, V], error) {
	switch strategy {
	case StrategyDense:
		d, err := ReadDenseCheckpoint[K](r, codec, opts...)
		if err != nil {
			return nil, err
		}
		return d, nil
	case StrategySparse:
		s, err := ReadSparseCheckpoint[K](r, codec, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown strategy %v", strategy)
}

func readCheckpoint[K constraints.Unsigned, V comparable](r io.Reader, codec ValueCodec[V], m Map[K, V], logger *slog.Logger) error {
	cr, err := checkpoint.NewReader(r)
	if err != nil {
		return fmt.Errorf("checkpoint.NewReader: %w", err)
	}
	h := cr.Header()
	valueSize := codec.Size()
	if int(h.RecordSize) != keySize+valueSize {
		return fmt.Errorf("%w: record size %d, want %d", ErrBadCheckpoint, h.RecordSize, keySize+valueSize)
	}
	if _, isSparse := m.(*Sparse[K, V]); isSparse {
		if err := m.Reserve(int(min(h.RecordCount, maxReserveHint))); err != nil {
			return err
		}
	}

	maxKey := uint64(^K(0))
	for i := uint64(0); ; i++ {
		record, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("checkpoint.Next: %w", err)
		}
		key := binary.LittleEndian.Uint64(record[:keySize])
		if key > maxKey {
			return fmt.Errorf("%w: record %d key %d overflows %T", ErrBadCheckpoint, i, key, K(0))
		}
		if err := m.Set(K(key), codec.Get(record[keySize:])); err != nil {
			return fmt.Errorf("record %d: Set(%d): %w", i, key, err)
		}
	}
	logger.Info("read checkpoint",
		"records", h.RecordCount,
		"record_size", h.RecordSize,
		"compressed", h.Compressed())
	return nil
}
