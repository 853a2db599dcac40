// Copyright 2023 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dgryski/go-farm"
	"github.com/golang/snappy"
)

const defaultBufferSize = 4 * 1024 * 1024

var (
	ErrBadCheckpoint = errors.New("bad checkpoint")
	ErrChecksum      = errors.New("checkpoint checksum mismatch")
	ErrRecordSize    = errors.New("record has the wrong size")
)

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

// Writer streams fixed-size records into a checkpoint.  Finish must be
// called to flush buffered records and fill in the header.
type Writer struct {
	f        FileWriter
	h        *Header
	w        *bufio.Writer
	sw       *snappy.Writer
	out      io.Writer
	count    uint64
	checksum uint64
	finished atomic.Bool
}

func NewWriter(f FileWriter, recordSize int, compress bool) (*Writer, error) {
	if recordSize <= 0 {
		return nil, fmt.Errorf("invalid record size %d", recordSize)
	}
	w := &Writer{
		f: f,
		h: newHeader(recordSize, compress),
		w: bufio.NewWriterSize(f, defaultBufferSize),
	}

	if _, err := w.h.WriteTo(w.w); err != nil {
		return nil, fmt.Errorf("Header.WriteTo: %w", err)
	}

	// try to expose errors when writing to the backing file early
	if err := w.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	w.out = w.w
	if compress {
		w.sw = snappy.NewBufferedWriter(w.w)
		w.out = w.sw
	}

	return w, nil
}

func (w *Writer) Write(record []byte) error {
	if w.finished.Load() {
		return errors.New("write after Finish")
	}
	if len(record) != int(w.h.RecordSize) {
		return fmt.Errorf("%w: %d != %d", ErrRecordSize, len(record), w.h.RecordSize)
	}
	if _, err := w.out.Write(record); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	w.checksum = farm.Hash64WithSeed(record, w.checksum)
	w.count++
	return nil
}

// Count returns the number of records written so far.
func (w *Writer) Count() uint64 {
	return w.count
}

func (w *Writer) Finish() error {
	if alreadyFinished := w.finished.Swap(true); alreadyFinished {
		// nothing to do - already cleaned up
		return nil
	}

	defer func() {
		w.w.Reset(nopWriter{})
		w.w = nil
		w.sw = nil
		w.out = nil
	}()

	if w.sw != nil {
		// Close flushes the snappy stream but leaves w.w open
		if err := w.sw.Close(); err != nil {
			return fmt.Errorf("snappy.Close: %w", err)
		}
	}

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}

	return w.h.UpdateTrailer(w.count, w.checksum, w.f)
}
