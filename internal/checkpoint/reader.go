// Copyright 2023 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/dgryski/go-farm"
	"github.com/golang/snappy"
)

// Reader streams the records out of a checkpoint, verifying the
// checksum once the last record has been read.
type Reader struct {
	h        Header
	r        io.Reader
	buf      []byte
	read     uint64
	checksum uint64
	done     bool
}

func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, defaultBufferSize)

	var headerBuf [fileHeaderSize]byte
	if _, err := io.ReadFull(br, headerBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrBadCheckpoint, err)
	}

	cr := &Reader{r: br}
	if err := cr.h.UnmarshalBytes(headerBuf[:]); err != nil {
		return nil, fmt.Errorf("Header.UnmarshalBytes: %w", err)
	}
	if cr.h.Compressed() {
		cr.r = snappy.NewReader(br)
	}
	cr.buf = make([]byte, cr.h.RecordSize)
	return cr, nil
}

func (r *Reader) Header() Header {
	return r.h
}

// Next returns the next record.  The returned slice is reused by the
// following call.  After the last record Next returns io.EOF, or
// ErrChecksum if the records don't match the header.
func (r *Reader) Next() ([]byte, error) {
	if r.done {
		return nil, io.EOF
	}
	if r.read == r.h.RecordCount {
		r.done = true
		if r.checksum != r.h.Checksum {
			return nil, fmt.Errorf("%w: %x != %x", ErrChecksum, r.checksum, r.h.Checksum)
		}
		return nil, io.EOF
	}
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: record %d of %d: %w", ErrBadCheckpoint, r.read, r.h.RecordCount, err)
	}
	r.checksum = farm.Hash64WithSeed(r.buf, r.checksum)
	r.read++
	return r.buf, nil
}
