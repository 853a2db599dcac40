// Copyright 2023 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package checkpoint

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magicHeader       = 0x1D3A9C01
	fileFormatVersion = 1
	fileHeaderSize    = 64

	flagSnappy = 1 << 0
	knownFlags = flagSnappy

	recordCountOff = 16
)

// Header describes the records in a checkpoint.
type Header struct {
	magic         uint32
	formatVersion uint32
	Flags         uint32
	RecordSize    uint32
	RecordCount   uint64
	Checksum      uint64
}

func newHeader(recordSize int, compressed bool) *Header {
	h := &Header{
		magic:         magicHeader,
		formatVersion: fileFormatVersion,
		RecordSize:    uint32(recordSize),
	}
	if compressed {
		h.Flags |= flagSnappy
	}
	return h
}

// Compressed reports whether the records are a snappy stream.
func (h *Header) Compressed() bool {
	return h.Flags&flagSnappy != 0
}

func (h *Header) MarshalTo(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("headerBytes too short: %d < %d", len(headerBytes), fileHeaderSize)
	}
	headerBytes = headerBytes[:fileHeaderSize]
	for i := range headerBytes {
		headerBytes[i] = 0
	}
	binary.LittleEndian.PutUint32(headerBytes[0:4], h.magic)
	binary.LittleEndian.PutUint32(headerBytes[4:8], h.formatVersion)
	binary.LittleEndian.PutUint32(headerBytes[8:12], h.Flags)
	binary.LittleEndian.PutUint32(headerBytes[12:16], h.RecordSize)
	h.marshalTrailer(headerBytes[recordCountOff:])
	return nil
}

func (h *Header) marshalTrailer(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], h.RecordCount)
	binary.LittleEndian.PutUint64(b[8:16], h.Checksum)
}

func (h *Header) WriteTo(w io.Writer) (n int64, err error) {
	var headerBuf [fileHeaderSize]byte
	if err := h.MarshalTo(headerBuf[:]); err != nil {
		return 0, err
	}
	if _, err = w.Write(headerBuf[:]); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return int64(fileHeaderSize), nil
}

// UpdateTrailer records the final record count and checksum in the
// header at the start of w.
func (h *Header) UpdateTrailer(count, checksum uint64, w io.WriterAt) error {
	h.RecordCount = count
	h.Checksum = checksum

	var buf [16]byte
	h.marshalTrailer(buf[:])
	if _, err := w.WriteAt(buf[:], recordCountOff); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}
	return nil
}

func (h *Header) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("%w: header too short: %d < %d", ErrBadCheckpoint, len(headerBytes), fileHeaderSize)
	}
	headerBytes = headerBytes[:fileHeaderSize]

	h.magic = binary.LittleEndian.Uint32(headerBytes[0:4])
	if h.magic != magicHeader {
		return fmt.Errorf("%w: bad magic number (%x) -- not an idmap checkpoint or corrupted", ErrBadCheckpoint, h.magic)
	}
	h.formatVersion = binary.LittleEndian.Uint32(headerBytes[4:8])
	if h.formatVersion != fileFormatVersion {
		return fmt.Errorf("%w: this version of idmap can only read v%d checkpoints; found v%d", ErrBadCheckpoint, fileFormatVersion, h.formatVersion)
	}
	h.Flags = binary.LittleEndian.Uint32(headerBytes[8:12])
	if h.Flags&^knownFlags != 0 {
		return fmt.Errorf("%w: unknown flags %x", ErrBadCheckpoint, h.Flags&^knownFlags)
	}
	h.RecordSize = binary.LittleEndian.Uint32(headerBytes[12:16])
	if h.RecordSize == 0 {
		return fmt.Errorf("%w: zero record size", ErrBadCheckpoint)
	}
	h.RecordCount = binary.LittleEndian.Uint64(headerBytes[16:24])
	h.Checksum = binary.LittleEndian.Uint64(headerBytes[24:32])
	return nil
}
