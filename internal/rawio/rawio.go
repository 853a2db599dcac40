// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package rawio moves raw bytes to and from file descriptors.  It
// has no notion of format: callers hand it a byte range and a
// descriptor.
package rawio

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// maxChunk bounds a single write(2) call; some platforms reject
// writes larger than INT_MAX.
const maxChunk = 1 << 30

const readChunk = 1 << 20

var errZeroWrite = errors.New("write returned 0 bytes without an error")

// WriteFull writes all of p to fd, retrying partial writes and writes
// interrupted by a signal.  Any other error is returned as-is, wrapped
// with the number of bytes that made it out.
func WriteFull(fd int, p []byte) error {
	written := 0
	for written < len(p) {
		chunk := p[written:]
		if len(chunk) > maxChunk {
			chunk = chunk[:maxChunk]
		}
		n, err := unix.Write(fd, chunk)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				if err := waitFor(fd, unix.POLLOUT); err != nil {
					return fmt.Errorf("poll(fd %d): %w", fd, err)
				}
				continue
			}
			return fmt.Errorf("write(fd %d) after %d of %d bytes: %w", fd, written, len(p), err)
		}
		if n == 0 {
			return fmt.Errorf("write(fd %d) after %d of %d bytes: %w", fd, written, len(p), errZeroWrite)
		}
		written += n
	}
	return nil
}

// ReadFull reads exactly len(p) bytes from fd.  It returns
// io.ErrUnexpectedEOF if the descriptor runs dry early, and io.EOF if
// nothing at all could be read.
func ReadFull(fd int, p []byte) error {
	read := 0
	for read < len(p) {
		n, err := readSome(fd, p[read:])
		if err != nil {
			return fmt.Errorf("read(fd %d) after %d of %d bytes: %w", fd, read, len(p), err)
		}
		if n == 0 {
			if read == 0 {
				return io.EOF
			}
			return io.ErrUnexpectedEOF
		}
		read += n
	}
	return nil
}

// ReadAll reads from fd until end of file.  sizeHint, if positive, is
// used to size the initial buffer.
func ReadAll(fd int, sizeHint int) ([]byte, error) {
	if sizeHint <= 0 {
		sizeHint = readChunk
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err == nil && st.Mode&unix.S_IFMT == unix.S_IFREG && st.Size > 0 {
			sizeHint = int(st.Size) + 1
		}
	}
	buf := make([]byte, 0, sizeHint)
	for {
		if len(buf) == cap(buf) {
			grown := make([]byte, len(buf), 2*cap(buf)+readChunk)
			copy(grown, buf)
			buf = grown
		}
		n, err := readSome(fd, buf[len(buf):cap(buf)])
		if err != nil {
			return nil, fmt.Errorf("read(fd %d) after %d bytes: %w", fd, len(buf), err)
		}
		if n == 0 {
			return buf, nil
		}
		buf = buf[:len(buf)+n]
	}
}

func readSome(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			if err := waitFor(fd, unix.POLLIN); err != nil {
				return 0, err
			}
			continue
		}
		return 0, err
	}
}

func waitFor(fd int, events int16) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
