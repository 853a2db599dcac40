// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package idtext reads and writes the "id:x,y" line format used for
// test data and as input to the idmap command.
package idtext

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

var ErrMalformed = errors.New("malformed line")

// Location is a fixed-point coordinate pair.
type Location struct {
	X int32
	Y int32
}

// ParseLine parses "id:x,y".  It doesn't allocate.
func ParseLine(line []byte) (id uint64, loc Location, err error) {
	idBytes, rest, ok := bytes.Cut(line, []byte{':'})
	if !ok {
		return 0, Location{}, ErrMalformed
	}
	xBytes, yBytes, ok := bytes.Cut(rest, []byte{','})
	if !ok {
		return 0, Location{}, ErrMalformed
	}
	if id, ok = parseUint64(idBytes); !ok {
		return 0, Location{}, ErrMalformed
	}
	if loc.X, ok = parseInt32(xBytes); !ok {
		return 0, Location{}, ErrMalformed
	}
	if loc.Y, ok = parseInt32(bytes.TrimSuffix(yBytes, []byte{'\r'})); !ok {
		return 0, Location{}, ErrMalformed
	}
	return id, loc, nil
}

// AppendLine appends "id:x,y\n" to dst.
func AppendLine(dst []byte, id uint64, loc Location) []byte {
	dst = strconv.AppendUint(dst, id, 10)
	dst = append(dst, ':')
	dst = strconv.AppendInt(dst, int64(loc.X), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(loc.Y), 10)
	return append(dst, '\n')
}

// Scan calls fn for each non-blank line of r.  Line numbers start at 1.
func Scan(r io.Reader, fn func(id uint64, loc Location) error) error {
	s := bufio.NewScanner(bufio.NewReaderSize(r, 16*1024))
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := s.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		id, loc, err := ParseLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w: %q", lineNo, err, line)
		}
		if err := fn(id, loc); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	return nil
}

func parseUint64(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if n > (math.MaxUint64-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}

func parseInt32(b []byte) (int32, bool) {
	neg := false
	if len(b) > 0 && (b[0] == '-' || b[0] == '+') {
		neg = b[0] == '-'
		b = b[1:]
	}
	n, ok := parseUint64(b)
	if !ok {
		return 0, false
	}
	if neg {
		if n > -math.MinInt32 {
			return 0, false
		}
		return int32(-int64(n)), true
	}
	if n > math.MaxInt32 {
		return 0, false
	}
	return int32(n), true
}
