// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	crand "crypto/rand"
	"encoding/binary"
	"io"
	"math"
	"math/rand/v2"
	"os"

	"github.com/bpowers/idmap/internal/idtext"
)

const (
	nPairs = 1000000
	// fraction of ids drawn from anywhere below the current id,
	// rather than just past it
	outOfOrder = 0.05
)

func newRand() *rand.Rand {
	var seedBytes [16]byte
	if _, err := crand.Read(seedBytes[:]); err != nil {
		panic(err)
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seedBytes[:8]),
		binary.LittleEndian.Uint64(seedBytes[8:])))
}

// generate writes n lines of mostly-increasing unique ids with random
// nonzero locations.
func generate(w io.Writer, rng *rand.Rand, n int) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	seen := make(map[uint64]struct{}, n)
	var buf []byte
	next := uint64(1000)
	for len(seen) < n {
		var id uint64
		if rng.Float64() < outOfOrder {
			id = 1 + rng.Uint64N(next)
		} else {
			// mostly dense, with the occasional gap
			next += 1 + uint64(rng.ExpFloat64()*2)
			id = next
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		loc := idtext.Location{
			X: rng.Int32N(math.MaxInt32) + 1,
			Y: rng.Int32N(math.MaxInt32) - math.MaxInt32/2,
		}
		buf = idtext.AppendLine(buf[:0], id, loc)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func main() {
	if err := generate(os.Stdout, newRand(), nPairs); err != nil {
		panic(err)
	}
}
