// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/idmap/internal/idtext"
)

func TestGenerate(t *testing.T) {
	const n = 10000
	var out bytes.Buffer
	require.NoError(t, generate(&out, rand.New(rand.NewPCG(1, 2)), n))

	seen := make(map[uint64]bool)
	var prev uint64
	increasing := 0
	err := idtext.Scan(&out, func(id uint64, loc idtext.Location) error {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		require.NotZero(t, loc)
		if id > prev {
			increasing++
		}
		prev = id
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, n)
	require.Greater(t, increasing, n*8/10)
}
