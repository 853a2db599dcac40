// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zero

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64(t *testing.T) {
	for _, input := range [][]uint64{
		{},
		{1, 2, 3},
	} {
		initialLen := len(input)
		initialCap := cap(input)
		expected := make([]uint64, len(input))
		Uint64(input)
		require.Equal(t, expected, input)
		require.Equal(t, initialLen, len(input))
		require.Equal(t, initialCap, cap(input))
	}
}

type point struct {
	X, Y int32
}

func TestSlice(t *testing.T) {
	input := make([]point, 3, 8)
	for i := range input {
		input[i] = point{X: int32(i + 1), Y: -int32(i + 1)}
	}
	Slice(input)
	require.Equal(t, make([]point, 3), input)
	require.Equal(t, 3, len(input))
	require.Equal(t, 8, cap(input))

	// nil and empty slices are fine
	Slice[point](nil)
	Slice([]point{})
}
