// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package zero provides functions to zero slices in place.
package zero

// Slice sets every element of s to the zero value of T.  The length
// and capacity of s are unchanged.
func Slice[T any](s []T) {
	var z T
	for i := 0; i < len(s); i++ {
		s[i] = z
	}
}

func Uint64(b []uint64) {
	for i := 0; i < len(b); i++ {
		b[i] = 0
	}
}
