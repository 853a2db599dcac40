// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package idmap maps unsigned integer identifiers to small fixed-size
// values during bulk processing.  It offers two storage strategies
// behind one Map interface:
//
//   - Dense is a direct-addressed array indexed by the key.  Set and
//     Get are O(1); memory is proportional to the largest key.  The
//     zero value of V marks an unset slot unless WithPresenceBitmap is
//     used.
//   - Sparse is an append-only list of (key, value) entries.  After all
//     Sets, Sort must be called once; Get then binary searches.  Memory
//     is proportional to the number of entries.
//
// ChooseStrategy picks the cheaper of the two from the expected entry
// count and the largest expected key.
//
// Both strategies are single-writer: populate, Sort, then read.  None of
// the types in this package are safe for concurrent mutation.
//
// Values must be fixed-size and pointer-free (integers, floats, arrays
// and structs of those), since stores can live in mmap'd files and be
// dumped as raw bytes.
package idmap
