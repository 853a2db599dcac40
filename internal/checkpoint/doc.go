// Copyright 2023 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package checkpoint reads and writes portable snapshots of fixed-size
// records.  Unlike a raw list dump, a checkpoint has a versioned
// header, fixed-width little-endian fields and a checksum, so it can
// move between machines.
//
// A checkpoint looks like:
//
//	┌───────────────────┐
//	│ file header       │  64 bytes, never compressed
//	├───────────────────┤
//	│ records           │  recordCount * recordSize bytes,
//	│                   │  optionally as a snappy stream
//	│                   │
//	└───────────────────┘
//
// The header is:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic             | format version    |
//	+----+----+----+----+----+----+----+----+
//	| flags             | record size       |
//	+----+----+----+----+----+----+----+----+
//	| record count                          |
//	+----+----+----+----+----+----+----+----+
//	| checksum                              |
//	+----+----+----+----+----+----+----+----+
//	| reserved (32 bytes)                   |
//
// The checksum chains farm.Hash64WithSeed over the records in order,
// seeded with 0, so a reader can verify it while streaming.  Record
// count and checksum are filled in once the writer is finished.
package checkpoint
