// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bpowers/idmap"
	"github.com/bpowers/idmap/internal/idtext"
)

var Info = cli.Command{
	Action:    info,
	Name:      "info",
	Usage:     "prints the size of an index checkpoint in either layout",
	ArgsUsage: "<checkpoint>",
}

func info(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing checkpoint file")
	}
	path := context.Args().Get(0)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("os.Open: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	header, err := idmap.ReadCheckpointInfo(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("f.Seek: %w", err)
	}
	s, err := idmap.ReadSparseCheckpoint[uint64](f, locationCodec(), idmap.WithLogger(newLogger(context)))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() {
		_ = s.Close()
	}()

	var maxKey uint64
	for k := range s.All() {
		maxKey = max(maxKey, k)
	}
	best := idmap.ChooseStrategy[uint64, idtext.Location](s.Size(), maxKey)

	w := context.App.Writer
	fmt.Fprintf(w, "records:      %d\n", header.Records)
	fmt.Fprintf(w, "value size:   %d\n", header.ValueSize)
	fmt.Fprintf(w, "compressed:   %v\n", header.Compressed)
	fmt.Fprintf(w, "sorted:       %v\n", s.Sorted())
	fmt.Fprintf(w, "max id:       %d\n", maxKey)
	fmt.Fprintf(w, "sparse bytes: %d\n", s.UsedMemory())
	if dense, ok := idmap.DenseMemory[uint64, idtext.Location](maxKey); ok && s.Size() > 0 {
		fmt.Fprintf(w, "dense bytes:  %d\n", dense)
	} else if s.Size() > 0 {
		fmt.Fprintf(w, "dense bytes:  too large\n")
	}
	fmt.Fprintf(w, "strategy:     %v\n", best)
	return nil
}
