// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bpowers/idmap"
)

var Dump = cli.Command{
	Action: dump,
	Name:   "dump",
	Usage:  "converts a checkpoint into a sorted raw list for this platform",
	Flags: []cli.Flag{
		&outFlag,
	},
	ArgsUsage: "<checkpoint>",
}

func dump(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing checkpoint file")
	}
	path := context.Args().Get(0)
	logger := newLogger(context)

	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("os.Open: %w", err)
	}
	defer func() {
		_ = in.Close()
	}()
	s, err := idmap.ReadSparseCheckpoint[uint64](in, locationCodec(), idmap.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() {
		_ = s.Close()
	}()
	if !s.Sorted() {
		s.Sort()
	}

	out, err := os.Create(context.String(outFlag.Name))
	if err != nil {
		return fmt.Errorf("os.Create: %w", err)
	}
	if err := s.DumpAsList(int(out.Fd())); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("out.Close: %w", err)
	}
	logger.Info("dumped index", "entries", s.Size(), "bytes", s.ByteSize())
	return nil
}
