// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/bpowers/idmap"
	"github.com/bpowers/idmap/internal/idtext"
)

var Get = cli.Command{
	Action: get,
	Name:   "get",
	Usage:  "looks up ids in an index checkpoint",
	Flags: []cli.Flag{
		&getStrategyFlag,
		&rawFlag,
	},
	ArgsUsage: "<checkpoint> <id>...",
}

var (
	getStrategyFlag = cli.StringFlag{
		Name:    "strategy",
		Usage:   "layout to load the checkpoint into: dense, sparse, or auto (sparse)",
		Value:   "sparse",
		EnvVars: []string{"IDMAP_GET_STRATEGY"},
	}
	rawFlag = cli.BoolFlag{
		Name:  "raw",
		Usage: "the file is a raw list written by dump, not a checkpoint",
	}
)

func get(context *cli.Context) error {
	if context.Args().Len() < 2 {
		return fmt.Errorf("expected a checkpoint and at least one id")
	}
	path := context.Args().Get(0)
	ids := make([]uint64, 0, context.Args().Len()-1)
	for _, arg := range context.Args().Slice()[1:] {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("bad id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}

	m, err := load(context, path)
	if err != nil {
		return err
	}
	defer func() {
		_ = m.Close()
	}()

	w := context.App.Writer
	for _, id := range ids {
		loc, err := m.Get(id)
		if errors.Is(err, idmap.ErrKeyNotFound) {
			fmt.Fprintf(w, "%d\tnot found\n", id)
			continue
		} else if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%d,%d\n", id, loc.X, loc.Y)
	}
	return nil
}

func load(context *cli.Context, path string) (idmap.Map[uint64, idtext.Location], error) {
	logger := newLogger(context)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if context.Bool(rawFlag.Name) {
		s, err := idmap.LoadSparseList[uint64, idtext.Location](int(f.Fd()), idmap.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if !s.Sorted() {
			s.Sort()
		}
		return s, nil
	}

	// a checkpoint doesn't record its max id up front, so auto loads
	// into the layout that fits any checkpoint
	name := context.String(getStrategyFlag.Name)
	if name == "auto" {
		name = "sparse"
	}
	strategy, err := idmap.ParseStrategy(name)
	if err != nil {
		return nil, err
	}
	opts := []idmap.Option{idmap.WithLogger(logger)}
	if strategy == idmap.StrategyDense {
		opts = append(opts, idmap.WithPresenceBitmap())
	}
	m, err := idmap.ReadCheckpoint[uint64](f, strategy, locationCodec(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Sort()
	return m, nil
}
