// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bpowers/idmap"
	"github.com/bpowers/idmap/internal/idtext"
)

var Build = cli.Command{
	Action: build,
	Name:   "build",
	Usage:  "reads id:x,y lines and writes an index checkpoint",
	Flags: []cli.Flag{
		&strategyFlag,
		&outFlag,
		&compressFlag,
		&scratchFlag,
		&presenceFlag,
	},
	ArgsUsage: "<input>",
}

var (
	outFlag = cli.StringFlag{
		Name:     "out",
		Aliases:  []string{"o"},
		Usage:    "file to write the checkpoint to",
		Required: true,
		EnvVars:  []string{"IDMAP_OUT"},
	}
	compressFlag = cli.BoolFlag{
		Name:    "compress",
		Usage:   "snappy-compress the checkpoint records",
		EnvVars: []string{"IDMAP_COMPRESS"},
	}
	scratchFlag = cli.StringFlag{
		Name:    "scratch",
		Usage:   "build the index in this mmap'd file instead of in memory",
		EnvVars: []string{"IDMAP_SCRATCH"},
	}
	presenceFlag = cli.BoolFlag{
		Name:    "presence-bitmap",
		Usage:   "allow 0,0 locations in a dense index by tracking set ids in a bitmap",
		EnvVars: []string{"IDMAP_PRESENCE_BITMAP"},
	}
)

func build(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing input file")
	}
	input := context.Args().Get(0)
	logger := newLogger(context)
	start := time.Now()

	strategy, err := resolveStrategy(context.String(strategyFlag.Name), input)
	if err != nil {
		return err
	}

	opts := []idmap.Option{idmap.WithLogger(logger)}
	if scratch := context.String(scratchFlag.Name); scratch != "" {
		f, err := os.OpenFile(scratch, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("os.OpenFile: %w", err)
		}
		defer func() {
			_ = f.Close()
			_ = os.Remove(scratch)
		}()
		opts = append(opts, idmap.WithFile(f))
	}
	if context.Bool(presenceFlag.Name) {
		opts = append(opts, idmap.WithPresenceBitmap())
	}

	m, err := idmap.New[uint64, idtext.Location](strategy, opts...)
	if err != nil {
		return err
	}
	defer func() {
		_ = m.Close()
	}()

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("os.Open: %w", err)
	}
	defer func() {
		_ = in.Close()
	}()
	if err := idtext.Scan(in, m.Set); err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	m.Sort()

	out, err := os.Create(context.String(outFlag.Name))
	if err != nil {
		return fmt.Errorf("os.Create: %w", err)
	}
	var writeOpts []idmap.Option
	if context.Bool(compressFlag.Name) {
		writeOpts = append(writeOpts, idmap.WithCompression())
	}
	if err := m.(checkpointer).WriteCheckpoint(out, locationCodec(), writeOpts...); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("out.Close: %w", err)
	}

	logger.Info("built index",
		"strategy", strategy,
		"size", m.Size(),
		"used_memory", m.UsedMemory(),
		"duration", time.Since(start))
	return nil
}

// resolveStrategy turns "auto" into a concrete strategy by scanning the
// input once for its entry count and largest id.
func resolveStrategy(name, input string) (idmap.Strategy, error) {
	if name != "auto" {
		return idmap.ParseStrategy(name)
	}
	count, maxKey, err := scanStats(input)
	if err != nil {
		return 0, err
	}
	return idmap.ChooseStrategy[uint64, idtext.Location](count, maxKey), nil
}

func scanStats(input string) (count int, maxKey uint64, err error) {
	f, err := os.Open(input)
	if err != nil {
		return 0, 0, fmt.Errorf("os.Open: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	err = idtext.Scan(f, func(id uint64, _ idtext.Location) error {
		count++
		maxKey = max(maxKey, id)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", input, err)
	}
	return count, maxKey, nil
}
