// Copyright 2021 The idmap Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bpowers/idmap"
	"github.com/bpowers/idmap/internal/idtext"
)

// Run using
//  go run ./cmd/idmap <command> <flags>

var (
	verboseFlag = cli.BoolFlag{
		Name:    "verbose",
		Usage:   "log progress to stderr",
		EnvVars: []string{"IDMAP_VERBOSE"},
	}
	strategyFlag = cli.StringFlag{
		Name:    "strategy",
		Usage:   "index layout: dense, sparse, or auto to pick the smaller",
		Value:   "auto",
		EnvVars: []string{"IDMAP_STRATEGY"},
	}
)

// checkpointer is implemented by both index layouts.
type checkpointer interface {
	WriteCheckpoint(w idmap.CheckpointWriter, codec idmap.ValueCodec[idtext.Location], opts ...idmap.Option) error
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "idmap",
		Usage: "build and query id to location indexes",
		Flags: []cli.Flag{
			&verboseFlag,
		},
		Commands: []*cli.Command{
			&Build,
			&Get,
			&Info,
			&Dump,
		},
	}
}

func newLogger(context *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if context.Bool(verboseFlag.Name) {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(context.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func locationCodec() idmap.ValueCodec[idtext.Location] {
	codec, err := idmap.BinaryCodec[idtext.Location]()
	if err != nil {
		// Location is two int32s
		panic(err)
	}
	return codec
}
