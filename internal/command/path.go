// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/meta"
)

// PathCommandAction prints where the cache entry for a call lives. Nothing is
// created or executed.
func PathCommandAction(_ context.Context, cmd *cli.Command) error {
	name, err := queryName(cmd)
	if err != nil {
		return err
	}

	exec, closer, err := Executor(cmd, name)
	if err != nil {
		return err
	}
	defer closer.Close()

	path, ok, err := exec.CachePath(ParseArgs(cmd.Args().Tail())...)
	if err != nil {
		return err
	}
	if !ok {
		path = "caching disabled"
	}
	_, err = fmt.Fprintln(writer(cmd), path)
	return err
}

// PathCommandBuilder constructs the cli.Command definition for "path".
func PathCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "path",
		Usage:     "print the cache file path for a call",
		UsageText: `qcache path NAME [param=value | value]...`,
		Flags:     NewSourceFlags("path", meta.Config.Source),
		Examples: [][2]string{
			{"qcache path products version=2", "where products for version 2 is cached"},
		},
		Action: PathCommandAction,
		Meta:   meta,
	}).Build()
}
