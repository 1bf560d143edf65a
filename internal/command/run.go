// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/meta"
	"github.com/staranto/qcache/internal/output"
	"github.com/staranto/qcache/internal/table"
)

// RunCommandAction is the action handler for the "run" subcommand. It
// executes a named query through the cache and emits the result.
func RunCommandAction(ctx context.Context, cmd *cli.Command) error {
	name, err := queryName(cmd)
	if err != nil {
		return err
	}

	exec, closer, err := Executor(cmd, name)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.WithError(err).Warn("failed to close backend")
		}
	}()

	args := ParseArgs(cmd.Args().Tail())

	var result *table.Table
	if cmd.Bool("refresh") {
		result, err = exec.RefreshCache(ctx, args...)
	} else {
		result, err = exec.Call(ctx, args...)
	}
	if err != nil {
		return err
	}

	return output.Render(writer(cmd), result, renderOptions(cmd))
}

// RunCommandBuilder constructs the cli.Command definition for "run".
func RunCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "run",
		Usage:     "run a named query through the cache",
		UsageText: `qcache run NAME [param=value | value]... [options]`,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "refresh",
				Aliases: []string{"r"},
				Usage:   "discard any cache entry and execute the query",
				Value:   false,
			},
		}, NewSourceFlags("run", meta.Config.Source)...),
		Examples: [][2]string{
			{"qcache run products 2", "run products with its first parameter set to 2"},
			{"qcache run products version=2 -o json", "same, keyword form, as JSON"},
			{"qcache run users --refresh", "re-execute and replace the cache entry"},
			{"qcache run users --cache=false", "bypass the cache entirely"},
			{"qcache run users -f 'state=open' -s -id -t", "filter, sort and show titles"},
		},
		Action: RunCommandAction,
		Meta:   meta,
	}).Build()
}
