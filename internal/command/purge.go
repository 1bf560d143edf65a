// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/cacheutil"
	"github.com/staranto/qcache/internal/meta"
)

// PurgeCommandAction removes cache entries older than --hours.
func PurgeCommandAction(_ context.Context, cmd *cli.Command) error {
	removed, err := cacheutil.Purge(cmd.String("cache-dir"), int(cmd.Int("hours")))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(writer(cmd), "removed %d cache %s\n", removed, plural(removed, "entry", "entries"))
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// PurgeCommandBuilder constructs the cli.Command definition for "purge".
func PurgeCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "purge",
		Usage:     "remove old cache entries",
		UsageText: `qcache purge [--hours N]`,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "hours",
				Usage: "remove entries last written more than this many hours ago. 0 disables",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("purge.hours", altsrc.StringSourcer(meta.Config.Source)),
				),
				Value: 168, //nolint:mnd
			},
		}, NewSourceFlags("purge", meta.Config.Source)...),
		Examples: [][2]string{
			{"qcache purge", "remove entries older than a week"},
			{"qcache purge --hours 1", "remove entries older than an hour"},
		},
		Action: PurgeCommandAction,
		Meta:   meta,
	}).Build()
}
