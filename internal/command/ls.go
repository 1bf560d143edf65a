// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"path/filepath"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/cachefile"
	"github.com/staranto/qcache/internal/cacheutil"
	"github.com/staranto/qcache/internal/meta"
	"github.com/staranto/qcache/internal/output"
	"github.com/staranto/qcache/internal/table"
)

// LsCommandAction lists the cache entries beneath the cache directory.
func LsCommandAction(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("cache-dir")
	entries, err := cacheutil.List(dir)
	if err != nil {
		return err
	}

	t := table.New(
		table.Column{Name: "path", Kind: table.String},
		table.Column{Name: "size", Kind: table.Int},
		table.Column{Name: "rows", Kind: table.Int},
		table.Column{Name: "modified", Kind: table.Time},
		table.Column{Name: "age", Kind: table.String},
	)

	for _, e := range entries {
		rel, err := filepath.Rel(dir, e.Path)
		if err != nil {
			rel = e.Path
		}

		var rows any
		if h, err := cachefile.ReadHeader(e.Path); err == nil {
			rows = h.Rows
		} else {
			log.WithError(err).Debugf("unreadable cache entry %s", e.Path)
		}

		_ = t.Append(rel, e.Size, rows, e.ModTime, humanize.Time(e.ModTime))
	}

	return output.Render(writer(cmd), t, renderOptions(cmd))
}

// LsCommandBuilder constructs the cli.Command definition for "ls".
func LsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "ls",
		Usage:     "list cache entries",
		UsageText: `qcache ls [options]`,
		Flags:     NewSourceFlags("ls", meta.Config.Source),
		Examples: [][2]string{
			{"qcache ls -t -s -size", "largest entries first"},
			{"qcache ls -f 'path^users/'", "entries of the users query"},
		},
		Action: LsCommandAction,
		Meta:   meta,
	}).Build()
}
