// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/cachefile"
	"github.com/staranto/qcache/internal/meta"
	"github.com/staranto/qcache/internal/output"
	"github.com/staranto/qcache/internal/table"
)

// InspectCommandAction prints the metadata of one cache entry, given either
// its path or a query name and arguments.
func InspectCommandAction(_ context.Context, cmd *cli.Command) error {
	target, err := queryName(cmd)
	if err != nil {
		return err
	}

	path := target
	if _, statErr := os.Stat(target); statErr != nil {
		exec, closer, err := Executor(cmd, target)
		if err != nil {
			return fmt.Errorf("%s is neither a cache file nor a query: %w", target, err)
		}
		defer closer.Close()

		var ok bool
		if path, ok, err = exec.CachePath(ParseArgs(cmd.Args().Tail())...); err != nil {
			return err
		}
		if !ok {
			_, err = fmt.Fprintln(writer(cmd), "caching disabled")
			return err
		}
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no cache entry at %s", path)
	}
	if err != nil {
		return err
	}

	h, err := cachefile.ReadHeader(path)
	if err != nil {
		return err
	}

	t := table.New(
		table.Column{Name: "key", Kind: table.String},
		table.Column{Name: "value", Kind: table.String},
	)
	add := func(k, v string) { _ = t.Append(k, v) }

	add("path", path)
	add("size", humanize.Bytes(uint64(info.Size()))) //nolint:gosec
	add("rows", humanize.Comma(h.Rows))
	if h.HasQuery {
		add("query", h.Query)
	}
	if !h.Start.IsZero() {
		add("started", cachefile.FormatTimestamp(h.Start))
		add("age", humanize.Time(h.Start))
	}
	if !h.Finish.IsZero() {
		add("finished", cachefile.FormatTimestamp(h.Finish))
		if !h.Start.IsZero() {
			add("duration", h.Finish.Sub(h.Start).String())
		}
	}
	if cols := describeColumns(h.Metadata[cachefile.KeyColumns]); cols != "" {
		add("columns", cols)
	}

	var extra []string
	for k := range h.Metadata {
		switch k {
		case cachefile.KeyQuery, cachefile.KeyStartTime, cachefile.KeyFinishTime, cachefile.KeyColumns:
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		add(k, h.Metadata[k])
	}

	opts := renderOptions(cmd)
	opts.Sort = ""
	opts.Attrs = nil
	return output.Render(writer(cmd), t, opts)
}

// describeColumns renders the stored column layout as name:kind pairs.
func describeColumns(layout string) string {
	if layout == "" {
		return ""
	}
	var columns []table.Column
	if err := json.Unmarshal([]byte(layout), &columns); err != nil {
		return ""
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c.Name + ":" + c.Kind.String()
	}
	return strings.Join(parts, ",")
}

// InspectCommandBuilder constructs the cli.Command definition for "inspect".
func InspectCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "inspect",
		Usage:     "show cache entry metadata",
		UsageText: `qcache inspect FILE | NAME [param=value | value]...`,
		Flags:     NewSourceFlags("inspect", meta.Config.Source),
		Examples: [][2]string{
			{"qcache inspect ~/.cache/qcache/users/0f3a.parquet", "inspect a cache file"},
			{"qcache inspect products version=2", "inspect the entry a call would use"},
		},
		Action: InspectCommandAction,
		Meta:   meta,
	}).Build()
}
