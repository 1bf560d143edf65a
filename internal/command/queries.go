// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/meta"
	"github.com/staranto/qcache/internal/output"
	"github.com/staranto/qcache/internal/table"
)

// QueriesCommandAction lists the queries defined in the config file.
func QueriesCommandAction(_ context.Context, cmd *cli.Command) error {
	cfg := GetMeta(cmd).Config
	defs, err := cfg.Queries()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(defs))
	for n := range defs {
		names = append(names, n)
	}
	sort.Strings(names)

	t := table.New(
		table.Column{Name: "name", Kind: table.String},
		table.Column{Name: "params", Kind: table.String},
		table.Column{Name: "cache", Kind: table.String},
		table.Column{Name: "ttl", Kind: table.String},
		table.Column{Name: "expect", Kind: table.String},
		table.Column{Name: "sql", Kind: table.String},
	)
	for _, n := range names {
		d := defs[n]
		params := d.Params
		if len(params) == 0 {
			if c, err := d.Constructor(); err == nil {
				params = c.Params
			}
		}
		_ = t.Append(n, strings.Join(params, ","), d.Policy().String(), nullable(d.TTL), nullable(d.Expect), d.SQL)
	}

	return output.Render(writer(cmd), t, renderOptions(cmd))
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// QueriesCommandBuilder constructs the cli.Command definition for "queries".
func QueriesCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "queries",
		Usage:     "list configured queries",
		UsageText: `qcache queries [options]`,
		Examples: [][2]string{
			{"qcache queries -t", "list queries with titles"},
			{"qcache queries -o json -f 'cache=false'", "uncached queries as json"},
		},
		Action: QueriesCommandAction,
		Meta:   meta,
	}).Build()
}
