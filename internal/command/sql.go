// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/meta"
)

// SQLCommandAction prints the query a named definition builds for the given
// arguments without connecting to the database.
func SQLCommandAction(_ context.Context, cmd *cli.Command) error {
	name, err := queryName(cmd)
	if err != nil {
		return err
	}

	exec, closer, err := Executor(cmd, name)
	if err != nil {
		return err
	}
	defer closer.Close()

	query, err := exec.SQLQuery(ParseArgs(cmd.Args().Tail())...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(writer(cmd), query)
	return err
}

// SQLCommandBuilder constructs the cli.Command definition for "sql".
func SQLCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "sql",
		Usage:     "print the query a named definition builds",
		UsageText: `qcache sql NAME [param=value | value]...`,
		Flags:     NewSourceFlags("sql", meta.Config.Source),
		Examples: [][2]string{
			{"qcache sql products 2", "show the products query for version 2"},
		},
		Action: SQLCommandAction,
		Meta:   meta,
	}).Build()
}
