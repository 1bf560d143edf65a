// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/qcache/internal/command"
	"github.com/staranto/qcache/internal/config"
	mylog "github.com/staranto/qcache/internal/log"
	"github.com/staranto/qcache/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an @set argument into the args stored under
// <command>.<set> in the config file. Without an @set, <command>.defaults is
// expanded right after the command.
func mangleArguments(args []string) []string {
	// We know the first two args are going to be the executable and command.
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	// Short-circuit for --help/-h. If help is requested, just keep the preamble
	// and add --help flag.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	if strings.HasPrefix(args[1], "-") {
		return args
	}

	if _, err := config.Load(args[1]); err != nil {
		log.Debugf("no arg sets: %v", err)
		return args
	}

	out := append(preamble, args[2:]...) //nolint:gocritic
	idx := 2
	set := "defaults"
	// See if there is a @set specified. If so, that becomes the insertion point
	// and the @set entry is removed from args.
	for i, a := range out[idx:] {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			set = a[1:]
			idx += i
			out = append(out[:idx], out[idx+1:]...)
			break
		}
	}

	setArgs, _ := config.GetStringSlice(args[1] + "." + set)
	for _, arg := range setArgs {
		parts := strings.Fields(arg)
		out = append(out[:idx], append(parts, out[idx:]...)...)
		idx += len(parts)
	}

	log.Debugf("idx=%d, set=%s, args=%v", idx, set, out)
	return out
}
