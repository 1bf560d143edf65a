// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/cacheutil"
)

func newExamplesFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "examples",
		Usage:       "show example usages",
		HideDefault: true,
	}
}

// NewGlobalFlags builds the output flags shared by every command. Values are
// looked up under the command's namespace in the config file first, then at
// the top level. params[0] is the namespace and params[1] the config file.
func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	ns, path := params[0], params[1]

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of column[:output[:transform]] to include in results",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"attrs", altsrc.StringSourcer(path)),
			),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator, AttrsValidator)
			},
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"color", altsrc.StringSourcer(path)),
				yaml.YAML("color", altsrc.StringSourcer(path)),
			),
			Value: false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format (text, json, yaml, raw)",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"output", altsrc.StringSourcer(path)),
				yaml.YAML("output", altsrc.StringSourcer(path)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.IntFlag{
			Name:   "padding",
			Usage:  "spaces between text columns",
			Hidden: true,
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"padding", altsrc.StringSourcer(path)),
				yaml.YAML("padding", altsrc.StringSourcer(path)),
			),
			Value: 2, //nolint:mnd
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of columns to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"sort", altsrc.StringSourcer(path)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"titles", altsrc.StringSourcer(path)),
				yaml.YAML("titles", altsrc.StringSourcer(path)),
			),
			Value: false,
		},
	}

	return
}

// NewSourceFlags builds the flags that select the backend and cache. Driver,
// dsn, cache and ttl given here override the query definition, which in turn
// overrides the top level config keys of the same name.
func NewSourceFlags(params ...string) (flags []cli.Flag) {
	ns, path := params[0], params[1]

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "cache",
			Usage: "cache policy: true, false, a .parquet path or a {param} template. Overrides the query definition",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("QCACHE_POLICY"),
			),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "cache root directory",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"cache_dir", altsrc.StringSourcer(path)),
				yaml.YAML("cache_dir", altsrc.StringSourcer(path)),
			),
			Value: cacheutil.Dir(),
		},
		&cli.StringFlag{
			Name:    "driver",
			Aliases: []string{"d"},
			Usage:   "database driver (sqlite, postgres, mysql)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("QCACHE_DRIVER"),
			),
			Validator: func(value string) error {
				return FlagValidators(value, DriverValidator)
			},
		},
		&cli.StringFlag{
			Name:  "dsn",
			Usage: "database connection string",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("QCACHE_DSN"),
			),
		},
		&cli.StringFlag{
			Name:  "ttl",
			Usage: "maximum age of a reusable cache entry, e.g. 90m, 12h, 7d, 1w. Overrides the query definition",
			Validator: func(value string) error {
				return FlagValidators(value, DurationValidator)
			},
		},
	}

	return
}
