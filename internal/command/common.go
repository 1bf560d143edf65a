// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/attrs"
	"github.com/staranto/qcache/internal/backend"
	"github.com/staranto/qcache/internal/cacheutil"
	"github.com/staranto/qcache/internal/config"
	"github.com/staranto/qcache/internal/meta"
	"github.com/staranto/qcache/internal/output"
	"github.com/staranto/qcache/internal/source"
	"github.com/staranto/qcache/internal/table"
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// writer is where commands print results.
func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// QueryCommandBuilder constructs a cli.Command for a subcommand using a
// consistent pattern: metadata, the shared output flags and an --examples
// short circuit.
type QueryCommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Examples  [][2]string
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (qcb *QueryCommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{}, qcb.Flags...)
	flags = append(flags, newExamplesFlag())
	flags = append(flags, NewGlobalFlags(qcb.Name, qcb.Meta.Config.Source)...)

	return &cli.Command{
		Name:      qcb.Name,
		Usage:     qcb.Usage,
		UsageText: qcb.UsageText,
		Metadata: map[string]any{
			"meta": qcb.Meta,
		},
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("examples") {
				output.DumpExamples(writer(cmd), qcb.Examples)
				return nil
			}
			m := GetMeta(cmd)
			if len(m.Args) > 1 {
				log.Debugf("Executing action for %v", m.Args[1:])
			}
			return qcb.Action(ctx, cmd)
		},
	}
}

// ParseArgs turns command line arguments into executor arguments: name=value
// becomes a keyword argument, anything else is positional.
func ParseArgs(args []string) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if name, value, ok := strings.Cut(a, "="); ok && isIdentifier(name) {
			out = append(out, source.Kw(name, value))
			continue
		}
		out = append(out, a)
	}
	return out
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// renderOptions collects the output flags.
func renderOptions(cmd *cli.Command) output.Options {
	// --attrs has already been through AttrsValidator.
	list, _ := attrs.Parse(cmd.String("attrs"))
	return output.Options{
		Attrs:   list,
		Format:  cmd.String("output"),
		Titles:  cmd.Bool("titles"),
		Color:   cmd.Bool("color"),
		Filter:  cmd.String("filter"),
		Sort:    cmd.String("sort"),
		Padding: int(cmd.Int("padding")),
		Empty:   "-",
	}
}

// lazyBackend connects on first use so commands that only inspect a query
// never open a database connection.
type lazyBackend struct {
	driver string
	dsn    string
	be     backend.Backend
}

func (l *lazyBackend) Execute(ctx context.Context, query string) (*table.Table, error) {
	if l.be == nil {
		if l.driver == "" {
			return nil, fmt.Errorf("no driver configured (set --driver, QCACHE_DRIVER or driver: in %s)", config.FileName)
		}
		be, err := backend.NewBackend(ctx, l.driver, l.dsn)
		if err != nil {
			return nil, err
		}
		l.be = be
	}
	return l.be.Execute(ctx, query)
}

func (l *lazyBackend) Close() error {
	if l.be == nil {
		return nil
	}
	return l.be.Close()
}

// Executor resolves the named query from the config file and binds it to a
// backend and the cache according to flags, the query definition and the
// top level config, in that order of precedence. The returned closer releases
// the backend connection, if one was opened.
func Executor(cmd *cli.Command, name string) (*source.Executor, io.Closer, error) {
	cfg := GetMeta(cmd).Config
	def, err := cfg.Query(name)
	if err != nil {
		return nil, nil, err
	}

	constructor, err := def.Constructor()
	if err != nil {
		return nil, nil, err
	}
	opts, err := def.Options()
	if err != nil {
		return nil, nil, err
	}

	if p := cmd.String("cache"); p != "" {
		opts = append(opts, source.WithCache(source.ParsePolicy(p)))
	}
	if !cacheutil.Enabled() {
		log.Debug("caching disabled by QCACHE_CACHE")
		opts = append(opts, source.WithCache(source.Disabled()))
	}
	if s := cmd.String("ttl"); s != "" {
		ttl, err := config.ParseDuration(s)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, source.WithTTL(ttl))
	}

	be := &lazyBackend{
		driver: firstOf(cmd.String("driver"), def.Driver, configString("driver")),
		dsn:    firstOf(cmd.String("dsn"), def.DSN, configString("dsn")),
	}

	defaultTTL, err := config.GetDuration("ttl", source.DefaultTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid ttl in %s: %w", cfg.Source, err)
	}

	src := source.New(be.Execute, cmd.String("cache-dir"), defaultTTL)
	exec, err := src.Query(constructor, opts...)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("Executor: %s policy=%s ttl=%s backend=%s", exec.Name(), exec.Policy(), exec.TTL(), be.driver)
	return exec, be, nil
}

func configString(key string) string {
	s, _ := config.GetString(key, "")
	return s
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// queryName returns the first positional argument or an error naming usage.
func queryName(cmd *cli.Command) (string, error) {
	name := cmd.Args().First()
	if name == "" {
		return "", fmt.Errorf("missing query name: usage %s", cmd.UsageText)
	}
	return name, nil
}
