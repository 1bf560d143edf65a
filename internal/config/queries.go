// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/staranto/qcache/internal/source"
	"github.com/staranto/qcache/internal/validate"
)

// QueryDef is a named query under the queries: key.
//
//	queries:
//	  products:
//	    sql: select * from products where version = {version}
//	    defaults: {version: 1}
//	    cache: version-{version}.parquet
//	    ttl: 1w
//	    expect: id:int!,name:string?
type QueryDef struct {
	Name     string         `yaml:"-"`
	SQL      string         `yaml:"sql"`
	Params   []string       `yaml:"params"`
	Defaults map[string]any `yaml:"defaults"`
	Cache    string         `yaml:"cache"`
	TTL      string         `yaml:"ttl"`
	Expect   string         `yaml:"expect"`
	Driver   string         `yaml:"driver"`
	DSN      string         `yaml:"dsn"`
}

// Queries decodes every query definition in the loaded config.
func (cfg *Type) Queries() (map[string]QueryDef, error) {
	var doc struct {
		Queries map[string]QueryDef `yaml:"queries"`
	}
	if err := yaml.Unmarshal(cfg.raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode queries: %w", err)
	}

	out := make(map[string]QueryDef, len(doc.Queries))
	for name, q := range doc.Queries {
		q.Name = name
		out[name] = q
	}
	return out, nil
}

// Query returns the named query definition.
func (cfg *Type) Query(name string) (QueryDef, error) {
	queries, err := cfg.Queries()
	if err != nil {
		return QueryDef{}, err
	}
	q, ok := queries[name]
	if !ok {
		names := make([]string, 0, len(queries))
		for n := range queries {
			names = append(names, n)
		}
		sort.Strings(names)
		return QueryDef{}, fmt.Errorf("query %q not found in %s (have %v)", name, cfg.Source, names)
	}
	return q, nil
}

// Policy maps the cache: setting onto a cache policy.
func (q QueryDef) Policy() source.Policy {
	return source.ParsePolicy(q.Cache)
}

// Constructor builds the query by substituting arguments into SQL. Without
// explicit params the template fields are the parameters, in order.
func (q QueryDef) Constructor() (source.Constructor, error) {
	fields, err := source.Fields(q.SQL)
	if err != nil {
		return source.Constructor{}, fmt.Errorf("query %s: %w", q.Name, err)
	}

	params := q.Params
	if len(params) == 0 {
		seen := map[string]bool{}
		for _, f := range fields {
			if !seen[f] {
				seen[f] = true
				params = append(params, f)
			}
		}
	}

	tmpl := q.SQL
	return source.Constructor{
		Name:     q.Name,
		Params:   params,
		Defaults: q.Defaults,
		Build: func(a source.Arguments) (string, error) {
			return source.Format(tmpl, a)
		},
	}, nil
}

// Options returns the binding options for the definition: its cache policy,
// TTL when set, and a schema validator when expect: is set.
func (q QueryDef) Options() ([]source.Option, error) {
	opts := []source.Option{source.WithCache(q.Policy())}

	if q.TTL != "" {
		ttl, err := ParseDuration(q.TTL)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		opts = append(opts, source.WithTTL(ttl))
	}

	if q.Expect != "" {
		schema, err := validate.ParseSpec(q.Expect)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		opts = append(opts, source.WithValidator(schema))
	}

	return opts, nil
}
