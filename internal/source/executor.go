// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/qcache/internal/cachefile"
	"github.com/staranto/qcache/internal/cacheutil"
	"github.com/staranto/qcache/internal/table"
)

// anonymous names the content addressed directory of unnamed constructors.
const anonymous = "query"

// Runner is what callers need from a cached query.
type Runner interface {
	Call(ctx context.Context, args ...any) (*table.Table, error)
	SQLQuery(args ...any) (string, error)
	CachePath(args ...any) (string, bool, error)
	RefreshCache(ctx context.Context, args ...any) (*table.Table, error)
}

var _ Runner = (*Executor)(nil)

// Executor is a query constructor bound to a backend and a cache policy.
// Arguments to its methods are positional values or Kw keyword values bound
// to the constructor's Params. It keeps no state between calls beyond the
// cache files it writes.
type Executor struct {
	constructor Constructor
	exec        ExecFunc
	cacheDir    string
	policy      Policy
	ttl         time.Duration
	validator   Validator
	now         func() time.Time
}

// Name is the constructor's name.
func (e *Executor) Name() string {
	if e.constructor.Name == "" {
		return anonymous
	}
	return e.constructor.Name
}

// Policy returns the cache policy.
func (e *Executor) Policy() Policy { return e.policy }

// TTL returns the maximum age of a reusable cache entry.
func (e *Executor) TTL() time.Duration { return e.ttl }

// SQLQuery returns the query the constructor builds for args.
func (e *Executor) SQLQuery(args ...any) (string, error) {
	_, query, err := e.resolve(args)
	return query, err
}

// CachePath returns where the entry for args lives. The boolean is false
// when caching is disabled. No files or directories are touched.
func (e *Executor) CachePath(args ...any) (string, bool, error) {
	if !e.policy.Enabled() {
		return "", false, nil
	}
	bound, query, err := e.resolve(args)
	if err != nil {
		return "", false, err
	}
	return e.cachePath(bound, query)
}

// AsRawResult runs the query live, skipping any cache read, and returns the
// result with the query text and its start and finish times as metadata.
func (e *Executor) AsRawResult(ctx context.Context, args ...any) (*table.Table, error) {
	_, query, err := e.resolve(args)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, query)
}

// Call returns the result for args, reusing a cache entry when one was built
// from the identical query within the TTL and writing a fresh one otherwise.
func (e *Executor) Call(ctx context.Context, args ...any) (*table.Table, error) {
	bound, query, err := e.resolve(args)
	if err != nil {
		return nil, err
	}

	path, cached := "", false
	if e.policy.Enabled() {
		if path, cached, err = e.cachePath(bound, query); err != nil {
			return nil, err
		}
	}

	var result *table.Table
	if cached {
		result = e.load(path, query)
	}

	if result == nil {
		if result, err = e.execute(ctx, query); err != nil {
			return nil, err
		}
		if cached {
			if err := cachefile.Write(path, result); errors.Is(err, cachefile.ErrNoColumns) {
				log.WithField("query", e.Name()).Debug("result has no columns, not caching")
			} else if err != nil {
				return nil, fmt.Errorf("failed to write cache entry for %s: %w", e.Name(), err)
			}
		}
	}

	if err := e.validate(result); err != nil {
		return nil, err
	}
	return result, nil
}

// RefreshCache removes the entry for args, if any, and then behaves like Call,
// so the backend always runs.
func (e *Executor) RefreshCache(ctx context.Context, args ...any) (*table.Table, error) {
	path, ok, err := e.CachePath(args...)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove cache entry: %w", err)
		}
		log.Debugf("%s: cleared cache entry %s", e.Name(), path)
	}
	return e.Call(ctx, args...)
}

func (e *Executor) resolve(args []any) (Arguments, string, error) {
	bound, err := e.constructor.bind(args)
	if err != nil {
		return nil, "", err
	}
	if e.constructor.Build == nil {
		return nil, "", fmt.Errorf("%s: constructor has no build function", e.Name())
	}
	query, err := e.constructor.Build(bound)
	if err != nil {
		return nil, "", fmt.Errorf("%s: failed to build query: %w", e.Name(), err)
	}
	return bound, query, nil
}

func (e *Executor) cachePath(bound Arguments, query string) (string, bool, error) {
	switch e.policy.mode {
	case Path:
		return e.resolvePath(e.policy.path), true, nil
	case Template:
		name, err := Format(e.policy.path, bound)
		if err != nil {
			return "", false, err
		}
		if escapes(name) {
			return "", false, &BindingError{Reason: fmt.Sprintf("cache path %q leaves its directory", name)}
		}
		return e.resolvePath(name), true, nil
	case Content:
		if !filepath.IsLocal(e.Name()) {
			return "", false, &ConfigurationError{Setting: e.Name(), Reason: "query name is not a local path"}
		}
		file := cacheutil.EncodeKey(query) + cachefile.Extension
		return filepath.Join(e.cacheDir, e.Name(), file), true, nil
	default:
		return "", false, nil
	}
}

// escapes reports whether a formatted template path climbs out of the
// directory it is rooted in.
func escapes(p string) bool {
	if !filepath.IsAbs(p) {
		return !filepath.IsLocal(p)
	}
	for _, el := range strings.Split(filepath.ToSlash(p), "/") {
		if el == ".." {
			return true
		}
	}
	return false
}

func (e *Executor) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(e.cacheDir, p)
}

// load returns the cached result at path, or nil when the entry is absent,
// built from another query, stale or unreadable.
func (e *Executor) load(path, query string) *table.Table {
	l := log.WithFields(log.Fields{"query": e.Name(), "path": path})

	h, err := cachefile.ReadHeader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.Debug("cache miss")
		} else {
			l.WithError(err).Warn("unreadable cache entry, executing query")
		}
		return nil
	}

	if !h.HasQuery || h.Query != query {
		l.Debug("cache entry was built from a different query")
		return nil
	}

	age := e.now().Sub(h.Start)
	if h.Start.IsZero() || age >= e.ttl {
		l.Debugf("cache entry is stale (age %s, ttl %s)", age, e.ttl)
		return nil
	}

	t, err := cachefile.Read(path)
	if err != nil {
		l.WithError(err).Warn("unreadable cache payload, executing query")
		return nil
	}
	l.Debugf("cache hit (%d rows)", t.NumRows())
	return t
}

func (e *Executor) execute(ctx context.Context, query string) (*table.Table, error) {
	start := e.now()
	result, err := e.exec(ctx, query)
	finish := e.now()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%s: backend returned no result", e.Name())
	}
	log.Debugf("%s: executed in %s", e.Name(), finish.Sub(start))

	return result.WithMetadata(map[string]string{
		cachefile.KeyQuery:      query,
		cachefile.KeyStartTime:  cachefile.FormatTimestamp(start),
		cachefile.KeyFinishTime: cachefile.FormatTimestamp(finish),
	}), nil
}

func (e *Executor) validate(t *table.Table) error {
	if e.validator == nil {
		return nil
	}
	err := e.validator.Validate(t)
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &ValidationError{Query: e.Name(), Err: err}
}
