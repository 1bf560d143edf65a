// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"os"
	"time"

	"github.com/staranto/qcache/internal/table"
)

// DefaultTTL keeps cache entries for a hundred years.
const DefaultTTL = 52 * 100 * 7 * 24 * time.Hour

// ExecFunc runs a query and returns its result. It must report query failure
// through the error; Executors never retry.
type ExecFunc func(ctx context.Context, query string) (*table.Table, error)

// Validator checks a result before it is handed to the caller.
type Validator interface {
	Validate(*table.Table) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(*table.Table) error

// Validate calls f(t).
func (f ValidatorFunc) Validate(t *table.Table) error { return f(t) }

// DefaultCacheDirectory is used when a Source is built without one.
func DefaultCacheDirectory() string {
	return os.TempDir()
}

// Source binds an execution backend to a cache directory and a default TTL.
// It is immutable once built and hands out Executors.
type Source struct {
	exec       ExecFunc
	cacheDir   string
	defaultTTL time.Duration
	now        func() time.Time
}

// SourceOption customizes a Source.
type SourceOption func(*Source)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) SourceOption {
	return func(s *Source) { s.now = now }
}

// New builds a Source. An empty cacheDir selects DefaultCacheDirectory and a
// non-positive defaultTTL selects DefaultTTL.
func New(exec ExecFunc, cacheDir string, defaultTTL time.Duration, opts ...SourceOption) *Source {
	if cacheDir == "" {
		cacheDir = DefaultCacheDirectory()
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	s := &Source{
		exec:       exec,
		cacheDir:   cacheDir,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheDir returns the cache root directory.
func (s *Source) CacheDir() string { return s.cacheDir }

// DefaultTTL returns the TTL used when a binding does not override it.
func (s *Source) DefaultTTL() time.Duration { return s.defaultTTL }

type settings struct {
	policy    Policy
	ttl       time.Duration
	ttlSet    bool
	validator Validator
}

// Option configures one binding.
type Option func(*settings)

// WithCache sets the cache policy. Caching is off by default.
func WithCache(p Policy) Option {
	return func(s *settings) { s.policy = p }
}

// WithTTL overrides the Source's default TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.ttl = ttl
		s.ttlSet = true
	}
}

// WithValidator checks every result, cached or live, with v.
func WithValidator(v Validator) Option {
	return func(s *settings) { s.validator = v }
}

// Binding is a validated caching configuration waiting for a constructor.
type Binding struct {
	src *Source
	cfg settings
}

// Bind validates opts and returns a Binding that wraps constructors into
// Executors.
func (s *Source) Bind(opts ...Option) (*Binding, error) {
	cfg := settings{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.ttlSet {
		cfg.ttl = s.defaultTTL
	}
	if cfg.ttl < 0 {
		return nil, &ConfigurationError{Setting: cfg.ttl.String(), Reason: "ttl must not be negative"}
	}
	if err := cfg.policy.validate(); err != nil {
		return nil, err
	}
	return &Binding{src: s, cfg: cfg}, nil
}

// Wrap binds c to the Source's backend under the binding's policy.
func (b *Binding) Wrap(c Constructor) *Executor {
	return &Executor{
		constructor: c,
		exec:        b.src.exec,
		cacheDir:    b.src.cacheDir,
		policy:      b.cfg.policy,
		ttl:         b.cfg.ttl,
		validator:   b.cfg.validator,
		now:         b.src.now,
	}
}

// Query is Bind followed by Wrap.
func (s *Source) Query(c Constructor, opts ...Option) (*Executor, error) {
	b, err := s.Bind(opts...)
	if err != nil {
		return nil, err
	}
	return b.Wrap(c), nil
}
