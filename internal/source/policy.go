// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/staranto/qcache/internal/cachefile"
)

// Mode selects how an Executor addresses its cache entries.
type Mode int

const (
	// Off disables caching and all cache file I/O.
	Off Mode = iota
	// Content keys entries by a digest of the query string.
	Content
	// Path uses one fixed file for every call.
	Path
	// Template derives the file name from the call arguments.
	Template
)

// Policy is a cache policy. The zero value disables caching.
type Policy struct {
	mode Mode
	path string
}

// Disabled turns caching off.
func Disabled() Policy { return Policy{} }

// ContentAddressed stores one entry per distinct query string under
// <cache dir>/<constructor name>/.
func ContentAddressed() Policy { return Policy{mode: Content} }

// At stores every call in the file at path. Relative paths are resolved
// against the cache directory.
func At(path string) Policy { return Policy{mode: Path, path: path} }

// Templated stores calls at tmpl with {param} fields filled from the call
// arguments, e.g. "version-{version}.parquet".
func Templated(tmpl string) Policy { return Policy{mode: Template, path: tmpl} }

// ParsePolicy maps a config or flag value onto a Policy: booleans toggle
// content addressing, strings with {fields} are templates and anything else
// is a fixed path.
func ParsePolicy(s string) Policy {
	s = strings.TrimSpace(s)
	if s == "" {
		return Disabled()
	}
	switch strings.ToLower(s) {
	case "on", "yes":
		return ContentAddressed()
	case "off", "no", "none":
		return Disabled()
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return ContentAddressed()
		}
		return Disabled()
	}
	if strings.ContainsAny(s, "{}") {
		return Templated(s)
	}
	return At(s)
}

// Mode reports the addressing mode.
func (p Policy) Mode() Mode { return p.mode }

// Enabled reports whether the policy caches at all.
func (p Policy) Enabled() bool { return p.mode != Off }

func (p Policy) String() string {
	switch p.mode {
	case Content:
		return "true"
	case Path, Template:
		return p.path
	default:
		return "false"
	}
}

func (p Policy) validate() error {
	switch p.mode {
	case Off, Content:
		return nil
	case Template:
		if _, err := Fields(p.path); err != nil {
			return &ConfigurationError{Setting: p.path, Reason: err.Error()}
		}
	}
	if p.path == "" {
		return &ConfigurationError{Setting: p.path, Reason: "cache path is empty"}
	}
	if filepath.Ext(p.path) != cachefile.Extension {
		return &ConfigurationError{
			Setting: p.path,
			Reason:  "cache paths must have the '" + cachefile.Extension + "' file extension",
		}
	}
	return nil
}
