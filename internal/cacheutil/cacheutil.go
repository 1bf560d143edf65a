// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"crypto/md5" //nolint:gosec // digest is a cache key, not a security boundary
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// Extension of cache entry files. Kept in step with cachefile.Extension.
const Extension = ".parquet"

// TempPattern matches the files cachefile.Write stages entries in. One left
// behind by a crashed write is an orphan.
const TempPattern = ".qcache-*.tmp"

// Entry is a cache file found on disk.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Dir resolves the base cache directory.
// Precedence:
//  1. QCACHE_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/qcache
//  3. os.TempDir()/qcache
func Dir() string {
	if c, ok := os.LookupEnv("QCACHE_CACHE_DIR"); ok && c != "" {
		return c
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "qcache")
	}
	return filepath.Join(os.TempDir(), "qcache")
}

// Enabled returns true unless QCACHE_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("QCACHE_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EncodeKey hashes k with MD5 and returns the hex string.
func EncodeKey(k string) string {
	h := md5.New() //nolint:gosec
	_, _ = h.Write([]byte(k))
	return hex.EncodeToString(h.Sum(nil))
}

// List returns the cache entries beneath dir, sorted by path. A missing dir
// is an empty cache, not an error.
func List(dir string) ([]Entry, error) {
	entries, err := walk(dir, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), Extension)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}
	return entries, nil
}

func isTemp(name string) bool {
	ok, _ := filepath.Match(TempPattern, name)
	return ok
}

func walk(dir string, match func(name string) bool) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !match(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Purge removes cache entries and orphaned temp files beneath dir older than
// the provided number of hours and returns how many were removed. If
// hours <= 0 it is a no-op.
func Purge(dir string, hours int) (int, error) {
	if hours <= 0 {
		log.Debug("cache cleaning disabled")
		return 0, nil
	}
	entries, err := walk(dir, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), Extension) || isTemp(name)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}

	maxAge := time.Duration(hours) * time.Hour
	removed := 0
	for _, e := range entries {
		if time.Since(e.ModTime) <= maxAge {
			continue
		}
		if err := os.Remove(e.Path); err == nil {
			log.Debugf("removed cache file %s", e.Path)
			removed++
		} else {
			log.WithError(err).Warnf("failed to remove cache file %s", e.Path)
		}
	}
	return removed, nil
}
