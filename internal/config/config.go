// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// FileName is the config file searched for in the standard locations.
const FileName = "qcache.yaml"

// ErrNotFound is returned when no config file exists.
var ErrNotFound = errors.New("config file not found")

// Type is a loaded config file. Namespace, typically the subcommand name, is
// tried as a prefix before the bare key on every lookup.
type Type struct {
	Source    string
	Namespace string
	Data      map[string]interface{}

	raw []byte
}

// Config is the most recently loaded config.
var Config Type

// Load reads the config file into Config. The optional argument sets the
// namespace.
func Load(ns ...string) (Type, error) {
	path, err := getConfigPath()
	if err != nil {
		return Type{}, err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Type{}, fmt.Errorf("failed to read config: %w", err)
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return Type{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	Config = Type{
		Source: path,
		Data:   data,
		raw:    bytes,
	}
	if len(ns) > 0 {
		Config.Namespace = ns[0]
	}

	return Config, nil
}

// get traverses the map using a dotted key path, namespaced key first.
func (cfg *Type) get(kspec string) (any, error) {
	candidateKeys := []string{kspec}
	if cfg.Namespace != "" {
		candidateKeys = []string{cfg.Namespace + "." + kspec, kspec}
	}

	for _, key := range candidateKeys {
		var current interface{} = cfg.Data

		success := true
		for _, k := range strings.Split(key, ".") {
			m, ok := current.(map[string]interface{})
			if !ok {
				success = false
				break
			}
			current, ok = m[k]
			if !ok {
				success = false
				break
			}
		}

		if success {
			return current, nil
		}
	}

	return nil, fmt.Errorf("no valid path found among: %v", candidateKeys)
}

// GetString returns the string at key, or the default when key is absent.
func GetString(key string, defaultValue ...string) (string, error) {
	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return "", err
	}

	switch v := val.(type) {
	case string:
		return v, nil
	case int, float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("value at %s is not a string", key)
	}
}

// GetInt returns the int at key, or the default when key is absent.
func GetInt(key string, defaultValue ...int) (int, error) {
	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	// YAML numbers may be unmarshaled as int/float64 depending on content.
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("value at %s is not an int", key)
	}
}

// GetDuration returns the duration at key, or the default when key is absent.
// Values are Go durations with d and w accepted for days and weeks.
func GetDuration(key string, defaultValue ...time.Duration) (time.Duration, error) {
	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	s, ok := val.(string)
	if !ok {
		return 0, fmt.Errorf("value at %s is not a duration", key)
	}
	return ParseDuration(s)
}

// GetStringSlice returns the list at key. A scalar becomes a one element list.
func GetStringSlice(key string) ([]string, error) {
	val, err := Config.get(key)
	if err != nil {
		return nil, err
	}

	switch v := val.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("value at %s is not a list", key)
	}
}

// ParseDuration extends time.ParseDuration with d (24h) and w (7d) units,
// e.g. "1w", "3d12h".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var total time.Duration
	for _, unit := range []struct {
		suffix string
		size   time.Duration
	}{
		{"w", 7 * 24 * time.Hour}, //nolint:mnd
		{"d", 24 * time.Hour},     //nolint:mnd
	} {
		i := strings.Index(s, unit.suffix)
		if i < 0 {
			continue
		}
		n, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		total += time.Duration(n) * unit.size
		s = s[i+1:]
	}
	if s == "" {
		return total, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %w", err)
	}
	return total + d, nil
}

func getConfigPath() (string, error) {
	if p, ok := os.LookupEnv("QCACHE_CFG"); ok && p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return p, nil
	}

	var candidates []string = []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		file := filepath.Join(c, FileName)
		if fileInfo, err := os.Stat(file); err == nil {
			if !fileInfo.IsDir() {
				log.Debugf("using config file: %s", file)
				return file, nil
			}
		}
	}
	return "", fmt.Errorf("%w in standard locations", ErrNotFound)
}
