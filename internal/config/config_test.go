// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/qcache/internal/source"
	"github.com/staranto/qcache/internal/table"
)

// setupTestConfig points QCACHE_CFG at a testdata file and loads it.
func setupTestConfig(t *testing.T, testdataFile string, ns ...string) Type {
	t.Helper()

	absPath, err := filepath.Abs(filepath.Join("testdata", testdataFile))
	require.NoError(t, err)
	t.Setenv("QCACHE_CFG", absPath)

	t.Cleanup(func() { Config = Type{} })

	cfg, err := Load(ns...)
	require.NoError(t, err)
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := setupTestConfig(t, "qcache.yaml")
	assert.NotEmpty(t, cfg.Source)
	assert.Equal(t, "sqlite", cfg.Data["driver"])
	assert.Equal(t, 2, cfg.Data["padding"])

	cfg = setupTestConfig(t, "empty.yaml")
	assert.NotEmpty(t, cfg.Source)
	assert.Empty(t, cfg.Data)
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("QCACHE_CFG", "/nonexistent/path/qcache.yaml")

	_, err := Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_SearchPath(t *testing.T) {
	dir, err := filepath.Abs("testdata")
	require.NoError(t, err)
	t.Setenv("QCACHE_CFG", "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Cleanup(func() { Config = Type{} })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), cfg.Source)
}

func TestGetters(t *testing.T) {
	setupTestConfig(t, "qcache.yaml", "run")

	s, err := GetString("output")
	require.NoError(t, err)
	assert.Equal(t, "json", s, "namespaced key wins")

	s, err = GetString("driver")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s)

	s, err = GetString("colors.title")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", s)

	s, err = GetString("nope", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", s)

	_, err = GetString("nope")
	assert.Error(t, err)

	n, err := GetInt("padding")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = GetInt("nope", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	d, err := GetDuration("ttl")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	args, err := GetStringSlice("defaults")
	require.NoError(t, err)
	assert.Equal(t, []string{"--titles", "--sort -name"}, args)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "90m", want: 90 * time.Minute},
		{in: "1w", want: 7 * 24 * time.Hour},
		{in: "3d12h", want: 84 * time.Hour},
		{in: "1w1d", want: 8 * 24 * time.Hour},
		{in: "xd", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueries(t *testing.T) {
	cfg := setupTestConfig(t, "qcache.yaml")

	queries, err := cfg.Queries()
	require.NoError(t, err)
	require.Len(t, queries, 3)

	products := queries["products"]
	assert.Equal(t, "products", products.Name)
	assert.Equal(t, source.Template, products.Policy().Mode())
	assert.Equal(t, source.Content, queries["users"].Policy().Mode())
	assert.False(t, queries["adhoc"].Policy().Enabled())

	_, err = cfg.Query("missing")
	assert.Error(t, err)
}

func TestQueryDefConstructor(t *testing.T) {
	cfg := setupTestConfig(t, "qcache.yaml")

	users, err := cfg.Query("users")
	require.NoError(t, err)
	c, err := users.Constructor()
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "active"}, c.Params)

	adhoc, err := cfg.Query("adhoc")
	require.NoError(t, err)
	c, err = adhoc.Constructor()
	require.NoError(t, err)
	assert.Equal(t, []string{"unused"}, c.Params)
}

func TestQueryDefOptions(t *testing.T) {
	cfg := setupTestConfig(t, "qcache.yaml")
	dir := t.TempDir()

	products, err := cfg.Query("products")
	require.NoError(t, err)
	c, err := products.Constructor()
	require.NoError(t, err)
	opts, err := products.Options()
	require.NoError(t, err)

	var executed []string
	src := source.New(func(_ context.Context, q string) (*table.Table, error) {
		executed = append(executed, q)
		tbl := table.New(
			table.Column{Name: "id", Kind: table.Int},
			table.Column{Name: "name", Kind: table.String},
		)
		return tbl, tbl.Append(int64(1), nil)
	}, dir, 0)

	q, err := src.Query(c, opts...)
	require.NoError(t, err)
	assert.Equal(t, 84*time.Hour, q.TTL())

	got, err := q.SQLQuery()
	require.NoError(t, err)
	assert.Equal(t, "select * from products where version = 1", got)

	path, ok, err := q.CachePath(source.Kw("version", 2))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "version-2.parquet"), path)

	_, err = q.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"select * from products where version = 1"}, executed)

	bad := products
	bad.Expect = "id:nope"
	_, err = bad.Options()
	assert.Error(t, err)

	bad = products
	bad.TTL = "soon"
	_, err = bad.Options()
	assert.Error(t, err)
}
