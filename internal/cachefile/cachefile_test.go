// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cachefile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/qcache/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New(
		table.Column{Name: "name", Kind: table.String},
		table.Column{Name: "id", Kind: table.Int},
		table.Column{Name: "score", Kind: table.Float},
		table.Column{Name: "active", Kind: table.Bool},
		table.Column{Name: "seen", Kind: table.Time},
		table.Column{Name: "price", Kind: table.Decimal},
		table.Column{Name: "blob", Kind: table.Bytes},
	)
	seen := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	require.NoError(t, tbl.Append("alpha", int64(1), 1.5, true, seen, decimal.RequireFromString("12.34"), []byte{0x01, 0x02}))
	require.NoError(t, tbl.Append(nil, int64(2), nil, false, nil, nil, nil))
	tbl.Metadata = map[string]string{
		KeyQuery:      "select 1",
		KeyStartTime:  "2024-05-06T07:08:09Z",
		KeyFinishTime: "2024-05-06T07:08:10Z",
		"backend":     "sqlite",
	}
	return tbl
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "entry.parquet")
	want := sampleTable(t)

	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, want.Columns, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "alpha", got.Rows[0][0])
	assert.Equal(t, int64(1), got.Rows[0][1])
	assert.Equal(t, 1.5, got.Rows[0][2])
	assert.Equal(t, true, got.Rows[0][3])
	assert.True(t, want.Rows[0][4].(time.Time).Equal(got.Rows[0][4].(time.Time)))
	assert.True(t, decimal.RequireFromString("12.34").Equal(got.Rows[0][5].(decimal.Decimal)))
	assert.Equal(t, []byte{0x01, 0x02}, got.Rows[0][6])
	assert.Equal(t, []any{nil, int64(2), nil, false, nil, nil, nil}, got.Rows[1])

	assert.Equal(t, "select 1", got.Metadata[KeyQuery])
	assert.Equal(t, "sqlite", got.Metadata["backend"])
}

func TestWriteReadTimes(t *testing.T) {
	tests := []struct {
		name  string
		times []any
	}{
		{"sentinel dates", []any{
			time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC),
			nil,
		}},
		{"nanoseconds", []any{
			time.Date(1000, 1, 1, 0, 0, 0, 1, time.UTC),
			time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "entry.parquet")
			tbl := table.New(table.Column{Name: "at", Kind: table.Time})
			for _, ts := range tt.times {
				require.NoError(t, tbl.Append(ts))
			}
			require.NoError(t, Write(path, tbl))

			got, err := Read(path)
			require.NoError(t, err)
			require.Len(t, got.Rows, len(tt.times))
			for i, want := range tt.times {
				if want == nil {
					assert.Nil(t, got.Rows[i][0])
					continue
				}
				gotTime, ok := got.Rows[i][0].(time.Time)
				require.True(t, ok, "row %d", i)
				assert.True(t, want.(time.Time).Equal(gotTime), "row %d: want %v got %v", i, want, gotTime)
			}
		})
	}
}

func TestReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.parquet")
	require.NoError(t, Write(path, sampleTable(t)))

	h, err := ReadHeader(path)
	require.NoError(t, err)

	assert.True(t, h.HasQuery)
	assert.Equal(t, "select 1", h.Query)
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), h.Start)
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 10, 0, time.UTC), h.Finish)
	assert.Equal(t, int64(2), h.Rows)
}

func TestReadHeaderMissingTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.parquet")
	tbl := table.New(table.Column{Name: "id", Kind: table.Int})
	require.NoError(t, tbl.Append(int64(1)))
	tbl.Metadata = map[string]string{KeyStartTime: "not a time"}
	require.NoError(t, Write(path, tbl))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.False(t, h.HasQuery)
	assert.True(t, h.Start.IsZero())
	assert.True(t, h.Finish.IsZero())
}

func TestWriteReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.parquet")
	require.NoError(t, Write(path, sampleTable(t)))

	tbl := table.New(table.Column{Name: "only", Kind: table.String})
	require.NoError(t, tbl.Append("x"))
	require.NoError(t, Write(path, tbl))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"x"}}, got.Rows)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.parquet")

	assert.ErrorIs(t, Write(path, table.New()), ErrNoColumns)

	wide := &table.Table{
		Columns: []table.Column{{Name: "id", Kind: table.Int}},
		Rows:    [][]any{{int64(1), int64(2)}},
	}
	assert.ErrorContains(t, Write(path, wide), "row 0 has 2 cells")

	tbl := table.New(table.Column{Name: "id", Kind: table.Int})
	require.NoError(t, tbl.Append("not an int"))
	assert.Error(t, Write(path, tbl))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.parquet")
	require.NoError(t, os.WriteFile(path, []byte("definitely not parquet"), 0o600))

	_, err := ReadHeader(path)
	assert.Error(t, err)
	_, err = Read(path)
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"rfc3339", "2000-01-08T00:00:00Z", time.Date(2000, 1, 8, 0, 0, 0, 0, time.UTC), true},
		{"offset", "2000-01-08T02:00:00+02:00", time.Date(2000, 1, 8, 0, 0, 0, 0, time.UTC), true},
		{"naive", "1903-12-28T00:00:00", time.Date(1903, 12, 28, 0, 0, 0, 0, time.UTC), true},
		{"naive micros", "2000-01-01T00:00:00.000123", time.Date(2000, 1, 1, 0, 0, 0, 123000, time.UTC), true},
		{"garbage", "1900-0-0T00:00:00.000000", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
