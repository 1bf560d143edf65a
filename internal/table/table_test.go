// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	tbl := New(Column{Name: "id", Kind: Int}, Column{Name: "name", Kind: String})

	require.NoError(t, tbl.Append(int64(1), "one"))
	assert.Error(t, tbl.Append(int64(2)))
	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, 1, tbl.ColumnIndex("name"))
	assert.Equal(t, -1, tbl.ColumnIndex("missing"))
	assert.Equal(t, []string{"id", "name"}, tbl.ColumnNames())
}

func TestWithMetadataDoesNotMutate(t *testing.T) {
	tbl := New(Column{Name: "id", Kind: Int})
	tbl.Metadata = map[string]string{"a": "1"}

	out := tbl.WithMetadata(map[string]string{"b": "2", "a": "3"})

	assert.Equal(t, map[string]string{"a": "1"}, tbl.Metadata)
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, out.Metadata)
}

func TestRecords(t *testing.T) {
	ts := time.Date(2000, 1, 2, 3, 4, 5, 0, time.UTC)
	tbl := New(
		Column{Name: "at", Kind: Time},
		Column{Name: "price", Kind: Decimal},
		Column{Name: "blob", Kind: Bytes},
		Column{Name: "note", Kind: String},
	)
	require.NoError(t, tbl.Append(ts, decimal.RequireFromString("1.50"), []byte("hi"), nil))

	recs := tbl.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "2000-01-02T03:04:05Z", recs[0]["at"])
	assert.Equal(t, "1.5", recs[0]["price"])
	assert.Equal(t, "aGk=", recs[0]["blob"])
	assert.Nil(t, recs[0]["note"])
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{String, Int, Float, Bool, Time, Decimal, Bytes} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind(" Numeric ")
	require.NoError(t, err)
	assert.Equal(t, Decimal, got)

	_, err = ParseKind("uuid")
	assert.Error(t, err)
}
